package shape

import (
	yaml "gopkg.in/yaml.v3"
)

// decodeRelaxed parses JSON that carries the common hand-edited extensions:
// line and block comments, trailing commas, and unquoted object keys. The
// input is rewritten into strict JSON and decoded normally.
func decodeRelaxed(data []byte) (any, bool) {
	return decodeStrict(sanitizeRelaxed(data))
}

// sanitizeRelaxed rewrites relaxed JSON into strict JSON:
//   - // and /* */ comments are dropped (string contents untouched)
//   - a comma directly before } or ] is dropped
//   - bare identifier keys are quoted
func sanitizeRelaxed(data []byte) []byte {
	out := make([]byte, 0, len(data))
	i := 0
	n := len(data)

	for i < n {
		c := data[i]

		// String literal: copy verbatim, honoring escapes.
		if c == '"' {
			out = append(out, c)
			i++
			for i < n {
				out = append(out, data[i])
				if data[i] == '\\' && i+1 < n {
					i++
					out = append(out, data[i])
				} else if data[i] == '"' {
					i++
					break
				}
				i++
			}
			continue
		}

		// Line comment.
		if c == '/' && i+1 < n && data[i+1] == '/' {
			for i < n && data[i] != '\n' {
				i++
			}
			continue
		}

		// Block comment.
		if c == '/' && i+1 < n && data[i+1] == '*' {
			i += 2
			for i+1 < n && !(data[i] == '*' && data[i+1] == '/') {
				i++
			}
			i += 2
			continue
		}

		// Trailing comma: drop when the next non-space byte closes a scope.
		if c == ',' {
			j := i + 1
			for j < n && isSpace(data[j]) {
				j++
			}
			if j < n && (data[j] == '}' || data[j] == ']') {
				i++
				continue
			}
		}

		// Bare identifier key: quote it when followed by ':'.
		if isIdentStart(c) {
			j := i
			for j < n && isIdentByte(data[j]) {
				j++
			}
			k := j
			for k < n && isSpace(data[k]) {
				k++
			}
			if k < n && data[k] == ':' && precededByScopeOrComma(out) {
				out = append(out, '"')
				out = append(out, data[i:j]...)
				out = append(out, '"')
				i = j
				continue
			}
			out = append(out, data[i:j]...)
			i = j
			continue
		}

		out = append(out, c)
		i++
	}

	return out
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentByte(c byte) bool { return isIdentStart(c) || (c >= '0' && c <= '9') }

// precededByScopeOrComma reports whether the last significant emitted byte
// opens an object or separates members, i.e. a key position. Guards against
// quoting bare words such as true/false/null in value position.
func precededByScopeOrComma(out []byte) bool {
	for i := len(out) - 1; i >= 0; i-- {
		if isSpace(out[i]) {
			continue
		}
		return out[i] == '{' || out[i] == ','
	}
	return false
}

// decodeLiteral is the last-resort parse: YAML flow syntax accepts
// single-quoted strings and most literal-style exports that strict JSON
// rejects. Only object- or array-rooted results are accepted; YAML happily
// parses arbitrary prose as a scalar, which is not a record source.
func decodeLiteral(data []byte) (any, bool) {
	var root any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, false
	}
	switch root.(type) {
	case map[string]any, []any:
		return root, true
	default:
		return nil, false
	}
}
