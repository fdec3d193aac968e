package shape

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	json "github.com/goccy/go-json"
)

// ErrStop may be returned from an EmitFunc to stop a stream early without
// reporting an error (sample-size limits, previews).
var ErrStop = errors.New("shape: stop streaming")

// EmitFunc receives one normalized record at a time.
type EmitFunc func(map[string]any) error

// maxLineBytes bounds a single NDJSON line during streaming.
const maxLineBytes = 16 << 20

// StreamFile lazily normalizes a file without materializing the whole
// document.
//
// Strategy selection inspects the first non-whitespace byte:
//   - '['  stream top-level array elements one by one
//   - '{'  scan top-level keys for the first wrapper key (fixed order) whose
//     value is an array, then re-read and stream only that array; column
//     metadata found outside the record array is honored
//   - else a line-oriented NDJSON pass
//
// Whenever streaming is not possible (no wrapper key, GeoJSON roots, parse
// failures) the eager path takes over transparently; records already emitted
// are not emitted twice. Streaming inability is never a fatal error by
// itself; only I/O failures and emit errors propagate.
func StreamFile(ctx context.Context, path string, log Logger, emit EmitFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	br := bufio.NewReader(NewUTF8Reader(f))
	first, err := peekFirstByte(br)
	if err != nil {
		_ = f.Close()
		if err == io.EOF {
			logf(log, "shape: %s is empty", path)
			return nil
		}
		return err
	}

	emitted := 0
	counting := func(rec map[string]any) error {
		if err := emit(rec); err != nil {
			return err
		}
		emitted++
		return nil
	}

	var streamErr error
	switch first {
	case '[':
		streamErr = streamArray(ctx, json.NewDecoder(br), counting)
		_ = f.Close()
	case '{':
		_ = f.Close()
		streamErr = streamWrapped(ctx, path, log, counting)
	default:
		streamErr = streamNDJSON(ctx, br, log, counting)
		_ = f.Close()
	}

	if streamErr == nil || errors.Is(streamErr, ErrStop) {
		return nil
	}
	if errors.Is(streamErr, context.Canceled) || errors.Is(streamErr, context.DeadlineExceeded) {
		return streamErr
	}

	// Streaming was not possible; fall back to the eager path, skipping
	// whatever was already emitted.
	logf(log, "shape: streaming %s failed (%v), falling back to eager load", path, streamErr)
	return eagerFallback(path, emitted, log, emit)
}

// errNoWrapper signals that a root object carries no streamable record array.
var errNoWrapper = errors.New("shape: no wrapper array")

func peekFirstByte(br *bufio.Reader) (byte, error) {
	for {
		c, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if isSpace(c) {
			continue
		}
		if err := br.UnreadByte(); err != nil {
			return 0, err
		}
		return c, nil
	}
}

// streamArray streams the elements of a top-level JSON array.
func streamArray(ctx context.Context, dec *json.Decoder, emit EmitFunc) error {
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("shape: read array start: %w", err)
	}
	if tok != json.Delim('[') {
		return fmt.Errorf("shape: expected '[', got %v", tok)
	}

	mode := modeScalar
	first := true
	for dec.More() {
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("shape: decode array element: %w", err)
		}
		if first {
			mode = modeFor(raw)
			first = false
		}

		rec, ok := coerceStreamed(raw, mode, nil)
		if !ok {
			continue
		}
		if err := emit(rec); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

// elemMode is latched from a streamed array's first element so that later
// elements are coerced or skipped exactly as normalizeArray would.
type elemMode int

const (
	modeScalar elemMode = iota
	modeTabular
	modeObjects
)

func modeFor(v any) elemMode {
	switch v.(type) {
	case []any:
		return modeTabular
	case map[string]any:
		return modeObjects
	default:
		return modeScalar
	}
}

// coerceStreamed converts one streamed array element according to the
// latched mode. The second return is false when the element does not fit
// the mode and must be skipped.
func coerceStreamed(raw any, mode elemMode, cols []map[string]any) (map[string]any, bool) {
	switch mode {
	case modeTabular:
		row, ok := raw.([]any)
		if !ok {
			return nil, false
		}
		if len(cols) > 0 {
			return convertArrayRow(row, cols), true
		}
		return coerceIndexed(row), true
	case modeObjects:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, false
		}
		return m, true
	default:
		return coerceRecord(raw), true
	}
}

// coerceIndexed maps a tabular row to column_0..column_N, mirroring the
// eager path's synthesized column names.
func coerceIndexed(row []any) map[string]any {
	rec := make(map[string]any, len(row))
	for i, it := range row {
		rec["column_"+strconv.Itoa(i)] = it
	}
	return rec
}

// topLevelScan is the bounded first pass over a root object: it materializes
// everything except candidate record arrays (which are skipped token by
// token) and remembers which wrapper keys held arrays.
type topLevelScan struct {
	arrayKeys map[string]bool
	meta      map[string]any
}

// metadataKeys are top-level keys whose values must be materialized during
// the scan pass even when they are arrays, because column definitions can
// live under them.
var metadataKeys = map[string]bool{
	"meta": true, "view": true, "columns": true,
	"schema": true, "fields": true, "header": true, "type": true,
}

func scanTopLevel(dec *json.Decoder) (topLevelScan, error) {
	scan := topLevelScan{
		arrayKeys: make(map[string]bool),
		meta:      make(map[string]any),
	}

	tok, err := dec.Token()
	if err != nil {
		return scan, fmt.Errorf("shape: read object start: %w", err)
	}
	if tok != json.Delim('{') {
		return scan, fmt.Errorf("shape: expected '{', got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return scan, fmt.Errorf("shape: read object key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return scan, fmt.Errorf("shape: object key not a string (got %T)", keyTok)
		}

		if metadataKeys[key] {
			var v any
			if err := dec.Decode(&v); err != nil {
				return scan, fmt.Errorf("shape: decode metadata %q: %w", key, err)
			}
			scan.meta[key] = v
			continue
		}

		valTok, err := dec.Token()
		if err != nil {
			return scan, fmt.Errorf("shape: read value token for %q: %w", key, err)
		}
		if d, ok := valTok.(json.Delim); ok {
			switch d {
			case '[':
				scan.arrayKeys[key] = true
				if err := skipUntilClose(dec, ']'); err != nil {
					return scan, err
				}
			case '{':
				if err := skipUntilClose(dec, '}'); err != nil {
					return scan, err
				}
			}
		}
		// Scalar values need no further consumption.
	}

	// Closing '}' of the root object.
	if _, err := dec.Token(); err != nil {
		return scan, fmt.Errorf("shape: read object end: %w", err)
	}
	return scan, nil
}

// skipUntilClose consumes tokens until the current container (whose opening
// delimiter has already been read) closes. The decoder's token stack keeps
// nesting balanced for us.
func skipUntilClose(dec *json.Decoder, close json.Delim) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("shape: skip value: %w", err)
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '[', '{':
				depth++
			case ']', '}':
				depth--
			}
		}
	}
	return nil
}

// streamWrapped handles a root object: pick the wrapper array, then re-read
// the file and stream only that array's elements.
func streamWrapped(ctx context.Context, path string, log Logger, emit EmitFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bufio.NewReader(NewUTF8Reader(f)))
	dec.UseNumber()
	scan, err := scanTopLevel(dec)
	_ = f.Close()
	if err != nil {
		return err
	}

	wrapper := ""
	for _, key := range wrapperKeys {
		if scan.arrayKeys[key] {
			wrapper = key
			break
		}
	}
	if wrapper == "" {
		// Single objects, GeoJSON roots and metadata-only documents are not
		// worth streaming; the eager fallback handles them.
		return errNoWrapper
	}

	cols := extractColumnDefs(scan.meta, log)

	f, err = os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec = json.NewDecoder(bufio.NewReader(NewUTF8Reader(f)))
	dec.UseNumber()

	if tok, err := dec.Token(); err != nil {
		return fmt.Errorf("shape: re-read object start: %w", err)
	} else if tok != json.Delim('{') {
		return fmt.Errorf("shape: expected '{', got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("shape: re-read object key: %w", err)
		}
		key, _ := keyTok.(string)

		if key != wrapper {
			var skip any
			if err := dec.Decode(&skip); err != nil {
				return fmt.Errorf("shape: skip field %q: %w", key, err)
			}
			continue
		}

		if tok, err := dec.Token(); err != nil {
			return fmt.Errorf("shape: read wrapper array start: %w", err)
		} else if tok != json.Delim('[') {
			return fmt.Errorf("shape: wrapper %q is not an array", key)
		}

		mode := modeScalar
		first := true
		for dec.More() {
			var raw any
			if err := dec.Decode(&raw); err != nil {
				return fmt.Errorf("shape: decode wrapper element: %w", err)
			}
			if first {
				mode = modeFor(raw)
				first = false
			}

			rec, ok := coerceStreamed(raw, mode, cols)
			if !ok {
				continue
			}
			if err := emit(rec); err != nil {
				return err
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		// The wrapper array has been drained; remaining fields are skipped
		// on the way out by the deferred Close.
		return nil
	}

	return errNoWrapper
}

// streamNDJSON runs the line-oriented pass over an already-open reader.
func streamNDJSON(ctx context.Context, br *bufio.Reader, log Logger, emit EmitFunc) error {
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 64<<10), maxLineBytes)

	lineNo := 0
	bad := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		v, ok := decodeStrict(line)
		if !ok {
			bad++
			logf(log, "shape: ndjson line %d unparsable, skipped", lineNo)
			continue
		}
		for _, rec := range coerceLine(v, log) {
			if err := emit(rec); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("shape: scan ndjson: %w", err)
	}
	if bad > 0 {
		logf(log, "shape: ndjson pass skipped %d malformed line(s)", bad)
	}
	return nil
}

// eagerFallback loads the whole file and replays it through emit, skipping
// records the streaming attempt already delivered.
func eagerFallback(path string, skip int, log Logger, emit EmitFunc) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	for i, rec := range Normalize(data, log) {
		if i < skip {
			continue
		}
		if err := emit(rec); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}
