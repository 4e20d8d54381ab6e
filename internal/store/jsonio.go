package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
)

// readJSON loads a JSON document into v. If the file does not exist, it
// returns os.ErrNotExist so callers can supply a default.
func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}

// writeJSON writes v as indented JSON, read-modify-write style: callers
// load, mutate, then call writeJSON with the whole document.
func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// appendJSONL appends one JSON-encoded line to path, creating it if
// necessary. Single-writer semantics are enforced by the caller holding
// the per-path mutex.
func appendJSONL(path string, v any) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if _, err := w.Write(b); err != nil {
		return err
	}
	if _, err := w.WriteString("\n"); err != nil {
		return err
	}
	return w.Flush()
}

// readJSONLInto reads every line of path and calls decode(line) for each
// non-empty one; decode is responsible for unmarshaling into its own
// target type and appending it to a caller-owned slice.
func readJSONLInto(path string, decode func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		if err := decode(cp); err != nil {
			return err
		}
	}
	return scanner.Err()
}
