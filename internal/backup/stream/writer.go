// Package stream writes and reads JSONL entries inside zip archives.
package stream

import (
	"archive/zip"
	"encoding/json"
	"fmt"
)

// Writer streams entities as JSONL to one file of a zip archive. Only one
// Writer per archive may be open at a time.
type Writer struct {
	enc   *json.Encoder
	path  string
	count int
}

// NewWriter starts the file at path within zw.
func NewWriter(zw *zip.Writer, path string) (*Writer, error) {
	w, err := zw.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &Writer{enc: json.NewEncoder(w), path: path}, nil
}

// Write encodes one entity as a line.
func (w *Writer) Write(entity any) error {
	if err := w.enc.Encode(entity); err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	w.count++
	return nil
}

// Count returns entities written so far.
func (w *Writer) Count() int {
	return w.count
}

// WriteJSON stores v as a single JSON document at path.
func WriteJSON(zw *zip.Writer, path string, v any) error {
	w, err := zw.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
