package stream

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func openZip(t *testing.T, buf *bytes.Buffer) *zip.Reader {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	return zr
}

func TestWriterReader(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := NewWriter(zw, "links.jsonl")
	require.NoError(t, err)
	entities := []testEntity{
		{ID: "1", Name: "First"},
		{ID: "2", Name: "Second"},
		{ID: "3", Name: strings.Repeat("long ", 20000)},
	}
	for _, e := range entities {
		require.NoError(t, w.Write(e))
	}
	assert.Equal(t, 3, w.Count())
	require.NoError(t, WriteJSON(zw, "manifest.json", map[string]int{"links": w.Count()}))
	require.NoError(t, zw.Close())

	zr := openZip(t, &buf)
	rc, err := OpenFile(zr, "links.jsonl")
	require.NoError(t, err)

	var got []testEntity
	for entity, err := range NewReader[testEntity](rc).All() {
		require.NoError(t, err)
		got = append(got, entity)
	}
	assert.Equal(t, entities, got)

	var manifest map[string]int
	require.NoError(t, ReadJSON(zr, "manifest.json", &manifest))
	assert.Equal(t, 3, manifest["links"])
}

func TestOpenFile_NotFound(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, zip.NewWriter(&buf).Close())

	_, err := OpenFile(openZip(t, &buf), "nonexistent.jsonl")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestReader_ContinuesOnParseError(t *testing.T) {
	jsonl := `{"id":"1","name":"Good"}
{bad json}

{"id":"2","name":"Also Good"}
`
	reader := NewReader[testEntity](io.NopCloser(strings.NewReader(jsonl)))

	var good []testEntity
	failures := 0
	for entity, err := range reader.All() {
		if err != nil {
			failures++
			continue
		}
		good = append(good, entity)
	}

	assert.Len(t, good, 2)
	assert.Equal(t, 1, failures)
}
