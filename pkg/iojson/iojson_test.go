package iojson

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestFileReader_Read(t *testing.T) {
	t.Run("reads from file", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "in.json")
		require.NoError(t, os.WriteFile(p, []byte(`{"name":"a","count":2}`), 0o644))

		fr := &FileReader[payload]{}
		fr.SetPath(p)

		got, err := fr.Read()
		require.NoError(t, err)
		assert.Equal(t, payload{Name: "a", Count: 2}, got)
	})

	t.Run("reads from stdin override", func(t *testing.T) {
		fr := &FileReader[payload]{Stdin: strings.NewReader(`{"name":"b"}`)}

		got, err := fr.Read()
		require.NoError(t, err)
		assert.Equal(t, "b", got.Name)
	})

	t.Run("dash means stdin", func(t *testing.T) {
		fr := &FileReader[payload]{Stdin: strings.NewReader(`{"count":7}`)}
		fr.SetPath("-")

		got, err := fr.Read()
		require.NoError(t, err)
		assert.Equal(t, 7, got.Count)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		fr := &FileReader[payload]{Stdin: strings.NewReader(`{"nmae":"typo"}`)}

		_, err := fr.Read()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nmae")
	})

	t.Run("missing file", func(t *testing.T) {
		fr := &FileReader[payload]{}
		fr.SetPath(filepath.Join(t.TempDir(), "nope.json"))

		_, err := fr.Read()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "open file")
	})
}

func TestFileReader_Flag(t *testing.T) {
	fr := &FileReader[payload]{}
	f := fr.Flag()
	assert.Equal(t, "file", f.Name)
	assert.Equal(t, []string{"f"}, f.Aliases)
}

func TestWriteError(t *testing.T) {
	var buf bytes.Buffer
	err := WriteError(&buf, "bad input", map[string]any{"field": "line"})

	var jerr Error
	require.True(t, errors.As(err, &jerr))
	assert.Equal(t, "bad input", jerr.Message)
	assert.JSONEq(t, `{"message":"bad input","data":{"field":"line"}}`, buf.String())
}

func TestMarshalError_Unencodable(t *testing.T) {
	out := MarshalError("oops", map[string]any{"ch": make(chan int)})
	assert.Contains(t, out, `"message":"oops"`)
	assert.Contains(t, out, "json_error")
}

func TestWriteLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLine(&buf, payload{Name: "x", Count: 1}))
	require.NoError(t, WriteLine(&buf, payload{Name: "y"}))

	assert.Equal(t, "{\"name\":\"x\",\"count\":1}\n{\"name\":\"y\",\"count\":0}\n", buf.String())
}

func TestWriteWith(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, WriteWith(&out, &errOut, payload{Name: "z"}))
	assert.JSONEq(t, `{"name":"z","count":0}`, out.String())
	assert.Empty(t, errOut.String())
}
