package iojson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// ErrNoInput is returned when neither a file nor piped stdin is available.
var ErrNoInput = errors.New("no input provided (stdin is a terminal); use -f flag or pipe JSON input")

// FileReader decodes a T from the file named by its flag, or from stdin.
type FileReader[T any] struct {
	// Stdin overrides os.Stdin. Tests set it to skip the terminal check.
	Stdin io.Reader

	path string
}

// Flag returns the --file flag bound to the reader.
func (fr *FileReader[T]) Flag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "file",
		Aliases:     []string{"f"},
		Usage:       "path to JSON file (reads from stdin if not provided)",
		Destination: &fr.path,
	}
}

// SetPath sets the input file without a flag.
func (fr *FileReader[T]) SetPath(p string) {
	fr.path = p
}

// Read decodes the input. Unknown fields are rejected so typos in hand
// written files surface instead of being ignored.
func (fr *FileReader[T]) Read() (T, error) {
	var input T

	r, closer, err := fr.open()
	if err != nil {
		return input, err
	}
	defer closer()

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		return input, fmt.Errorf("decode JSON: %w", err)
	}

	return input, nil
}

func (fr *FileReader[T]) open() (io.Reader, func(), error) {
	if fr.path != "" && fr.path != "-" {
		f, err := os.Open(fr.path)
		if err != nil {
			return nil, nil, fmt.Errorf("open file: %w", err)
		}
		return f, func() { _ = f.Close() }, nil
	}

	if fr.Stdin != nil {
		return fr.Stdin, func() {}, nil
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, nil, ErrNoInput
	}
	return os.Stdin, func() {}, nil
}
