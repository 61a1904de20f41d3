// Package iojson reads and writes JSON for commands whose output is meant
// for scripts rather than people.
package iojson

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Error is the shape written for failures in JSON mode.
type Error struct {
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func (e Error) Error() string {
	return e.Message
}

// fallbackError hand-builds the error document when marshaling itself
// fails, which means a value in data cannot be encoded.
func fallbackError(msg string, jsonErr error) string {
	msgBytes, _ := json.Marshal(msg)
	errBytes, _ := json.Marshal(jsonErr.Error())
	return fmt.Sprintf(`{"message":%s,"data":{"json_error":%s}}`, msgBytes, errBytes)
}

// MarshalError renders msg and data as an indented Error document.
func MarshalError(msg string, data map[string]any) string {
	bits, err := json.MarshalIndent(Error{Message: msg, Data: data}, "", "  ")
	if err != nil {
		return fallbackError(msg, err)
	}
	return string(bits)
}

// WriteError writes the error document to w and returns it as an error so
// commands can `return iojson.WriteError(...)` and still exit non-zero.
func WriteError(w io.Writer, msg string, data map[string]any) error {
	_, _ = fmt.Fprintln(w, MarshalError(msg, data))
	return Error{Message: msg, Data: data}
}

// WriteWith writes obj as indented JSON to w. Encoding failures are reported
// on ew.
func WriteWith(w io.Writer, ew io.Writer, obj any) error {
	bits, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		_, err = fmt.Fprintln(ew, fallbackError("error marshaling in iojson.Write", err))
		return err
	}

	_, err = fmt.Fprintln(w, string(bits))
	return err
}

// Write calls WriteWith with [os.Stdout] and [os.Stderr].
func Write(obj any) error {
	return WriteWith(os.Stdout, os.Stderr, obj)
}

// WriteLine writes obj as a single compact JSON line.
func WriteLine(w io.Writer, obj any) error {
	return json.NewEncoder(w).Encode(obj)
}
