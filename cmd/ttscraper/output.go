package main

import (
	"encoding/json"
	"io"
	"os"

	"golang.org/x/term"
	errs "ttscraper/pkg/errors"
)

// response is the envelope every command prints on stdout
type response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Type    string      `json:"type,omitempty"`
}

func success(data interface{}) response {
	return response{Success: true, Data: data}
}

func failure(err error) response {
	return response{Success: false, Error: err.Error(), Type: string(errs.TypeOf(err))}
}

// writeResponse encodes r to w, indented when pretty is set
func writeResponse(w io.Writer, r response, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(r)
}

// isTerminal reports whether f is attached to a terminal
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// printResponse writes r to stdout, pretty-printed for humans
func printResponse(r response) error {
	return writeResponse(os.Stdout, r, isTerminal(os.Stdout))
}
