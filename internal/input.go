package internal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/mattn/go-isatty"

	"github.com/sensiblebit/certfields"
)

// ErrTerminalInput is returned when certificate data would be read from an
// interactive terminal.
var ErrTerminalInput = errors.New("no input file given and stdin is a terminal")

// ReadInput reads certificate data from path, or from stdin when path is
// empty or "-". It refuses to block on an interactive terminal.
func ReadInput(path string, stdin *os.File) ([]byte, error) {
	if path != "" && path != "-" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return data, nil
	}
	if isatty.IsTerminal(stdin.Fd()) || isatty.IsCygwinTerminal(stdin.Fd()) {
		return nil, ErrTerminalInput
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return data, nil
}

// ClassifyInput wraps data as PEM text when it is valid UTF-8 and as a
// PKCS#12 container otherwise. forceBinary skips the check.
func ClassifyInput(data []byte, forceBinary bool) certfields.Input {
	if !forceBinary && utf8.Valid(data) {
		return certfields.TextInput(data)
	}
	return certfields.BinaryInput(data)
}
