package internal

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// PasswordOptions holds the password sources given on the command line.
type PasswordOptions struct {
	// Password is the --password value; PasswordSet reports whether the flag
	// was given at all, so that an explicit empty password is kept.
	Password    string
	PasswordSet bool
	// File names a file whose first non-blank line is the password.
	File string
}

// LoadPasswordFromFile returns the first non-blank line of filename with
// surrounding whitespace removed.
func LoadPasswordFromFile(filename string) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			return pwd, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("%s contains no password", filename)
}

// ResolvePassword returns the PKCS#12 password from opts, or nil when none
// was given. Giving both sources is an error.
func ResolvePassword(opts PasswordOptions) (*string, error) {
	if opts.PasswordSet && opts.File != "" {
		return nil, errors.New("--password and --password-file are mutually exclusive")
	}
	if opts.PasswordSet {
		pwd := opts.Password
		return &pwd, nil
	}
	if opts.File == "" {
		return nil, nil
	}
	pwd, err := LoadPasswordFromFile(opts.File)
	if err != nil {
		return nil, fmt.Errorf("loading password from file: %w", err)
	}
	return &pwd, nil
}
