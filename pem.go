package certfields

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"iter"
	"log/slog"
)

var (
	pemBegin = []byte("-----BEGIN ")
	pemEnd   = []byte("-----END ")
	pemDash  = []byte("-----")
)

var (
	errMissingFooter   = errors.New("missing PEM footer")
	errInvalidHeader   = errors.New("invalid PEM header line")
	errMismatchedLabel = errors.New("PEM footer label does not match header")
	errMalformedPEM    = errors.New("malformed PEM block")
)

// PEMRecords returns the records for every PEM block in text, in document
// order. Each iteration parses text from the start. Iteration ends after the
// first error, which is yielded with a zero Record.
func PEMRecords(text string) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		rest := []byte(text)
		for n := 0; ; n++ {
			var block *pem.Block
			var err error
			block, rest, err = nextPEMBlock(rest)
			if err != nil {
				yield(Record{}, newError(KindPEM, fmt.Errorf("block %d: %w", n, err)))
				return
			}
			if block == nil {
				return
			}
			rec, err := pemRecord(block)
			if err != nil {
				yield(Record{}, err)
				return
			}
			slog.Debug("decoded PEM certificate", "block", n, "subject", rec.Subject)
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// DecodePEM returns one Record per PEM block in text. Text without any PEM
// block yields an empty slice. Any malformed block fails the whole call.
func DecodePEM(text string) ([]Record, error) {
	records := []Record{}
	for rec, err := range PEMRecords(text) {
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func pemRecord(block *pem.Block) (Record, error) {
	cert, err := parseCertificate(block.Bytes)
	if err != nil {
		return Record{}, classify(KindParse, err)
	}
	rec, err := buildRecord(cert)
	if err != nil {
		return Record{}, err
	}
	rec.Thumbprint = pemThumbprint(block.Bytes)
	return rec, nil
}

// pemThumbprint returns the lowercase hex SHA-1 of a decoded PEM payload.
func pemThumbprint(payload []byte) string {
	sum := sha1.Sum(payload)
	return hex.EncodeToString(sum[:])
}

// nextPEMBlock decodes the first PEM block in data. It returns a nil block
// when data holds no further "-----BEGIN " marker. Unlike pem.Decode, a
// malformed block is reported instead of being skipped.
func nextPEMBlock(data []byte) (*pem.Block, []byte, error) {
	start := bytes.Index(data, pemBegin)
	if start < 0 {
		return nil, nil, nil
	}
	data = data[start:]

	end := bytes.Index(data, pemEnd)
	if end < 0 || bytes.Contains(data[len(pemBegin):end], pemBegin) {
		return nil, nil, errMissingFooter
	}
	// Include the footer line so pem.Decode sees exactly one block.
	stop := len(data)
	if nl := bytes.IndexByte(data[end:], '\n'); nl >= 0 {
		stop = end + nl + 1
	}

	block, _ := pem.Decode(data[:stop])
	if block == nil {
		return nil, nil, diagnosePEM(data[:stop])
	}
	return block, data[stop:], nil
}

// diagnosePEM explains why pem.Decode rejected segment, which starts at a
// "-----BEGIN " marker and ends after the first "-----END " line.
func diagnosePEM(segment []byte) error {
	lines := bytes.Split(segment, []byte("\n"))
	header := bytes.TrimRight(lines[0], " \t\r")
	if !bytes.HasSuffix(header, pemDash) || len(header) <= len(pemBegin)+len(pemDash) {
		return errInvalidHeader
	}
	label := header[len(pemBegin) : len(header)-len(pemDash)]

	var body []byte
	for _, line := range lines[1:] {
		line = bytes.TrimSpace(line)
		if bytes.HasPrefix(line, pemEnd) {
			want := append(append(append([]byte{}, pemEnd...), label...), pemDash...)
			if !bytes.Equal(line, want) {
				return errMismatchedLabel
			}
			break
		}
		// RFC 1421 headers such as "Proc-Type: 4,ENCRYPTED".
		if bytes.IndexByte(line, ':') >= 0 {
			continue
		}
		body = append(body, line...)
	}
	if _, err := base64.StdEncoding.DecodeString(string(body)); err != nil {
		return fmt.Errorf("invalid base64 payload: %w", err)
	}
	return errMalformedPEM
}
