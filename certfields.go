// Package certfields extracts human-readable fields (common names,
// distinguished names, DNS subject alternative names, expiration and a SHA-1
// thumbprint) from X.509 certificates supplied as PEM text or as PKCS#12/PFX
// bundles.
//
// Every decoder is all-or-nothing: one malformed certificate fails the whole
// call and no partial result is returned.
package certfields

import (
	"fmt"
	"time"
)

// Record holds the fields extracted from one certificate. CN, SAN and CA are
// never nil. Friendly is set only for records decoded from PKCS#12 input.
type Record struct {
	CN         []string  `json:"cn" yaml:"cn"`
	Subject    string    `json:"subject" yaml:"subject"`
	SAN        []string  `json:"san" yaml:"san"`
	CA         []string  `json:"ca" yaml:"ca"`
	CASubject  string    `json:"ca_subject" yaml:"ca_subject"`
	Expiration time.Time `json:"expiration" yaml:"expiration"`
	Thumbprint string    `json:"thumbprint" yaml:"thumbprint"`
	Friendly   *string   `json:"friendly,omitempty" yaml:"friendly,omitempty"`
}

// Input is certificate data handed to Decode. It is either TextInput (PEM)
// or BinaryInput (PKCS#12).
type Input interface {
	input()
}

// TextInput is PEM text holding one or more certificates.
type TextInput string

// BinaryInput is a DER-encoded PKCS#12 container.
type BinaryInput []byte

func (TextInput) input()   {}
func (BinaryInput) input() {}

// Decode extracts one Record per certificate in in. The password applies to
// BinaryInput only; nil means no password.
func Decode(in Input, password *string) ([]Record, error) {
	switch v := in.(type) {
	case TextInput:
		return DecodePEM(string(v))
	case BinaryInput:
		return DecodePFX(v, password)
	default:
		return nil, fmt.Errorf("unsupported input type %T", in)
	}
}

// Select returns records itself when list is true, otherwise the first
// record. It returns ErrNoCertificates when a single record is requested and
// records is empty.
func Select(records []Record, list bool) (any, error) {
	if list {
		if records == nil {
			records = []Record{}
		}
		return records, nil
	}
	if len(records) == 0 {
		return nil, ErrNoCertificates
	}
	return records[0], nil
}
