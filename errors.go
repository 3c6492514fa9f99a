package certfields

import (
	"errors"
)

// Kind identifies which extraction step failed.
type Kind int

const (
	// KindPEM reports malformed PEM framing or base64 content.
	KindPEM Kind = iota + 1
	// KindParse reports a PEM payload that is not a DER X.509 certificate.
	KindParse
	// KindDER reports a PKCS#12 certificate entry that is not a DER X.509 certificate.
	KindDER
	// KindCommonName reports a common name that is not valid UTF-8.
	KindCommonName
	// KindSAN reports a malformed, duplicated, or non-DNS subject alternative name extension.
	KindSAN
	// KindTimestamp reports an expiration outside the representable range.
	KindTimestamp
	// KindPFX reports a PKCS#12 container that cannot be opened (bad password, corrupt data).
	KindPFX
	// KindFriendlyName reports an unreadable friendly name attribute.
	KindFriendlyName
	// KindFingerprint reports a failure computing a PKCS#12 entry fingerprint.
	KindFingerprint
	// KindPassword reports a password value that is not a string.
	KindPassword
)

var kindLabels = map[Kind]string{
	KindPEM:          "cannot read certificate",
	KindParse:        "cannot parse certificate",
	KindDER:          "cannot parse der",
	KindCommonName:   "cannot read common name",
	KindSAN:          "cannot read certificate subject alternative names",
	KindTimestamp:    "cannot parse certificate timestamp",
	KindPFX:          "cannot parse pfx",
	KindFriendlyName: "cannot read friendly name",
	KindFingerprint:  "cannot read fingerprint",
	KindPassword:     "password is not a string",
}

// String returns the fixed label for the kind.
func (k Kind) String() string {
	if label, ok := kindLabels[k]; ok {
		return label
	}
	return "unknown certificate error"
}

// ErrNoCertificates is returned by Select when a single record is requested
// from an empty result.
var ErrNoCertificates = errors.New("no certificates in file")

// Error is the error type returned by every decoder in this package. Err holds
// the underlying parser or container diagnostic and may be nil.
type Error struct {
	Kind Kind
	Err  error
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Error returns the label followed by the cause.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Label returns the short, stable message for the failure.
func (e *Error) Label() string { return e.Kind.String() }

// Help returns the underlying diagnostic, or an empty string when there is none.
func (e *Error) Help() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// KindOf returns the Kind of the first *Error in err's chain, or zero if err
// did not come from this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
