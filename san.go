package certfields

import (
	"encoding/asn1"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var oidSubjectAltName = asn1.ObjectIdentifier{2, 5, 29, 17}

var (
	errDuplicateSAN        = errors.New("subject alternative name extension is present more than once")
	errMalformedSAN        = errors.New("malformed subject alternative name extension")
	errUnsupportedSANEntry = errors.New("unsupported subject alternative name entry")
)

var tagDNSName = cbasn1.Tag(2).ContextSpecific()

// generalNameKinds names the GeneralName CHOICE alternatives by tag number.
var generalNameKinds = [...]string{
	"otherName",
	"rfc822Name",
	"dNSName",
	"x400Address",
	"directoryName",
	"ediPartyName",
	"uniformResourceIdentifier",
	"iPAddress",
	"registeredID",
}

// extension is a certificate extension with its OID in encoding/asn1 form.
type extension struct {
	oid   asn1.ObjectIdentifier
	value []byte
}

// subjectAltNames returns the dNSName entries of the subject alternative
// name extension in encoded order. A missing extension yields an empty list.
// Any entry that is not a dNSName fails the whole extraction.
//
//	GeneralNames ::= SEQUENCE SIZE (1..MAX) OF GeneralName
func subjectAltNames(exts []extension) ([]string, error) {
	var san *extension
	for i := range exts {
		if !exts[i].oid.Equal(oidSubjectAltName) {
			continue
		}
		if san != nil {
			return nil, errDuplicateSAN
		}
		san = &exts[i]
	}
	names := []string{}
	if san == nil {
		return names, nil
	}

	input := cryptobyte.String(san.value)
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cbasn1.SEQUENCE) || !input.Empty() {
		return nil, fmt.Errorf("%w: reading GeneralNames", errMalformedSAN)
	}
	for !seq.Empty() {
		var value cryptobyte.String
		var tag cbasn1.Tag
		if !seq.ReadAnyASN1(&value, &tag) {
			return nil, fmt.Errorf("%w: reading GeneralName", errMalformedSAN)
		}
		if tag != tagDNSName {
			return nil, fmt.Errorf("%w: %s", errUnsupportedSANEntry, generalNameKind(tag))
		}
		if !utf8.Valid(value) {
			return nil, fmt.Errorf("%w: dNSName is not valid IA5String", errMalformedSAN)
		}
		names = append(names, string(value))
	}
	return names, nil
}

func generalNameKind(tag cbasn1.Tag) string {
	const classContextSpecific = 0x80
	n := int(uint8(tag) & 0x1f)
	if uint8(tag)&0xc0 != classContextSpecific || n >= len(generalNameKinds) {
		return fmt.Sprintf("tag 0x%02x", uint8(tag))
	}
	return generalNameKinds[n]
}
