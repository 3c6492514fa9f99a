package certfields

import (
	"encoding/asn1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// Universal string tags not defined by cryptobyte/asn1.
const (
	tagNumericString   = cbasn1.Tag(18)
	tagVideotexString  = cbasn1.Tag(21)
	tagGraphicString   = cbasn1.Tag(25)
	tagVisibleString   = cbasn1.Tag(26)
	tagUniversalString = cbasn1.Tag(28)
	tagBMPString       = cbasn1.Tag(30)
	tagObjectDesc      = cbasn1.Tag(7)
)

var oidCommonName = asn1.ObjectIdentifier{2, 5, 4, 3}

// attributeAbbrevs maps attribute type OIDs to the names used when rendering
// a distinguished name. Types not listed are rendered as dotted OIDs.
var attributeAbbrevs = map[string]string{
	"2.5.4.3":                    "CN",
	"2.5.4.6":                    "C",
	"2.5.4.7":                    "L",
	"2.5.4.8":                    "ST",
	"2.5.4.10":                   "O",
	"2.5.4.11":                   "OU",
	"1.2.840.113549.1.9.1":       "Email",
	"0.9.2342.19200300.100.1.25": "DC",
	"0.9.2342.19200300.100.1.1":  "UID",
	"2.5.4.4":                    "surname",
	"2.5.4.5":                    "serialNumber",
	"2.5.4.9":                    "street",
	"2.5.4.12":                   "title",
	"2.5.4.13":                   "description",
	"2.5.4.15":                   "businessCategory",
	"2.5.4.17":                   "postalCode",
	"2.5.4.42":                   "givenName",
	"2.5.4.43":                   "initials",
	"2.5.4.44":                   "generationQualifier",
	"2.5.4.46":                   "dnQualifier",
	"2.5.4.65":                   "pseudonym",
	"2.5.4.97":                   "organizationIdentifier",
	"1.3.6.1.4.1.311.60.2.1.1":   "jurisdictionL",
	"1.3.6.1.4.1.311.60.2.1.2":   "jurisdictionST",
	"1.3.6.1.4.1.311.60.2.1.3":   "jurisdictionC",
}

var errMalformedName = errors.New("malformed distinguished name")

// attribute is one AttributeTypeAndValue with its value left in its
// original encoding.
type attribute struct {
	oid   asn1.ObjectIdentifier
	tag   cbasn1.Tag
	value []byte
}

// rdnSequence is a parsed Name: RDNs in encoded order, each a set of
// attributes in encoded order.
type rdnSequence [][]attribute

// parseName parses a DER-encoded Name (RDNSequence).
//
//	RDNSequence ::= SEQUENCE OF RelativeDistinguishedName
//	RelativeDistinguishedName ::= SET SIZE (1..MAX) OF AttributeTypeAndValue
//	AttributeTypeAndValue ::= SEQUENCE { type OBJECT IDENTIFIER, value ANY }
func parseName(der []byte) (rdnSequence, error) {
	input := cryptobyte.String(der)
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cbasn1.SEQUENCE) || !input.Empty() {
		return nil, fmt.Errorf("%w: reading RDNSequence", errMalformedName)
	}

	var name rdnSequence
	for !seq.Empty() {
		var set cryptobyte.String
		if !seq.ReadASN1(&set, cbasn1.SET) {
			return nil, fmt.Errorf("%w: reading RDN set", errMalformedName)
		}
		var rdn []attribute
		for !set.Empty() {
			var atv cryptobyte.String
			if !set.ReadASN1(&atv, cbasn1.SEQUENCE) {
				return nil, fmt.Errorf("%w: reading attribute", errMalformedName)
			}
			var attr attribute
			if !atv.ReadASN1ObjectIdentifier(&attr.oid) {
				return nil, fmt.Errorf("%w: reading attribute type", errMalformedName)
			}
			var value cryptobyte.String
			if !atv.ReadAnyASN1(&value, &attr.tag) {
				return nil, fmt.Errorf("%w: reading value of %s", errMalformedName, attr.oid)
			}
			attr.value = value
			rdn = append(rdn, attr)
		}
		name = append(name, rdn)
	}
	return name, nil
}

// commonNames returns every commonName value in RDN order. Values are read
// as UTF-8 whatever their ASN.1 string type; invalid UTF-8 is an error.
func (n rdnSequence) commonNames() ([]string, error) {
	names := []string{}
	for _, rdn := range n {
		for _, attr := range rdn {
			if !attr.oid.Equal(oidCommonName) {
				continue
			}
			cn, err := commonNameValue(attr)
			if err != nil {
				return nil, err
			}
			names = append(names, cn)
		}
	}
	return names, nil
}

func commonNameValue(attr attribute) (string, error) {
	switch attr.tag {
	case tagNumericString, cbasn1.PrintableString, cbasn1.UTF8String, cbasn1.IA5String:
		if utf8.Valid(attr.value) {
			return string(attr.value), nil
		}
	}
	// Any other encoding is taken as raw UTF-8.
	if !utf8.Valid(attr.value) {
		return "", fmt.Errorf("common name value %s (tag %d) is not valid UTF-8", hex.EncodeToString(attr.value), uint8(attr.tag))
	}
	return string(attr.value), nil
}

// String renders the name as "CN=a, O=b", joining attributes of a
// multi-valued RDN with " + ".
func (n rdnSequence) String() string {
	rdns := make([]string, 0, len(n))
	for _, rdn := range n {
		parts := make([]string, 0, len(rdn))
		for _, attr := range rdn {
			parts = append(parts, attributeType(attr.oid)+"="+attributeValue(attr))
		}
		rdns = append(rdns, strings.Join(parts, " + "))
	}
	return strings.Join(rdns, ", ")
}

func attributeType(oid asn1.ObjectIdentifier) string {
	s := oid.String()
	if abbrev, ok := attributeAbbrevs[s]; ok {
		return abbrev
	}
	return s
}

func attributeValue(attr attribute) string {
	switch attr.tag {
	case tagNumericString, cbasn1.PrintableString, cbasn1.UTF8String, cbasn1.IA5String,
		cbasn1.T61String, cbasn1.GeneralString, tagVisibleString, tagGraphicString,
		tagVideotexString, tagObjectDesc:
		if utf8.Valid(attr.value) {
			return string(attr.value)
		}
	case tagBMPString:
		if s, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(attr.value); err == nil {
			return string(s)
		}
	case tagUniversalString:
		if s, err := utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM).NewDecoder().Bytes(attr.value); err == nil {
			return string(s)
		}
	default:
		return strings.ToUpper(hex.EncodeToString(attr.value))
	}
	return "#" + hex.EncodeToString(attr.value)
}
