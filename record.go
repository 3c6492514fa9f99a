package certfields

import (
	"encoding/asn1"
	"errors"
	"fmt"
	"log/slog"
	"time"

	ctx509 "github.com/google/certificate-transparency-go/x509"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// Expiration timestamps must fit RFC 3339 (years 0000 through 9999) so that
// records can always be serialized.
var (
	minExpiration = time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()
	maxExpiration = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC).Unix()
)

// parseCertificate parses DER with the certificate-transparency x509 parser,
// which tolerates the non-fatal defects common in real-world certificates.
// Extension-level defects are reported later by the record builder. The
// parser rejects a malformed subject alternative name outright, so on a fatal
// error the raw extensions are checked first and a SAN defect is returned as
// a KindSAN *Error.
func parseCertificate(der []byte) (*ctx509.Certificate, error) {
	cert, err := ctx509.ParseCertificate(der)
	if err != nil && ctx509.IsFatal(err) {
		if exts, extErr := rawExtensions(der); extErr == nil {
			if _, sanErr := subjectAltNames(exts); sanErr != nil {
				return nil, newError(KindSAN, sanErr)
			}
		}
		return nil, err
	}
	if cert == nil {
		return nil, errors.New("parser returned no certificate")
	}
	if err != nil {
		slog.Debug("certificate has non-fatal defects", "error", err)
	}
	return cert, nil
}

// classify wraps err as kind unless it already carries a Kind.
func classify(kind Kind, err error) error {
	if KindOf(err) != 0 {
		return err
	}
	return newError(kind, err)
}

// rawExtensions reads the extension list straight from the TBSCertificate
// without interpreting any extension value.
//
//	TBSCertificate ::= SEQUENCE {
//	     version         [0]  EXPLICIT Version DEFAULT v1,
//	     serialNumber         CertificateSerialNumber,
//	     signature            AlgorithmIdentifier,
//	     issuer               Name,
//	     validity             Validity,
//	     subject              Name,
//	     subjectPublicKeyInfo SubjectPublicKeyInfo,
//	     issuerUniqueID  [1]  IMPLICIT UniqueIdentifier OPTIONAL,
//	     subjectUniqueID [2]  IMPLICIT UniqueIdentifier OPTIONAL,
//	     extensions      [3]  EXPLICIT Extensions OPTIONAL }
func rawExtensions(der []byte) ([]extension, error) {
	input := cryptobyte.String(der)
	var certificate, tbs cryptobyte.String
	if !input.ReadASN1(&certificate, cbasn1.SEQUENCE) || !certificate.ReadASN1(&tbs, cbasn1.SEQUENCE) {
		return nil, errors.New("reading TBSCertificate")
	}
	if !tbs.SkipOptionalASN1(cbasn1.Tag(0).Constructed().ContextSpecific()) || !tbs.SkipASN1(cbasn1.INTEGER) {
		return nil, errors.New("reading version and serial number")
	}
	for range 5 {
		if !tbs.SkipASN1(cbasn1.SEQUENCE) {
			return nil, errors.New("reading TBSCertificate fields")
		}
	}
	if !tbs.SkipOptionalASN1(cbasn1.Tag(1).ContextSpecific()) || !tbs.SkipOptionalASN1(cbasn1.Tag(2).ContextSpecific()) {
		return nil, errors.New("reading unique identifiers")
	}

	var wrapper cryptobyte.String
	var present bool
	if !tbs.ReadOptionalASN1(&wrapper, &present, cbasn1.Tag(3).Constructed().ContextSpecific()) {
		return nil, errors.New("reading extensions")
	}
	if !present {
		return nil, nil
	}
	var list cryptobyte.String
	if !wrapper.ReadASN1(&list, cbasn1.SEQUENCE) {
		return nil, errors.New("reading extensions")
	}
	var exts []extension
	for !list.Empty() {
		var raw cryptobyte.String
		var ext extension
		if !list.ReadASN1(&raw, cbasn1.SEQUENCE) ||
			!raw.ReadASN1ObjectIdentifier(&ext.oid) ||
			!raw.SkipOptionalASN1(cbasn1.BOOLEAN) ||
			!raw.ReadASN1Bytes(&ext.value, cbasn1.OCTET_STRING) {
			return nil, errors.New("reading extension")
		}
		exts = append(exts, ext)
	}
	return exts, nil
}

// buildRecord extracts the fields shared by both input paths. The caller
// adds Thumbprint and, for PKCS#12 input, Friendly.
func buildRecord(cert *ctx509.Certificate) (Record, error) {
	subject, err := parseName(cert.RawSubject)
	if err != nil {
		return Record{}, newError(KindCommonName, fmt.Errorf("subject: %w", err))
	}
	issuer, err := parseName(cert.RawIssuer)
	if err != nil {
		return Record{}, newError(KindCommonName, fmt.Errorf("issuer: %w", err))
	}

	cn, err := subject.commonNames()
	if err != nil {
		return Record{}, newError(KindCommonName, err)
	}
	ca, err := issuer.commonNames()
	if err != nil {
		return Record{}, newError(KindCommonName, err)
	}

	exts := make([]extension, 0, len(cert.Extensions))
	for _, ext := range cert.Extensions {
		exts = append(exts, extension{oid: asn1.ObjectIdentifier(ext.Id), value: ext.Value})
	}
	san, err := subjectAltNames(exts)
	if err != nil {
		return Record{}, newError(KindSAN, err)
	}

	expiration, err := expirationTime(cert.NotAfter)
	if err != nil {
		return Record{}, newError(KindTimestamp, err)
	}

	return Record{
		CN:         cn,
		Subject:    subject.String(),
		SAN:        san,
		CA:         ca,
		CASubject:  issuer.String(),
		Expiration: expiration,
	}, nil
}

// expirationTime converts a validity bound to whole seconds in UTC.
func expirationTime(notAfter time.Time) (time.Time, error) {
	secs := notAfter.Unix()
	if secs < minExpiration || secs > maxExpiration {
		return time.Time{}, fmt.Errorf("notAfter %d is outside the representable range", secs)
	}
	return time.Unix(secs, 0).UTC(), nil
}
