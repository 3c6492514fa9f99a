package certfields

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/hex"
	"encoding/pem"
	"math/big"
	"net"
	"strings"
	"testing"
	"time"
)

var oidEmailAddress = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}

// testCert describes a certificate for newTestCert. Zero fields get defaults.
type testCert struct {
	// rawSubject, when set, is used verbatim instead of Subject.
	rawSubject []byte
	subject    pkix.Name
	dnsNames   []string
	emails     []string
	ips        []net.IP
	notAfter   time.Time
	extra      []pkix.Extension
	isCA       bool

	// parent and parentKey sign the certificate. Nil means self-signed.
	parent    *x509.Certificate
	parentKey *ecdsa.PrivateKey
}

// issuedCert is a generated certificate with its key.
type issuedCert struct {
	der  []byte
	cert *x509.Certificate
	key  *ecdsa.PrivateKey
}

func randomSerial(t *testing.T) *big.Int {
	t.Helper()
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		t.Fatal(err)
	}
	return serial
}

// newTestCert creates an ECDSA P-256 certificate described by tc.
func newTestCert(t *testing.T, tc testCert) issuedCert {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	notAfter := tc.notAfter
	if notAfter.IsZero() {
		notAfter = time.Now().Add(24 * time.Hour)
	}
	template := &x509.Certificate{
		SerialNumber:          randomSerial(t),
		Subject:               tc.subject,
		RawSubject:            tc.rawSubject,
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              notAfter,
		DNSNames:              tc.dnsNames,
		EmailAddresses:        tc.emails,
		IPAddresses:           tc.ips,
		ExtraExtensions:       tc.extra,
		IsCA:                  tc.isCA,
		BasicConstraintsValid: tc.isCA,
		KeyUsage:              x509.KeyUsageDigitalSignature,
	}
	if tc.isCA {
		template.KeyUsage |= x509.KeyUsageCertSign
	}

	parent, signer := template, key
	if tc.parent != nil {
		parent, signer = tc.parent, tc.parentKey
	}
	der, err := x509.CreateCertificate(rand.Reader, template, parent, &key.PublicKey, signer)
	if err != nil {
		t.Fatal(err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatal(err)
	}
	return issuedCert{der: der, cert: cert, key: key}
}

// rawName encodes a Name with one attribute per RDN, in the given order.
func rawName(t *testing.T, attrs ...pkix.AttributeTypeAndValue) []byte {
	t.Helper()
	var seq pkix.RDNSequence
	for _, attr := range attrs {
		seq = append(seq, pkix.RelativeDistinguishedNameSET{attr})
	}
	der, err := asn1.Marshal(seq)
	if err != nil {
		t.Fatal(err)
	}
	return der
}

// exampleName returns "CN=<cn>, Email=<email>, O=Example" in that order.
func exampleName(t *testing.T, cn, email string) []byte {
	t.Helper()
	return rawName(t,
		pkix.AttributeTypeAndValue{Type: oidCommonName, Value: cn},
		pkix.AttributeTypeAndValue{Type: oidEmailAddress, Value: email},
		pkix.AttributeTypeAndValue{Type: asn1.ObjectIdentifier{2, 5, 4, 10}, Value: "Example"},
	)
}

// exampleChain returns the ca.com issuer and a cer.com leaf signed by it.
func exampleChain(t *testing.T) (ca, leaf issuedCert) {
	t.Helper()
	ca = newTestCert(t, testCert{
		rawSubject: exampleName(t, "ca.com", "ca@example.com"),
		isCA:       true,
	})
	leaf = newTestCert(t, testCert{
		rawSubject: exampleName(t, "cer.com", "cer@example.com"),
		dnsNames:   []string{"alternative.com"},
		parent:     ca.cert,
		parentKey:  ca.key,
	})
	return ca, leaf
}

// pemText encodes each DER certificate as a CERTIFICATE block.
func pemText(ders ...[]byte) string {
	var sb strings.Builder
	for _, der := range ders {
		sb.Write(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
	}
	return sb.String()
}

func sha1Hex(der []byte) string {
	sum := sha1.Sum(der)
	return hex.EncodeToString(sum[:])
}

// sanExtension builds a subject alternative name extension holding the given
// raw GeneralName TLVs.
func sanExtension(t *testing.T, names ...asn1.RawValue) pkix.Extension {
	t.Helper()
	value, err := asn1.Marshal(names)
	if err != nil {
		t.Fatal(err)
	}
	return pkix.Extension{Id: oidSubjectAltName, Value: value}
}

func dnsGeneralName(name string) asn1.RawValue {
	return asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 2, Bytes: []byte(name)}
}

func uriGeneralName(uri string) asn1.RawValue {
	return asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 6, Bytes: []byte(uri)}
}

func wantKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := KindOf(err); got != want {
		t.Fatalf("error kind = %v, want %v (error: %v)", got, want, err)
	}
}
