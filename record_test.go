package certfields

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"net"
	"slices"
	"testing"
	"time"

	ctasn1 "github.com/google/certificate-transparency-go/asn1"
	ctx509 "github.com/google/certificate-transparency-go/x509"
	ctpkix "github.com/google/certificate-transparency-go/x509/pkix"
)

func TestBuildRecord_Fields(t *testing.T) {
	// WHY: The builder is shared by both input paths; each field needs one
	// end-to-end check through the lenient parser.
	t.Parallel()

	ca, _ := exampleChain(t)
	multiCN := newTestCert(t, testCert{
		rawSubject: rawName(t,
			pkix.AttributeTypeAndValue{Type: oidCommonName, Value: "one.example"},
			pkix.AttributeTypeAndValue{Type: oidCommonName, Value: "two.example"},
		),
		dnsNames:  []string{"one.example", "two.example", "*.two.example"},
		parent:    ca.cert,
		parentKey: ca.key,
	})

	cert, err := parseCertificate(multiCN.der)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := buildRecord(cert)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(rec.CN, []string{"one.example", "two.example"}) {
		t.Errorf("cn = %q", rec.CN)
	}
	if rec.Subject != "CN=one.example, CN=two.example" {
		t.Errorf("subject = %q", rec.Subject)
	}
	if !slices.Equal(rec.SAN, []string{"one.example", "two.example", "*.two.example"}) {
		t.Errorf("san = %q", rec.SAN)
	}
	if !slices.Equal(rec.CA, []string{"ca.com"}) {
		t.Errorf("ca = %q", rec.CA)
	}
	if rec.Thumbprint != "" || rec.Friendly != nil {
		t.Error("builder must leave path-specific fields unset")
	}
}

func TestBuildRecord_NoCommonName(t *testing.T) {
	// WHY: A certificate identified only by SAN has cn = [], not nil, so
	// it serializes as an empty list.
	t.Parallel()

	leaf := newTestCert(t, testCert{
		subject:  pkix.Name{Organization: []string{"Example"}},
		dnsNames: []string{"only-san.example"},
	})
	records, err := DecodePEM(pemText(leaf.der))
	if err != nil {
		t.Fatal(err)
	}
	if records[0].CN == nil || len(records[0].CN) != 0 {
		t.Errorf("cn = %#v, want empty non-nil slice", records[0].CN)
	}
	if records[0].Subject != "O=Example" {
		t.Errorf("subject = %q, want O=Example", records[0].Subject)
	}
}

func TestBuildRecord_Failures(t *testing.T) {
	// WHY: Each builder failure surfaces as its own kind through the public
	// decoder, aborting the batch.
	t.Parallel()

	badCN := newTestCert(t, testCert{
		rawSubject: rawName(t, pkix.AttributeTypeAndValue{
			Type:  oidCommonName,
			Value: asn1.RawValue{Tag: asn1.TagT61String, Bytes: []byte("caf\xe9")},
		}),
	})
	ipSAN := newTestCert(t, testCert{
		dnsNames: []string{"a.example"},
		ips:      []net.IP{net.IPv4(192, 0, 2, 1)},
	})
	uriSAN := newTestCert(t, testCert{
		extra: []pkix.Extension{sanExtension(t, uriGeneralName("https://a.example/"))},
	})

	tests := []struct {
		name string
		der  []byte
		want Kind
	}{
		{"non_utf8_common_name", badCN.der, KindCommonName},
		{"ip_san", ipSAN.der, KindSAN},
		{"uri_san", uriSAN.der, KindSAN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodePEM(pemText(tt.der))
			wantKind(t, err, tt.want)
		})
	}
}

// certWithRawSAN signs a certificate whose subject alternative name extension
// holds value verbatim. The certificate-transparency encoder is used because
// it does not reparse its output.
func certWithRawSAN(t *testing.T, value []byte) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	template := &ctx509.Certificate{
		SerialNumber: randomSerial(t),
		Subject:      ctpkix.Name{CommonName: "bad-san.example"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		ExtraExtensions: []ctpkix.Extension{
			{Id: ctasn1.ObjectIdentifier(oidSubjectAltName), Value: value},
		},
	}
	der, err := ctx509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	return der
}

func TestDecodePEM_MalformedSANExtension(t *testing.T) {
	// WHY: The lenient parser gives up on a broken subject alternative name
	// extension. That is still a SAN failure, not an unparseable certificate.
	t.Parallel()

	tests := []struct {
		name  string
		value []byte
	}{
		{"not_a_sequence", []byte{0x04, 0x00}},
		{"truncated_general_name", []byte{0x30, 0x02, 0x82, 0x05}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			der := certWithRawSAN(t, tt.value)
			_, err := DecodePEM(pemText(der))
			wantKind(t, err, KindSAN)
			if !errors.Is(err, errMalformedSAN) {
				t.Errorf("error %v does not wrap errMalformedSAN", err)
			}
		})
	}
}

func TestRawExtensions(t *testing.T) {
	// WHY: The fallback extension reader must agree with the full parser on
	// a well-formed certificate and fail on input that is not one.
	t.Parallel()

	_, leaf := exampleChain(t)
	exts, err := rawExtensions(leaf.der)
	if err != nil {
		t.Fatal(err)
	}
	if len(exts) != len(leaf.cert.Extensions) {
		t.Fatalf("got %d extensions, want %d", len(exts), len(leaf.cert.Extensions))
	}
	for i, ext := range exts {
		if !ext.oid.Equal(leaf.cert.Extensions[i].Id) {
			t.Errorf("extension %d oid = %v, want %v", i, ext.oid, leaf.cert.Extensions[i].Id)
		}
	}
	san, err := subjectAltNames(exts)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(san, []string{"alternative.com"}) {
		t.Errorf("san = %q, want [alternative.com]", san)
	}

	if _, err := rawExtensions([]byte("junk")); err == nil {
		t.Error("expected error for non-certificate input")
	}
}

func TestExpirationTime(t *testing.T) {
	// WHY: Expirations are whole seconds in UTC, and bounds that cannot be
	// written as RFC 3339 are rejected rather than emitted as garbage.
	t.Parallel()

	est := time.FixedZone("EST", -5*60*60)
	tests := []struct {
		name    string
		in      time.Time
		want    time.Time
		wantErr bool
	}{
		{"utc", time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC), time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC), false},
		{"sub_second_dropped", time.Date(2030, 1, 2, 3, 4, 5, 999, time.UTC), time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC), false},
		{"zone_normalized", time.Date(2030, 1, 1, 19, 0, 0, 0, est), time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC), false},
		{"last_representable", time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC), time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC), false},
		{"first_representable", time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{"year_1", time.Time{}, time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{"after_9999", time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC), time.Time{}, true},
		{"before_year_0", time.Date(-1, 6, 1, 0, 0, 0, 0, time.UTC), time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := expirationTime(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tt.want) || got.Location() != time.UTC {
				t.Errorf("expirationTime(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
