package certfields

import (
	"encoding/asn1"
	"errors"
	"net"
	"slices"
	"strings"
	"testing"

	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

func TestSubjectAltNames(t *testing.T) {
	// WHY: Only DNS names are surfaced. Absence is an empty list, while any
	// other entry type, a duplicate extension, or bad encoding fails the
	// whole list instead of being filtered.
	t.Parallel()

	ext := func(t *testing.T, names ...asn1.RawValue) extension {
		t.Helper()
		e := sanExtension(t, names...)
		return extension{oid: asn1.ObjectIdentifier(e.Id), value: e.Value}
	}
	other := extension{oid: asn1.ObjectIdentifier{2, 5, 29, 19}, value: []byte{0x30, 0x00}}

	tests := []struct {
		name     string
		exts     func(t *testing.T) []extension
		want     []string
		wantErr  error
		wantKind string
	}{
		{
			name: "absent",
			exts: func(*testing.T) []extension { return []extension{other} },
			want: []string{},
		},
		{
			name: "dns_in_order",
			exts: func(t *testing.T) []extension {
				return []extension{other, ext(t, dnsGeneralName("b.example"), dnsGeneralName("a.example"))}
			},
			want: []string{"b.example", "a.example"},
		},
		{
			name: "uri_entry",
			exts: func(t *testing.T) []extension {
				return []extension{ext(t, dnsGeneralName("a.example"), uriGeneralName("https://a.example/"))}
			},
			wantErr:  errUnsupportedSANEntry,
			wantKind: "uniformResourceIdentifier",
		},
		{
			name: "ip_entry",
			exts: func(t *testing.T) []extension {
				ip := asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 7, Bytes: net.IPv4(192, 0, 2, 1).To4()}
				return []extension{ext(t, ip)}
			},
			wantErr:  errUnsupportedSANEntry,
			wantKind: "iPAddress",
		},
		{
			name: "duplicate_extension",
			exts: func(t *testing.T) []extension {
				san := ext(t, dnsGeneralName("a.example"))
				return []extension{san, san}
			},
			wantErr: errDuplicateSAN,
		},
		{
			name: "not_a_sequence",
			exts: func(*testing.T) []extension {
				return []extension{{oid: oidSubjectAltName, value: []byte{0x04, 0x00}}}
			},
			wantErr: errMalformedSAN,
		},
		{
			name: "truncated_entry",
			exts: func(*testing.T) []extension {
				return []extension{{oid: oidSubjectAltName, value: []byte{0x30, 0x03, 0x82, 0x05, 0x61}}}
			},
			wantErr: errMalformedSAN,
		},
		{
			name: "invalid_utf8_dns_name",
			exts: func(t *testing.T) []extension {
				return []extension{ext(t, dnsGeneralName("\xff.example"))}
			},
			wantErr: errMalformedSAN,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := subjectAltNames(tt.exts(t))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantKind) {
					t.Errorf("error %q does not mention %q", err, tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got == nil || !slices.Equal(got, tt.want) {
				t.Errorf("subjectAltNames() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestGeneralNameKind(t *testing.T) {
	// WHY: Error messages name the offending entry; tags outside the
	// GeneralName choice must not index past the table.
	t.Parallel()

	tests := []struct {
		tag  cbasn1.Tag
		want string
	}{
		{cbasn1.Tag(1).ContextSpecific(), "rfc822Name"},
		{cbasn1.Tag(4).ContextSpecific().Constructed(), "directoryName"},
		{cbasn1.Tag(8).ContextSpecific(), "registeredID"},
		{cbasn1.Tag(9).ContextSpecific(), "tag 0x89"},
		{cbasn1.OCTET_STRING, "tag 0x04"},
	}
	for _, tt := range tests {
		if got := generalNameKind(tt.tag); got != tt.want {
			t.Errorf("generalNameKind(0x%02x) = %q, want %q", uint8(tt.tag), got, tt.want)
		}
	}
}
