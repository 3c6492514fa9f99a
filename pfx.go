package certfields

import (
	"crypto"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

const (
	attrFriendlyName = "friendlyName"
	attrLocalKeyID   = "localKeyId"
)

var errNoFriendlyName = errors.New("friendly name attribute is not valid BMPString")

// storeEntry is one certificate bag of an opened PKCS#12 container.
type storeEntry struct {
	raw   []byte
	attrs map[string]string
}

// DER returns the certificate bytes as stored in the bag.
func (e *storeEntry) DER() []byte { return e.raw }

// FriendlyName returns the bag's friendlyName attribute, or an empty string
// when the bag carries none.
func (e *storeEntry) FriendlyName() (string, error) {
	name, ok := e.attrs[attrFriendlyName]
	if !ok {
		return "", nil
	}
	if !utf8.ValidString(name) || strings.ContainsRune(name, utf8.RuneError) {
		return "", errNoFriendlyName
	}
	return name, nil
}

// Fingerprint digests the stored certificate bytes with h.
func (e *storeEntry) Fingerprint(h crypto.Hash) ([]byte, error) {
	if !h.Available() {
		return nil, fmt.Errorf("hash %s is not available", h)
	}
	if len(e.raw) == 0 {
		return nil, errors.New("entry holds no certificate bytes")
	}
	d := h.New()
	d.Write(e.raw)
	return d.Sum(nil), nil
}

// pfxStore is a decrypted PKCS#12 container. Close must be called once the
// entries are no longer needed.
type pfxStore struct {
	entries []*storeEntry
	secrets [][]byte
}

// Close wipes private key material and drops all entries.
func (s *pfxStore) Close() {
	for _, secret := range s.secrets {
		clear(secret)
	}
	s.secrets = nil
	s.entries = nil
}

// openPFXStore decrypts data with password. The container is walked bag by
// bag so that any safe layout opens and bag attributes survive. Containers
// using a scheme the walker does not decrypt (RC2, public-key integrity) are
// handed to go-pkcs12: key and chain exports through ToPEM, Java trust
// stores through DecodeTrustStore, which does not report friendly names.
func openPFXStore(data []byte, password string) (*pfxStore, error) {
	bags, err := readSafeBags(data, password)
	if err == nil {
		return storeFromBags(bags)
	}
	if !errors.Is(err, errUnsupportedPFX) {
		return nil, err
	}
	slog.Debug("PKCS#12 container not decryptable by the bag walker, trying go-pkcs12", "error", err)

	//nolint:staticcheck // ToPEM is the only go-pkcs12 API that exposes bag attributes.
	blocks, pemErr := pkcs12.ToPEM(data, password)
	if pemErr == nil {
		return storeFromBlocks(blocks), nil
	}
	if errors.Is(pemErr, pkcs12.ErrIncorrectPassword) {
		return nil, pemErr
	}
	certs, tsErr := pkcs12.DecodeTrustStore(data, password)
	if tsErr == nil {
		return storeFromCertificates(certs), nil
	}
	return nil, fmt.Errorf("%w (go-pkcs12: %w)", err, errors.Join(pemErr, tsErr))
}

// storeFromBags keeps certificate bags as entries and key bags as secrets.
func storeFromBags(bags []safeBag) (*pfxStore, error) {
	s := &pfxStore{}
	for _, bag := range bags {
		switch {
		case bag.id.Equal(oidCertBag):
			der, err := certBagDER(bag.value)
			if err != nil {
				s.Close()
				return nil, err
			}
			s.entries = append(s.entries, &storeEntry{raw: der, attrs: bag.attributes()})
		case bag.id.Equal(oidKeyBag), bag.id.Equal(oidShroudedKeyBag):
			s.secrets = append(s.secrets, bag.value)
		default:
			slog.Debug("skipping PKCS#12 bag", "type", bag.id.String())
		}
	}
	return s, nil
}

func storeFromBlocks(blocks []*pem.Block) *pfxStore {
	s := &pfxStore{}
	for _, block := range blocks {
		if block.Type != "CERTIFICATE" {
			s.secrets = append(s.secrets, block.Bytes)
			continue
		}
		s.entries = append(s.entries, &storeEntry{raw: block.Bytes, attrs: block.Headers})
	}
	return s
}

func storeFromCertificates(certs []*x509.Certificate) *pfxStore {
	s := &pfxStore{}
	for _, cert := range certs {
		s.entries = append(s.entries, &storeEntry{raw: cert.Raw})
	}
	return s
}

// DecodePFX returns one Record per certificate in a PKCS#12 container, in
// container order. A nil password is treated as the empty password.
func DecodePFX(data []byte, password *string) ([]Record, error) {
	var pw string
	if password != nil {
		pw = *password
	}
	store, err := openPFXStore(data, pw)
	if err != nil {
		return nil, newError(KindPFX, err)
	}
	defer store.Close()

	records := make([]Record, 0, len(store.entries))
	for i, entry := range store.entries {
		rec, err := pfxRecord(entry)
		if err != nil {
			return nil, err
		}
		slog.Debug("decoded PKCS#12 certificate", "entry", i, "subject", rec.Subject,
			"local_key_id", entry.attrs[attrLocalKeyID])
		records = append(records, rec)
	}
	return records, nil
}

func pfxRecord(entry *storeEntry) (Record, error) {
	cert, err := parseCertificate(entry.DER())
	if err != nil {
		return Record{}, classify(KindDER, err)
	}
	rec, err := buildRecord(cert)
	if err != nil {
		return Record{}, err
	}
	name, err := entry.FriendlyName()
	if err != nil {
		return Record{}, newError(KindFriendlyName, err)
	}
	rec.Friendly = &name
	sum, err := entry.Fingerprint(crypto.SHA1)
	if err != nil {
		return Record{}, newError(KindFingerprint, err)
	}
	rec.Thumbprint = hex.EncodeToString(sum)
	return rec, nil
}
