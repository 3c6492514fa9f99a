package certfields

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/asn1"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"unicode/utf8"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/encoding/unicode"
	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

// PKCS#12 object identifiers (RFC 7292, RFC 8018, RFC 9579).
var (
	oidDataContent          = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}
	oidEncryptedDataContent = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 6}

	oidKeyBag             = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 12, 10, 1, 1}
	oidShroudedKeyBag     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 12, 10, 1, 2}
	oidCertBag            = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 12, 10, 1, 3}
	oidSafeContentsBag    = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 12, 10, 1, 6}
	oidX509CertificateBag = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 22, 1}

	oidFriendlyName = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 20}
	oidLocalKeyID   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 21}

	oidPBEWithSHAAnd3KeyTripleDESCBC = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 12, 1, 3}
	oidPBES2                         = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 5, 13}
	oidPBKDF2                        = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 5, 12}
	oidPBMAC1                        = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 5, 14}
	oidAES128CBC                     = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 2}
	oidAES192CBC                     = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 22}
	oidAES256CBC                     = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 42}
)

// macDigests maps a MacData digest algorithm to its hash.
var macDigests = map[string]func() hash.Hash{
	"1.3.14.3.2.26":          sha1.New,
	"2.16.840.1.101.3.4.2.1": sha256.New,
	"2.16.840.1.101.3.4.2.2": sha512.New384,
	"2.16.840.1.101.3.4.2.3": sha512.New,
}

// hmacPRFs maps an HMAC algorithm identifier to its hash.
var hmacPRFs = map[string]func() hash.Hash{
	"1.2.840.113549.2.7":  sha1.New,
	"1.2.840.113549.2.9":  sha256.New,
	"1.2.840.113549.2.10": sha512.New384,
	"1.2.840.113549.2.11": sha512.New,
}

var aesKeySizes = map[string]int{
	oidAES128CBC.String(): 16,
	oidAES192CBC.String(): 24,
	oidAES256CBC.String(): 32,
}

var (
	errMalformedPFX   = errors.New("malformed PKCS#12 container")
	errUnsupportedPFX = errors.New("unsupported PKCS#12 feature")
)

// maxSafeDepth bounds SafeContentsBag nesting.
const maxSafeDepth = 8

var tagExplicit0 = cbasn1.Tag(0).Constructed().ContextSpecific()

// safeBag is one SafeBag with its value still encoded.
type safeBag struct {
	id    asn1.ObjectIdentifier
	value []byte
	attrs []bagAttribute
}

// bagAttribute holds the full TLV of each value in the attribute's SET.
type bagAttribute struct {
	id     asn1.ObjectIdentifier
	values [][]byte
}

// attributes converts the attributes this package reports into the same
// key/value form go-pkcs12 uses for PEM headers. A friendlyName that is not a
// well-formed BMPString is kept as U+FFFD so that reading it fails later.
func (b *safeBag) attributes() map[string]string {
	var out map[string]string
	for _, attr := range b.attrs {
		if len(attr.values) == 0 {
			continue
		}
		var key, value string
		switch {
		case attr.id.Equal(oidFriendlyName):
			key, value = attrFriendlyName, bmpAttribute(attr.values[0])
		case attr.id.Equal(oidLocalKeyID):
			v := cryptobyte.String(attr.values[0])
			var id []byte
			if !v.ReadASN1Bytes(&id, cbasn1.OCTET_STRING) {
				continue
			}
			key, value = attrLocalKeyID, hex.EncodeToString(id)
		default:
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[key] = value
	}
	return out
}

func bmpAttribute(tlv []byte) string {
	v := cryptobyte.String(tlv)
	var bmp []byte
	if !v.ReadASN1Bytes(&bmp, cbasn1.Tag(30)) || len(bmp)%2 != 0 {
		return string(utf8.RuneError)
	}
	if n := len(bmp); n >= 2 && bmp[n-1] == 0 && bmp[n-2] == 0 {
		bmp = bmp[:n-2]
	}
	name, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(bmp)
	if err != nil {
		return string(utf8.RuneError)
	}
	return string(name)
}

// certBagDER returns the DER certificate held by a CertBag.
//
//	CertBag ::= SEQUENCE {
//	     certId    BAG-TYPE.&id   ({CertTypes}),
//	     certValue [0] EXPLICIT BAG-TYPE.&Type ({CertTypes}{@certId}) }
func certBagDER(value []byte) ([]byte, error) {
	input := cryptobyte.String(value)
	var bag, wrapped cryptobyte.String
	var certID asn1.ObjectIdentifier
	var der []byte
	if !input.ReadASN1(&bag, cbasn1.SEQUENCE) ||
		!bag.ReadASN1ObjectIdentifier(&certID) ||
		!bag.ReadASN1(&wrapped, tagExplicit0) {
		return nil, fmt.Errorf("%w: reading CertBag", errMalformedPFX)
	}
	if !certID.Equal(oidX509CertificateBag) {
		return nil, fmt.Errorf("%w: certificate type %s", errUnsupportedPFX, certID)
	}
	if !wrapped.ReadASN1Bytes(&der, cbasn1.OCTET_STRING) {
		return nil, fmt.Errorf("%w: reading certValue", errMalformedPFX)
	}
	return der, nil
}

// readSafeBags verifies and decrypts a password-integrity PKCS#12 container
// and returns every SafeBag in container order, flattening nested
// SafeContents. Safes encrypted with PBES2 or with the SHA-1 triple DES
// scheme are decrypted; anything else reports errUnsupportedPFX.
//
//	PFX ::= SEQUENCE {
//	     version    INTEGER {v3(3)}(v3,...),
//	     authSafe   ContentInfo,
//	     macData    MacData OPTIONAL }
func readSafeBags(data []byte, password string) ([]safeBag, error) {
	input := cryptobyte.String(data)
	var pfx, authSafe, wrapped cryptobyte.String
	var version int64
	var contentType asn1.ObjectIdentifier
	if !input.ReadASN1(&pfx, cbasn1.SEQUENCE) ||
		!pfx.ReadASN1Integer(&version) ||
		!pfx.ReadASN1(&authSafe, cbasn1.SEQUENCE) ||
		!authSafe.ReadASN1ObjectIdentifier(&contentType) ||
		!authSafe.ReadASN1(&wrapped, tagExplicit0) {
		return nil, fmt.Errorf("%w: reading PFX", errMalformedPFX)
	}
	if version != 3 {
		return nil, fmt.Errorf("%w: PFX version %d", errUnsupportedPFX, version)
	}
	if !contentType.Equal(oidDataContent) {
		return nil, fmt.Errorf("%w: public-key integrity mode", errUnsupportedPFX)
	}
	var authBytes []byte
	if !wrapped.ReadASN1Bytes(&authBytes, cbasn1.OCTET_STRING) {
		return nil, fmt.Errorf("%w: reading authenticated safe", errMalformedPFX)
	}

	bmpPassword, err := encodeBMPPassword(password)
	if err != nil {
		return nil, pkcs12.ErrIncorrectPassword
	}
	if !pfx.Empty() {
		if bmpPassword, err = verifyMAC(pfx, authBytes, password, bmpPassword); err != nil {
			return nil, err
		}
	}

	safes := cryptobyte.String(authBytes)
	var list cryptobyte.String
	if !safes.ReadASN1(&list, cbasn1.SEQUENCE) {
		return nil, fmt.Errorf("%w: reading AuthenticatedSafe", errMalformedPFX)
	}
	var bags []safeBag
	for !list.Empty() {
		var ci, content cryptobyte.String
		var ct asn1.ObjectIdentifier
		if !list.ReadASN1(&ci, cbasn1.SEQUENCE) ||
			!ci.ReadASN1ObjectIdentifier(&ct) ||
			!ci.ReadASN1(&content, tagExplicit0) {
			return nil, fmt.Errorf("%w: reading ContentInfo", errMalformedPFX)
		}
		var plain []byte
		switch {
		case ct.Equal(oidDataContent):
			if !content.ReadASN1Bytes(&plain, cbasn1.OCTET_STRING) {
				return nil, fmt.Errorf("%w: reading data safe", errMalformedPFX)
			}
		case ct.Equal(oidEncryptedDataContent):
			if plain, err = decryptSafe(content, password, bmpPassword); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: safe content type %s", errUnsupportedPFX, ct)
		}
		if bags, err = appendSafeBags(bags, plain, 0); err != nil {
			return nil, err
		}
	}
	return bags, nil
}

// encodeBMPPassword returns the password as a NUL-terminated big-endian
// UTF-16 string, the form the RFC 7292 key derivation expects.
func encodeBMPPassword(password string) ([]byte, error) {
	encoded, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(password))
	if err != nil {
		return nil, err
	}
	return append(encoded, 0, 0), nil
}

// verifyMAC checks the container MAC and returns the password encoding that
// produced it. An empty password is tried both NUL-terminated and as zero
// bytes since encoders disagree on which one to use.
//
//	MacData ::= SEQUENCE {
//	     mac        DigestInfo,
//	     macSalt    OCTET STRING,
//	     iterations INTEGER DEFAULT 1 }
func verifyMAC(macData cryptobyte.String, message []byte, password string, bmpPassword []byte) ([]byte, error) {
	var mac, digestInfo, algorithm cryptobyte.String
	var algOID asn1.ObjectIdentifier
	var digest, salt []byte
	iterations := int64(1)
	if !macData.ReadASN1(&mac, cbasn1.SEQUENCE) ||
		!mac.ReadASN1(&digestInfo, cbasn1.SEQUENCE) ||
		!digestInfo.ReadASN1(&algorithm, cbasn1.SEQUENCE) ||
		!algorithm.ReadASN1ObjectIdentifier(&algOID) ||
		!digestInfo.ReadASN1Bytes(&digest, cbasn1.OCTET_STRING) ||
		!mac.ReadASN1Bytes(&salt, cbasn1.OCTET_STRING) ||
		(mac.PeekASN1Tag(cbasn1.INTEGER) && !mac.ReadASN1Integer(&iterations)) {
		return nil, fmt.Errorf("%w: reading MacData", errMalformedPFX)
	}

	if algOID.Equal(oidPBMAC1) {
		expected, err := pbmac1(algorithm, message, []byte(password))
		if err != nil {
			return nil, err
		}
		if !hmac.Equal(expected, digest) {
			return nil, pkcs12.ErrIncorrectPassword
		}
		return bmpPassword, nil
	}

	newHash, ok := macDigests[algOID.String()]
	if !ok {
		return nil, fmt.Errorf("%w: MAC digest %s", errUnsupportedPFX, algOID)
	}
	candidates := [][]byte{bmpPassword}
	if password == "" {
		candidates = append(candidates, nil)
	}
	for _, candidate := range candidates {
		key := pkcs12KDF(newHash, salt, candidate, int(iterations), 3, newHash().Size())
		m := hmac.New(newHash, key)
		m.Write(message)
		if hmac.Equal(m.Sum(nil), digest) {
			return candidate, nil
		}
	}
	return nil, pkcs12.ErrIncorrectPassword
}

// pbmac1 computes an RFC 9579 PBMAC1 over message. params starts at the
// algorithm parameters.
func pbmac1(params cryptobyte.String, message, password []byte) ([]byte, error) {
	var seq, kdf, macAlg cryptobyte.String
	var kdfOID, macOID asn1.ObjectIdentifier
	if !params.ReadASN1(&seq, cbasn1.SEQUENCE) ||
		!seq.ReadASN1(&kdf, cbasn1.SEQUENCE) ||
		!kdf.ReadASN1ObjectIdentifier(&kdfOID) ||
		!seq.ReadASN1(&macAlg, cbasn1.SEQUENCE) ||
		!macAlg.ReadASN1ObjectIdentifier(&macOID) {
		return nil, fmt.Errorf("%w: reading PBMAC1 parameters", errMalformedPFX)
	}
	if !kdfOID.Equal(oidPBKDF2) {
		return nil, fmt.Errorf("%w: PBMAC1 key derivation %s", errUnsupportedPFX, kdfOID)
	}
	newHash, ok := hmacPRFs[macOID.String()]
	if !ok {
		return nil, fmt.Errorf("%w: PBMAC1 MAC %s", errUnsupportedPFX, macOID)
	}
	key, err := pbkdf2Key(kdf, password, 0)
	if err != nil {
		return nil, err
	}
	m := hmac.New(newHash, key)
	m.Write(message)
	return m.Sum(nil), nil
}

// pbkdf2Key derives a key from PBKDF2-params. A keyLen of zero takes the
// length from the parameters.
//
//	PBKDF2-params ::= SEQUENCE {
//	     salt           CHOICE { specified OCTET STRING, ... },
//	     iterationCount INTEGER (1..MAX),
//	     keyLength      INTEGER (1..MAX) OPTIONAL,
//	     prf            AlgorithmIdentifier DEFAULT algid-hmacWithSHA1 }
func pbkdf2Key(params cryptobyte.String, password []byte, keyLen int) ([]byte, error) {
	var seq, prf cryptobyte.String
	var salt []byte
	var iterations, explicitLen int64
	var hasPRF bool
	if !params.ReadASN1(&seq, cbasn1.SEQUENCE) ||
		!seq.ReadASN1Bytes(&salt, cbasn1.OCTET_STRING) ||
		!seq.ReadASN1Integer(&iterations) ||
		(seq.PeekASN1Tag(cbasn1.INTEGER) && !seq.ReadASN1Integer(&explicitLen)) ||
		!seq.ReadOptionalASN1(&prf, &hasPRF, cbasn1.SEQUENCE) {
		return nil, fmt.Errorf("%w: reading PBKDF2 parameters", errMalformedPFX)
	}
	newHash := sha1.New
	if hasPRF {
		var prfOID asn1.ObjectIdentifier
		if !prf.ReadASN1ObjectIdentifier(&prfOID) {
			return nil, fmt.Errorf("%w: reading PBKDF2 PRF", errMalformedPFX)
		}
		var ok bool
		if newHash, ok = hmacPRFs[prfOID.String()]; !ok {
			return nil, fmt.Errorf("%w: PBKDF2 PRF %s", errUnsupportedPFX, prfOID)
		}
	}
	if keyLen == 0 {
		keyLen = int(explicitLen)
	}
	if keyLen <= 0 || iterations <= 0 {
		return nil, fmt.Errorf("%w: PBKDF2 key length %d, iterations %d", errMalformedPFX, keyLen, iterations)
	}
	return pbkdf2.Key(password, salt, int(iterations), keyLen, newHash), nil
}

// decryptSafe decrypts an EncryptedData safe.
//
//	EncryptedData ::= SEQUENCE {
//	     version              Version,
//	     encryptedContentInfo EncryptedContentInfo }
//
//	EncryptedContentInfo ::= SEQUENCE {
//	     contentType                ContentType,
//	     contentEncryptionAlgorithm AlgorithmIdentifier,
//	     encryptedContent           [0] IMPLICIT OCTET STRING OPTIONAL }
func decryptSafe(content cryptobyte.String, password string, bmpPassword []byte) ([]byte, error) {
	var encrypted, info, algorithm cryptobyte.String
	var version int64
	var contentType asn1.ObjectIdentifier
	if !content.ReadASN1(&encrypted, cbasn1.SEQUENCE) ||
		!encrypted.ReadASN1Integer(&version) ||
		!encrypted.ReadASN1(&info, cbasn1.SEQUENCE) ||
		!info.ReadASN1ObjectIdentifier(&contentType) ||
		!info.ReadASN1(&algorithm, cbasn1.SEQUENCE) {
		return nil, fmt.Errorf("%w: reading EncryptedData", errMalformedPFX)
	}
	ciphertext, ok := readEncryptedContent(&info)
	if !ok {
		return nil, fmt.Errorf("%w: reading encryptedContent", errMalformedPFX)
	}

	var algOID asn1.ObjectIdentifier
	if !algorithm.ReadASN1ObjectIdentifier(&algOID) {
		return nil, fmt.Errorf("%w: reading content encryption algorithm", errMalformedPFX)
	}
	var (
		block cipher.Block
		iv    []byte
		err   error
	)
	switch {
	case algOID.Equal(oidPBES2):
		block, iv, err = pbes2Cipher(algorithm, []byte(password))
	case algOID.Equal(oidPBEWithSHAAnd3KeyTripleDESCBC):
		var params cryptobyte.String
		var salt []byte
		var iterations int64
		if !algorithm.ReadASN1(&params, cbasn1.SEQUENCE) ||
			!params.ReadASN1Bytes(&salt, cbasn1.OCTET_STRING) ||
			!params.ReadASN1Integer(&iterations) {
			return nil, fmt.Errorf("%w: reading PBE parameters", errMalformedPFX)
		}
		key := pkcs12KDF(sha1.New, salt, bmpPassword, int(iterations), 1, 24)
		iv = pkcs12KDF(sha1.New, salt, bmpPassword, int(iterations), 2, des.BlockSize)
		block, err = des.NewTripleDESCipher(key)
	default:
		return nil, fmt.Errorf("%w: content encryption %s", errUnsupportedPFX, algOID)
	}
	if err != nil {
		return nil, err
	}
	return decryptCBC(block, iv, ciphertext)
}

// readEncryptedContent accepts the primitive DER form and the constructed
// BER form that some exporters emit.
func readEncryptedContent(info *cryptobyte.String) ([]byte, bool) {
	var out []byte
	if info.PeekASN1Tag(cbasn1.Tag(0).ContextSpecific()) {
		return out, info.ReadASN1Bytes(&out, cbasn1.Tag(0).ContextSpecific())
	}
	var parts cryptobyte.String
	if !info.ReadASN1(&parts, tagExplicit0) {
		return nil, false
	}
	for !parts.Empty() {
		var part []byte
		if !parts.ReadASN1Bytes(&part, cbasn1.OCTET_STRING) {
			return nil, false
		}
		out = append(out, part...)
	}
	return out, true
}

// pbes2Cipher builds the AES-CBC cipher described by PBES2-params.
//
//	PBES2-params ::= SEQUENCE {
//	     keyDerivationFunc AlgorithmIdentifier {{PBES2-KDFs}},
//	     encryptionScheme  AlgorithmIdentifier {{PBES2-Encs}} }
func pbes2Cipher(params cryptobyte.String, password []byte) (cipher.Block, []byte, error) {
	var seq, kdf, scheme cryptobyte.String
	var kdfOID, schemeOID asn1.ObjectIdentifier
	var iv []byte
	if !params.ReadASN1(&seq, cbasn1.SEQUENCE) ||
		!seq.ReadASN1(&kdf, cbasn1.SEQUENCE) ||
		!kdf.ReadASN1ObjectIdentifier(&kdfOID) ||
		!seq.ReadASN1(&scheme, cbasn1.SEQUENCE) ||
		!scheme.ReadASN1ObjectIdentifier(&schemeOID) {
		return nil, nil, fmt.Errorf("%w: reading PBES2 parameters", errMalformedPFX)
	}
	if !kdfOID.Equal(oidPBKDF2) {
		return nil, nil, fmt.Errorf("%w: PBES2 key derivation %s", errUnsupportedPFX, kdfOID)
	}
	keyLen, ok := aesKeySizes[schemeOID.String()]
	if !ok {
		return nil, nil, fmt.Errorf("%w: PBES2 encryption scheme %s", errUnsupportedPFX, schemeOID)
	}
	if !scheme.ReadASN1Bytes(&iv, cbasn1.OCTET_STRING) {
		return nil, nil, fmt.Errorf("%w: reading PBES2 IV", errMalformedPFX)
	}
	key, err := pbkdf2Key(kdf, password, keyLen)
	if err != nil {
		return nil, nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	return block, iv, nil
}

// decryptCBC decrypts and strips PKCS#7 padding. Bad padding means the
// password was wrong for a container without a MAC.
func decryptCBC(block cipher.Block, iv, ciphertext []byte) ([]byte, error) {
	size := block.BlockSize()
	if len(iv) != size {
		return nil, fmt.Errorf("%w: IV is %d bytes, want %d", errMalformedPFX, len(iv), size)
	}
	if len(ciphertext) == 0 || len(ciphertext)%size != 0 {
		return nil, fmt.Errorf("%w: encrypted content is %d bytes", errMalformedPFX, len(ciphertext))
	}
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)

	pad := int(plain[len(plain)-1])
	if pad == 0 || pad > size || !bytes.Equal(plain[len(plain)-pad:], bytes.Repeat([]byte{byte(pad)}, pad)) {
		clear(plain)
		return nil, pkcs12.ErrDecryption
	}
	return plain[:len(plain)-pad], nil
}

// pkcs12KDF is the RFC 7292 appendix B.2 key derivation. id selects the
// purpose: 1 for keys, 2 for IVs, 3 for MAC keys.
func pkcs12KDF(newHash func() hash.Hash, salt, password []byte, iterations int, id byte, size int) []byte {
	d := newHash()
	u, v := d.Size(), d.BlockSize()

	diversifier := bytes.Repeat([]byte{id}, v)
	input := append(fillBlocks(salt, v), fillBlocks(password, v)...)

	out := make([]byte, 0, size+u)
	for {
		d.Reset()
		d.Write(diversifier)
		d.Write(input)
		a := d.Sum(nil)
		for range iterations - 1 {
			d.Reset()
			d.Write(a)
			a = d.Sum(a[:0])
		}
		out = append(out, a...)
		if len(out) >= size {
			return out[:size]
		}
		b := fillBlocks(a, v)
		for j := 0; j < len(input); j += v {
			addBlock(input[j:j+v], b)
		}
	}
}

// fillBlocks repeats pattern to the smallest multiple of v that holds it.
func fillBlocks(pattern []byte, v int) []byte {
	if len(pattern) == 0 {
		return nil
	}
	n := v * ((len(pattern) + v - 1) / v)
	out := make([]byte, n)
	for i := 0; i < n; i += len(pattern) {
		copy(out[i:], pattern)
	}
	return out
}

// addBlock sets block to block + b + 1 modulo 2^(8*len(block)).
func addBlock(block, b []byte) {
	carry := 1
	for i := len(block) - 1; i >= 0; i-- {
		sum := int(block[i]) + int(b[i]) + carry
		block[i] = byte(sum)
		carry = sum >> 8
	}
}

// appendSafeBags parses SafeContents and appends its bags to bags.
//
//	SafeBag ::= SEQUENCE {
//	     bagId         BAG-TYPE.&id ({PKCS12BagSet}),
//	     bagValue      [0] EXPLICIT BAG-TYPE.&Type({PKCS12BagSet}{@bagId}),
//	     bagAttributes SET OF PKCS12Attribute OPTIONAL }
func appendSafeBags(bags []safeBag, contents []byte, depth int) ([]safeBag, error) {
	input := cryptobyte.String(contents)
	var list cryptobyte.String
	if !input.ReadASN1(&list, cbasn1.SEQUENCE) {
		return nil, fmt.Errorf("%w: reading SafeContents", errMalformedPFX)
	}
	for !list.Empty() {
		var raw, value, attrSet cryptobyte.String
		var bag safeBag
		var hasAttrs bool
		if !list.ReadASN1(&raw, cbasn1.SEQUENCE) ||
			!raw.ReadASN1ObjectIdentifier(&bag.id) ||
			!raw.ReadASN1(&value, tagExplicit0) ||
			!raw.ReadOptionalASN1(&attrSet, &hasAttrs, cbasn1.SET) {
			return nil, fmt.Errorf("%w: reading SafeBag", errMalformedPFX)
		}
		bag.value = value
		for !attrSet.Empty() {
			var rawAttr, values cryptobyte.String
			var attr bagAttribute
			if !attrSet.ReadASN1(&rawAttr, cbasn1.SEQUENCE) ||
				!rawAttr.ReadASN1ObjectIdentifier(&attr.id) ||
				!rawAttr.ReadASN1(&values, cbasn1.SET) {
				return nil, fmt.Errorf("%w: reading bag attribute", errMalformedPFX)
			}
			for !values.Empty() {
				var element cryptobyte.String
				var tag cbasn1.Tag
				if !values.ReadAnyASN1Element(&element, &tag) {
					return nil, fmt.Errorf("%w: reading bag attribute value", errMalformedPFX)
				}
				attr.values = append(attr.values, element)
			}
			bag.attrs = append(bag.attrs, attr)
		}

		if bag.id.Equal(oidSafeContentsBag) {
			if depth >= maxSafeDepth {
				return nil, fmt.Errorf("%w: SafeContents nested too deeply", errMalformedPFX)
			}
			var err error
			if bags, err = appendSafeBags(bags, bag.value, depth+1); err != nil {
				return nil, err
			}
			continue
		}
		bags = append(bags, bag)
	}
	return bags, nil
}
