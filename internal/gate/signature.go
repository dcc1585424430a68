package gate

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"os"

	"bankhook/internal/types"

	log "github.com/sirupsen/logrus"
)

// CanonicalString derives the byte string the counterparty signs:
// sourceAppID, batchID and timestamp concatenated in that order with no
// separators. This is a wire contract shared with the sender: changing
// the field set or order invalidates every previously valid signature.
func CanonicalString(sourceAppID, batchID, timestamp string) string {
	return sourceAppID + batchID + timestamp
}

// Verifier checks SHA512withRSA (PKCS#1 v1.5) signatures from the single
// trusted counterparty key. A Verifier with no key fails every check
// closed rather than crashing the process.
type Verifier struct {
	pub *rsa.PublicKey
}

func NewVerifier(pub *rsa.PublicKey) *Verifier {
	return &Verifier{pub: pub}
}

// NewVerifierFromFile loads the PEM public key at path. A missing or
// unparseable key yields a verifier that rejects everything, plus the
// error for startup logging.
func NewVerifierFromFile(path string) (*Verifier, error) {
	pub, err := loadPublicKey(path)
	if err != nil {
		log.WithError(err).WithField("path", path).
			Error("bank public key unavailable, all signature checks will fail")
		return &Verifier{}, err
	}
	log.WithField("key_bits", pub.N.BitLen()).Info("bank public key loaded")
	return &Verifier{pub: pub}, nil
}

// HasKey reports whether a trusted key was loaded.
func (v *Verifier) HasKey() bool { return v.pub != nil }

// Verify checks signatureB64 over the canonical string. Any decode
// failure, malformed signature or crypto mismatch is a uniform false
// with no partial-success state.
func (v *Verifier) Verify(sourceAppID, batchID, timestamp, signatureB64 string) bool {
	if v.pub == nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return false
	}
	digest := sha512.Sum512([]byte(CanonicalString(sourceAppID, batchID, timestamp)))
	return rsa.VerifyPKCS1v15(v.pub, crypto.SHA512, digest[:], sig) == nil
}

func loadPublicKey(path string) (*rsa.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, types.Err(types.ErrMissingKey, err, "")
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, types.Err(types.ErrMissingKey, nil, "no PEM block in %s", path)
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		// Some issuers hand out PKCS#1 encoded keys.
		if pk1, err1 := x509.ParsePKCS1PublicKey(block.Bytes); err1 == nil {
			return pk1, nil
		}
		return nil, types.Err(types.ErrMissingKey, err, "parsing %s", path)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, types.Err(types.ErrMissingKey, nil, "%s is not an RSA key", path)
	}
	return pub, nil
}
