package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"cipherline/internal/domain"
)

// Fingerprint returns a short hex fingerprint of a public key.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(pub []byte) domain.Fingerprint {
	sum := sha256.Sum256(pub)
	return domain.Fingerprint(hex.EncodeToString(sum[:10]))
}

// IdentityFingerprint fingerprints the identity key together with its
// signing key so either substitution changes the result.
func IdentityFingerprint(id domain.Identity) domain.Fingerprint {
	buf := make([]byte, 0, len(id.XPub)+len(id.EdPub))
	buf = append(buf, id.XPub[:]...)
	buf = append(buf, id.EdPub[:]...)
	return Fingerprint(buf)
}

// DeriveRegistrationID maps an identity key to a stable non-zero 14-bit
// registration id, used when none is configured.
func DeriveRegistrationID(pub domain.X25519Public) domain.RegistrationID {
	sum := sha256.Sum256(append([]byte("cipherline/registration-id"), pub[:]...))
	id := (uint32(sum[0])<<8 | uint32(sum[1])) & 0x3fff
	if id == 0 {
		id = 1
	}
	return domain.RegistrationID(id)
}
