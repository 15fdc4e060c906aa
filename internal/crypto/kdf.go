package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDF fills out with HKDF-SHA256(secret, salt, info) output.
func HKDF(secret, salt, info []byte, out []byte) error {
	r := hkdf.New(sha256.New, secret, salt, info)
	_, err := io.ReadFull(r, out)
	return err
}
