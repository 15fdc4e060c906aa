package cipher

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"

	"golang.org/x/crypto/chacha20"

	"cipherline/internal/crypto"
	"cipherline/internal/domain"
)

const (
	// TagSize is the length of the authentication tag appended to ciphertexts.
	TagSize = sha256.Size

	messageKeysInfo = "cipherline/message-keys"
	encKeySize      = chacha20.KeySize
	authKeySize     = 32
	ivSize          = chacha20.NonceSize
)

type messageKeys struct {
	enc  [encKeySize]byte
	auth [authKeySize]byte
	iv   [ivSize]byte
}

func (k *messageKeys) wipe() {
	crypto.Wipe(k.enc[:])
	crypto.Wipe(k.auth[:])
	crypto.Wipe(k.iv[:])
}

func deriveKeys(mk [32]byte) (*messageKeys, error) {
	buf := make([]byte, encKeySize+authKeySize+ivSize)
	defer crypto.Wipe(buf)
	if err := crypto.HKDF(mk[:], nil, []byte(messageKeysInfo), buf); err != nil {
		return nil, err
	}
	k := new(messageKeys)
	copy(k.enc[:], buf[:encKeySize])
	copy(k.auth[:], buf[encKeySize:encKeySize+authKeySize])
	copy(k.iv[:], buf[encKeySize+authKeySize:])
	return k, nil
}

// nonce mixes the message index into the last four bytes of the IV seed.
func (k *messageKeys) nonce(index uint32) []byte {
	n := make([]byte, ivSize)
	copy(n, k.iv[:])
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], index)
	for i := 0; i < 4; i++ {
		n[ivSize-4+i] ^= idx[i]
	}
	return n
}

func (k *messageKeys) xor(dst, src []byte, index uint32) error {
	s, err := chacha20.NewUnauthenticatedCipher(k.enc[:], k.nonce(index))
	if err != nil {
		return err
	}
	s.XORKeyStream(dst, src)
	return nil
}

func (k *messageKeys) tag(header domain.RatchetHeader, ad, ct []byte) []byte {
	m := hmac.New(sha256.New, k.auth[:])
	var l [8]byte
	binary.BigEndian.PutUint64(l[:], uint64(len(ad)))
	m.Write(l[:])
	m.Write(ad)
	m.Write(header.Bytes())
	m.Write(ct)
	return m.Sum(nil)
}

// Seal encrypts plaintext under mk and returns ciphertext || tag.
func Seal(mk [32]byte, header domain.RatchetHeader, ad, plaintext []byte) ([]byte, error) {
	k, err := deriveKeys(mk)
	if err != nil {
		return nil, err
	}
	defer k.wipe()

	out := make([]byte, len(plaintext), len(plaintext)+TagSize)
	if err := k.xor(out, plaintext, header.MessageIndex); err != nil {
		return nil, err
	}
	return append(out, k.tag(header, ad, out)...), nil
}

// Open verifies and decrypts the output of Seal. Any modification of header,
// associated data or ciphertext yields an *AuthenticationError.
func Open(mk [32]byte, header domain.RatchetHeader, ad, sealed []byte) ([]byte, error) {
	if len(sealed) < TagSize {
		return nil, errAuth()
	}
	k, err := deriveKeys(mk)
	if err != nil {
		return nil, err
	}
	defer k.wipe()

	ct, got := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]
	if !hmac.Equal(k.tag(header, ad, ct), got) {
		return nil, errAuth()
	}
	pt := make([]byte, len(ct))
	if err := k.xor(pt, ct, header.MessageIndex); err != nil {
		return nil, err
	}
	return pt, nil
}
