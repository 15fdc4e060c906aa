// Package cipher seals and opens a single Double Ratchet message.
//
// A 32-byte message key is expanded with HKDF-SHA256 into an encryption key,
// an authentication key and an IV seed. The plaintext is encrypted with the
// ChaCha20 stream cipher under a nonce bound to the header's message index, and
// an HMAC-SHA256 tag over the associated data, the encoded header and the
// ciphertext is appended.
//
// Open verifies the tag in constant time before decrypting and never returns
// plaintext for a forged or corrupted message.
package cipher
