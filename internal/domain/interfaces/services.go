package interfaces

import (
	"context"

	domaintypes "cipherline/internal/domain/types"
)

// IdentityService creates, retrieves, and inspects your identity keys.
type IdentityService interface {
	GenerateIdentity(passphrase string) (
		domaintypes.Identity,
		domaintypes.Fingerprint,
		error,
	)
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
	FingerprintIdentity(passphrase string) (domaintypes.Fingerprint, error)
}

// PreKeyService generates, rotates and assembles your pre-keys.
type PreKeyService interface {
	// GenerateAndStorePreKeys rotates the signed pre-key and adds count
	// one-time pre-keys.
	GenerateAndStorePreKeys(passphrase string, count int) (
		domaintypes.SignedPreKeyID,
		[]domaintypes.OneTimePreKeyPublic,
		error,
	)
	LoadPreKeyRegistration(
		passphrase string,
		username domaintypes.Username,
	) (
		domaintypes.PreKeyRegistration,
		error,
	)
}

// SessionService establishes or retrieves an X3DH session.
type SessionService interface {
	InitiateSession(
		ctx context.Context,
		passphrase string,
		peer domaintypes.Username,
	) (domaintypes.Session, error)
	GetSession(peer domaintypes.Username) (domaintypes.Session, bool, error)
}

// MessageService encrypts, sends, fetches and decrypts messages.
type MessageService interface {
	SendMessage(
		ctx context.Context,
		passphrase string,
		from domaintypes.Username,
		to domaintypes.Username,
		plaintext []byte,
	) error
	ReceiveMessage(
		ctx context.Context,
		passphrase string,
		me domaintypes.Username,
		limit int,
	) ([]domaintypes.DecryptedMessage, error)
}
