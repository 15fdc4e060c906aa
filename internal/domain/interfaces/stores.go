package interfaces

import domaintypes "cipherline/internal/domain/types"

// IdentityStore persists your long-term identity keys.
type IdentityStore interface {
	SaveIdentity(passphrase string, id domaintypes.Identity) error
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
}

// PreKeyStore manages signed and one-time pre-keys on disk.
//
// LookupOneTimePreKey and MarkOneTimePreKeyConsumed form the one-time pre-key
// source consumed by the X3DH responder: a consumed id is never found again.
type PreKeyStore interface {
	// Signed pre-keys
	SaveSignedPreKey(pair domaintypes.SignedPreKeyPair) error
	LoadSignedPreKey(id domaintypes.SignedPreKeyID) (domaintypes.SignedPreKeyPair, bool, error)
	ListSignedPreKeys() ([]domaintypes.SignedPreKeyPair, error)
	RemoveSignedPreKey(id domaintypes.SignedPreKeyID) error

	// Current signed pre-key selection
	SetCurrentSignedPreKeyID(id domaintypes.SignedPreKeyID) error
	CurrentSignedPreKeyID() (domaintypes.SignedPreKeyID, bool, error)

	// Identifier allocation. IDs are monotonic and never reissued.
	NextSignedPreKeyID() (domaintypes.SignedPreKeyID, error)
	NextOneTimePreKeyIDs(n int) ([]domaintypes.OneTimePreKeyID, error)

	// One-time pre-keys
	SaveOneTimePreKeys(pairs []domaintypes.OneTimePreKeyPair) error
	LookupOneTimePreKey(id domaintypes.OneTimePreKeyID) (domaintypes.KeyPair, bool, error)
	MarkOneTimePreKeyConsumed(id domaintypes.OneTimePreKeyID) error
	ListOneTimePreKeyPublics() ([]domaintypes.OneTimePreKeyPublic, error)
}

// PreKeyBundleStore caches the last registration you uploaded.
type PreKeyBundleStore interface {
	SavePreKeyRegistration(reg domaintypes.PreKeyRegistration) error
	LoadPreKeyRegistration(username domaintypes.Username) (domaintypes.PreKeyRegistration, bool, error)
}

// SessionStore persists handshake metadata per peer.
type SessionStore interface {
	SaveSession(peer domaintypes.Username, session domaintypes.Session) error
	LoadSession(peer domaintypes.Username) (domaintypes.Session, bool, error)
}

// RatchetStore keeps per-peer serialized Double-Ratchet state.
type RatchetStore interface {
	SaveConversation(peer domaintypes.ConversationID, conversation domaintypes.Conversation) error
	LoadConversation(peer domaintypes.ConversationID) (domaintypes.Conversation, bool, error)
}
