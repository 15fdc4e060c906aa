package types

// SignedPreKeyPair is a medium-term pre-key signed by the identity key.
// Timestamp is unix milliseconds at generation.
type SignedPreKeyPair struct {
	ID        SignedPreKeyID `json:"id"`
	KeyPair   KeyPair        `json:"key_pair"`
	Signature []byte         `json:"signature"`
	Timestamp int64          `json:"timestamp"`
}

// OneTimePreKeyPair is the full (private+public) one-time pre-key stored locally.
type OneTimePreKeyPair struct {
	ID      OneTimePreKeyID `json:"id"`
	KeyPair KeyPair         `json:"key_pair"`
}

// Public returns the half that is uploaded to the relay.
func (p OneTimePreKeyPair) Public() OneTimePreKeyPublic {
	return OneTimePreKeyPublic{ID: p.ID, Pub: p.KeyPair.Public}
}

// OneTimePreKeyPublic is only the public half (sent in bundles).
type OneTimePreKeyPublic struct {
	ID  OneTimePreKeyID `json:"id"`
	Pub X25519Public    `json:"pub"`
}

// PreKeyBundle is what a peer fetches to start a session with you. It carries
// at most one one-time pre-key.
type PreKeyBundle struct {
	Username              Username             `json:"username"`
	RegistrationID        RegistrationID       `json:"registration_id"`
	DeviceID              DeviceID             `json:"device_id"`
	IdentityKey           X25519Public         `json:"identity_key"`
	SigningKey            Ed25519Public        `json:"signing_key"`
	SignedPreKeyID        SignedPreKeyID       `json:"signed_pre_key_id"`
	SignedPreKey          X25519Public         `json:"signed_pre_key"`
	SignedPreKeySignature []byte               `json:"signed_pre_key_signature"`
	SignedPreKeyTimestamp int64                `json:"signed_pre_key_timestamp"`
	OneTimePreKey         *OneTimePreKeyPublic `json:"one_time_pre_key,omitempty"`
}

// PreKeyRegistration is uploaded to the relay: the bundle without a one-time
// pre-key plus the pool the relay hands out one at a time.
type PreKeyRegistration struct {
	Bundle         PreKeyBundle          `json:"bundle"`
	OneTimePreKeys []OneTimePreKeyPublic `json:"one_time_pre_keys,omitempty"`
}

// PreKeyMessage carries the X3DH handshake parameters in the initiator's
// messages until the responder replies.
type PreKeyMessage struct {
	InitiatorIdentityKey X25519Public     `json:"initiator_identity_key"`
	InitiatorSigningKey  Ed25519Public    `json:"initiator_signing_key"`
	EphemeralKey         X25519Public     `json:"ephemeral_key"`
	SignedPreKeyID       SignedPreKeyID   `json:"signed_pre_key_id"`
	OneTimePreKeyID      *OneTimePreKeyID `json:"one_time_pre_key_id,omitempty"`
	RegistrationID       RegistrationID   `json:"registration_id"`
}
