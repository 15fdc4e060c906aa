package types

import "strconv"

// Username represents a relay-registered identity.
type Username string

// String returns the string form of the username.
func (u Username) String() string { return string(u) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// SignedPreKeyID identifies a signed pre-key.
type SignedPreKeyID uint32

func (id SignedPreKeyID) String() string { return strconv.FormatUint(uint64(id), 10) }

// OneTimePreKeyID identifies a one-time pre-key. IDs are never reissued.
type OneTimePreKeyID uint32

func (id OneTimePreKeyID) String() string { return strconv.FormatUint(uint64(id), 10) }

// RegistrationID is the random per-install identifier published in bundles.
type RegistrationID uint32

// DeviceID distinguishes installs of one user. Only one device is supported.
type DeviceID uint32

// ConversationID identifies a conversation partner.
type ConversationID string

// String returns the string form of the conversation identifier.
func (id ConversationID) String() string { return string(id) }
