package x3dh

import (
	"bytes"
	"io"

	"cipherline/internal/crypto"
	"cipherline/internal/domain"
)

const (
	// SharedSecretSize is the length of the derived secret.
	SharedSecretSize = 32

	kdfInfo = "cipherline/x3dh"
)

// OneTimePreKeySource gives the responder access to its one-time pre-keys.
// A consumed id must never be returned by LookupOneTimePreKey again.
type OneTimePreKeySource interface {
	LookupOneTimePreKey(id domain.OneTimePreKeyID) (domain.KeyPair, bool, error)
	MarkOneTimePreKeyConsumed(id domain.OneTimePreKeyID) error
}

// InitiatorResult is the outcome of Initiate.
type InitiatorResult struct {
	SharedSecret    [SharedSecretSize]byte
	EphemeralPublic domain.X25519Public
	SignedPreKeyID  domain.SignedPreKeyID
	OneTimePreKeyID *domain.OneTimePreKeyID
	// AssociatedData is IKa || IKb; both sides bind every message to it.
	AssociatedData []byte
}

// ResponderResult is the outcome of Respond.
type ResponderResult struct {
	SharedSecret   [SharedSecretSize]byte
	AssociatedData []byte
}

// Wipe zeroes the shared secret.
func (r *InitiatorResult) Wipe() { crypto.Wipe(r.SharedSecret[:]) }

// Wipe zeroes the shared secret.
func (r *ResponderResult) Wipe() { crypto.Wipe(r.SharedSecret[:]) }

// VerifySignedPreKey checks the signed pre-key signature of a bundle.
func VerifySignedPreKey(bundle domain.PreKeyBundle) bool {
	return crypto.VerifyEd25519(bundle.SigningKey, bundle.SignedPreKey.Slice(), bundle.SignedPreKeySignature)
}

// Initiate runs the initiator side of X3DH against a fetched bundle.
func Initiate(rand io.Reader, local domain.Identity, bundle domain.PreKeyBundle) (InitiatorResult, error) {
	if !VerifySignedPreKey(bundle) {
		return InitiatorResult{}, opError("initiate", ErrInvalidSignature)
	}

	eph, err := crypto.GenerateKeyPair(rand)
	if err != nil {
		return InitiatorResult{}, opError("initiate", err)
	}
	defer crypto.Wipe(eph.Private[:])

	t := newTranscript()
	defer t.wipe()
	if err := t.add(local.XPriv, bundle.SignedPreKey); err != nil { // DH1
		return InitiatorResult{}, opError("initiate", err)
	}
	if err := t.add(eph.Private, bundle.IdentityKey); err != nil { // DH2
		return InitiatorResult{}, opError("initiate", err)
	}
	if err := t.add(eph.Private, bundle.SignedPreKey); err != nil { // DH3
		return InitiatorResult{}, opError("initiate", err)
	}

	res := InitiatorResult{
		EphemeralPublic: eph.Public,
		SignedPreKeyID:  bundle.SignedPreKeyID,
		AssociatedData:  AssociatedData(local.XPub, bundle.IdentityKey),
	}
	if opk := bundle.OneTimePreKey; opk != nil {
		if err := t.add(eph.Private, opk.Pub); err != nil { // DH4
			return InitiatorResult{}, opError("initiate", err)
		}
		id := opk.ID
		res.OneTimePreKeyID = &id
	}

	if res.SharedSecret, err = t.derive(); err != nil {
		return InitiatorResult{}, opError("initiate", err)
	}
	return res, nil
}

// Respond runs the responder side of X3DH for a received PreKeyMessage. signed
// must be the signed pre-key named by msg.SignedPreKeyID. A referenced one-time
// pre-key is marked consumed once the secret has been derived.
func Respond(
	local domain.Identity,
	signed domain.SignedPreKeyPair,
	oneTime OneTimePreKeySource,
	msg domain.PreKeyMessage,
) (ResponderResult, error) {
	const op = "respond"
	if signed.ID != msg.SignedPreKeyID {
		return ResponderResult{}, opError(op, ErrSignedPreKeyMismatch)
	}

	var opk *domain.KeyPair
	if msg.OneTimePreKeyID != nil {
		if oneTime == nil {
			return ResponderResult{}, opError(op, ErrUnknownPreKeyID)
		}
		kp, ok, err := oneTime.LookupOneTimePreKey(*msg.OneTimePreKeyID)
		if err != nil {
			return ResponderResult{}, opError(op, err)
		}
		if !ok {
			return ResponderResult{}, opError(op, ErrUnknownPreKeyID)
		}
		defer crypto.Wipe(kp.Private[:])
		opk = &kp
	}

	t := newTranscript()
	defer t.wipe()
	if err := t.add(signed.KeyPair.Private, msg.InitiatorIdentityKey); err != nil { // DH1
		return ResponderResult{}, opError(op, err)
	}
	if err := t.add(local.XPriv, msg.EphemeralKey); err != nil { // DH2
		return ResponderResult{}, opError(op, err)
	}
	if err := t.add(signed.KeyPair.Private, msg.EphemeralKey); err != nil { // DH3
		return ResponderResult{}, opError(op, err)
	}
	if opk != nil {
		if err := t.add(opk.Private, msg.EphemeralKey); err != nil { // DH4
			return ResponderResult{}, opError(op, err)
		}
	}

	secret, err := t.derive()
	if err != nil {
		return ResponderResult{}, opError(op, err)
	}
	if opk != nil {
		if err := oneTime.MarkOneTimePreKeyConsumed(*msg.OneTimePreKeyID); err != nil {
			crypto.Wipe(secret[:])
			return ResponderResult{}, opError(op, err)
		}
	}
	return ResponderResult{
		SharedSecret:   secret,
		AssociatedData: AssociatedData(msg.InitiatorIdentityKey, local.XPub),
	}, nil
}

// AssociatedData returns IK_initiator || IK_responder.
func AssociatedData(initiator, responder domain.X25519Public) []byte {
	return bytes.Join([][]byte{initiator[:], responder[:]}, nil)
}

// transcript accumulates F || DH1 || ... || DHn.
type transcript struct {
	buf []byte
}

func newTranscript() *transcript {
	t := &transcript{buf: make([]byte, 0, 32*5)}
	t.buf = append(t.buf, bytes.Repeat([]byte{0xff}, 32)...)
	return t
}

func (t *transcript) add(priv domain.X25519Private, pub domain.X25519Public) error {
	out, err := crypto.DH(priv, pub)
	if err != nil {
		return err
	}
	t.buf = append(t.buf, out[:]...)
	crypto.Wipe(out[:])
	return nil
}

func (t *transcript) derive() (secret [SharedSecretSize]byte, err error) {
	salt := make([]byte, 32)
	err = crypto.HKDF(t.buf, salt, []byte(kdfInfo), secret[:])
	return secret, err
}

func (t *transcript) wipe() { crypto.Wipe(t.buf) }
