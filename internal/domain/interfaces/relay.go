package interfaces

import (
	"context"

	domaintypes "cipherline/internal/domain/types"
)

// RelayClient is how we talk to the central relay server, all with context.
type RelayClient interface {
	RegisterPreKeys(ctx context.Context, reg domaintypes.PreKeyRegistration) error
	// FetchPreKeyBundle returns the peer's bundle. Each one-time pre-key is
	// handed out by the relay in at most one bundle.
	FetchPreKeyBundle(
		ctx context.Context,
		username domaintypes.Username,
	) (domaintypes.PreKeyBundle, error)

	SendMessage(ctx context.Context, envelope domaintypes.Envelope) error
	FetchMessages(
		ctx context.Context,
		username domaintypes.Username,
		limit int,
	) ([]domaintypes.Envelope, error)
	AckMessages(ctx context.Context, username domaintypes.Username, count int) error
}
