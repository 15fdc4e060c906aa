package interfaces

import domaintypes "cipherline/internal/domain/types"

// AccountStore remembers which username this device registered on each relay.
type AccountStore interface {
	SaveAccountProfile(profile domaintypes.AccountProfile) error
	LoadAccountProfile(serverURL string) (domaintypes.AccountProfile, bool, error)
}
