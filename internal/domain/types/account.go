package types

// AccountProfile records which relay a local username was registered with.
type AccountProfile struct {
	ServerURL      string         `json:"server_url"`
	Username       Username       `json:"username"`
	RegistrationID RegistrationID `json:"registration_id"`
	DeviceID       DeviceID       `json:"device_id"`
	RegisteredUTC  int64          `json:"registered_utc"`
}
