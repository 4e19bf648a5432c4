package platform

import "errors"

// Sentinel errors drivers map their transport-specific failures onto, so the
// layers above can classify without knowing the backend.
var (
	ErrNotFound        = errors.New("platform: not found")
	ErrUnauthorized    = errors.New("platform: unauthorized")
	ErrRoomUnavailable = errors.New("platform: room is full or invalid")
)
