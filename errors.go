package cfddns

import "errors"

// Errors returned by this package can be classified with errors.Is.
//
// ErrConfig, ErrUnknownZone and ErrInvalidHostname are startup errors:
// a program should not enter its update loop after seeing one.
// ErrIPResolution and ErrProvider end a single pass and the next pass may succeed.
// ErrNotification is never returned from a pass; it is only logged.
var (
	ErrConfig          = errors.New("invalid configuration")
	ErrInvalidHostname = errors.New("invalid hostname")
	ErrUnknownZone     = errors.New("unknown zone")
	ErrIPResolution    = errors.New("unable to resolve public IPv4 address")
	ErrProvider        = errors.New("dns provider error")
	ErrNotification    = errors.New("notification failed")
)
