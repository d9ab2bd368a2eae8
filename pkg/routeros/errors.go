package routeros

import "fmt"

// AuthError indicates the device rejected the session credentials (HTTP 401).
// It is always session-ending: callers must clear the session and every
// cache derived from it, never retry.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "device rejected credentials"
	}
	return "device rejected credentials: " + e.Message
}

// DeviceError is any non-2xx response other than 401. The device answered,
// so previously cached data stays valid.
type DeviceError struct {
	Status  int
	Message string
}

func (e *DeviceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("device http %d", e.Status)
	}
	return fmt.Sprintf("device http %d: %s", e.Status, e.Message)
}

// TransportError means no response arrived at all (connection refused,
// timeout, DNS). Distinguished from DeviceError in logs; treated the same
// by the cache layer.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "device unreachable: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }
