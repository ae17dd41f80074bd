package registry

import (
	"errors"
	"fmt"
)

// Common errors for address registration.
var (
	// ErrInvalidHostname indicates the hostname is not a valid DNS name.
	ErrInvalidHostname = errors.New("invalid hostname")

	// ErrInvalidAddress indicates the address is not a usable IPv4 address.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrHostnameInUse indicates the hostname is already registered.
	ErrHostnameInUse = errors.New("hostname already registered")

	// ErrAddressInUse indicates the IP address is already registered.
	ErrAddressInUse = errors.New("address already registered")
)

// RegistryError carries the failing operation and registration identity.
type RegistryError struct {
	Op       string // operation that caused the error
	Hostname string // hostname if relevant
	Err      error  // underlying error
}

func (e *RegistryError) Error() string {
	if e.Hostname != "" {
		return fmt.Sprintf("registry %s %s: %v", e.Op, e.Hostname, e.Err)
	}
	return fmt.Sprintf("registry %s: %v", e.Op, e.Err)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}

func newRegistryError(op, hostname string, err error) *RegistryError {
	return &RegistryError{Op: op, Hostname: hostname, Err: err}
}
