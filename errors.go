package gymauth

import "errors"

var (
	// ErrEngineClosed is returned by operations on an engine after Close.
	ErrEngineClosed = errors.New("engine closed")
	// ErrNotInitialized is returned when an operation requires Initialize first.
	ErrNotInitialized = errors.New("engine not initialized")
	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = errors.New("engine already initialized")
	// ErrFlowState is returned when a form action is submitted from a state
	// that does not expose it.
	ErrFlowState = errors.New("action not available in current flow state")
	// ErrPasswordPolicy is returned when a password is shorter than the
	// configured minimum.
	ErrPasswordPolicy = errors.New("password below minimum length")
	// ErrPasswordMismatch is returned when the reset confirmation does not
	// match the new password.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrNameRequired is returned by sign-up when the display name is blank.
	ErrNameRequired = errors.New("display name required")
	// ErrRoleUnknownSubject is returned by SetRole for an empty subject ID.
	ErrRoleUnknownSubject = errors.New("role toggle requires a subject id")
)
