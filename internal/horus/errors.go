package horus

import "errors"

// Error taxonomy shared by providers and stores. Callers match with errors.Is;
// every layer wraps with context via fmt.Errorf("...: %w", err).
var (
	// ErrConnection means a provider could not reach its backing store.
	ErrConnection = errors.New("connection failed")

	// ErrNotFound means a path or a record id does not exist. Discovery calls
	// turn it into an empty result; mutations targeting an id surface it.
	ErrNotFound = errors.New("not found")

	// ErrPermission means the write target is not writable.
	ErrPermission = errors.New("permission denied")

	// ErrMalformedDocument means a store document exists but cannot be parsed.
	// It is never replaced with an empty document.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrUnavailable is returned by every file system call once the resolver
	// has failed to open any provider.
	ErrUnavailable = errors.New("no file system provider available")

	ErrInvalidArgument = errors.New("invalid argument")
)
