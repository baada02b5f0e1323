// Package syncerr defines the sync engine's error taxonomy (spec §7): a
// small set of sentinel kinds that callers can compare against with
// errors.Is, wrapped at call sites with pkg/errors for message context.
package syncerr

import "github.com/pkg/errors"

var (
	// ErrUnknownType: the type name has no registered ObjectConfig.
	ErrUnknownType = errors.New("unknown sync type")

	// ErrAlreadyRegistered: register_type called twice for the same name.
	ErrAlreadyRegistered = errors.New("type already registered")

	// ErrDuplicateConnection: register_connection called twice for the
	// same connection without an intervening remove.
	ErrDuplicateConnection = errors.New("connection already registered")

	// ErrDecode: malformed frame bytes, or a transient-type snapshot the
	// Object Codec rejected.
	ErrDecode = errors.New("malformed sync frame")

	// ErrMissingPersistent: a UUID referenced inbound isn't in the Store.
	ErrMissingPersistent = errors.New("persistent record not found")

	// ErrLocalApplyFailed: a user-provided update_fn rejected a change.
	ErrLocalApplyFailed = errors.New("local apply rejected")

	// ErrTransport: the Transport failed to deliver a frame.
	ErrTransport = errors.New("transport send failed")
)
