// Package errors defines transport-level sentinels shared by the object
// store backends. Store implementations map their native timeout and
// connection failures onto these so callers can branch without importing
// backend packages.
package errors

import "errors"

var (
	// ErrTimeout reports that a store operation exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrConnectionClosed reports that the backend connection is gone.
	ErrConnectionClosed = errors.New("connection closed")
)
