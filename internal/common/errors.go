// Package common holds sentinel errors shared by repositories, services and
// the HTTP layer. Handlers map them to status codes with errors.Is.
package common

import "errors"

var (

	// repository specific errors
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// object storage errors
	ErrorUploadFailed    = errors.New("upload failed")
	ErrorRetrievalFailed = errors.New("retrieval failed")

	// service specific errors
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	ErrInvalidToken = errors.New("invalid token")
)
