package match

import "errors"

var (
	// ErrMissingUserID is returned when a ranking request has no requester.
	ErrMissingUserID = errors.New("Missing userId")

	// ErrNoPreference is returned when the requester has no preference record.
	ErrNoPreference = errors.New("No preference found for user")

	// ErrVectorNotFound is returned when the requester has no vector record.
	ErrVectorNotFound = errors.New("User vector not found")
)
