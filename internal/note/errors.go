package note

import "errors"

var (
	// ErrNotFound covers both unknown note ids and unknown version ids.
	ErrNotFound = errors.New("note not found")

	// ErrAlreadyCollaborator is returned when inviting an existing member.
	ErrAlreadyCollaborator = errors.New("user is already a collaborator")

	// ErrValidation marks malformed input (empty editor identity, bad email).
	ErrValidation = errors.New("invalid input")
)
