package domain

import "errors"

var (
	ErrUnknownConnection = errors.New("connection not registered")
	ErrNotJoined         = errors.New("connection has not joined a workspace")
	ErrMalformedPayload  = errors.New("malformed payload")
	ErrWorkspaceNotFound = errors.New("workspace not found")

	ErrAIRateLimited = errors.New("ai: rate limited")
	ErrAIFailed      = errors.New("ai: generation failed")
)
