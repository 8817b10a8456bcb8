package domain

import "errors"

var (
	ErrUnknownScenario = errors.New("unknown scenario")
	ErrInvalidProfile  = errors.New("invalid manager profile")
	ErrUnknownMode     = errors.New("unknown interaction mode")
	ErrEmptyMessage    = errors.New("message is required")
	ErrSessionBusy     = errors.New("request already in progress for this session")
)
