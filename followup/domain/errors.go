package domain

import "errors"

var (
	ErrStateNotFound      = errors.New("routine state not found")
	ErrDefinitionNotFound = errors.New("routine definition not found")
	ErrInvalidSequence    = errors.New("sequence must be between 1 and 7")
)
