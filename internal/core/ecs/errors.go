package ecs

import "errors"

var (
	// ErrValidation is wrapped by every schema violation reported by a descriptor.
	ErrValidation = errors.New("component validation failed")

	ErrUnknownType    = errors.New("unknown component type")
	ErrDuplicateType  = errors.New("component type already registered")
	ErrReadOnlyType   = errors.New("component type is read-only")
	ErrEntityNotFound = errors.New("entity not found")
	ErrInvalidParent  = errors.New("invalid parent entity")

	// Persistent id failures.
	ErrInvalidID           = errors.New("invalid persistent id")
	ErrDuplicateID         = errors.New("duplicate persistent id")
	ErrGenerationExhausted = errors.New("persistent id generation exhausted")
)
