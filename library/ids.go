package library

import "github.com/google/uuid"

// IDGenerator produces candidate user IDs. Uniqueness is checked by the
// directory on registration, not by the generator.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator yields the first 8 hex characters of a random UUID.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString()[:8] }

// IDGeneratorFunc adapts a plain function to IDGenerator.
type IDGeneratorFunc func() string

func (f IDGeneratorFunc) NewID() string { return f() }
