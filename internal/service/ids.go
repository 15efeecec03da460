package service

import "github.com/google/uuid"

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// NewID generates a new UUID string, satisfying audit.IDGenerator.
func (g *DefaultUUIDGenerator) NewID() string {
	return uuid.NewString()
}
