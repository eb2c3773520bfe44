// Package id provides unique identifier generation for jobs.
package id

import (
	"strings"

	"github.com/google/uuid"
)

// Generate creates a new job ID: the first group of a random UUID.
// Example: 1b4e28ba
func Generate() string {
	s, _, _ := strings.Cut(uuid.NewString(), "-")
	return s
}
