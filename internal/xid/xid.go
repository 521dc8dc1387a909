package xid

import (
	"strings"

	"github.com/google/uuid"
)

const uuidLen = 36

// New returns a random identifier. A non-empty prefix is joined with a dash.
func New(prefix string) string {
	id := uuid.NewString()
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}

// Valid reports whether id ends in a well formed UUID, optionally preceded by "<prefix>-".
func Valid(id string) bool {
	if len(id) < uuidLen {
		return false
	}
	if len(id) > uuidLen && id[len(id)-uuidLen-1] != '-' {
		return false
	}
	_, err := uuid.Parse(id[len(id)-uuidLen:])
	return err == nil
}
