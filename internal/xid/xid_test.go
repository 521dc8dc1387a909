package xid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsPrefixedAndUnique(t *testing.T) {
	a := New("cart")
	b := New("cart")

	assert.True(t, strings.HasPrefix(a, "cart-"))
	assert.NotEqual(t, a, b)
	assert.True(t, Valid(a))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(New("")))
	assert.False(t, Valid("cart-123"))
	assert.False(t, Valid("cartx"+New("")))
	assert.False(t, Valid(""))
}
