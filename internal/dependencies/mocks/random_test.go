package mocks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMockRandomQueuedAfterDryDraws(t *testing.T) {
	r := NewMockRandom()

	assert.Equal(t, "rand0001", r.String(10, "abc"))
	assert.Equal(t, "rand0002", r.String(10, "abc"))

	r.QueueString("queued")
	assert.Equal(t, "queued", r.String(10, "abc"))

	assert.Equal(t, "rand0003", r.String(10, "abc"))
}

func TestMockRandomReset(t *testing.T) {
	r := NewMockRandom()
	r.QueueString("first")
	assert.Equal(t, "first", r.String(10, "abc"))
	assert.Equal(t, "rand0001", r.String(10, "abc"))

	r.Reset()
	assert.Equal(t, "rand0001", r.String(10, "abc"))
}
