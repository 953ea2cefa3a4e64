package session

import (
	"testing"

	"github.com/0xChaser/EasyBooking/internal/events"
	"github.com/0xChaser/EasyBooking/internal/repository"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry(new(mockAuth), repository.NewMemoryStore(), "token", Options{})

	a, created := reg.Get(1, nil)
	assert.True(t, created)
	again, created := reg.Get(1, events.NewEventBus())
	assert.False(t, created)
	assert.Same(t, a, again)

	b, _ := reg.Get(2, nil)
	assert.NotSame(t, a, b)
	assert.Equal(t, "token:1", a.Key())
	assert.Equal(t, "token:2", b.Key())
	assert.Equal(t, 2, reg.Len())

	reg.Remove(1)
	assert.Equal(t, 1, reg.Len())
}
