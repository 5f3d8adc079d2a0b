package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockAdvance(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMock(start)
	assert.Equal(t, start, c.Now())

	c.Advance(15 * time.Minute)
	assert.Equal(t, start.Add(15*time.Minute), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestOrSystemDefaults(t *testing.T) {
	assert.IsType(t, System{}, OrSystem(nil))
	mock := NewMock(time.Now())
	assert.Same(t, mock, OrSystem(mock))
	assert.Equal(t, time.UTC, System{}.Now().Location())
}
