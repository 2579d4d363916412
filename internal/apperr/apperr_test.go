package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(NotFound("organization not found")))
	assert.Equal(t, CodeConflict, CodeOf(fmt.Errorf("outer: %w", Conflict("slug taken"))))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("driver exploded")))
}

func TestIs(t *testing.T) {
	err := Forbidden("insufficient organization role")
	assert.True(t, Is(err, CodeForbidden))
	assert.False(t, Is(err, CodeNotFound))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "slug taken", Message(Conflict("slug taken")))
	assert.Equal(t, "internal server error", Message(errors.New("pq: deadlock detected")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("record not found")
	err := Wrap(CodeNotFound, "membership not found", cause)
	assert.ErrorIs(t, err, cause)
}
