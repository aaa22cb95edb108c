package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageInterpolation(t *testing.T) {
	err := Conflict("A similar report exists (%d days old). Wait %d more days.", 5, 25)
	assert.Equal(t, "A similar report exists (5 days old). Wait 25 more days.", err.Error())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("missing")))
	assert.Equal(t, KindConflict, KindOf(Conflict("duplicate")))
	assert.Equal(t, KindInvalidInput, KindOf(InvalidInput("bad")))
	assert.Equal(t, KindUnauthorized, KindOf(Unauthorized("denied")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NotFound("missing"))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsConflict(wrapped))
}

func TestInternalWrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal(cause, "Failed to retrieve report")

	assert.Equal(t, "Failed to retrieve report: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestErrorsIsMatchesByKind(t *testing.T) {
	assert.ErrorIs(t, NotFound("a"), NotFound("b"))
	assert.NotErrorIs(t, NotFound("a"), Conflict("a"))
}
