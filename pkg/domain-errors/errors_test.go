package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodes(t *testing.T) {
	t.Run("HasCode finds a wrapped code", func(t *testing.T) {
		base := errors.New("disk on fire")
		err := fmt.Errorf("load: %w", Wrap(base, CodeInternal, "failed to load records"))

		assert.True(t, HasCode(err, CodeInternal))
		assert.False(t, HasCode(err, CodeNotFound))
		assert.ErrorIs(t, err, base)
	})

	t.Run("HasCode walks nested coded errors", func(t *testing.T) {
		inner := New(CodeConflict, "certificate id already issued")
		outer := Wrap(inner, CodeValidation, "invalid record")

		assert.True(t, HasCode(outer, CodeValidation))
		assert.True(t, HasCode(outer, CodeConflict))
		assert.Equal(t, CodeValidation, CodeOf(outer))
	})

	t.Run("uncoded errors map to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.Empty(t, MessageOf(errors.New("boom")))
		assert.False(t, HasCode(nil, CodeInternal))
	})

	t.Run("message includes the cause", func(t *testing.T) {
		err := Wrap(errors.New("eof"), CodeBadRequest, "invalid multipart body")
		assert.Equal(t, "invalid multipart body: eof", err.Error())
		assert.Equal(t, "invalid multipart body", MessageOf(err))
	})
}
