package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Totarae/shortlinks/internal/apperr"
	"github.com/stretchr/testify/assert"
)

func TestWrapMatchesSentinel(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("find link: %w", apperr.Store(cause))

	assert.ErrorIs(t, err, apperr.ErrStore)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, apperr.KindStore, apperr.KindOf(err))
	assert.Equal(t, "Server error", apperr.ReasonOf(err))
}

func TestNotFoundReasonsAreDistinct(t *testing.T) {
	assert.Equal(t, apperr.KindOf(apperr.ErrLinkNotFound), apperr.KindOf(apperr.ErrNoteNotFound))
	assert.NotErrorIs(t, apperr.ErrNoteNotFound, apperr.ErrLinkNotFound)
	assert.NotErrorIs(t, apperr.ErrLinkNotFound, apperr.ErrNoteNotFound)
}

func TestAuthReasons(t *testing.T) {
	reasons := map[string]bool{}
	for _, err := range []error{apperr.ErrNoToken, apperr.ErrTokenFormat, apperr.ErrTokenExpired, apperr.ErrInvalidToken} {
		assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
		reasons[apperr.ReasonOf(err)] = true
	}
	assert.Len(t, reasons, 4)
}

func TestUnknownError(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, apperr.KindUnknown, apperr.KindOf(err))
	assert.Equal(t, "Server error", apperr.ReasonOf(err))
	assert.Nil(t, apperr.Store(nil))
}
