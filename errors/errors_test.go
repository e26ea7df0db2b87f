package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected Kind
	}{
		{name: "invalid argument", err: InvalidArgument(MissingIDError), expected: KindInvalidArgument},
		{name: "permission denied", err: PermissionDenied(OnlyHostsCreateError), expected: KindPermissionDenied},
		{name: "not found", err: NotFound(AccommodationNotFound), expected: KindNotFound},
		{name: "wrapped not found", err: fmt.Errorf("store: %w", NotFound(AccommodationNotFound)), expected: KindNotFound},
		{name: "untyped error", err: fmt.Errorf("boom"), expected: KindInternal},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, KindOf(tc.err))
			assert.True(t, Is(tc.err, tc.expected))
		})
	}
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusOf(InvalidArgument(MissingIDError)))
	assert.Equal(t, http.StatusForbidden, StatusOf(PermissionDenied(OnlyHostsListError)))
	assert.Equal(t, http.StatusNotFound, StatusOf(NotFound(AccommodationNotFound)))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(Internal(AnnouncementFailedError, fmt.Errorf("broker down"))))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(fmt.Errorf("boom")))
}

func TestInternal_KeepsCause(t *testing.T) {
	cause := fmt.Errorf("broker down")
	err := Internal(AnnouncementFailedError, cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "broker down")
	assert.False(t, Is(nil, KindInternal))
}
