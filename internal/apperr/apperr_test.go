package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("%w: key is required", ErrInvalidInput), http.StatusBadRequest},
		{ErrAlreadyVoted, http.StatusBadRequest},
		{ErrQuotaExceeded, http.StatusBadRequest},
		{ErrTooLarge, http.StatusBadRequest},
		{ErrUnsupportedType, http.StatusBadRequest},
		{ErrInvalidImageContent, http.StatusBadRequest},
		{ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("%w: image", ErrNotFound), http.StatusNotFound},
		{ErrRelayTimeout, http.StatusOK},
		{ErrRelayUnreachable, http.StatusOK},
		{fmt.Errorf("%w: disk full", ErrStorageFailure), http.StatusInternalServerError},
		{errors.New("unknown"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), "%v", tc.err)
	}
}

func TestPublicMessage_HidesStorageDetail(t *testing.T) {
	err := fmt.Errorf("%w: open /var/data/x.db: permission denied", ErrStorageFailure)
	assert.Equal(t, "Internal server error", PublicMessage(err))
	assert.Equal(t, "already voted for this item", PublicMessage(ErrAlreadyVoted))
	assert.True(t, IsRelayError(fmt.Errorf("x: %w", ErrRelayTimeout)))
	assert.False(t, IsRelayError(ErrNotFound))
}
