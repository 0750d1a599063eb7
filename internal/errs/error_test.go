package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{Validation("bad", "a", "b"), http.StatusBadRequest},
		{Authentication("invalid credentials"), http.StatusUnauthorized},
		{Forbidden("nope"), http.StatusForbidden},
		{NotFound("user not found"), http.StatusNotFound},
		{Conflict("user already exists"), http.StatusConflict},
		{RateLimited("slow down"), http.StatusTooManyRequests},
		{Internal("hash", errors.New("entropy")), http.StatusInternalServerError},
		{fmt.Errorf("repo: %w", ErrNotFound), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		require.Equal(t, c.want, StatusOf(c.err), "err=%v", c.err)
	}
}

func TestError_IsAndMessages(t *testing.T) {
	t.Parallel()

	cause := errors.New("entropy unavailable")
	err := fmt.Errorf("register: %w", Internal("could not process password", cause))
	require.ErrorIs(t, err, ErrInternal)
	require.ErrorIs(t, err, cause)
	require.Equal(t, http.StatusText(http.StatusInternalServerError), PublicMessage(err))

	v := Validation("password policy", "too short")
	require.ErrorIs(t, v, ErrValidation)
	require.Equal(t, "password policy", PublicMessage(v))
	require.Equal(t, []string{"too short"}, v.Details)

	require.Equal(t, "Unauthorized", PublicMessage(ErrUnauthorized))
}
