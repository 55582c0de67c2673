package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	apperrors "github.com/draftstudio/auth-gateway/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestClassifyDatabasePatterns(t *testing.T) {
	cases := []error{
		stderrors.New("dial tcp 127.0.0.1:5432: connect: connection refused"),
		stderrors.New("read tcp: i/o timeout"),
		stderrors.New("DATABASE_URL is required but not set"),
		fmt.Errorf("query users: %w", apperrors.ErrDatabaseConnection),
	}
	for _, err := range cases {
		require.Equal(t, apperrors.KindDatabase, apperrors.Classify(err), "error: %v", err)
	}
}

func TestClassifyAuthPatterns(t *testing.T) {
	cases := []error{
		apperrors.ErrUnauthorized,
		fmt.Errorf("sign in: %w", apperrors.ErrInvalidCredentials),
		stderrors.New("gotrue: jwt is expired"),
		stderrors.New("missing session cookie"),
	}
	for _, err := range cases {
		require.Equal(t, apperrors.KindAuth, apperrors.Classify(err), "error: %v", err)
	}
}

func TestClassifyDatabaseWinsOverAuth(t *testing.T) {
	// A refused connection to the auth provider is infra, not auth.
	err := stderrors.New("auth provider: dial tcp: connection refused")
	require.Equal(t, apperrors.KindDatabase, apperrors.Classify(err))
}

func TestClassifyUnknown(t *testing.T) {
	require.Equal(t, apperrors.KindUnknown, apperrors.Classify(nil))
	require.Equal(t, apperrors.KindUnknown, apperrors.Classify(stderrors.New("template parse failed")))
}

func TestWrapfPreservesSentinel(t *testing.T) {
	err := apperrors.Wrapf(apperrors.ErrSignupRejected, "signup %s", "a@b.c")
	require.True(t, apperrors.Is(err, apperrors.ErrSignupRejected))
	require.Nil(t, apperrors.Wrapf(nil, "nothing"))
}
