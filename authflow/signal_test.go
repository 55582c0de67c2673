package authflow_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draftstudio/auth-gateway/authflow"
)

// markerError carries a redirect marker field without being a *Signal.
type markerError struct {
	digest string
}

func (e *markerError) Error() string  { return "wrapped navigation" }
func (e *markerError) Digest() string { return e.digest }

func TestIsSignalOnSignal(t *testing.T) {
	sig := &authflow.Signal{To: "/auth/redirect"}
	require.True(t, authflow.IsSignal(sig))
}

func TestIsSignalOnWrappedSignal(t *testing.T) {
	err := fmt.Errorf("handler: %w", &authflow.Signal{To: "/auth/redirect"})
	require.True(t, authflow.IsSignal(err))

	sig, ok := authflow.AsSignal(err)
	require.True(t, ok)
	require.Equal(t, "/auth/redirect", sig.To)
}

func TestIsSignalOnMarkerField(t *testing.T) {
	err := &markerError{digest: "REDIRECT;/projects"}
	require.True(t, authflow.IsSignal(err))

	sig, ok := authflow.AsSignal(err)
	require.True(t, ok)
	require.Equal(t, "/projects", sig.To)
}

func TestIsSignalOnSentinelMessage(t *testing.T) {
	require.True(t, authflow.IsSignal(errors.New("authflow: redirect")))
}

func TestIsSignalRejectsRealErrors(t *testing.T) {
	require.False(t, authflow.IsSignal(nil))
	require.False(t, authflow.IsSignal(errors.New("connection refused")))
	require.False(t, authflow.IsSignal(&markerError{digest: "NOT-A-REDIRECT"}))
	// A message merely containing the sentinel is not a signal.
	require.False(t, authflow.IsSignal(errors.New("failed: authflow: redirect went wrong")))
}
