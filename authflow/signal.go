package authflow

import (
	"errors"
	"strings"
)

// sentinelMessage is the reserved message a redirect signal carries. Matching
// on it keeps the discriminator working across process boundaries where only
// the message text survives.
const sentinelMessage = "authflow: redirect"

// digestPrefix is the reserved marker pattern for signal-carrying values.
const digestPrefix = "REDIRECT;"

// Signal marks an intentional navigation travelling through an error value.
// It is control transfer, not a failure: callers must re-propagate it
// verbatim and never log it as an error. The action pipeline itself returns
// Redirect values; Signal exists for boundaries (HTTP funnels, the client
// manager) where an error is the only channel.
type Signal struct {
	To string
}

func (s *Signal) Error() string { return sentinelMessage }

// Digest returns the reserved marker carrying the destination.
func (s *Signal) Digest() string { return digestPrefix + s.To }

// digester matches any value carrying a redirect marker field.
type digester interface {
	Digest() string
}

// IsSignal reports whether err is a redirect signal: a *Signal anywhere in
// the chain, a marker field matching the reserved pattern, or a message
// exactly equal to the reserved sentinel.
func IsSignal(err error) bool {
	if err == nil {
		return false
	}
	var sig *Signal
	if errors.As(err, &sig) {
		return true
	}
	var d digester
	if errors.As(err, &d) && strings.HasPrefix(d.Digest(), digestPrefix) {
		return true
	}
	return err.Error() == sentinelMessage
}

// AsSignal extracts the signal from err, if it is one.
func AsSignal(err error) (*Signal, bool) {
	var sig *Signal
	if errors.As(err, &sig) {
		return sig, true
	}
	if IsSignal(err) {
		to := ""
		var d digester
		if errors.As(err, &d) {
			to = strings.TrimPrefix(d.Digest(), digestPrefix)
		}
		return &Signal{To: to}, true
	}
	return nil, false
}
