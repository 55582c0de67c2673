package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy for the auth gateway.
var (
	// Authentication errors
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrSignupRejected        = errors.New("signup rejected")
	ErrNoUserData            = errors.New("no user data returned")
	ErrEnvironmentNotAllowed = errors.New("not allowed in this environment")
	ErrExchangeFailed        = errors.New("code exchange failed")
	ErrUnauthorized          = errors.New("unauthorized")

	// Infrastructure errors
	ErrDatabaseConnection = errors.New("database connection error")

	// General errors
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
	ErrInternal   = errors.New("internal error")
)

// Kind buckets an error for status mapping and logging policy.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindDatabase
)

// databasePatterns are message fragments that indicate the database (or the
// path to it) is unreachable, rather than a programming error.
var databasePatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"dial tcp",
	"i/o timeout",
	"context deadline exceeded",
	"timeout",
	"too many connections",
	"failed to connect",
	"database_url",
	"database connection",
}

// authPatterns are message fragments that indicate an identity-provider or
// session problem.
var authPatterns = []string{
	"invalid credentials",
	"unauthorized",
	"jwt",
	"token",
	"session",
	"cookie",
	"auth",
}

// Classify buckets err by sentinel identity first, message patterns second.
// Database patterns win over auth patterns: a refused connection while
// resolving a session is still an infra problem.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	switch {
	case errors.Is(err, ErrDatabaseConnection):
		return KindDatabase
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrExchangeFailed):
		return KindAuth
	}

	msg := strings.ToLower(err.Error())
	for _, p := range databasePatterns {
		if strings.Contains(msg, p) {
			return KindDatabase
		}
	}
	for _, p := range authPatterns {
		if strings.Contains(msg, p) {
			return KindAuth
		}
	}
	return KindUnknown
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
