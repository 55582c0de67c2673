// Package identity holds the durable user account record and the rules for
// deriving display names from provider metadata.
package identity

import (
	"strings"
	"time"
)

type User struct {
	ID          string    `json:"id"`                     // Stable identifier, matches the provider's user id
	Email       string    `json:"email,omitempty"`        // User's email address
	FirstName   string    `json:"first_name,omitempty"`   // First name of the user
	LastName    string    `json:"last_name,omitempty"`    // Last name of the user
	DisplayName string    `json:"display_name,omitempty"` // Full display name
	AvatarURL   string    `json:"avatar_url,omitempty"`   // Avatar image URL
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// nameKeys are probed in order; the first non-empty value wins.
var nameKeys = []string{
	"name",
	"display_name",
	"full_name",
	"first_name",
	"last_name",
	"given_name",
	"family_name",
}

// DeriveName builds a display name from provider metadata. When the winning
// key holds a single token and the metadata also carries a last-name style
// key, the two are joined so the first/last split stays meaningful.
func DeriveName(metadata map[string]string) string {
	var name string
	for _, key := range nameKeys {
		if v := strings.TrimSpace(metadata[key]); v != "" {
			name = v
			break
		}
	}
	if name == "" {
		return ""
	}

	if !strings.Contains(name, " ") {
		for _, key := range []string{"last_name", "family_name"} {
			last := strings.TrimSpace(metadata[key])
			if last != "" && last != name {
				return name + " " + last
			}
		}
	}
	return name
}

// SplitName splits a display name into first and last tokens. Everything
// after the first token belongs to the last name.
func SplitName(name string) (first, last string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", ""
	}
	if len(fields) == 1 {
		return fields[0], ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
