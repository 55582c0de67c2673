// Package preview manages per-project preview domains
// (<subdomain>.<hosting domain>).
package preview

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

const maxLabelLength = 63

// Domain is a preview domain record for a project.
type Domain struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	FullDomain string    `json:"full_domain"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// Repo persists preview domains. Lookups return (nil, nil) when no record
// exists.
type Repo interface {
	Upsert(ctx context.Context, domain *Domain) (*Domain, error)
	GetByProjectID(ctx context.Context, projectID string) (*Domain, error)
	GetByFullDomain(ctx context.Context, fullDomain string) (*Domain, error)
	Delete(ctx context.Context, id string) error
}

// Subdomain derives a valid DNS label from a project id: lowercased, runs of
// anything outside [a-z0-9] collapsed to single dashes, edge dashes trimmed,
// capped at 63 characters. A non-empty id always yields a non-empty label;
// ids with no usable characters fall back to a short hash.
func Subdomain(projectID string) string {
	var b strings.Builder
	lastDash := true // suppress a leading dash
	for _, r := range strings.ToLower(projectID) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	label := strings.TrimRight(b.String(), "-")
	if len(label) > maxLabelLength {
		label = strings.TrimRight(label[:maxLabelLength], "-")
	}
	if label == "" && projectID != "" {
		sum := sha256.Sum256([]byte(projectID))
		label = "p-" + hex.EncodeToString(sum[:4])
	}
	return label
}

// FullDomain joins the derived subdomain with the hosting domain.
func FullDomain(projectID, hostingDomain string) string {
	return Subdomain(projectID) + "." + hostingDomain
}

// Corrupted reports whether a stored full domain was built against an unset
// hosting domain and needs repair.
func Corrupted(fullDomain string) bool {
	return strings.Contains(fullDomain, ".undefined") ||
		strings.HasSuffix(fullDomain, ".")
}
