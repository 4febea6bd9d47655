package domain

import (
	"strings"
	"time"
)

// User is the opaque authenticated identity produced by the identity
// provider. Authentication mechanics live outside this service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Profile is the per-user account record. IsPremium is a one-way switch:
// nothing in this service ever resets it to false.
type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	IsPremium   bool      `json:"is_premium"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasFullAccess is the single authorization predicate for report
// visibility: premium accounts see everything, otherwise the evaluation
// must have been unlocked. A nil profile means no premium standing.
func HasFullAccess(p *Profile, e *Evaluation) bool {
	if e == nil {
		return false
	}
	if p != nil && p.IsPremium {
		return true
	}
	return e.IsPaid
}

// DisplayNameFromEmail derives a default display name when the identity
// provider supplies only an email address.
func DisplayNameFromEmail(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
