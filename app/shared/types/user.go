package sharedtypes

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MinNameLength = 2
	MaxNameLength = 50
)

var (
	// ErrInvalidEmail rejects an address that does not look like an email.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrInvalidName rejects a display name outside the allowed length.
	ErrInvalidName = errors.New("invalid name")
	// ErrUserNotFound is returned when no user has the requested email.
	ErrUserNotFound = errors.New("user not found")
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmail reports whether s is an acceptable email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidName reports whether s has an acceptable length.
func ValidName(s string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	return n >= MinNameLength && n <= MaxNameLength
}

// NormalizeEmail lowercases and trims an address so lookups are case-insensitive.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// User is a person who submits rankings.
type User struct {
	ID                 uuid.UUID  `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	SubmissionCount    int        `json:"submission_count"`
	LastSubmissionDate *time.Time `json:"last_submission_date,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
