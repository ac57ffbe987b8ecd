package domain

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ProjectStatus is a project's lifecycle state in the registry.
type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "active"
	ProjectArchived ProjectStatus = "archived"
)

// Project is one registered repository with its own task board.
// Fields are ordered to minimize memory padding.
type Project struct {
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	ID        string        `json:"id"`                  // Slug derived from the name
	Name      string        `json:"name"`                //
	Path      string        `json:"path"`                // Absolute filesystem path
	RemoteURL string        `json:"remoteURL,omitempty"` // origin URL when the path is a git repo
	Status    ProjectStatus `json:"status"`              //
	Order     int           `json:"order"`               // Display ordering
}

// SlugID derives a registry id from a project name: lowercased, runs of
// non-alphanumerics collapsed to single dashes, trimmed.
func SlugID(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// UniqueSlugID derives a slug id that does not collide with taken ids,
// appending -2, -3, … until free. An empty slug becomes "project".
func UniqueSlugID(name string, taken func(string) bool) string {
	base := SlugID(name)
	if base == "" {
		base = "project"
	}
	if !taken(base) {
		return base
	}
	for i := 2; ; i++ {
		candidate := base + "-" + strconv.Itoa(i)
		if !taken(candidate) {
			return candidate
		}
	}
}
