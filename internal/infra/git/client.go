// Package git provides repository inspection backed by go-git.
package git

import (
	gogit "github.com/go-git/go-git/v5"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// Ensure Client implements domain.Git.
var _ domain.Git = (*Client)(nil)

// Client inspects repositories in-process, without shelling out to the git
// binary.
type Client struct{}

// New creates a Client.
func New() *Client {
	return &Client{}
}

// IsRepository reports whether dir is the root of a git repository.
func (c *Client) IsRepository(dir string) bool {
	_, err := gogit.PlainOpen(dir)
	return err == nil
}

// RemoteURL returns the origin remote URL, or "" when the directory is not a
// repository or has no origin remote.
func (c *Client) RemoteURL(dir string) string {
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		return ""
	}
	remote, err := repo.Remote(gogit.DefaultRemoteName)
	if err != nil {
		return ""
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}
