package cli

import (
	"fmt"
	"os"

	"github.com/coreycrellin/deckhand/internal/app"
	"github.com/coreycrellin/deckhand/internal/domain"
	"github.com/coreycrellin/deckhand/internal/usecase/shared"
)

// resolveProject picks the project a task command operates on. An explicit
// --project value wins; otherwise the registered project containing the
// current directory is used.
func resolveProject(c *app.Container, explicitID string) (*domain.Project, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	return shared.ResolveProject(c.Registry, explicitID, wd)
}
