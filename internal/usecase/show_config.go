package usecase

import (
	"context"
	"fmt"
	"os"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// ShowConfigInput contains the parameters for showing the configuration.
type ShowConfigInput struct{}

// ShowConfigOutput contains the effective configuration.
// Fields are ordered to minimize memory padding.
type ShowConfigOutput struct {
	Config *domain.Config // Effective configuration (defaults, file, env)
	Path   string         // Config file path consulted
	Exists bool           // Whether the file exists
}

// ShowConfig is the use case for displaying the effective configuration.
type ShowConfig struct {
	config domain.ConfigLoader
	path   string
}

// NewShowConfig creates a new ShowConfig use case.
func NewShowConfig(config domain.ConfigLoader, path string) *ShowConfig {
	return &ShowConfig{
		config: config,
		path:   path,
	}
}

// Execute loads and returns the effective configuration.
func (uc *ShowConfig) Execute(_ context.Context, _ ShowConfigInput) (*ShowConfigOutput, error) {
	cfg, err := uc.config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	_, statErr := os.Stat(uc.path)

	return &ShowConfigOutput{
		Config: cfg,
		Path:   uc.path,
		Exists: statErr == nil,
	}, nil
}
