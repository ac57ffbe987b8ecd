package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// InitConfigInput contains the parameters for creating a config file.
type InitConfigInput struct {
	Path string // Target config file path (required)
}

// InitConfigOutput contains the result of creating a config file.
type InitConfigOutput struct {
	Path string // Path to the created config file
}

// InitConfig is the use case for writing the commented configuration
// template. An existing file is never overwritten.
type InitConfig struct{}

// NewInitConfig creates a new InitConfig use case.
func NewInitConfig() *InitConfig {
	return &InitConfig{}
}

// Execute writes the configuration template to the given path.
func (uc *InitConfig) Execute(_ context.Context, in InitConfigInput) (*InitConfigOutput, error) {
	if in.Path == "" {
		return nil, errors.New("config path is required")
	}

	if _, err := os.Stat(in.Path); err == nil {
		return nil, fmt.Errorf("%s: %w", in.Path, domain.ErrConfigExists)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(in.Path), 0o750); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(in.Path, []byte(domain.ConfigTemplate()), 0o600); err != nil {
		return nil, fmt.Errorf("write config template: %w", err)
	}

	return &InitConfigOutput{Path: in.Path}, nil
}
