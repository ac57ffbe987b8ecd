package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreycrellin/deckhand/internal/domain"
	"github.com/coreycrellin/deckhand/internal/testutil"
)

// =============================================================================
// config show
// =============================================================================

func TestConfigShowCommand_PrintsEffectiveConfig(t *testing.T) {
	c, _ := newTestContainer()
	loader := c.ConfigLoader.(*testutil.MockConfigLoader)
	loader.Config.Agent.Model = "sonnet"
	c.ConfigPath = "/home/dev/.config/deckhand/config.toml"

	cmd := newConfigShowCommand(c)
	out, err := execute(t, cmd)

	require.NoError(t, err)
	assert.Contains(t, out, "# /home/dev/.config/deckhand/config.toml (not found, defaults in effect)")
	assert.Contains(t, out, "[agent]")
	assert.Contains(t, out, "model = 'sonnet'")
}

func TestConfigShowCommand_MarksExistingFile(t *testing.T) {
	c, _ := newTestContainer()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[agent]\n"), 0o644))
	c.ConfigPath = path

	cmd := newConfigShowCommand(c)
	out, err := execute(t, cmd)

	require.NoError(t, err)
	assert.Contains(t, out, "# "+path+"\n")
	assert.NotContains(t, out, "not found")
}

// =============================================================================
// config init
// =============================================================================

func TestConfigInitCommand_WritesTemplate(t *testing.T) {
	c, _ := newTestContainer()
	path := filepath.Join(t.TempDir(), "deckhand", "config.toml")
	c.ConfigPath = path

	cmd := newConfigInitCommand(c)
	out, err := execute(t, cmd)

	require.NoError(t, err)
	assert.Contains(t, out, "Wrote config template to "+path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, domain.ConfigTemplate(), string(content))
}

func TestConfigInitCommand_RefusesExistingFile(t *testing.T) {
	c, _ := newTestContainer()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("# mine\n"), 0o644))
	c.ConfigPath = path

	cmd := newConfigInitCommand(c)
	_, err := execute(t, cmd)

	assert.ErrorIs(t, err, domain.ErrConfigExists)
}
