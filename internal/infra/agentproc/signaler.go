package agentproc

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/coreycrellin/deckhand/internal/domain"
)

// Signaler delivers termination signals to supervisor processes.
type Signaler struct{}

// Ensure Signaler implements domain.ProcessSignaler.
var _ domain.ProcessSignaler = Signaler{}

// Terminate sends SIGTERM. A process that is already gone is not an error.
func (Signaler) Terminate(pid int) error {
	if pid <= 0 {
		return nil
	}
	err := syscall.Kill(pid, syscall.SIGTERM)
	if err == nil || errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return fmt.Errorf("signal process %d: %w", pid, err)
}
