package device

import (
	"fmt"
	"strings"

	"github.com/voidnx/fortress/internal/system"
)

// Loop attaches disk image files as loop devices so a full install can
// be rehearsed against a file instead of real hardware.
type Loop struct {
	exec *system.Executor
}

// NewLoop creates a loop device manager.
func NewLoop(executor *system.Executor) *Loop {
	return &Loop{exec: executor}
}

// Attach attaches a file to a free loop device with partition
// scanning enabled, and returns the device path.
func (m *Loop) Attach(path string) (string, error) {
	output, err := m.exec.RunOutput("losetup", "-f", "--show", "-P", path)
	if err != nil {
		return "", fmt.Errorf("failed to attach loop device: %w", err)
	}
	return strings.TrimSpace(output), nil
}

// Detach detaches a loop device.
func (m *Loop) Detach(device string) error {
	if err := m.exec.Run("losetup", "-d", device); err != nil {
		return fmt.Errorf("failed to detach loop device %s: %w", device, err)
	}
	return nil
}

// FindByFile finds the loop device backing a file, or "" if none.
func (m *Loop) FindByFile(path string) (string, error) {
	output, err := m.exec.RunOutput("losetup", "-j", path)
	if err != nil || strings.TrimSpace(output) == "" {
		return "", nil
	}

	// Parse: "/dev/loop0: []: (/path/to/file)"
	parts := strings.SplitN(output, ":", 2)
	if len(parts) > 0 {
		return strings.TrimSpace(parts[0]), nil
	}
	return "", nil
}
