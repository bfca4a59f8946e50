package device

import (
	"fmt"
	"strings"

	"github.com/voidnx/fortress/internal/system"
)

// FS creates and probes filesystems. Implements install.Filesystems.
type FS struct {
	exec *system.Executor
}

// NewFS creates a filesystem manager.
func NewFS(executor *system.Executor) *FS {
	return &FS{exec: executor}
}

// HasFilesystem reports whether blkid recognizes content on the
// device. A LUKS container does not count: it holds a filesystem, it
// is not one. Missing devices answer false.
func (f *FS) HasFilesystem(device string) bool {
	output, err := f.exec.RunOutput("blkid", "-o", "value", "-s", "TYPE", device)
	if err != nil {
		return false
	}
	fstype := strings.TrimSpace(output)
	return fstype != "" && fstype != "crypto_LUKS"
}

// Create makes a filesystem on a device.
func (f *FS) Create(device, fstype, label string) error {
	var err error
	switch fstype {
	case "vfat":
		err = f.exec.Run("mkfs.vfat", "-F32", "-n", strings.ToUpper(label), device)
	case "ext4":
		err = f.exec.Run("mkfs.ext4", "-q", "-L", label, device)
	default:
		return fmt.Errorf("unsupported filesystem: %s", fstype)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s filesystem on %s: %w", fstype, device, err)
	}
	return nil
}

// MakeSwap initializes a swap area.
func (f *FS) MakeSwap(device string) error {
	if err := f.exec.Run("mkswap", "-L", "swap", device); err != nil {
		return fmt.Errorf("failed to create swap on %s: %w", device, err)
	}
	return nil
}

// UUID returns the filesystem UUID of a device.
func (f *FS) UUID(device string) (string, error) {
	output, err := f.exec.RunOutput("blkid", "-o", "value", "-s", "UUID", device)
	if err != nil {
		return "", fmt.Errorf("failed to read UUID of %s: %w", device, err)
	}
	uuid := strings.TrimSpace(output)
	if uuid == "" {
		return "", fmt.Errorf("device %s has no UUID", device)
	}
	return uuid, nil
}
