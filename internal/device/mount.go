package device

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/voidnx/fortress/internal/system"
)

// Mount manages mount points and swap. Implements install.Mounter.
type Mount struct {
	exec *system.Executor
}

// NewMount creates a mount manager.
func NewMount(executor *system.Executor) *Mount {
	return &Mount{exec: executor}
}

// IsMounted reports whether path is an active mount point, by reading
// /proc/self/mounts. No side effects.
func (m *Mount) IsMounted(path string) bool {
	f, err := os.Open("/proc/self/mounts")
	if err != nil {
		return false
	}
	defer f.Close()

	clean := filepath.Clean(path)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		// Mount points with special characters are octal-escaped in
		// /proc/self/mounts; installer paths never contain them.
		if fields[1] == clean {
			return true
		}
	}
	return false
}

// Mount mounts source at target, creating the mount point first.
func (m *Mount) Mount(source, target, fstype string) error {
	if err := os.MkdirAll(target, 0755); err != nil {
		return fmt.Errorf("failed to create mount point: %w", err)
	}
	args := []string{}
	if fstype != "" {
		args = append(args, "-t", fstype)
	}
	args = append(args, source, target)
	if err := m.exec.Run("mount", args...); err != nil {
		return fmt.Errorf("failed to mount %s at %s: %w", source, target, err)
	}
	return nil
}

// MountPseudo mounts the pseudo-filesystems a chroot needs under root.
// Each mount is guarded, so repeated calls are no-ops. Only valid once
// the root filesystem itself is mounted.
func (m *Mount) MountPseudo(root string) error {
	type pseudo struct {
		target string
		args   []string
	}
	mounts := []pseudo{
		{root + "/proc", []string{"-t", "proc", "proc"}},
		{root + "/sys", []string{"--rbind", "/sys"}},
		{root + "/dev", []string{"--rbind", "/dev"}},
		{root + "/run", []string{"--rbind", "/run"}},
	}
	for _, p := range mounts {
		if m.IsMounted(p.target) {
			continue
		}
		if err := os.MkdirAll(p.target, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", p.target, err)
		}
		if err := m.exec.Run("mount", append(p.args, p.target)...); err != nil {
			return fmt.Errorf("failed to mount %s: %w", p.target, err)
		}
		if strings.HasPrefix(p.args[0], "--rbind") {
			// Keep unmount events from propagating back to the host.
			m.exec.Run("mount", "--make-rslave", p.target)
		}
	}
	return nil
}

// UnmountRecursive unmounts everything at and below path.
func (m *Mount) UnmountRecursive(path string) error {
	if err := m.exec.Run("umount", "-R", path); err != nil {
		return fmt.Errorf("failed to unmount %s: %w", path, err)
	}
	return nil
}

// SwapActive reports whether the device is an active swap area, by
// reading /proc/swaps.
func (m *Mount) SwapActive(device string) bool {
	f, err := os.Open("/proc/swaps")
	if err != nil {
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 && fields[0] == device {
			return true
		}
	}
	return false
}

// SwapOn activates a swap device.
func (m *Mount) SwapOn(device string) error {
	if err := m.exec.Run("swapon", device); err != nil {
		return fmt.Errorf("failed to activate swap on %s: %w", device, err)
	}
	return nil
}

// SwapOff deactivates a swap device.
func (m *Mount) SwapOff(device string) error {
	if err := m.exec.Run("swapoff", device); err != nil {
		return fmt.Errorf("failed to deactivate swap on %s: %w", device, err)
	}
	return nil
}
