package bootstrap

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/voidnx/fortress/internal/system"
)

// XBPS bootstraps the Void base system into a mounted target root.
// Implements install.Bootstrapper.
type XBPS struct {
	exec       *system.Executor
	repository string
	packages   []string
}

// NewXBPS creates a package bootstrap manager.
func NewXBPS(executor *system.Executor, repository string, packages []string) *XBPS {
	return &XBPS{
		exec:       executor,
		repository: repository,
		packages:   packages,
	}
}

// HasBaseSystem reports whether a base system is already present:
// a populated /usr/bin under the target root.
func (x *XBPS) HasBaseSystem(root string) bool {
	entries, err := os.ReadDir(filepath.Join(root, "usr", "bin"))
	return err == nil && len(entries) > 0
}

// InstallBase installs the configured package set into the target.
// The live system's repository keys are copied first so package
// signatures verify inside the fresh root.
func (x *XBPS) InstallBase(root string) error {
	if err := x.copyRepoKeys(root); err != nil {
		return err
	}

	args := append([]string{"-S", "-y", "-R", x.repository, "-r", root}, x.packages...)
	if err := x.exec.Run("xbps-install", args...); err != nil {
		return fmt.Errorf("base system bootstrap failed: %w", err)
	}
	return nil
}

func (x *XBPS) copyRepoKeys(root string) error {
	const keyDir = "/var/db/xbps/keys"
	targetDir := filepath.Join(root, keyDir)
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	entries, err := os.ReadDir(keyDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read repository keys: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := copyFile(filepath.Join(keyDir, entry.Name()), filepath.Join(targetDir, entry.Name())); err != nil {
			return fmt.Errorf("failed to copy repository key %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
