package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/voidnx/fortress/internal/device"
	"github.com/voidnx/fortress/internal/install"
	"github.com/voidnx/fortress/internal/system"
)

// Configurator finishes the installed target: fstab, hostname and
// user setup inside a chroot, crypttab for the home volume, and GRUB.
// Implements install.Configurator.
type Configurator struct {
	exec *system.Executor
	fs   *device.FS
	disk install.TargetDisk
	plan install.PartitionPlan
	cfg  install.Config
}

// NewConfigurator creates a configurator for one installation run.
func NewConfigurator(executor *system.Executor, fs *device.FS, disk install.TargetDisk, plan install.PartitionPlan, cfg install.Config) *Configurator {
	return &Configurator{
		exec: executor,
		fs:   fs,
		disk: disk,
		plan: plan,
		cfg:  cfg,
	}
}

// HasFstab reports whether the generated fstab already exists.
func (c *Configurator) HasFstab(root string) bool {
	info, err := os.Stat(filepath.Join(root, "etc", "fstab"))
	return err == nil && info.Size() > 0
}

// fstabEntry is one fstab line, addressed by UUID for the cleartext
// partitions and by stable mapper path for the encrypted volumes.
type fstabEntry struct {
	Source string
	Target string
	FSType string
	Opts   string
	Pass   int
}

func renderFstab(entries []fstabEntry) string {
	var sb strings.Builder
	sb.WriteString("# /etc/fstab: static file system information\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s\t%s\t%s\t%s\t0 %d\n", e.Source, e.Target, e.FSType, e.Opts, e.Pass)
	}
	return sb.String()
}

// WriteFstab generates the target fstab from the live layout.
func (c *Configurator) WriteFstab(root string) error {
	bootUUID, err := c.fs.UUID(c.disk.PartitionPath(c.plan.Number(install.RegionBoot)))
	if err != nil {
		return err
	}
	efiUUID, err := c.fs.UUID(c.disk.PartitionPath(c.plan.Number(install.RegionEFI)))
	if err != nil {
		return err
	}
	swapUUID, err := c.fs.UUID(c.disk.PartitionPath(c.plan.Number(install.RegionSwap)))
	if err != nil {
		return err
	}

	content := renderFstab([]fstabEntry{
		{install.MapperPath(install.MapperRoot), "/", "ext4", "defaults", 1},
		{"UUID=" + bootUUID, "/boot", "ext4", "defaults", 2},
		{"UUID=" + efiUUID, "/boot/efi", "vfat", "defaults", 2},
		{install.MapperPath(install.MapperHome), "/home", "ext4", "defaults", 2},
		{"UUID=" + swapUUID, "swap", "swap", "defaults", 0},
		{"tmpfs", "/tmp", "tmpfs", "defaults,nosuid,nodev", 0},
	})

	etc := filepath.Join(root, "etc")
	if err := os.MkdirAll(etc, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", etc, err)
	}
	if err := os.WriteFile(filepath.Join(etc, "fstab"), []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write fstab: %w", err)
	}
	return nil
}

// ConfigureSystem writes hostname and crypttab, then runs the
// remaining setup (timezone, user, initramfs) inside a chroot.
func (c *Configurator) ConfigureSystem(root string) error {
	etc := filepath.Join(root, "etc")
	if err := os.MkdirAll(etc, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", etc, err)
	}
	if err := os.WriteFile(filepath.Join(etc, "hostname"), []byte(c.cfg.Hostname+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write hostname: %w", err)
	}

	homeUUID, err := c.fs.UUID(c.disk.PartitionPath(c.plan.Number(install.RegionHome)))
	if err != nil {
		return err
	}
	crypttab := fmt.Sprintf("%s\tUUID=%s\tnone\tluks\n", install.MapperHome, homeUUID)
	if err := os.WriteFile(filepath.Join(etc, "crypttab"), []byte(crypttab), 0600); err != nil {
		return fmt.Errorf("failed to write crypttab: %w", err)
	}

	return c.runChrootSetup(root)
}

// runChrootSetup executes the in-target setup script. The script is
// written under the target's /tmp and removed afterwards.
func (c *Configurator) runChrootSetup(root string) error {
	script := fmt.Sprintf(`set -e
ln -sf /usr/share/zoneinfo/%s /etc/localtime
id -u %s >/dev/null 2>&1 || useradd -m -G wheel %s
dracut --force --regenerate-all
`, c.cfg.Timezone, c.cfg.Username, c.cfg.Username)

	tmpDir := filepath.Join(root, "tmp")
	if err := os.MkdirAll(tmpDir, 0o1777); err != nil {
		return fmt.Errorf("failed to create %s: %w", tmpDir, err)
	}
	scriptPath := filepath.Join(tmpDir, "fortress-setup.sh")
	if err := os.WriteFile(scriptPath, []byte(script), 0700); err != nil {
		return fmt.Errorf("failed to write setup script: %w", err)
	}
	defer os.Remove(scriptPath)

	if err := c.exec.Run("chroot", root, "/bin/sh", "/tmp/fortress-setup.sh"); err != nil {
		return fmt.Errorf("chroot configuration failed: %w", err)
	}
	return nil
}

// InstallBootloader installs GRUB into the EFI partition from inside
// the target. Fallback mode installs to the removable media path for
// firmware that ignores NVRAM boot entries.
func (c *Configurator) InstallBootloader(root string, fallback bool) error {
	if err := c.enableCryptodisk(root); err != nil {
		return err
	}

	args := []string{
		root, "grub-install",
		"--target=x86_64-efi",
		"--efi-directory=/boot/efi",
		"--bootloader-id=fortress",
	}
	if fallback {
		args = append(args, "--removable", "--no-nvram")
	}
	if err := c.exec.Run("chroot", args...); err != nil {
		return fmt.Errorf("grub-install failed: %w", err)
	}
	return nil
}

// enableCryptodisk makes GRUB able to unlock the LUKS1 root volume.
// Idempotent: the line is only appended once.
func (c *Configurator) enableCryptodisk(root string) error {
	path := filepath.Join(root, "etc", "default", "grub")
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if strings.Contains(string(data), "GRUB_ENABLE_CRYPTODISK=y") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString("GRUB_ENABLE_CRYPTODISK=y\n"); err != nil {
		return fmt.Errorf("failed to update %s: %w", path, err)
	}
	return nil
}

// GenerateBootConfig writes the GRUB configuration inside the target.
func (c *Configurator) GenerateBootConfig(root string) error {
	if err := c.exec.Run("chroot", root, "grub-mkconfig", "-o", "/boot/grub/grub.cfg"); err != nil {
		return fmt.Errorf("grub-mkconfig failed: %w", err)
	}
	return nil
}
