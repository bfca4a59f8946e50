package cli

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/voidnx/fortress/internal/device"
	"github.com/voidnx/fortress/internal/install"
	"github.com/voidnx/fortress/internal/system"
	"github.com/voidnx/fortress/internal/ui"
)

// InstallCommand drives a full installation to completion
type InstallCommand struct {
	ctx *GlobalContext

	disk        string
	profile     string
	hostname    string
	username    string
	timezone    string
	repository  string
	yes         bool
	keyfile     string
	recoveryKey bool
	recoveryOut string

	efiSize  string
	bootSize string
	swapSize string
	rootSize string

	image     string
	imageSize string

	checkpointFile string
	logFile        string
}

// NewInstallCommand creates the install command
func NewInstallCommand(ctx *GlobalContext) *cobra.Command {
	cmd := &InstallCommand{ctx: ctx}

	cobraCmd := &cobra.Command{
		Use:   "install",
		Short: "Run the installation to completion",
		Long: `Inspect the target disk, determine how far installation has
progressed, and run the remaining steps: partitioning, encrypted
volume setup (LUKS1 root, LUKS2 home), filesystems, mounts, base
system bootstrap, and bootloader configuration.

Safe to re-run at any point: completed work is detected and never
redone.`,
		RunE: cmd.Run,
	}

	cobraCmd.Flags().StringVarP(&cmd.disk, "disk", "d", "", "Target block device (e.g. /dev/nvme0n1)")
	cobraCmd.Flags().StringVarP(&cmd.profile, "profile", "p", "", "YAML install profile")
	cobraCmd.Flags().StringVar(&cmd.hostname, "hostname", install.DefaultHostname, "Hostname for the installed system")
	cobraCmd.Flags().StringVar(&cmd.username, "username", install.DefaultUsername, "Initial user account")
	cobraCmd.Flags().StringVar(&cmd.timezone, "timezone", install.DefaultTimezone, "Timezone for the installed system")
	cobraCmd.Flags().StringVar(&cmd.repository, "repository", install.DefaultRepository, "Package repository URL")
	cobraCmd.Flags().BoolVarP(&cmd.yes, "yes", "y", false, "Skip the destructive-operation confirmation")
	cobraCmd.Flags().StringVarP(&cmd.keyfile, "keyfile", "k", "", "Keyfile for both volumes (if not set, will prompt for passphrase)")
	cobraCmd.Flags().BoolVar(&cmd.recoveryKey, "recovery-key", false, "Generate a recovery key and enroll it on both volumes")
	cobraCmd.Flags().StringVar(&cmd.recoveryOut, "recovery-key-file", "/root/fortress-recovery.key", "Where to write the generated recovery key")
	cobraCmd.Flags().StringVar(&cmd.efiSize, "efi-size", "", "Override EFI partition size (e.g. 512M)")
	cobraCmd.Flags().StringVar(&cmd.bootSize, "boot-size", "", "Override boot partition size")
	cobraCmd.Flags().StringVar(&cmd.swapSize, "swap-size", "", "Override swap partition size")
	cobraCmd.Flags().StringVar(&cmd.rootSize, "root-size", "", "Override root volume size")
	cobraCmd.Flags().StringVar(&cmd.image, "image", "", "Install into a disk image file instead of real hardware")
	cobraCmd.Flags().StringVar(&cmd.imageSize, "image-size", "20G", "Size of the image file created by --image")
	cobraCmd.Flags().StringVar(&cmd.checkpointFile, "checkpoint-file", install.DefaultCheckpointPath, "Checkpoint file location")
	cobraCmd.Flags().StringVar(&cmd.logFile, "log-file", install.DefaultLogPath, "Installation log file")

	return cobraCmd
}

// Run executes the install command
func (c *InstallCommand) Run(cmd *cobra.Command, args []string) error {
	if err := system.RequireRoot(); err != nil {
		return err
	}
	if err := c.ctx.CheckDependencies(); err != nil {
		return err
	}

	// Capability probe before anything destructive. Image rehearsals
	// run anywhere, so firmware checks only apply to real disks.
	if c.image == "" {
		if err := system.GatherFacts().Check(); err != nil {
			return err
		}
	}

	cfg, err := c.buildConfig()
	if err != nil {
		return err
	}

	if c.image != "" {
		loopDev, err := c.attachImage()
		if err != nil {
			return err
		}
		cfg.Disk = loopDev
	}
	if cfg.Disk == "" {
		disk, err := c.ctx.chooseDisk()
		if err != nil {
			return err
		}
		cfg.Disk = disk
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Destructive operations need explicit consent, decoupled from
	// the terminal by --yes.
	cfg.Confirmed = c.yes
	if !cfg.Confirmed {
		cfg.Confirmed = ui.PromptDestructive(
			fmt.Sprintf("WARNING: installing to %s may destroy existing data!", cfg.Disk))
	}
	if !cfg.Confirmed {
		return fmt.Errorf("aborted: installation not confirmed")
	}

	if c.recoveryKey {
		path, err := c.writeRecoveryKey()
		if err != nil {
			return err
		}
		cfg.RecoveryKeyFile = path
	}

	auth, err := GetAuthMethod(c.keyfile, true)
	if err != nil {
		return err
	}
	if pwAuth, ok := auth.(*device.PasswordAuth); ok {
		defer pwAuth.Password.Zeroize()
	}

	if err := c.ctx.Logger.LogToFile(cfg.LogPath); err != nil {
		c.ctx.Logger.Warning("Continuing without log file: %v", err)
	}
	defer c.ctx.Logger.Close()

	disk, err := device.Resolve(c.ctx.Executor, cfg.Disk)
	if err != nil {
		return err
	}
	plan, err := cfg.Plan(disk.Capacity)
	if err != nil {
		return err
	}
	s, err := c.ctx.newSession(cfg, plan)
	if err != nil {
		return err
	}
	s.setCredential(auth)
	c.ctx.watchInterrupt(s)

	c.ctx.Logger.Info("Installing to %s (%s), run %s", cfg.Disk, system.FormatSize(disk.Capacity), cfg.RunID)
	if err := s.rec.Run(); err != nil {
		return err
	}

	c.ctx.Logger.Success("Installation finished. Run 'fortress clean' before rebooting.")
	if cfg.RecoveryKeyFile != "" {
		c.ctx.Logger.Warning("Move the recovery key %s to offline storage now", cfg.RecoveryKeyFile)
	}
	return nil
}

func (c *InstallCommand) buildConfig() (install.Config, error) {
	cfg := install.DefaultConfig()

	if c.profile != "" {
		profile, err := install.LoadProfile(c.profile)
		if err != nil {
			return cfg, err
		}
		if err := cfg.Apply(profile); err != nil {
			return cfg, err
		}
	}

	if c.disk != "" {
		cfg.Disk = c.disk
	}
	cfg.Hostname = c.hostname
	cfg.Username = c.username
	cfg.Timezone = c.timezone
	cfg.Repository = c.repository
	cfg.CheckpointPath = c.checkpointFile
	cfg.LogPath = c.logFile

	for _, f := range []struct {
		raw  string
		dest *uint64
	}{
		{c.efiSize, &cfg.EFISize},
		{c.bootSize, &cfg.BootSize},
		{c.swapSize, &cfg.SwapSize},
		{c.rootSize, &cfg.RootSize},
	} {
		if f.raw == "" {
			continue
		}
		size, err := system.ParseSize(f.raw)
		if err != nil {
			return cfg, err
		}
		*f.dest = size
	}
	return cfg, nil
}

// attachImage creates the image file if needed and attaches it as a
// loop device with partition scanning, reusing an existing attachment.
func (c *InstallCommand) attachImage() (string, error) {
	loop := device.NewLoop(c.ctx.Executor)

	if existing, _ := loop.FindByFile(c.image); existing != "" {
		c.ctx.Logger.Debug("Image already attached at %s", existing)
		return existing, nil
	}

	if _, err := os.Stat(c.image); os.IsNotExist(err) {
		size, err := system.ParseSize(c.imageSize)
		if err != nil {
			return "", err
		}
		f, err := os.OpenFile(c.image, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err != nil {
			return "", fmt.Errorf("failed to create image file: %w", err)
		}
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			os.Remove(c.image)
			return "", fmt.Errorf("failed to size image file: %w", err)
		}
		f.Close()
		c.ctx.Logger.Info("Created %s image file %s", system.FormatSize(size), c.image)
	}

	return loop.Attach(c.image)
}

// writeRecoveryKey generates random key material once; an existing
// file is reused so re-runs enroll the same key.
func (c *InstallCommand) writeRecoveryKey() (string, error) {
	if _, err := os.Stat(c.recoveryOut); err == nil {
		c.ctx.Logger.Debug("Reusing existing recovery key %s", c.recoveryOut)
		return c.recoveryOut, nil
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate recovery key: %w", err)
	}
	if err := os.WriteFile(c.recoveryOut, []byte(hex.EncodeToString(raw)), 0600); err != nil {
		return "", fmt.Errorf("failed to write recovery key: %w", err)
	}
	c.ctx.Logger.Info("Generated recovery key at %s", c.recoveryOut)
	return c.recoveryOut, nil
}
