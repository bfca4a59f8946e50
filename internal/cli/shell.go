package cli

import (
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/voidnx/fortress/internal/device"
	"github.com/voidnx/fortress/internal/install"
)

// ShellCommand opens an interactive chroot into the installed system
type ShellCommand struct {
	ctx *GlobalContext

	disk           string
	keyfile        string
	checkpointFile string
	shell          string
}

// NewShellCommand creates the shell command
func NewShellCommand(ctx *GlobalContext) *cobra.Command {
	cmd := &ShellCommand{ctx: ctx}

	cobraCmd := &cobra.Command{
		Use:   "shell",
		Short: "Enter a chroot shell in the installed system",
		Long: `Open the volumes, mount the hierarchy and the chroot
pseudo-filesystems, then start an interactive shell inside the
installed system for manual fixes.`,
		RunE: cmd.Run,
	}

	cobraCmd.Flags().StringVarP(&cmd.disk, "disk", "d", "", "Target block device (defaults to the checkpointed disk)")
	cobraCmd.Flags().StringVarP(&cmd.keyfile, "keyfile", "k", "", "Keyfile for both volumes")
	cobraCmd.Flags().StringVar(&cmd.checkpointFile, "checkpoint-file", install.DefaultCheckpointPath, "Checkpoint file location")
	cobraCmd.Flags().StringVar(&cmd.shell, "shell", "/bin/bash", "Shell to start inside the chroot")

	return cobraCmd
}

// Run executes the shell command
func (c *ShellCommand) Run(cmd *cobra.Command, args []string) error {
	s, auth, err := c.ctx.volumeSession(c.disk, c.checkpointFile, c.keyfile)
	if err != nil {
		return err
	}
	if pwAuth, ok := auth.(*device.PasswordAuth); ok {
		defer pwAuth.Password.Zeroize()
	}

	if err := s.rec.EnsureVolumesOpen(); err != nil {
		return err
	}
	if err := s.rec.EnsureMounted(); err != nil {
		return err
	}
	if err := s.sys.Mounts.MountPseudo(s.cfg.Target); err != nil {
		return err
	}

	c.ctx.Logger.Info("Entering chroot at %s (exit to return)", s.cfg.Target)
	chrootCmd := exec.Command("chroot", s.cfg.Target, c.shell, "-l")
	chrootCmd.Stdin = os.Stdin
	chrootCmd.Stdout = os.Stdout
	chrootCmd.Stderr = os.Stderr
	return chrootCmd.Run()
}
