package cli

import (
	"github.com/spf13/cobra"

	"github.com/voidnx/fortress/internal/device"
	"github.com/voidnx/fortress/internal/install"
)

// MountCommand opens the volumes and mounts the full hierarchy
type MountCommand struct {
	ctx *GlobalContext

	disk           string
	keyfile        string
	checkpointFile string
}

// NewMountCommand creates the mount command
func NewMountCommand(ctx *GlobalContext) *cobra.Command {
	cmd := &MountCommand{ctx: ctx}

	cobraCmd := &cobra.Command{
		Use:   "mount",
		Short: "Open the volumes and mount the installed hierarchy",
		Long: `Unlock both encrypted volumes and mount root, boot, EFI, and home
in dependency order under the target mount point.`,
		RunE: cmd.Run,
	}

	cobraCmd.Flags().StringVarP(&cmd.disk, "disk", "d", "", "Target block device (defaults to the checkpointed disk)")
	cobraCmd.Flags().StringVarP(&cmd.keyfile, "keyfile", "k", "", "Keyfile for both volumes")
	cobraCmd.Flags().StringVar(&cmd.checkpointFile, "checkpoint-file", install.DefaultCheckpointPath, "Checkpoint file location")

	return cobraCmd
}

// Run executes the mount command
func (c *MountCommand) Run(cmd *cobra.Command, args []string) error {
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
	c.ctx.Logger.Success("Mounted at %s", s.cfg.Target)
	return nil
}
