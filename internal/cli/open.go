package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voidnx/fortress/internal/device"
	"github.com/voidnx/fortress/internal/install"
	"github.com/voidnx/fortress/internal/system"
)

// OpenCommand opens the encrypted volumes without mounting
type OpenCommand struct {
	ctx *GlobalContext

	disk           string
	keyfile        string
	checkpointFile string
}

// NewOpenCommand creates the open command
func NewOpenCommand(ctx *GlobalContext) *cobra.Command {
	cmd := &OpenCommand{ctx: ctx}

	cobraCmd := &cobra.Command{
		Use:   "open",
		Short: "Open the encrypted volumes",
		Long:  `Unlock the root and home volumes under their stable mapper names without mounting anything.`,
		RunE:  cmd.Run,
	}

	cobraCmd.Flags().StringVarP(&cmd.disk, "disk", "d", "", "Target block device (defaults to the checkpointed disk)")
	cobraCmd.Flags().StringVarP(&cmd.keyfile, "keyfile", "k", "", "Keyfile for both volumes")
	cobraCmd.Flags().StringVar(&cmd.checkpointFile, "checkpoint-file", install.DefaultCheckpointPath, "Checkpoint file location")

	return cobraCmd
}

// Run executes the open command
func (c *OpenCommand) Run(cmd *cobra.Command, args []string) error {
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
	c.ctx.Logger.Success("Volumes open: %s, %s",
		install.MapperPath(install.MapperRoot), install.MapperPath(install.MapperHome))
	return nil
}

// volumeSession is the shared preamble of open/mount/shell: root,
// tools, disk resolution, one passphrase for both volumes.
func (ctx *GlobalContext) volumeSession(disk, checkpointFile, keyfile string) (*session, device.AuthMethod, error) {
	if err := system.RequireRoot(); err != nil {
		return nil, nil, err
	}
	if err := ctx.CheckDependencies(); err != nil {
		return nil, nil, err
	}

	cfg := install.DefaultConfig()
	cfg.CheckpointPath = checkpointFile
	cfg.Disk = disk
	if cfg.Disk == "" {
		cfg.Disk = diskFromCheckpoint(checkpointFile)
	}
	if cfg.Disk == "" {
		return nil, nil, fmt.Errorf("no target disk known; pass --disk")
	}

	auth, err := GetAuthMethod(keyfile, false)
	if err != nil {
		return nil, nil, err
	}

	s, err := ctx.newSession(cfg, install.DefaultLayout())
	if err != nil {
		return nil, nil, err
	}
	s.setCredential(auth)
	return s, auth, nil
}
