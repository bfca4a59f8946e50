package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voidnx/fortress/internal/device"
	"github.com/voidnx/fortress/internal/install"
	"github.com/voidnx/fortress/internal/system"
)

// CleanCommand tears down everything the installer left active
type CleanCommand struct {
	ctx *GlobalContext

	disk           string
	image          string
	checkpointFile string
}

// NewCleanCommand creates the clean command
func NewCleanCommand(ctx *GlobalContext) *cobra.Command {
	cmd := &CleanCommand{ctx: ctx}

	cobraCmd := &cobra.Command{
		Use:   "clean",
		Short: "Unmount and close everything",
		Long: `Release all installer resources in reverse dependency order:
deactivate swap, unmount the target hierarchy, close both encrypted
volumes. Safe to run when nothing is active.`,
		RunE: cmd.Run,
	}

	cobraCmd.Flags().StringVarP(&cmd.disk, "disk", "d", "", "Target block device (defaults to the checkpointed disk)")
	cobraCmd.Flags().StringVar(&cmd.image, "image", "", "Also detach the loop device backing this image file")
	cobraCmd.Flags().StringVar(&cmd.checkpointFile, "checkpoint-file", install.DefaultCheckpointPath, "Checkpoint file location")

	return cobraCmd
}

// Run executes the clean command
func (c *CleanCommand) Run(cmd *cobra.Command, args []string) error {
	if err := system.RequireRoot(); err != nil {
		return err
	}
	if err := c.ctx.CheckDependencies(); err != nil {
		return err
	}

	cfg := install.DefaultConfig()
	cfg.CheckpointPath = c.checkpointFile
	cfg.Disk = c.disk
	if cfg.Disk == "" {
		cfg.Disk = diskFromCheckpoint(c.checkpointFile)
	}
	if cfg.Disk == "" && c.image == "" {
		return fmt.Errorf("no target disk known; pass --disk")
	}

	if cfg.Disk != "" {
		s, err := c.ctx.newSession(cfg, install.DefaultLayout())
		if err != nil {
			return err
		}
		performed, err := s.teardown(c.ctx.Logger).Run()
		if err != nil {
			return err
		}
		for _, op := range performed {
			c.ctx.Logger.Debug("Performed: %s", op)
		}
	}

	if c.image != "" {
		loop := device.NewLoop(c.ctx.Executor)
		loopDev, err := loop.FindByFile(c.image)
		if err != nil {
			return err
		}
		if loopDev != "" {
			if err := loop.Detach(loopDev); err != nil {
				return err
			}
			c.ctx.Logger.Success("Detached %s", loopDev)
		}
	}
	return nil
}
