package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voidnx/fortress/internal/device"
	"github.com/voidnx/fortress/internal/install"
	"github.com/voidnx/fortress/internal/system"
	"github.com/voidnx/fortress/internal/ui"
)

// ResumeCommand continues an interrupted installation
type ResumeCommand struct {
	ctx *GlobalContext

	disk           string
	yes            bool
	keyfile        string
	checkpointFile string
	logFile        string
}

// NewResumeCommand creates the resume command
func NewResumeCommand(ctx *GlobalContext) *cobra.Command {
	cmd := &ResumeCommand{ctx: ctx}

	cobraCmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume an interrupted installation",
		Long: `Continue installing from wherever the system actually is. The last
checkpoint is shown for reference, but progress is always re-derived
from live inspection of the disk, volumes, and mounts.`,
		RunE: cmd.Run,
	}

	cobraCmd.Flags().StringVarP(&cmd.disk, "disk", "d", "", "Target block device (defaults to the checkpointed disk)")
	cobraCmd.Flags().BoolVarP(&cmd.yes, "yes", "y", false, "Skip confirmation")
	cobraCmd.Flags().StringVarP(&cmd.keyfile, "keyfile", "k", "", "Keyfile for both volumes")
	cobraCmd.Flags().StringVar(&cmd.checkpointFile, "checkpoint-file", install.DefaultCheckpointPath, "Checkpoint file location")
	cobraCmd.Flags().StringVar(&cmd.logFile, "log-file", install.DefaultLogPath, "Installation log file")

	return cobraCmd
}

// Run executes the resume command
func (c *ResumeCommand) Run(cmd *cobra.Command, args []string) error {
	if err := system.RequireRoot(); err != nil {
		return err
	}
	if err := c.ctx.CheckDependencies(); err != nil {
		return err
	}

	cfg := install.DefaultConfig()
	cfg.CheckpointPath = c.checkpointFile
	cfg.LogPath = c.logFile

	cp, err := install.NewStore(cfg.CheckpointPath).Load()
	if err != nil {
		return err
	}
	if cp != nil {
		c.ctx.Logger.Info("Last checkpoint: %s (%s) on %s at %s",
			cp.Phase, cp.Detail, cp.Disk, cp.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}

	cfg.Disk = c.disk
	if cfg.Disk == "" && cp != nil {
		cfg.Disk = cp.Disk
	}
	if cfg.Disk == "" {
		return fmt.Errorf("no checkpoint found; pass --disk or run 'fortress install'")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	cfg.Confirmed = c.yes || ui.PromptConfirm(fmt.Sprintf("Continue installation on %s?", cfg.Disk))
	if !cfg.Confirmed {
		return fmt.Errorf("aborted: resume not confirmed")
	}

	auth, err := GetAuthMethod(c.keyfile, false)
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

	return s.rec.Run()
}
