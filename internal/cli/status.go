package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voidnx/fortress/internal/install"
	"github.com/voidnx/fortress/internal/system"
	"github.com/voidnx/fortress/internal/ui"
)

// StatusCommand reports checkpoint and live installation state
type StatusCommand struct {
	ctx *GlobalContext

	disk           string
	json           bool
	checkpointFile string
}

// NewStatusCommand creates the status command
func NewStatusCommand(ctx *GlobalContext) *cobra.Command {
	cmd := &StatusCommand{ctx: ctx}

	cobraCmd := &cobra.Command{
		Use:   "status",
		Short: "Show installation progress",
		Long: `Show the last checkpoint and, when running as root with a known
target disk, the phase detected from live system inspection. The
checkpoint is advisory; the live phase is authoritative.`,
		RunE: cmd.Run,
	}

	cobraCmd.Flags().StringVarP(&cmd.disk, "disk", "d", "", "Target block device (defaults to the checkpointed disk)")
	cobraCmd.Flags().BoolVarP(&cmd.json, "json", "j", false, "JSON output")
	cobraCmd.Flags().StringVar(&cmd.checkpointFile, "checkpoint-file", install.DefaultCheckpointPath, "Checkpoint file location")

	return cobraCmd
}

type statusReport struct {
	Checkpoint *install.Checkpoint `json:"checkpoint"`
	LivePhase  string              `json:"live_phase,omitempty"`
	LiveDetail string              `json:"live_detail,omitempty"`
}

// Run executes the status command
func (c *StatusCommand) Run(cmd *cobra.Command, args []string) error {
	store := install.NewStore(c.checkpointFile)
	cp, err := store.Load()
	if err != nil {
		return err
	}

	report := statusReport{Checkpoint: cp}

	diskPath := c.disk
	if diskPath == "" && cp != nil {
		diskPath = cp.Disk
	}

	// Live detection reads block devices, so it needs root. Without
	// it the checkpoint alone is shown.
	if diskPath != "" && system.IsRoot() {
		cfg := install.DefaultConfig()
		cfg.Disk = diskPath
		cfg.CheckpointPath = c.checkpointFile
		s, err := c.ctx.newSession(cfg, install.DefaultLayout())
		if err != nil {
			return err
		}
		obs := s.rec.Detect()
		report.LivePhase = obs.Phase.String()
		report.LiveDetail = obs.Detail
	}

	if c.json {
		return ui.PrintJSON(report)
	}

	table := ui.NewTable("SOURCE", "PHASE", "DETAIL", "DISK")
	if cp == nil {
		fmt.Printf("No checkpoint at %s (no installation attempted yet)\n", store.Path())
	} else {
		table.AddRow("checkpoint", cp.Phase, cp.Detail, cp.Disk)
	}
	if report.LivePhase != "" {
		table.AddRow("live", report.LivePhase, report.LiveDetail, diskPath)
	}
	table.Print()

	if report.LivePhase == "" && diskPath != "" && !system.IsRoot() {
		fmt.Println("Run as root for live detection")
	}
	return nil
}
