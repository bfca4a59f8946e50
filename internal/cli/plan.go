package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voidnx/fortress/internal/device"
	"github.com/voidnx/fortress/internal/install"
	"github.com/voidnx/fortress/internal/system"
	"github.com/voidnx/fortress/internal/ui"
)

// PlanCommand previews the partition layout without touching the disk
type PlanCommand struct {
	ctx *GlobalContext

	disk     string
	efiSize  string
	bootSize string
	swapSize string
	rootSize string
}

// NewPlanCommand creates the plan command
func NewPlanCommand(ctx *GlobalContext) *cobra.Command {
	cmd := &PlanCommand{ctx: ctx}

	cobraCmd := &cobra.Command{
		Use:   "plan",
		Short: "Preview the partition layout for a disk",
		Long:  `Compute and display the tier-scaled partition layout for a disk without modifying anything.`,
		RunE:  cmd.Run,
	}

	cobraCmd.Flags().StringVarP(&cmd.disk, "disk", "d", "", "Target block device")
	cobraCmd.Flags().StringVar(&cmd.efiSize, "efi-size", "", "Override EFI partition size")
	cobraCmd.Flags().StringVar(&cmd.bootSize, "boot-size", "", "Override boot partition size")
	cobraCmd.Flags().StringVar(&cmd.swapSize, "swap-size", "", "Override swap partition size")
	cobraCmd.Flags().StringVar(&cmd.rootSize, "root-size", "", "Override root volume size")

	return cobraCmd
}

// Run executes the plan command
func (c *PlanCommand) Run(cmd *cobra.Command, args []string) error {
	if c.disk == "" {
		return fmt.Errorf("no target disk selected; pass --disk")
	}

	cfg := install.DefaultConfig()
	cfg.Disk = c.disk
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
			return err
		}
		*f.dest = size
	}

	disk, err := device.Resolve(c.ctx.Executor, cfg.Disk)
	if err != nil {
		return err
	}
	plan, err := cfg.Plan(disk.Capacity)
	if err != nil {
		return err
	}

	fmt.Printf("Layout for %s (%s):\n", disk.Path, system.FormatSize(disk.Capacity))
	table := ui.NewTable("#", "REGION", "DEVICE", "SIZE")
	for i, r := range plan.Regions {
		size := "remainder"
		if r.Size != 0 {
			size = system.FormatSize(r.Size)
		}
		table.AddRow(fmt.Sprintf("%d", i+1), string(r.Name), disk.PartitionPath(i+1), size)
	}
	table.Print()
	return nil
}
