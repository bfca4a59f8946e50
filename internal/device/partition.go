package device

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/voidnx/fortress/internal/install"
	"github.com/voidnx/fortress/internal/system"
)

// BlockDevices writes partition tables with sfdisk and probes device
// nodes. Implements install.BlockDevices.
type BlockDevices struct {
	exec *system.Executor
}

// NewBlockDevices creates a block device manager.
func NewBlockDevices(executor *system.Executor) *BlockDevices {
	return &BlockDevices{exec: executor}
}

// Exists reports whether the device node is present.
func (b *BlockDevices) Exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Partition applies the plan as a fresh GPT table. Destroys any
// existing table; callers guard against re-partitioning.
func (b *BlockDevices) Partition(disk install.TargetDisk, plan install.PartitionPlan) error {
	script := sfdiskScript(plan)

	cmd := exec.Command("sfdisk", "--wipe", "always", disk.Path)
	cmd.Stdin = strings.NewReader(script)
	if _, err := b.exec.RunCmd(cmd); err != nil {
		return fmt.Errorf("failed to partition %s: %w", disk.Path, err)
	}

	// Let the kernel pick up the new table before anyone stats the
	// partition nodes.
	if err := b.exec.Run("partprobe", disk.Path); err != nil {
		return fmt.Errorf("failed to re-read partition table: %w", err)
	}
	b.exec.Run("udevadm", "settle")
	return nil
}

// sfdiskScript renders a plan as an sfdisk input script. Sizes are in
// MiB; the unsized last region takes the remainder.
func sfdiskScript(plan install.PartitionPlan) string {
	var sb strings.Builder
	sb.WriteString("label: gpt\n")
	for _, r := range plan.Regions {
		var ptype string
		switch r.Name {
		case install.RegionEFI:
			ptype = "uefi"
		case install.RegionSwap:
			ptype = "swap"
		default:
			ptype = "linux"
		}
		if r.Size == 0 {
			fmt.Fprintf(&sb, "type=%s, name=%s\n", ptype, r.Name)
		} else {
			fmt.Fprintf(&sb, "size=%dMiB, type=%s, name=%s\n", r.Size/(1<<20), ptype, r.Name)
		}
	}
	return sb.String()
}
