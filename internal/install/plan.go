package install

import (
	"fmt"

	"github.com/voidnx/fortress/internal/system"
)

// RegionName labels one region of the partition layout.
type RegionName string

const (
	RegionEFI  RegionName = "EFI"
	RegionBoot RegionName = "BOOT"
	RegionSwap RegionName = "SWAP"
	RegionRoot RegionName = "ROOT"
	RegionHome RegionName = "HOME"
)

// Region is one entry of a PartitionPlan. Size 0 means "remainder of
// the disk" and is only valid for the last region.
type Region struct {
	Name RegionName
	Size uint64
}

// PartitionPlan is the ordered partition layout for a target disk.
// Regions are consumed from the start of the disk; partition numbers
// are the 1-based region indices.
type PartitionPlan struct {
	Regions []Region
}

// SafetyMargin is capacity withheld from planning: partition table
// overhead, alignment, and headroom so the last region is never empty.
const SafetyMargin = 1 << 30

const (
	gib = 1 << 30
	mib = 1 << 20
)

// Capacity tiers, in bytes.
const (
	smallDiskLimit  = 30 * gib
	mediumDiskLimit = 120 * gib
)

// Count returns the number of planned partitions.
func (p PartitionPlan) Count() int {
	return len(p.Regions)
}

// Number returns the 1-based partition number of a region, or 0 if the
// plan has no such region.
func (p PartitionPlan) Number(name RegionName) int {
	for i, r := range p.Regions {
		if r.Name == name {
			return i + 1
		}
	}
	return 0
}

// FixedTotal sums all sized regions.
func (p PartitionPlan) FixedTotal() uint64 {
	var total uint64
	for _, r := range p.Regions {
		total += r.Size
	}
	return total
}

// Validate enforces the plan invariants: five known regions in layout
// order, only the last unsized, fixed sizes within capacity minus the
// safety margin.
func (p PartitionPlan) Validate(capacity uint64) error {
	want := []RegionName{RegionEFI, RegionBoot, RegionSwap, RegionRoot, RegionHome}
	if len(p.Regions) != len(want) {
		return fmt.Errorf("plan must have %d regions, has %d", len(want), len(p.Regions))
	}
	for i, r := range p.Regions {
		if r.Name != want[i] {
			return fmt.Errorf("region %d must be %s, is %s", i+1, want[i], r.Name)
		}
		if i < len(want)-1 && r.Size == 0 {
			return fmt.Errorf("region %s must have an explicit size", r.Name)
		}
	}
	if last := p.Regions[len(p.Regions)-1]; last.Size != 0 {
		return fmt.Errorf("last region %s must be unsized (remainder of disk)", last.Name)
	}
	if fixed := p.FixedTotal(); fixed+SafetyMargin > capacity {
		return fmt.Errorf("planned %s exceeds disk capacity %s minus %s margin",
			system.FormatSize(fixed), system.FormatSize(capacity), system.FormatSize(SafetyMargin))
	}
	return nil
}

// NewPlan computes a tier-scaled layout for the given capacity, always
// leaving HOME as the unsized remainder. Fails closed when the disk
// cannot hold the smallest viable layout.
func NewPlan(capacity uint64) (PartitionPlan, error) {
	var efi, boot, swap, root uint64
	switch {
	case capacity < smallDiskLimit:
		efi, boot, swap, root = 256*mib, 512*mib, 2*gib, 12*gib
	case capacity < mediumDiskLimit:
		efi, boot, swap, root = 512*mib, 1*gib, 4*gib, 40*gib
	default:
		efi, boot, swap, root = 512*mib, 1*gib, 8*gib, 80*gib
	}
	return NewPlanWithSizes(capacity, efi, boot, swap, root)
}

// NewPlanWithSizes builds a layout from operator-supplied sizes,
// bypassing tier selection but not validation.
func NewPlanWithSizes(capacity, efi, boot, swap, root uint64) (PartitionPlan, error) {
	plan := PartitionPlan{Regions: []Region{
		{Name: RegionEFI, Size: efi},
		{Name: RegionBoot, Size: boot},
		{Name: RegionSwap, Size: swap},
		{Name: RegionRoot, Size: root},
		{Name: RegionHome, Size: 0},
	}}
	if err := plan.Validate(capacity); err != nil {
		return PartitionPlan{}, fmt.Errorf("disk too small for requested layout: %w", err)
	}
	return plan, nil
}

// DefaultLayout returns the region order without sizes. Commands that
// never partition (status, open, clean) only need partition numbering,
// which is fixed by the order, not the sizes.
func DefaultLayout() PartitionPlan {
	return PartitionPlan{Regions: []Region{
		{Name: RegionEFI},
		{Name: RegionBoot},
		{Name: RegionSwap},
		{Name: RegionRoot},
		{Name: RegionHome},
	}}
}

// MountStep is one entry of the mount plan. Soft steps may fail with a
// warning; later work does not strictly depend on them.
type MountStep struct {
	Source string
	Target string
	FSType string
	Soft   bool
}

// MountPlanFor returns the fixed mount order for an installation:
// root first, then boot, EFI, and home beneath it. Pseudo-filesystems
// for the chroot are mounted separately, only after root.
func MountPlanFor(disk TargetDisk, plan PartitionPlan, target string) []MountStep {
	return []MountStep{
		{Source: MapperPath(MapperRoot), Target: target},
		{Source: disk.PartitionPath(plan.Number(RegionBoot)), Target: target + "/boot"},
		{Source: disk.PartitionPath(plan.Number(RegionEFI)), Target: target + "/boot/efi", FSType: "vfat"},
		{Source: MapperPath(MapperHome), Target: target + "/home", Soft: true},
	}
}
