package install

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlanSmallDisk(t *testing.T) {
	// 20 GiB selects the small tier.
	plan, err := NewPlan(20 * gib)
	require.NoError(t, err)

	require.Equal(t, 5, plan.Count())
	assert.Equal(t, uint64(256*mib), plan.Regions[0].Size)
	assert.Equal(t, uint64(512*mib), plan.Regions[1].Size)
	assert.Equal(t, uint64(2*gib), plan.Regions[2].Size)
	assert.Equal(t, uint64(12*gib), plan.Regions[3].Size)
	assert.Equal(t, uint64(0), plan.Regions[4].Size, "home takes the remainder")
}

func TestNewPlanMediumDisk(t *testing.T) {
	plan, err := NewPlan(64 * gib)
	require.NoError(t, err)

	assert.Equal(t, uint64(512*mib), plan.Regions[0].Size)
	assert.Equal(t, uint64(1*gib), plan.Regions[1].Size)
	assert.Equal(t, uint64(4*gib), plan.Regions[2].Size)
	assert.Equal(t, uint64(40*gib), plan.Regions[3].Size)
}

func TestNewPlanLargeDisk(t *testing.T) {
	plan, err := NewPlan(500 * gib)
	require.NoError(t, err)

	assert.Equal(t, uint64(8*gib), plan.Regions[2].Size)
	assert.Equal(t, uint64(80*gib), plan.Regions[3].Size)
}

func TestNewPlanTierBoundaries(t *testing.T) {
	// Exactly 30 GiB is medium, exactly 120 GiB is large.
	medium, err := NewPlan(30 * gib)
	require.NoError(t, err)
	assert.Equal(t, uint64(40*gib), medium.Regions[3].Size)

	large, err := NewPlan(120 * gib)
	require.NoError(t, err)
	assert.Equal(t, uint64(80*gib), large.Regions[3].Size)
}

func TestNewPlanFailsClosed(t *testing.T) {
	// The small tier needs ~14.75 GiB fixed plus the safety margin;
	// an 8 GiB stick cannot hold it.
	_, err := NewPlan(8 * gib)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk too small")
}

func TestNewPlanRespectsSafetyMargin(t *testing.T) {
	plan, err := NewPlan(20 * gib)
	require.NoError(t, err)

	// Fixed sizes just fit: adding the margin must still be within
	// capacity, and one byte less capacity must fail.
	fixed := plan.FixedTotal()
	require.NoError(t, plan.Validate(fixed+SafetyMargin))
	require.Error(t, plan.Validate(fixed+SafetyMargin-1))
}

func TestNewPlanWithSizesOverrides(t *testing.T) {
	plan, err := NewPlanWithSizes(64*gib, 512*mib, 2*gib, 16*gib, 20*gib)
	require.NoError(t, err)
	assert.Equal(t, uint64(16*gib), plan.Regions[2].Size)
	assert.Equal(t, uint64(20*gib), plan.Regions[3].Size)

	// Oversized overrides fail closed instead of truncating.
	_, err = NewPlanWithSizes(64*gib, 512*mib, 1*gib, 8*gib, 60*gib)
	assert.Error(t, err)
}

func TestPlanNumbering(t *testing.T) {
	plan, err := NewPlan(64 * gib)
	require.NoError(t, err)

	assert.Equal(t, 1, plan.Number(RegionEFI))
	assert.Equal(t, 2, plan.Number(RegionBoot))
	assert.Equal(t, 3, plan.Number(RegionSwap))
	assert.Equal(t, 4, plan.Number(RegionRoot))
	assert.Equal(t, 5, plan.Number(RegionHome))
	assert.Equal(t, 0, plan.Number(RegionName("NOPE")))
}

func TestValidateRejectsMalformedPlans(t *testing.T) {
	capacity := uint64(64 * gib)

	t.Run("sized last region", func(t *testing.T) {
		plan := DefaultLayout()
		for i := range plan.Regions {
			plan.Regions[i].Size = gib
		}
		assert.Error(t, plan.Validate(capacity))
	})

	t.Run("unsized middle region", func(t *testing.T) {
		plan, err := NewPlan(capacity)
		require.NoError(t, err)
		plan.Regions[2].Size = 0
		assert.Error(t, plan.Validate(capacity))
	})

	t.Run("wrong order", func(t *testing.T) {
		plan, err := NewPlan(capacity)
		require.NoError(t, err)
		plan.Regions[0], plan.Regions[1] = plan.Regions[1], plan.Regions[0]
		assert.Error(t, plan.Validate(capacity))
	})

	t.Run("missing region", func(t *testing.T) {
		plan, err := NewPlan(capacity)
		require.NoError(t, err)
		plan.Regions = plan.Regions[:4]
		assert.Error(t, plan.Validate(capacity))
	})
}

func TestMountPlanOrder(t *testing.T) {
	disk := testDisk()
	plan, err := NewPlan(disk.Capacity)
	require.NoError(t, err)

	steps := MountPlanFor(disk, plan, "/mnt")
	require.Len(t, steps, 4)

	assert.Equal(t, MapperPath(MapperRoot), steps[0].Source)
	assert.Equal(t, "/mnt", steps[0].Target)
	assert.Equal(t, "/dev/vda2", steps[1].Source)
	assert.Equal(t, "/mnt/boot", steps[1].Target)
	assert.Equal(t, "/dev/vda1", steps[2].Source)
	assert.Equal(t, "/mnt/boot/efi", steps[2].Target)
	assert.Equal(t, "vfat", steps[2].FSType)
	assert.Equal(t, MapperPath(MapperHome), steps[3].Source)
	assert.True(t, steps[3].Soft, "home mount must not abort the run")
}
