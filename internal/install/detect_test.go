package install

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectPhaseLadder(t *testing.T) {
	// Each phase is produced by the physical state that satisfies
	// every earlier check and fails that phase's own check.
	for phase := NoDisk; phase <= Ready; phase++ {
		t.Run(phase.String(), func(t *testing.T) {
			f := newFakeSystem()
			f.advanceTo(phase, t)
			obs := testDetector(f, t).Detect()
			assert.Equal(t, phase, obs.Phase)
			assert.NotEmpty(t, obs.Detail)
		})
	}
}

func TestDetectIsPure(t *testing.T) {
	f := newFakeSystem()
	f.advanceTo(NoHomeFilesystem, t)
	det := testDetector(f, t)

	first := det.Detect()
	second := det.Detect()
	assert.Equal(t, first, second)
	assert.Empty(t, f.ops, "detection must not perform any operations")
}

func TestDetectUnconfigured(t *testing.T) {
	det := &Detector{Sys: newFakeSystem().system()}
	obs := det.Detect()
	assert.Equal(t, Unknown, obs.Phase)
}

func TestDetectPartialEncryption(t *testing.T) {
	// Root formatted, home still plaintext.
	f := newFakeSystem()
	f.advanceTo(NotEncrypted, t)
	f.luks[testDisk().PartitionPath(4)] = true

	obs := testDetector(f, t).Detect()
	assert.Equal(t, PartialEncrypted, obs.Phase)
}

func TestDetectHomeFormattedWithoutRoot(t *testing.T) {
	// Home formatted but root plaintext still classifies by the root
	// check, which comes first.
	f := newFakeSystem()
	f.advanceTo(NotEncrypted, t)
	f.luks[testDisk().PartitionPath(5)] = true

	obs := testDetector(f, t).Detect()
	assert.Equal(t, NotEncrypted, obs.Phase)
}

func TestDetectMountVariants(t *testing.T) {
	t.Run("nothing mounted", func(t *testing.T) {
		f := newFakeSystem()
		f.advanceTo(NoHomeFilesystem, t)
		f.fs[MapperPath(MapperHome)] = true
		obs := testDetector(f, t).Detect()
		assert.Equal(t, NotMounted, obs.Phase)
	})

	t.Run("root mounted boot missing", func(t *testing.T) {
		f := newFakeSystem()
		f.advanceTo(NoHomeFilesystem, t)
		f.fs[MapperPath(MapperHome)] = true
		f.mounted[DefaultTarget] = true
		obs := testDetector(f, t).Detect()
		assert.Equal(t, PartialMount, obs.Phase)
	})

	t.Run("boot mounted root missing", func(t *testing.T) {
		// Stale boot mount without the root mount reads as NotMounted;
		// the root check comes first.
		f := newFakeSystem()
		f.advanceTo(NoHomeFilesystem, t)
		f.fs[MapperPath(MapperHome)] = true
		f.mounted[DefaultTarget+"/boot"] = true
		obs := testDetector(f, t).Detect()
		assert.Equal(t, NotMounted, obs.Phase)
	})
}

func TestDetectOpenVolumeOrder(t *testing.T) {
	// Home open while root is closed still reports VolumesClosed: the
	// root volume check precedes the home one.
	f := newFakeSystem()
	f.advanceTo(PartialEncrypted, t)
	f.luks[testDisk().PartitionPath(5)] = true
	f.open[MapperHome] = true
	f.devices[MapperPath(MapperHome)] = true

	obs := testDetector(f, t).Detect()
	require.Equal(t, VolumesClosed, obs.Phase)
}
