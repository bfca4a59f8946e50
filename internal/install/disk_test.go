package install

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionPath(t *testing.T) {
	tests := []struct {
		disk string
		n    int
		want string
	}{
		{"/dev/sda", 1, "/dev/sda1"},
		{"/dev/vdb", 5, "/dev/vdb5"},
		{"/dev/nvme0n1", 1, "/dev/nvme0n1p1"},
		{"/dev/nvme0n1", 5, "/dev/nvme0n1p5"},
		{"/dev/mmcblk0", 2, "/dev/mmcblk0p2"},
		{"/dev/loop0", 4, "/dev/loop0p4"},
		{"", 1, ""},
	}
	for _, tt := range tests {
		d := TargetDisk{Path: tt.disk}
		assert.Equal(t, tt.want, d.PartitionPath(tt.n), "disk %q partition %d", tt.disk, tt.n)
	}
}

func TestMapperPath(t *testing.T) {
	assert.Equal(t, "/dev/mapper/fortress-root", MapperPath(MapperRoot))
	assert.Equal(t, "/dev/mapper/fortress-home", MapperPath(MapperHome))
}

func TestVolumeGenerationString(t *testing.T) {
	assert.Equal(t, "luks1", RootGeneration.String())
	assert.Equal(t, "luks2", HomeGeneration.String())
	assert.Equal(t, "unknown", VolumeGeneration(0).String())
}
