package install

import "fmt"

// TargetDisk identifies the block device an installation run owns.
// Immutable once selected.
type TargetDisk struct {
	Path     string // e.g. /dev/sda, /dev/nvme0n1
	Capacity uint64 // bytes
}

// PartitionPath returns the device node of partition n (1-based).
// Devices whose name ends in a digit (nvme0n1, mmcblk0, loop0) need a
// "p" separator before the partition number.
func (d TargetDisk) PartitionPath(n int) string {
	if d.Path == "" {
		return ""
	}
	last := d.Path[len(d.Path)-1]
	if last >= '0' && last <= '9' {
		return fmt.Sprintf("%sp%d", d.Path, n)
	}
	return fmt.Sprintf("%s%d", d.Path, n)
}

// Mapper names for the two encrypted volumes. Stable logical names let
// every later step address "the root volume" without re-deriving
// partition paths.
const (
	MapperRoot = "fortress-root"
	MapperHome = "fortress-home"
)

// MapperPath returns the device node of an open dm-crypt mapping.
func MapperPath(name string) string {
	return "/dev/mapper/" + name
}

// VolumeGeneration selects the encryption parameters of a volume. The
// two volumes are independently parameterized: the root volume must
// stay unlockable by the bootloader, the home volume gets the stronger
// modern KDF.
type VolumeGeneration int

const (
	// RootGeneration is LUKS1 with pbkdf2 (GRUB-unlockable).
	RootGeneration VolumeGeneration = iota + 1
	// HomeGeneration is LUKS2 with argon2id.
	HomeGeneration
)

func (g VolumeGeneration) String() string {
	switch g {
	case RootGeneration:
		return "luks1"
	case HomeGeneration:
		return "luks2"
	}
	return "unknown"
}
