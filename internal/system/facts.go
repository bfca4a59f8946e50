package system

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// Tools that must be on PATH before any destructive action is attempted.
var RequiredTools = []string{
	"sfdisk",
	"partprobe",
	"cryptsetup",
	"blkid",
	"mkfs.vfat",
	"mkfs.ext4",
	"mkswap",
	"mount",
	"umount",
	"swapon",
	"swapoff",
	"xbps-install",
	"chroot",
}

const efiFirmwarePath = "/sys/firmware/efi"

// MinimumMemory is the smallest amount of RAM the installer will accept.
// Unlocking the argon2id-protected home volume needs real headroom.
const MinimumMemory = 1 << 30

// Facts is a read-only capability report of the execution environment.
type Facts struct {
	EUID        int
	UEFI        bool
	MemoryBytes uint64
	Kernel      string
}

// IsRoot checks if running as root
func IsRoot() bool {
	return os.Geteuid() == 0
}

// RequireRoot ensures the program is running as root
func RequireRoot() error {
	if !IsRoot() {
		return fmt.Errorf("this command must be run as root (try with sudo)")
	}
	return nil
}

// GatherFacts inspects the environment. It never fails; missing
// capabilities show up as zero values and are judged by Check.
func GatherFacts() Facts {
	f := Facts{EUID: os.Geteuid()}

	if _, err := os.Stat(efiFirmwarePath); err == nil {
		f.UEFI = true
	}

	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err == nil {
		f.MemoryBytes = info.Totalram * uint64(info.Unit)
	}

	var uts unix.Utsname
	if err := unix.Uname(&uts); err == nil {
		f.Kernel = unix.ByteSliceToString(uts.Release[:])
	}

	return f
}

// Check validates the capability report against the installer's
// preconditions. Failing any of these aborts before side effects.
func (f Facts) Check() error {
	var problems []string
	if f.EUID != 0 {
		problems = append(problems, "must run as root")
	}
	if !f.UEFI {
		problems = append(problems, "system not booted in UEFI mode")
	}
	if f.MemoryBytes > 0 && f.MemoryBytes < MinimumMemory {
		problems = append(problems, fmt.Sprintf("need at least %s of memory, have %s",
			FormatSize(MinimumMemory), FormatSize(f.MemoryBytes)))
	}
	if len(problems) > 0 {
		return fmt.Errorf("environment check failed: %s", strings.Join(problems, "; "))
	}
	return nil
}
