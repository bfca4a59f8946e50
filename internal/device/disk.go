package device

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/voidnx/fortress/internal/install"
	"github.com/voidnx/fortress/internal/system"
)

// DiskInfo describes one whole-disk block device from enumeration.
type DiskInfo struct {
	Path  string
	Size  uint64
	Model string
}

// lsblk -J types; size stays a json.Number because older util-linux
// emits it as a string with -b.
type lsblkDevice struct {
	Name  string      `json:"name"`
	Size  json.Number `json:"size"`
	Type  string      `json:"type"`
	Model string      `json:"model"`
}

type lsblkOutput struct {
	BlockDevices []lsblkDevice `json:"blockdevices"`
}

// ListDisks enumerates whole disks (no partitions, no loop devices).
func ListDisks(exec *system.Executor) ([]DiskInfo, error) {
	output, err := exec.RunOutput("lsblk", "-J", "-b", "-d", "-o", "NAME,SIZE,TYPE,MODEL")
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate disks: %w", err)
	}

	return parseDisks([]byte(output))
}

func parseDisks(data []byte) ([]DiskInfo, error) {
	var parsed lsblkOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse lsblk output: %w", err)
	}

	var disks []DiskInfo
	for _, dev := range parsed.BlockDevices {
		if dev.Type != "disk" {
			continue
		}
		size, _ := strconv.ParseUint(dev.Size.String(), 10, 64)
		disks = append(disks, DiskInfo{
			Path:  "/dev/" + dev.Name,
			Size:  size,
			Model: strings.TrimSpace(dev.Model),
		})
	}
	return disks, nil
}

// Capacity returns the size of a block device in bytes.
func Capacity(exec *system.Executor, path string) (uint64, error) {
	output, err := exec.RunOutput("blockdev", "--getsize64", path)
	if err != nil {
		return 0, fmt.Errorf("failed to read capacity of %s: %w", path, err)
	}
	size, err := strconv.ParseUint(strings.TrimSpace(output), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected blockdev output %q: %w", output, err)
	}
	return size, nil
}

// Resolve builds the immutable TargetDisk for a device path.
func Resolve(exec *system.Executor, path string) (install.TargetDisk, error) {
	capacity, err := Capacity(exec, path)
	if err != nil {
		return install.TargetDisk{}, err
	}
	return install.TargetDisk{Path: path, Capacity: capacity}, nil
}
