package install

import "fmt"

// Detector classifies live system state into exactly one Phase. It is
// a pure function of observed facts: no side effects, safe to call any
// number of times, and never influenced by checkpoints.
type Detector struct {
	Disk   TargetDisk
	Plan   PartitionPlan
	Target string
	Sys    System
}

// Detect evaluates the ordered existence checks top-down; the first
// failing check determines the phase. Later checks are not evaluated
// because their preconditions are not yet satisfied.
func (d *Detector) Detect() Observation {
	if d.Target == "" || d.Plan.Count() == 0 {
		return Observation{Unknown, "detector not fully configured"}
	}

	if !d.Sys.Devices.Exists(d.Disk.Path) {
		return Observation{NoDisk, fmt.Sprintf("target device %s not found", d.Disk.Path)}
	}

	lastPart := d.Disk.PartitionPath(d.Plan.Count())
	if !d.Sys.Devices.Exists(lastPart) {
		return Observation{NoPartitions, fmt.Sprintf("partition %s does not exist", lastPart)}
	}

	rootPart := d.Disk.PartitionPath(d.Plan.Number(RegionRoot))
	homePart := d.Disk.PartitionPath(d.Plan.Number(RegionHome))

	if !d.Sys.Crypt.IsFormatted(rootPart) {
		return Observation{NotEncrypted, fmt.Sprintf("%s is not a LUKS container", rootPart)}
	}
	if !d.Sys.Crypt.IsFormatted(homePart) {
		return Observation{PartialEncrypted, fmt.Sprintf("root volume formatted but %s is not a LUKS container", homePart)}
	}

	if !d.Sys.Crypt.IsOpen(MapperRoot) {
		return Observation{VolumesClosed, fmt.Sprintf("encrypted volume %s is not open", MapperRoot)}
	}
	if !d.Sys.Crypt.IsOpen(MapperHome) {
		return Observation{RootOpenHomeClosed, fmt.Sprintf("encrypted volume %s is not open", MapperHome)}
	}

	if !d.Sys.FS.HasFilesystem(MapperPath(MapperRoot)) {
		return Observation{NoRootFilesystem, fmt.Sprintf("%s has no filesystem", MapperPath(MapperRoot))}
	}
	if !d.Sys.FS.HasFilesystem(MapperPath(MapperHome)) {
		return Observation{NoHomeFilesystem, fmt.Sprintf("%s has no filesystem", MapperPath(MapperHome))}
	}

	if !d.Sys.Mounts.IsMounted(d.Target) {
		return Observation{NotMounted, fmt.Sprintf("%s is not mounted", d.Target)}
	}
	if !d.Sys.Mounts.IsMounted(d.Target + "/boot") {
		return Observation{PartialMount, fmt.Sprintf("%s/boot is not mounted", d.Target)}
	}

	if !d.Sys.Base.HasBaseSystem(d.Target) {
		return Observation{NoSystem, fmt.Sprintf("no base system installed under %s", d.Target)}
	}
	if !d.Sys.Conf.HasFstab(d.Target) {
		return Observation{NotConfigured, fmt.Sprintf("%s/etc/fstab has not been generated", d.Target)}
	}

	return Observation{Ready, "installation complete"}
}
