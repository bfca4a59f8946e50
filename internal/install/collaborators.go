package install

// Collaborator contracts for the tools the state machine drives. The
// concrete implementations live in internal/device and
// internal/bootstrap; tests substitute fakes. All Is*/Has* probes are
// side-effect free and must tolerate absent prerequisites (probing a
// volume that was never opened answers false, it does not error).

// BlockDevices inspects device nodes and writes partition tables.
type BlockDevices interface {
	Exists(path string) bool
	Partition(disk TargetDisk, plan PartitionPlan) error
}

// Encrypter manages the two encrypted volumes. Credentials are bound
// to the implementation at construction time, keyed by generation.
type Encrypter interface {
	IsFormatted(device string) bool
	IsOpen(name string) bool
	Format(device string, gen VolumeGeneration) error
	Open(device, name string, gen VolumeGeneration) error
	Close(name string) error
	AddRecoveryCredential(device string, gen VolumeGeneration, keyfile string) error
}

// Filesystems creates and probes filesystems on block devices.
type Filesystems interface {
	HasFilesystem(device string) bool
	Create(device, fstype, label string) error
	MakeSwap(device string) error
}

// Mounter manages mount points and swap activation.
type Mounter interface {
	IsMounted(path string) bool
	Mount(source, target, fstype string) error
	MountPseudo(root string) error
	UnmountRecursive(path string) error
	SwapActive(device string) bool
	SwapOn(device string) error
	SwapOff(device string) error
}

// Bootstrapper installs the base system into the mounted target.
type Bootstrapper interface {
	HasBaseSystem(root string) bool
	InstallBase(root string) error
}

// Configurator finishes the installed system: fstab, in-chroot
// configuration, and the bootloader (primary mode with a fallback).
type Configurator interface {
	HasFstab(root string) bool
	WriteFstab(root string) error
	ConfigureSystem(root string) error
	InstallBootloader(root string, fallback bool) error
	GenerateBootConfig(root string) error
}

// System bundles the collaborators consumed by the detector, the
// reconciler, and teardown.
type System struct {
	Devices BlockDevices
	Crypt   Encrypter
	FS      Filesystems
	Mounts  Mounter
	Base    Bootstrapper
	Conf    Configurator
}
