package install

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/voidnx/fortress/internal/ui"
)

// fakeSystem is an in-memory stand-in for the real collaborators,
// recording every mutating operation in order.
type fakeSystem struct {
	devices map[string]bool // device nodes that exist
	luks    map[string]bool // partitions that are LUKS containers
	open    map[string]bool // active mapper names
	fs      map[string]bool // devices carrying a filesystem
	mounted map[string]bool // active mount points
	swap    map[string]bool // active swap devices
	base    bool
	fstab   bool

	ops    []string
	failOn map[string]error

	// noopBootstrap makes InstallBase succeed without installing,
	// to exercise the no-progress guard.
	noopBootstrap bool
}

func newFakeSystem() *fakeSystem {
	return &fakeSystem{
		devices: make(map[string]bool),
		luks:    make(map[string]bool),
		open:    make(map[string]bool),
		fs:      make(map[string]bool),
		mounted: make(map[string]bool),
		swap:    make(map[string]bool),
		failOn:  make(map[string]error),
	}
}

func (f *fakeSystem) record(op string) error {
	f.ops = append(f.ops, op)
	return f.failOn[op]
}

// BlockDevices

func (f *fakeSystem) Exists(path string) bool {
	return path != "" && f.devices[path]
}

func (f *fakeSystem) Partition(disk TargetDisk, plan PartitionPlan) error {
	if err := f.record("partition " + disk.Path); err != nil {
		return err
	}
	for i := 1; i <= plan.Count(); i++ {
		f.devices[disk.PartitionPath(i)] = true
	}
	return nil
}

// Encrypter

func (f *fakeSystem) IsFormatted(device string) bool { return f.luks[device] }
func (f *fakeSystem) IsOpen(name string) bool        { return f.open[name] }

func (f *fakeSystem) Format(device string, gen VolumeGeneration) error {
	if err := f.record("format " + device); err != nil {
		return err
	}
	f.luks[device] = true
	return nil
}

func (f *fakeSystem) Open(device, name string, gen VolumeGeneration) error {
	if err := f.record("open " + name); err != nil {
		return err
	}
	if !f.luks[device] {
		return fmt.Errorf("%s is not a LUKS container", device)
	}
	f.open[name] = true
	f.devices[MapperPath(name)] = true
	return nil
}

func (f *fakeSystem) Close(name string) error {
	if err := f.record("close " + name); err != nil {
		return err
	}
	delete(f.open, name)
	delete(f.devices, MapperPath(name))
	return nil
}

func (f *fakeSystem) AddRecoveryCredential(device string, gen VolumeGeneration, keyfile string) error {
	return f.record("addkey " + device)
}

// Filesystems

func (f *fakeSystem) HasFilesystem(device string) bool { return f.fs[device] }

func (f *fakeSystem) Create(device, fstype, label string) error {
	if err := f.record("mkfs " + device); err != nil {
		return err
	}
	f.fs[device] = true
	return nil
}

func (f *fakeSystem) MakeSwap(device string) error {
	if err := f.record("mkswap " + device); err != nil {
		return err
	}
	f.fs[device] = true
	return nil
}

// Mounter

func (f *fakeSystem) IsMounted(path string) bool { return f.mounted[path] }

func (f *fakeSystem) Mount(source, target, fstype string) error {
	if err := f.record("mount " + target); err != nil {
		return err
	}
	f.mounted[target] = true
	return nil
}

func (f *fakeSystem) MountPseudo(root string) error {
	return f.record("pseudo " + root)
}

func (f *fakeSystem) UnmountRecursive(path string) error {
	if err := f.record("umount " + path); err != nil {
		return err
	}
	for m := range f.mounted {
		if m == path || strings.HasPrefix(m, path+"/") {
			delete(f.mounted, m)
		}
	}
	return nil
}

func (f *fakeSystem) SwapActive(device string) bool { return f.swap[device] }

func (f *fakeSystem) SwapOn(device string) error {
	if err := f.record("swapon " + device); err != nil {
		return err
	}
	f.swap[device] = true
	return nil
}

func (f *fakeSystem) SwapOff(device string) error {
	if err := f.record("swapoff " + device); err != nil {
		return err
	}
	delete(f.swap, device)
	return nil
}

// Bootstrapper

func (f *fakeSystem) HasBaseSystem(root string) bool { return f.base }

func (f *fakeSystem) InstallBase(root string) error {
	if err := f.record("bootstrap " + root); err != nil {
		return err
	}
	if !f.noopBootstrap {
		f.base = true
	}
	return nil
}

// Configurator

func (f *fakeSystem) HasFstab(root string) bool { return f.fstab }

func (f *fakeSystem) WriteFstab(root string) error {
	if err := f.record("fstab " + root); err != nil {
		return err
	}
	f.fstab = true
	return nil
}

func (f *fakeSystem) ConfigureSystem(root string) error {
	return f.record("configure " + root)
}

func (f *fakeSystem) InstallBootloader(root string, fallback bool) error {
	if fallback {
		return f.record("grub-install-fallback " + root)
	}
	return f.record("grub-install " + root)
}

func (f *fakeSystem) GenerateBootConfig(root string) error {
	return f.record("grub-mkconfig " + root)
}

func (f *fakeSystem) system() System {
	return System{
		Devices: f,
		Crypt:   f,
		FS:      f,
		Mounts:  f,
		Base:    f,
		Conf:    f,
	}
}

// Test fixtures around a 64 GiB SATA-style disk.

const testDiskPath = "/dev/vda"

func testDisk() TargetDisk {
	return TargetDisk{Path: testDiskPath, Capacity: 64 * gib}
}

func testPlan(t *testing.T) PartitionPlan {
	t.Helper()
	plan, err := NewPlan(64 * gib)
	if err != nil {
		t.Fatalf("planning failed: %v", err)
	}
	return plan
}

func testDetector(f *fakeSystem, t *testing.T) *Detector {
	t.Helper()
	return &Detector{
		Disk:   testDisk(),
		Plan:   testPlan(t),
		Target: DefaultTarget,
		Sys:    f.system(),
	}
}

func quietLogger() *ui.Logger {
	return ui.NewLogger(false, true, true)
}

func testReconciler(f *fakeSystem, t *testing.T) (*Reconciler, *Store) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Disk = testDiskPath
	cfg.CheckpointPath = filepath.Join(t.TempDir(), "fortress.state")
	store := NewStore(cfg.CheckpointPath)
	return NewReconciler(cfg, testDisk(), testPlan(t), f.system(), store, quietLogger()), store
}

// advanceTo mutates the fake to the physical state just before the
// given phase's failing check would pass.
func (f *fakeSystem) advanceTo(phase Phase, t *testing.T) {
	t.Helper()
	disk := testDisk()
	plan, _ := NewPlan(disk.Capacity)

	stages := []struct {
		phase Phase
		apply func()
	}{
		{NoDisk, func() {}},
		{NoPartitions, func() { f.devices[disk.Path] = true }},
		{NotEncrypted, func() {
			for i := 1; i <= plan.Count(); i++ {
				f.devices[disk.PartitionPath(i)] = true
			}
		}},
		{PartialEncrypted, func() { f.luks[disk.PartitionPath(plan.Number(RegionRoot))] = true }},
		{VolumesClosed, func() { f.luks[disk.PartitionPath(plan.Number(RegionHome))] = true }},
		{RootOpenHomeClosed, func() {
			f.open[MapperRoot] = true
			f.devices[MapperPath(MapperRoot)] = true
		}},
		{NoRootFilesystem, func() {
			f.open[MapperHome] = true
			f.devices[MapperPath(MapperHome)] = true
		}},
		{NoHomeFilesystem, func() { f.fs[MapperPath(MapperRoot)] = true }},
		{NotMounted, func() { f.fs[MapperPath(MapperHome)] = true }},
		{PartialMount, func() { f.mounted[DefaultTarget] = true }},
		{NoSystem, func() { f.mounted[DefaultTarget+"/boot"] = true }},
		{NotConfigured, func() { f.base = true }},
		{Ready, func() { f.fstab = true }},
	}
	for _, s := range stages {
		if s.phase.Before(phase) || s.phase == phase {
			s.apply()
		}
	}
}
