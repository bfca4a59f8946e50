package install

import (
	"fmt"

	"github.com/voidnx/fortress/internal/ui"
)

// Reconciler converges live system state toward Ready by running the
// minimal ordered set of idempotent steps for the detected phase,
// checkpointing after every step. Partitioning and LUKS formatting are
// the only destructive operations; both are guarded so an existing
// target is never re-destroyed.
type Reconciler struct {
	cfg   Config
	disk  TargetDisk
	plan  PartitionPlan
	sys   System
	store *Store
	log   *ui.Logger
	det   *Detector
}

// NewReconciler wires a reconciler for one installation run.
func NewReconciler(cfg Config, disk TargetDisk, plan PartitionPlan, sys System, store *Store, log *ui.Logger) *Reconciler {
	return &Reconciler{
		cfg:   cfg,
		disk:  disk,
		plan:  plan,
		sys:   sys,
		store: store,
		log:   log,
		det: &Detector{
			Disk:   disk,
			Plan:   plan,
			Target: cfg.Target,
			Sys:    sys,
		},
	}
}

// Detect runs one detection pass with this reconciler's wiring.
func (r *Reconciler) Detect() Observation {
	return r.det.Detect()
}

type step struct {
	name string
	run  func() error
}

// stepsFor maps a phase to its remaining work. The switch is
// exhaustive over ordered phases so adding a phase without updating
// dispatch fails loudly.
func (r *Reconciler) stepsFor(phase Phase) ([]step, error) {
	partition := step{"partition disk", r.ensurePartitions}
	encrypt := step{"format encrypted volumes", r.ensureFormatted}
	open := step{"open encrypted volumes", r.EnsureVolumesOpen}
	mkfs := step{"create filesystems", r.ensureFilesystems}
	mount := step{"mount filesystems", r.EnsureMounted}
	bootstrap := step{"bootstrap base system", r.ensureBaseSystem}
	configure := step{"configure system", r.ensureConfigured}

	switch phase {
	case NoDisk:
		return nil, fmt.Errorf("target device %s does not exist; nothing can be done without a different device", r.disk.Path)
	case NoPartitions:
		return []step{partition, encrypt, open, mkfs, mount, bootstrap, configure}, nil
	case NotEncrypted, PartialEncrypted:
		return []step{encrypt, open, mkfs, mount, bootstrap, configure}, nil
	case VolumesClosed, RootOpenHomeClosed:
		return []step{open, mount, bootstrap, configure}, nil
	case NoRootFilesystem, NoHomeFilesystem:
		return []step{open, mkfs, mount, bootstrap, configure}, nil
	case NotMounted, PartialMount:
		return []step{mount, bootstrap, configure}, nil
	case NoSystem:
		return []step{bootstrap, configure}, nil
	case NotConfigured:
		return []step{configure}, nil
	case Ready:
		return nil, nil
	case Unknown:
		return nil, fmt.Errorf("cannot determine installation phase")
	default:
		return nil, fmt.Errorf("no action table entry for phase %s", phase)
	}
}

// Run drives detection and reconciliation until Ready or a fatal
// error. On fatal failure the checkpoint records ERROR and the system
// is left in its partial state for the next invocation to classify;
// there is deliberately no automatic teardown here.
func (r *Reconciler) Run() error {
	for {
		obs := r.Detect()
		r.log.Info("Detected phase %s (%s)", obs.Phase, obs.Detail)

		if obs.Phase == Ready {
			r.checkpoint(obs)
			r.log.Success("System is fully provisioned")
			return nil
		}

		steps, err := r.stepsFor(obs.Phase)
		if err != nil {
			r.failure(obs.Phase, err)
			return err
		}

		for _, s := range steps {
			r.log.Info("Running step: %s", s.name)
			if err := s.run(); err != nil {
				err = fmt.Errorf("step %q failed: %w", s.name, err)
				r.failure(obs.Phase, err)
				return err
			}
			r.checkpoint(r.Detect())
		}

		after := r.Detect()
		if !obs.Phase.Before(after.Phase) {
			err := fmt.Errorf("no progress: phase %s after reconciling %s", after.Phase, obs.Phase)
			r.failure(after.Phase, err)
			return err
		}
	}
}

// checkpoint persists an observation. Checkpoint write failures are
// soft: the record is advisory, losing it must not abort an install.
func (r *Reconciler) checkpoint(obs Observation) {
	if err := r.store.Save(obs.Phase, obs.Detail, r.disk.Path, r.cfg.RunID); err != nil {
		r.log.Warning("Failed to write checkpoint: %v", err)
	}
}

func (r *Reconciler) failure(phase Phase, err error) {
	detail := fmt.Sprintf("at %s: %v", phase, err)
	if serr := r.store.Save(ErrorPhase, detail, r.disk.Path, r.cfg.RunID); serr != nil {
		r.log.Warning("Failed to write error checkpoint: %v", serr)
	}
	r.log.Error("%s (checkpoint: %s)", detail, r.store.Path())
}

// ensurePartitions writes the partition table. Guarded: if the last
// planned partition already exists the table is left untouched.
func (r *Reconciler) ensurePartitions() error {
	if r.sys.Devices.Exists(r.disk.PartitionPath(r.plan.Count())) {
		r.log.Debug("Partition table already present on %s", r.disk.Path)
		return nil
	}
	return r.sys.Devices.Partition(r.disk, r.plan)
}

// ensureFormatted formats whichever encrypted volumes are missing,
// never touching a volume that is already a LUKS container.
func (r *Reconciler) ensureFormatted() error {
	for _, v := range []struct {
		part string
		gen  VolumeGeneration
	}{
		{r.disk.PartitionPath(r.plan.Number(RegionRoot)), RootGeneration},
		{r.disk.PartitionPath(r.plan.Number(RegionHome)), HomeGeneration},
	} {
		if r.sys.Crypt.IsFormatted(v.part) {
			r.log.Debug("%s is already a LUKS container", v.part)
			continue
		}
		r.log.Info("Formatting %s as %s", v.part, v.gen)
		if err := r.sys.Crypt.Format(v.part, v.gen); err != nil {
			return err
		}
		if r.cfg.RecoveryKeyFile != "" {
			if err := r.sys.Crypt.AddRecoveryCredential(v.part, v.gen, r.cfg.RecoveryKeyFile); err != nil {
				return err
			}
		}
	}
	return nil
}

// EnsureVolumesOpen opens any closed encrypted volume under its stable
// mapper name. Exported for the `open`, `mount` and `shell` commands.
func (r *Reconciler) EnsureVolumesOpen() error {
	for _, v := range []struct {
		part, name string
		gen        VolumeGeneration
	}{
		{r.disk.PartitionPath(r.plan.Number(RegionRoot)), MapperRoot, RootGeneration},
		{r.disk.PartitionPath(r.plan.Number(RegionHome)), MapperHome, HomeGeneration},
	} {
		if r.sys.Crypt.IsOpen(v.name) {
			r.log.Debug("Volume %s is already open", v.name)
			continue
		}
		r.log.Info("Opening %s as %s", v.part, v.name)
		if err := r.sys.Crypt.Open(v.part, v.name, v.gen); err != nil {
			return err
		}
	}
	return nil
}

// ensureFilesystems creates the missing filesystems: EFI and boot on
// their cleartext partitions, swap, and ext4 inside both volumes. Each
// is guarded so existing data is never reformatted.
func (r *Reconciler) ensureFilesystems() error {
	for _, fs := range []struct {
		device, fstype, label string
	}{
		{r.disk.PartitionPath(r.plan.Number(RegionEFI)), "vfat", "EFI"},
		{r.disk.PartitionPath(r.plan.Number(RegionBoot)), "ext4", "boot"},
		{MapperPath(MapperRoot), "ext4", "root"},
		{MapperPath(MapperHome), "ext4", "home"},
	} {
		if r.sys.FS.HasFilesystem(fs.device) {
			r.log.Debug("%s already has a filesystem", fs.device)
			continue
		}
		r.log.Info("Creating %s filesystem on %s", fs.fstype, fs.device)
		if err := r.sys.FS.Create(fs.device, fs.fstype, fs.label); err != nil {
			return err
		}
	}

	swapPart := r.disk.PartitionPath(r.plan.Number(RegionSwap))
	if !r.sys.FS.HasFilesystem(swapPart) {
		if err := r.sys.FS.MakeSwap(swapPart); err != nil {
			return err
		}
	}
	return nil
}

// EnsureMounted mounts everything in the fixed mount order. The home
// mount and swap activation are soft: a failure is logged and the run
// continues, because later steps do not strictly depend on them.
func (r *Reconciler) EnsureMounted() error {
	for _, m := range MountPlanFor(r.disk, r.plan, r.cfg.Target) {
		if r.sys.Mounts.IsMounted(m.Target) {
			r.log.Debug("%s is already mounted", m.Target)
			continue
		}
		if err := r.sys.Mounts.Mount(m.Source, m.Target, m.FSType); err != nil {
			if m.Soft {
				r.log.Warning("Failed to mount %s at %s: %v", m.Source, m.Target, err)
				continue
			}
			return err
		}
	}

	swapPart := r.disk.PartitionPath(r.plan.Number(RegionSwap))
	if !r.sys.Mounts.SwapActive(swapPart) {
		if err := r.sys.Mounts.SwapOn(swapPart); err != nil {
			r.log.Warning("Failed to activate swap on %s: %v", swapPart, err)
		}
	}
	return nil
}

// ensureBaseSystem bootstraps the base packages unless a base system
// is already present under the target.
func (r *Reconciler) ensureBaseSystem() error {
	if r.sys.Base.HasBaseSystem(r.cfg.Target) {
		r.log.Info("Base system already installed, skipping bootstrap")
		return nil
	}
	return r.sys.Base.InstallBase(r.cfg.Target)
}

// ensureConfigured finishes the target: pseudo-filesystems for the
// chroot, fstab, in-chroot configuration, and the bootloader with its
// fallback install mode.
func (r *Reconciler) ensureConfigured() error {
	if err := r.sys.Mounts.MountPseudo(r.cfg.Target); err != nil {
		return err
	}
	if !r.sys.Conf.HasFstab(r.cfg.Target) {
		if err := r.sys.Conf.WriteFstab(r.cfg.Target); err != nil {
			return err
		}
	}
	if err := r.sys.Conf.ConfigureSystem(r.cfg.Target); err != nil {
		return err
	}
	if err := r.sys.Conf.InstallBootloader(r.cfg.Target, false); err != nil {
		r.log.Warning("Bootloader install failed (%v), retrying in fallback mode", err)
		if err := r.sys.Conf.InstallBootloader(r.cfg.Target, true); err != nil {
			return fmt.Errorf("bootloader install failed in both modes: %w", err)
		}
	}
	return r.sys.Conf.GenerateBootConfig(r.cfg.Target)
}
