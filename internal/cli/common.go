package cli

import (
	"bytes"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/voidnx/fortress/internal/bootstrap"
	"github.com/voidnx/fortress/internal/device"
	"github.com/voidnx/fortress/internal/install"
	"github.com/voidnx/fortress/internal/system"
	"github.com/voidnx/fortress/internal/ui"
)

// GlobalContext holds shared resources for all commands
type GlobalContext struct {
	Executor *system.Executor
	Logger   *ui.Logger
}

// NewGlobalContext creates a new global context
func NewGlobalContext(verbose, quiet, noColor, debug bool) *GlobalContext {
	return &GlobalContext{
		Executor: system.NewExecutor(debug),
		Logger:   ui.NewLogger(verbose, quiet, noColor),
	}
}

// CheckDependencies checks for required system commands
func (ctx *GlobalContext) CheckDependencies() error {
	return ctx.Executor.CheckDependencies(system.RequiredTools)
}

// GetAuthMethod determines the authentication method based on keyfile flag.
// If requireConfirmation is true, prompts for passphrase confirmation (for
// formatting operations). Caller is responsible for calling Zeroize() on
// PasswordAuth.Password when done.
func GetAuthMethod(keyfile string, requireConfirmation bool) (device.AuthMethod, error) {
	if keyfile != "" {
		resolvedKeyfile, err := system.ValidateKeyfilePath(keyfile)
		if err != nil {
			return nil, err
		}
		return &device.KeyfileAuth{KeyfilePath: resolvedKeyfile}, nil
	}

	password, err := ui.PromptPassword("Enter passphrase")
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	secure := system.NewSecureBytes([]byte(password))

	if requireConfirmation {
		confirm, err := ui.PromptPassword("Confirm passphrase")
		if err != nil {
			secure.Zeroize()
			return nil, fmt.Errorf("failed to read passphrase: %w", err)
		}
		confirmSecure := system.NewSecureBytes([]byte(confirm))
		defer confirmSecure.Zeroize()

		if !bytes.Equal(secure.Bytes(), confirmSecure.Bytes()) {
			secure.Zeroize()
			return nil, fmt.Errorf("passphrases don't match")
		}
	}

	return &device.PasswordAuth{Password: secure}, nil
}

// session wires the collaborators for one target disk.
type session struct {
	cfg   install.Config
	disk  install.TargetDisk
	plan  install.PartitionPlan
	crypt *device.LUKS
	sys   install.System
	store *install.Store
	rec   *install.Reconciler
}

// newSession resolves the target disk and builds the full collaborator
// set. plan decides partition numbering; non-destructive commands pass
// install.DefaultLayout().
func (ctx *GlobalContext) newSession(cfg install.Config, plan install.PartitionPlan) (*session, error) {
	disk, err := device.Resolve(ctx.Executor, cfg.Disk)
	if err != nil {
		return nil, err
	}

	fs := device.NewFS(ctx.Executor)
	crypt := device.NewLUKS(ctx.Executor)
	sys := install.System{
		Devices: device.NewBlockDevices(ctx.Executor),
		Crypt:   crypt,
		FS:      fs,
		Mounts:  device.NewMount(ctx.Executor),
		Base:    bootstrap.NewXBPS(ctx.Executor, cfg.Repository, cfg.Packages),
		Conf:    bootstrap.NewConfigurator(ctx.Executor, fs, disk, plan, cfg),
	}
	store := install.NewStore(cfg.CheckpointPath)

	return &session{
		cfg:   cfg,
		disk:  disk,
		plan:  plan,
		crypt: crypt,
		sys:   sys,
		store: store,
		rec:   install.NewReconciler(cfg, disk, plan, sys, store, ctx.Logger),
	}, nil
}

// setCredential binds one credential to both volume generations.
func (s *session) setCredential(auth device.AuthMethod) {
	s.crypt.SetCredential(install.RootGeneration, auth)
	s.crypt.SetCredential(install.HomeGeneration, auth)
}

func (s *session) teardown(log *ui.Logger) *install.Teardown {
	return &install.Teardown{
		Disk:   s.disk,
		Plan:   s.plan,
		Target: s.cfg.Target,
		Sys:    s.sys,
		Log:    log,
	}
}

// watchInterrupt tears down mounted and opened resources when the
// process is interrupted mid-run, then exits non-zero. Fatal step
// errors deliberately do NOT trigger this path: their partial state is
// kept for `resume` to classify.
func (ctx *GlobalContext) watchInterrupt(s *session) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-ch
		ctx.Logger.Warning("Caught %s, tearing down", sig)
		if _, err := s.teardown(ctx.Logger).Run(); err != nil {
			ctx.Logger.Error("Teardown failed: %v", err)
		}
		os.Exit(130)
	}()
}

// chooseDisk lists whole disks and prompts for a selection.
func (ctx *GlobalContext) chooseDisk() (string, error) {
	disks, err := device.ListDisks(ctx.Executor)
	if err != nil {
		return "", err
	}
	if len(disks) == 0 {
		return "", fmt.Errorf("no disks found")
	}

	fmt.Fprintln(os.Stderr, "Available disks:")
	for i, d := range disks {
		fmt.Fprintf(os.Stderr, "  %d) %-14s %10s  %s\n", i+1, d.Path, system.FormatSize(d.Size), d.Model)
	}
	choice := ui.PromptString("Select disk number")
	for i, d := range disks {
		if choice == fmt.Sprintf("%d", i+1) {
			return d.Path, nil
		}
	}
	return "", fmt.Errorf("invalid disk selection: %s", choice)
}

// diskFromCheckpoint returns the disk recorded in the last checkpoint.
// The checkpoint is advisory: it only saves re-typing the device path,
// all state decisions still come from live detection.
func diskFromCheckpoint(path string) string {
	cp, err := install.NewStore(path).Load()
	if err != nil || cp == nil {
		return ""
	}
	return cp.Disk
}
