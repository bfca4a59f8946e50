package install

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/voidnx/fortress/internal/system"
)

// Defaults inherited from the original fortress installer.
const (
	DefaultHostname   = "fortress"
	DefaultUsername   = "nx"
	DefaultTimezone   = "America/Sao_Paulo"
	DefaultRepository = "https://repo-default.voidlinux.org/current"
	DefaultTarget     = "/mnt"

	DefaultCheckpointPath = "/tmp/fortress.state"
	DefaultLogPath        = "/tmp/fortress.log"
)

// DefaultPackages is the base set bootstrapped into the target.
var DefaultPackages = []string{
	"base-system",
	"cryptsetup",
	"grub-x86_64-efi",
	"lvm2",
	"dracut",
	"linux",
}

// Config is the immutable per-run configuration, constructed once at
// the start of a run from flags, an optional profile, and prompts,
// then passed to every component. No ambient globals.
type Config struct {
	Disk       string
	Hostname   string
	Username   string
	Timezone   string
	Repository string
	Packages   []string

	Target         string
	CheckpointPath string
	LogPath        string

	// RecoveryKeyFile, when set, is enrolled as a second credential on
	// both volumes right after formatting.
	RecoveryKeyFile string

	// Confirmed must be set explicitly (flag or typed confirmation)
	// before any destructive entry point runs.
	Confirmed bool

	// RunID tags every checkpoint written by this invocation.
	RunID string

	// Operator size overrides, in bytes; zero selects the capacity tier.
	EFISize  uint64
	BootSize uint64
	SwapSize uint64
	RootSize uint64
}

// DefaultConfig returns a Config carrying the stock fortress defaults
// and a fresh run identifier.
func DefaultConfig() Config {
	return Config{
		Hostname:       DefaultHostname,
		Username:       DefaultUsername,
		Timezone:       DefaultTimezone,
		Repository:     DefaultRepository,
		Packages:       append([]string(nil), DefaultPackages...),
		Target:         DefaultTarget,
		CheckpointPath: DefaultCheckpointPath,
		LogPath:        DefaultLogPath,
		RunID:          uuid.NewString(),
	}
}

// Validate checks the fields every run needs. Destructive entry points
// additionally require Confirmed.
func (c Config) Validate() error {
	if c.Disk == "" {
		return fmt.Errorf("no target disk selected")
	}
	if c.Hostname == "" || c.Username == "" {
		return fmt.Errorf("hostname and username must not be empty")
	}
	if c.Target == "" {
		return fmt.Errorf("target mount point must not be empty")
	}
	return nil
}

// Plan computes the partition plan for the given capacity, honoring
// operator overrides when all four are present.
func (c Config) Plan(capacity uint64) (PartitionPlan, error) {
	if c.EFISize != 0 || c.BootSize != 0 || c.SwapSize != 0 || c.RootSize != 0 {
		if c.EFISize == 0 || c.BootSize == 0 || c.SwapSize == 0 || c.RootSize == 0 {
			return PartitionPlan{}, fmt.Errorf("size overrides require all of efi, boot, swap and root sizes")
		}
		return NewPlanWithSizes(capacity, c.EFISize, c.BootSize, c.SwapSize, c.RootSize)
	}
	return NewPlan(capacity)
}

// Profile is the optional declarative install description loaded from
// a YAML file (--profile).
type Profile struct {
	Disk       string   `yaml:"disk"`
	Hostname   string   `yaml:"hostname"`
	Username   string   `yaml:"username"`
	Timezone   string   `yaml:"timezone"`
	Repository string   `yaml:"repository"`
	Packages   []string `yaml:"packages"`
	Sizes      struct {
		EFI  string `yaml:"efi"`
		Boot string `yaml:"boot"`
		Swap string `yaml:"swap"`
		Root string `yaml:"root"`
	} `yaml:"sizes"`
}

// LoadProfile reads and parses a profile file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	return &p, nil
}

// Apply overlays non-empty profile fields onto the config.
func (c *Config) Apply(p *Profile) error {
	if p.Disk != "" {
		c.Disk = p.Disk
	}
	if p.Hostname != "" {
		c.Hostname = p.Hostname
	}
	if p.Username != "" {
		c.Username = p.Username
	}
	if p.Timezone != "" {
		c.Timezone = p.Timezone
	}
	if p.Repository != "" {
		c.Repository = p.Repository
	}
	if len(p.Packages) > 0 {
		c.Packages = append([]string(nil), p.Packages...)
	}
	for _, f := range []struct {
		raw  string
		dest *uint64
	}{
		{p.Sizes.EFI, &c.EFISize},
		{p.Sizes.Boot, &c.BootSize},
		{p.Sizes.Swap, &c.SwapSize},
		{p.Sizes.Root, &c.RootSize},
	} {
		if f.raw == "" {
			continue
		}
		size, err := system.ParseSize(f.raw)
		if err != nil {
			return fmt.Errorf("invalid size in profile: %w", err)
		}
		*f.dest = size
	}
	return nil
}
