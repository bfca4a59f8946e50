package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidnx/fortress/internal/install"
	"github.com/voidnx/fortress/internal/system"
)

func testConfigurator(t *testing.T) *Configurator {
	t.Helper()
	plan, err := install.NewPlan(64 << 30)
	require.NoError(t, err)
	cfg := install.DefaultConfig()
	cfg.Disk = "/dev/vda"
	disk := install.TargetDisk{Path: "/dev/vda", Capacity: 64 << 30}
	return NewConfigurator(system.NewExecutor(false), nil, disk, plan, cfg)
}

func TestRenderFstab(t *testing.T) {
	content := renderFstab([]fstabEntry{
		{"/dev/mapper/fortress-root", "/", "ext4", "defaults", 1},
		{"UUID=abcd-1234", "/boot/efi", "vfat", "defaults", 2},
		{"tmpfs", "/tmp", "tmpfs", "defaults,nosuid,nodev", 0},
	})

	assert.Equal(t, "# /etc/fstab: static file system information\n"+
		"/dev/mapper/fortress-root\t/\text4\tdefaults\t0 1\n"+
		"UUID=abcd-1234\t/boot/efi\tvfat\tdefaults\t0 2\n"+
		"tmpfs\t/tmp\ttmpfs\tdefaults,nosuid,nodev\t0 0\n", content)
}

func TestHasFstab(t *testing.T) {
	c := testConfigurator(t)
	root := t.TempDir()

	assert.False(t, c.HasFstab(root), "no etc directory yet")

	etc := filepath.Join(root, "etc")
	require.NoError(t, os.MkdirAll(etc, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(etc, "fstab"), nil, 0644))
	assert.False(t, c.HasFstab(root), "an empty fstab does not count as configured")

	require.NoError(t, os.WriteFile(filepath.Join(etc, "fstab"), []byte("tmpfs /tmp tmpfs defaults 0 0\n"), 0644))
	assert.True(t, c.HasFstab(root))
}

func TestEnableCryptodisk(t *testing.T) {
	c := testConfigurator(t)
	root := t.TempDir()
	path := filepath.Join(root, "etc", "default", "grub")

	require.NoError(t, c.enableCryptodisk(root))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "GRUB_ENABLE_CRYPTODISK=y\n", string(data))

	// Second call must not duplicate the line.
	require.NoError(t, c.enableCryptodisk(root))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "GRUB_ENABLE_CRYPTODISK=y\n", string(data))
}

func TestEnableCryptodiskPreservesExisting(t *testing.T) {
	c := testConfigurator(t)
	root := t.TempDir()
	dir := filepath.Join(root, "etc", "default")
	require.NoError(t, os.MkdirAll(dir, 0755))
	existing := "GRUB_TIMEOUT=5\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "grub"), []byte(existing), 0644))

	require.NoError(t, c.enableCryptodisk(root))
	data, err := os.ReadFile(filepath.Join(dir, "grub"))
	require.NoError(t, err)
	assert.Equal(t, existing+"GRUB_ENABLE_CRYPTODISK=y\n", string(data))
}
