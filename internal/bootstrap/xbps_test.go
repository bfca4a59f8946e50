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

func TestHasBaseSystem(t *testing.T) {
	x := NewXBPS(system.NewExecutor(false), install.DefaultRepository, install.DefaultPackages)
	root := t.TempDir()

	assert.False(t, x.HasBaseSystem(root), "empty root has no base system")

	bin := filepath.Join(root, "usr", "bin")
	require.NoError(t, os.MkdirAll(bin, 0755))
	assert.False(t, x.HasBaseSystem(root), "an empty /usr/bin does not count")

	require.NoError(t, os.WriteFile(filepath.Join(bin, "sh"), []byte("#!/bin/sh\n"), 0755))
	assert.True(t, x.HasBaseSystem(root))
}
