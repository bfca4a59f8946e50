package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidnx/fortress/internal/install"
)

func TestSfdiskScript(t *testing.T) {
	plan, err := install.NewPlan(64 << 30)
	require.NoError(t, err)

	script := sfdiskScript(plan)

	assert.Equal(t, "label: gpt\n"+
		"size=512MiB, type=uefi, name=EFI\n"+
		"size=1024MiB, type=linux, name=BOOT\n"+
		"size=4096MiB, type=swap, name=SWAP\n"+
		"size=40960MiB, type=linux, name=ROOT\n"+
		"type=linux, name=HOME\n", script)
}

func TestSfdiskScriptSmallTier(t *testing.T) {
	plan, err := install.NewPlan(20 << 30)
	require.NoError(t, err)

	script := sfdiskScript(plan)
	assert.Contains(t, script, "size=256MiB, type=uefi, name=EFI\n")
	assert.Contains(t, script, "size=2048MiB, type=swap, name=SWAP\n")
	assert.Contains(t, script, "size=12288MiB, type=linux, name=ROOT\n")
}
