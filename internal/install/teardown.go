package install

import (
	"fmt"

	"github.com/voidnx/fortress/internal/system"
	"github.com/voidnx/fortress/internal/ui"
)

// Teardown unwinds live resources in strict reverse-dependency order:
// deactivate swap, recursively unmount the target, close the home
// volume, close the root volume. Every step probes first, so invoking
// it with nothing mounted or open is a sequence of no-ops. It runs on
// explicit request (`clean`) and on interrupt.
type Teardown struct {
	Disk   TargetDisk
	Plan   PartitionPlan
	Target string
	Sys    System
	Log    *ui.Logger
}

// Run releases everything and returns the operations it actually
// performed. The release callbacks are registered in acquisition order
// on a cleanup stack, whose LIFO execution yields the reverse
// dependency order.
func (t *Teardown) Run() ([]string, error) {
	var performed []string
	guard := system.NewCleanupStack()

	guard.Add(func() error {
		if !t.Sys.Crypt.IsOpen(MapperRoot) {
			return nil
		}
		performed = append(performed, "close "+MapperRoot)
		return t.Sys.Crypt.Close(MapperRoot)
	})
	guard.Add(func() error {
		if !t.Sys.Crypt.IsOpen(MapperHome) {
			return nil
		}
		performed = append(performed, "close "+MapperHome)
		return t.Sys.Crypt.Close(MapperHome)
	})
	guard.Add(func() error {
		if !t.Sys.Mounts.IsMounted(t.Target) {
			return nil
		}
		performed = append(performed, "unmount "+t.Target)
		return t.Sys.Mounts.UnmountRecursive(t.Target)
	})
	guard.Add(func() error {
		swapPart := t.Disk.PartitionPath(t.Plan.Number(RegionSwap))
		if swapPart == "" || !t.Sys.Mounts.SwapActive(swapPart) {
			return nil
		}
		performed = append(performed, "swapoff "+swapPart)
		return t.Sys.Mounts.SwapOff(swapPart)
	})

	if err := guard.Execute(); err != nil {
		return performed, fmt.Errorf("teardown incomplete: %w", err)
	}
	if t.Log != nil {
		if len(performed) == 0 {
			t.Log.Info("Nothing to tear down")
		} else {
			t.Log.Success("Teardown complete (%d operations)", len(performed))
		}
	}
	return performed, nil
}
