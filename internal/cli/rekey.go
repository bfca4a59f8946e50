package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voidnx/fortress/internal/device"
	"github.com/voidnx/fortress/internal/install"
	"github.com/voidnx/fortress/internal/system"
)

// RekeyCommand changes the credential of one encrypted volume
type RekeyCommand struct {
	ctx *GlobalContext

	disk           string
	keyfile        string
	newKeyfile     string
	checkpointFile string
}

// NewRekeyCommand creates the rekey command
func NewRekeyCommand(ctx *GlobalContext) *cobra.Command {
	cmd := &RekeyCommand{ctx: ctx}

	cobraCmd := &cobra.Command{
		Use:   "rekey <root|home>",
		Short: "Change a volume's passphrase or keyfile",
		Long: `Replace the credential on the root or home encrypted volume.

Supports all transitions:
  - Passphrase to passphrase (no flags)
  - Passphrase to keyfile (--new-keyfile only)
  - Keyfile to passphrase (--keyfile only)
  - Keyfile to keyfile (--keyfile and --new-keyfile)`,
		Args: cobra.ExactArgs(1),
		RunE: cmd.Run,
	}

	cobraCmd.Flags().StringVarP(&cmd.disk, "disk", "d", "", "Target block device (defaults to the checkpointed disk)")
	cobraCmd.Flags().StringVarP(&cmd.keyfile, "keyfile", "k", "", "Current keyfile (if not set, will prompt for current passphrase)")
	cobraCmd.Flags().StringVar(&cmd.newKeyfile, "new-keyfile", "", "New keyfile (if not set, will prompt for new passphrase)")
	cobraCmd.Flags().StringVar(&cmd.checkpointFile, "checkpoint-file", install.DefaultCheckpointPath, "Checkpoint file location")

	return cobraCmd
}

// Run executes the rekey command
func (c *RekeyCommand) Run(cmd *cobra.Command, args []string) error {
	if err := system.RequireRoot(); err != nil {
		return err
	}
	if err := c.ctx.CheckDependencies(); err != nil {
		return err
	}

	var region install.RegionName
	switch args[0] {
	case "root":
		region = install.RegionRoot
	case "home":
		region = install.RegionHome
	default:
		return fmt.Errorf("volume must be 'root' or 'home', got %q", args[0])
	}

	diskPath := c.disk
	if diskPath == "" {
		diskPath = diskFromCheckpoint(c.checkpointFile)
	}
	if diskPath == "" {
		return fmt.Errorf("no target disk known; pass --disk")
	}

	disk, err := device.Resolve(c.ctx.Executor, diskPath)
	if err != nil {
		return err
	}
	layout := install.DefaultLayout()
	partition := disk.PartitionPath(layout.Number(region))

	crypt := device.NewLUKS(c.ctx.Executor)
	if !crypt.IsFormatted(partition) {
		return fmt.Errorf("not a LUKS container: %s", partition)
	}

	c.ctx.Logger.Info("Enter current credentials for %s:", partition)
	currentAuth, err := GetAuthMethod(c.keyfile, false)
	if err != nil {
		return fmt.Errorf("failed to get current authentication: %w", err)
	}
	if pwAuth, ok := currentAuth.(*device.PasswordAuth); ok {
		defer pwAuth.Password.Zeroize()
	}

	c.ctx.Logger.Info("Enter new credentials:")
	newAuth, err := GetAuthMethod(c.newKeyfile, true)
	if err != nil {
		return fmt.Errorf("failed to get new authentication: %w", err)
	}
	if pwAuth, ok := newAuth.(*device.PasswordAuth); ok {
		defer pwAuth.Password.Zeroize()
	}

	if err := crypt.ChangeKey(partition, currentAuth, newAuth); err != nil {
		if strings.Contains(err.Error(), "No key available") {
			return fmt.Errorf("incorrect current passphrase or keyfile")
		}
		return err
	}

	c.ctx.Logger.Success("Credential changed on %s volume (%s)", args[0], partition)
	return nil
}
