package main

import (
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/voidnx/fortress/internal/cli"
	"github.com/voidnx/fortress/internal/system"
	"github.com/voidnx/fortress/internal/ui"
)

var (
	verbose bool
	quiet   bool
	noColor bool
	debug   bool

	ctx  *cli.GlobalContext
	once sync.Once
)

func main() {
	// Bare invocation runs the installation to completion.
	if len(os.Args) == 1 {
		rootCmd.SetArgs([]string{"install"})
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fortress",
	Short: "Fortress - full disk encryption installer",
	Long: `Fortress installs a fully encrypted Void Linux system: LUKS1 root
(bootloader-unlockable) plus LUKS2 home, each with its own cipher
parameters.

Progress is re-detected from the live system on every run, so the
installer can be interrupted and re-invoked at any point without
redoing or destroying completed work.`,
	Version: "1.0.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Update context components with parsed flag values
		once.Do(func() {
			ctx.Executor = system.NewExecutor(debug)
			ctx.Logger = ui.NewLogger(verbose, quiet, noColor)
		})
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (suppress non-error output)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable color output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug mode (show commands)")

	// Create initial context with default values
	// Will be updated in PersistentPreRun with parsed flag values
	ctx = cli.NewGlobalContext(false, false, false, false)

	// Register commands
	rootCmd.AddCommand(cli.NewInstallCommand(ctx))
	rootCmd.AddCommand(cli.NewResumeCommand(ctx))
	rootCmd.AddCommand(cli.NewStatusCommand(ctx))
	rootCmd.AddCommand(cli.NewOpenCommand(ctx))
	rootCmd.AddCommand(cli.NewMountCommand(ctx))
	rootCmd.AddCommand(cli.NewShellCommand(ctx))
	rootCmd.AddCommand(cli.NewCleanCommand(ctx))
	rootCmd.AddCommand(cli.NewPlanCommand(ctx))
	rootCmd.AddCommand(cli.NewLogCommand(ctx))
	rootCmd.AddCommand(cli.NewRekeyCommand(ctx))

	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
