package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voidnx/fortress/internal/install"
)

// LogCommand shows the tail of the installation log
type LogCommand struct {
	ctx *GlobalContext

	logFile string
	lines   int
}

// NewLogCommand creates the log command
func NewLogCommand(ctx *GlobalContext) *cobra.Command {
	cmd := &LogCommand{ctx: ctx}

	cobraCmd := &cobra.Command{
		Use:   "log",
		Short: "Show the installation log",
		RunE:  cmd.Run,
	}

	cobraCmd.Flags().StringVar(&cmd.logFile, "log-file", install.DefaultLogPath, "Installation log file")
	cobraCmd.Flags().IntVarP(&cmd.lines, "lines", "n", 30, "Number of lines to show")

	return cobraCmd
}

// Run executes the log command
func (c *LogCommand) Run(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(c.logFile)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("No log file at %s\n", c.logFile)
			return nil
		}
		return fmt.Errorf("failed to read log file: %w", err)
	}

	all := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	start := 0
	if len(all) > c.lines {
		start = len(all) - c.lines
	}
	for _, line := range all[start:] {
		fmt.Println(line)
	}
	return nil
}
