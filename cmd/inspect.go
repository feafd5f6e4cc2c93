package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rustcore-go/bootfs"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <image>",
	Short: "Print a bootfs image's manifest summary",
	Long: `inspect reads a packed bootfs image and validates its
services.manifest the same way the init service does at boot, without
running the rest of the boot sequence.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	v := bootfs.NewView(data)
	out := cmd.OutOrStdout()

	summary := v.ValidateManifest()
	if summary.Error != nil {
		fmt.Fprintf(out, "manifest: invalid (%s)\n", summary.Error)
		return nil
	}

	fmt.Fprintf(out, "manifest: ok, %d service(s)\n", summary.ServiceCount)
	return nil
}
