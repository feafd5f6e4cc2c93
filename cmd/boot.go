package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"rustcore-go/arch"
	"rustcore-go/boot"
	"rustcore-go/image"
	"rustcore-go/kernel"
	"rustcore-go/kernellog"
	"rustcore-go/memory"
)

var bootCmd = &cobra.Command{
	Use:   "boot [bootfs-image]",
	Short: "Run the boot handshake against the simulated CPU",
	Long: `boot drives the deterministic boot sequence: CPU bring-up, frame
allocator seeding, interrupt enable, the BOOT handshake with the init
task, and manifest validation. With no image argument it boots with an
empty bootfs, exercising the no-manifest path.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBoot,
}

var (
	bootSerialLog   string
	bootSerialPTY   bool
	bootInteractive bool
	bootTicks       int
)

func init() {
	rootCmd.AddCommand(bootCmd)

	bootCmd.Flags().StringVar(&bootSerialLog, "serial-log", "", "write the simulated serial console trace to this file")
	bootCmd.Flags().BoolVar(&bootSerialPTY, "serial-pty", false, "allocate a PTY and relay the serial trace to it once boot completes")
	bootCmd.Flags().BoolVar(&bootInteractive, "interactive", false, "put the controlling terminal in raw mode while the serial trace streams to stdout")
	bootCmd.Flags().IntVar(&bootTicks, "ticks", 3, "number of simulated timer ticks to dispatch after boot completes")
}

func runBoot(cmd *cobra.Command, args []string) error {
	logger := kernellog.Default()
	arch.ResetSerialOutput()

	k := kernel.New(logger, syntheticHandoff())
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		k.WithBootfsBytes(data)
	}

	var console *serialConsole
	if bootSerialPTY {
		c, err := newSerialConsole()
		if err != nil {
			return fmt.Errorf("allocate serial pty: %w", err)
		}
		console = c
		defer console.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "serial console at %s\n", console.SlavePath())
	}

	var restoreTerm func()
	if bootInteractive && term.IsTerminal(int(os.Stdout.Fd())) {
		state, err := term.MakeRaw(int(os.Stdout.Fd()))
		if err != nil {
			return fmt.Errorf("enter raw mode: %w", err)
		}
		restoreTerm = func() { term.Restore(int(os.Stdout.Fd()), state) }
		defer restoreTerm()
	}

	outcome := k.Boot()

	for i := 0; i < bootTicks; i++ {
		arch.DispatchTimerInterrupt()
	}
	arch.Halt()

	serial := arch.SerialOutput()
	if console != nil {
		if _, err := console.Write(serial); err != nil {
			logger.Warn("serial pty write failed", "err", err)
		}
	}
	if bootInteractive {
		os.Stdout.Write(serial)
	}
	if bootSerialLog != "" {
		if err := os.WriteFile(bootSerialLog, serial, 0644); err != nil {
			return fmt.Errorf("write serial log %s: %w", bootSerialLog, err)
		}
	}
	if restoreTerm != nil {
		restoreTerm()
		restoreTerm = nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "init task id: %d\n", outcome.InitTaskID)
	if outcome.SendBootstrapErr != nil {
		fmt.Fprintf(out, "bootstrap send: FAILED (%s)\n", outcome.SendBootstrapErr)
	} else {
		fmt.Fprintln(out, "bootstrap send: ok")
	}
	if outcome.Manifest.Error != nil {
		fmt.Fprintf(out, "manifest: invalid (%s)\n", outcome.Manifest.Error)
	} else {
		fmt.Fprintf(out, "manifest: ok, %d service(s)\n", outcome.Manifest.ServiceCount)
	}
	fmt.Fprintf(out, "ticks dispatched: %d (total %d)\n", bootTicks, arch.TimerTicks())
	fmt.Fprintf(out, "halts recorded: %d\n", arch.HaltCount())

	return nil
}

// syntheticHandoff builds a plausible handoff record sized to exactly
// cover the frame allocator's tracked window, so a CLI-driven boot run
// exercises the same usable-RAM seeding path a real loader's memory map
// would (spec.md §4.D).
func syntheticHandoff() *boot.Info {
	usableBytes := uint64(memory.TotalFrames * memory.FrameSizeBytes)
	regions := image.SyntheticMemoryMap(usableBytes)
	return image.SyntheticHandoff(regions, 0)
}
