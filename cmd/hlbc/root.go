package main

import (
	"os"

	"github.com/spf13/cobra"

	"hlbc/internal/diagx"
	"hlbc/internal/version"
)

// globalFlags carries the persistent flags every subcommand reads.
type globalFlags struct {
	color   string
	quiet   bool
	timings bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "hlbc",
		Short:         "Assemble, verify, run, and disassemble modules for the register-based bytecode format",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&flags.color, "color", "auto", "color output: auto|on|off")
	root.PersistentFlags().BoolVarP(&flags.quiet, "quiet", "q", false, "suppress non-essential output")
	root.PersistentFlags().BoolVar(&flags.timings, "timings", false, "print phase timings to stderr")

	root.AddCommand(
		newAsmCmd(flags),
		newDumpCmd(flags),
		newRunCmd(flags),
		newBuildCmd(flags),
		newVersionCmd(),
	)
	return root
}

// colorEnabled resolves --color against stderr's TTY-ness.
func (f *globalFlags) colorEnabled() bool {
	return diagx.ResolveColor(diagx.ColorMode(f.color), os.Stderr.Fd())
}
