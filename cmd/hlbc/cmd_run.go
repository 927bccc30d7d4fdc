package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hlbc/internal/bcio"
	"hlbc/internal/bytecode"
	"hlbc/internal/nativehost"
	"hlbc/internal/verify"

	"hlbc/internal/interp"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	var entry string
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Verify and interpret a module (accepts .hlb binaries or .hla textual IR)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mod, err := loadModule(args[0], entry, flags)
			if err != nil {
				return reportErr(flags, err)
			}
			// Re-verify even when the module was just assembled: running
			// untrusted .hlb files (the common case for this subcommand)
			// must not skip the check just because asm already ran it once.
			if err := verify.Module(mod); err != nil {
				return reportErr(flags, err)
			}
			result, err := interp.Run(mod, nativehost.Standard().Loader())
			if err != nil {
				return reportErr(flags, err)
			}
			if !flags.quiet {
				fmt.Fprintln(cmd.OutOrStdout(), result.String())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&entry, "entry", "Main:main", "entrypoint, as ClassPath:method (only used for .hla sources)")
	return cmd
}

// loadModule accepts either a binary .hlb module or a textual .hla
// source, dispatching on the file extension.
func loadModule(path, entry string, flags *globalFlags) (*bytecode.Module, error) {
	if strings.HasSuffix(path, ".hla") {
		return assembleFile(path, entry, flags)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hlbc run: reading %s: %w", path, err)
	}
	return bcio.Decode(raw)
}
