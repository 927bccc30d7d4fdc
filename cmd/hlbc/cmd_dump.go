package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hlbc/internal/bcio"
	"hlbc/internal/dump"
)

func newDumpCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <file.hlb>",
		Short: "Print the textual disassembly of a binary module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("hlbc dump: reading %s: %w", args[0], err)
			}
			mod, err := bcio.Decode(raw)
			if err != nil {
				return reportErr(flags, err)
			}
			fmt.Fprint(cmd.OutOrStdout(), dump.String(mod))
			return nil
		},
	}
}
