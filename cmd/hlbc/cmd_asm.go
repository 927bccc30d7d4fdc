package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hlbc/internal/asm"
	"hlbc/internal/bcio"
	"hlbc/internal/bytecode"
	"hlbc/internal/compiler"
	"hlbc/internal/observ"
	"hlbc/internal/verify"
)

func newAsmCmd(flags *globalFlags) *cobra.Command {
	var output, entry string
	cmd := &cobra.Command{
		Use:   "asm <file.hla>",
		Short: "Assemble a textual IR source file into a binary module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mod, err := assembleFile(args[0], entry, flags)
			if err != nil {
				return reportErr(flags, err)
			}
			encoded, err := bcio.Encode(mod)
			if err != nil {
				return reportErr(flags, err)
			}
			out := output
			if out == "" {
				out = args[0] + "b"
			}
			if err := os.WriteFile(out, encoded, 0o644); err != nil {
				return fmt.Errorf("hlbc asm: writing %s: %w", out, err)
			}
			if !flags.quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(encoded))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path for the binary module (default: <input>b)")
	cmd.Flags().StringVar(&entry, "entry", "Main:main", "entrypoint, as ClassPath:method")
	return cmd
}

// assembleFile runs the asm -> compile -> verify pipeline shared by
// `hlbc asm` and `hlbc run`'s source-file shortcut.
func assembleFile(path, entry string, flags *globalFlags) (*bytecode.Module, error) {
	timer := observ.NewTimer()
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hlbc asm: reading %s: %w", path, err)
	}

	t := timer.Begin("parse")
	prog, err := asm.Parse(string(src))
	timer.End(t, "")
	if err != nil {
		return nil, err
	}

	t = timer.Begin("compile")
	mod, err := compiler.Compile(prog, entry)
	timer.End(t, "")
	if err != nil {
		return nil, err
	}

	t = timer.Begin("verify")
	err = verify.Module(mod)
	timer.End(t, "")
	if err != nil {
		return nil, err
	}

	if flags.timings {
		fmt.Fprint(os.Stderr, timer.Summary())
	}
	return mod, nil
}
