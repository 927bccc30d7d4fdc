// Command hlbc is the external driver for the module format: a thin
// cobra CLI wrapping internal/asm, internal/compiler, internal/verify,
// internal/bcio, internal/dump, and internal/interp. It implements no
// front-end type-checking of its own (that remains out of scope) but
// exposes a small literal textual-IR assembler so a user can exercise
// the core from the command line.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
