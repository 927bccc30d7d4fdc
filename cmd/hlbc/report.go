package main

import (
	"errors"
	"fmt"
	"os"

	"hlbc/internal/diagx"
)

// reportErr prints err to stderr, rendering it through diagx.Render when
// it carries a Diagnostic so the color/code formatting matches every
// other diagnostic the CLI prints.
func reportErr(flags *globalFlags, err error) error {
	var d diagx.Diagnostic
	if errors.As(err, &d) {
		diagx.Render(os.Stderr, []diagx.Diagnostic{d}, flags.colorEnabled())
		return fmt.Errorf("hlbc: failed")
	}
	return err
}
