package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"hlbc/internal/bcio"
	"hlbc/internal/bytecode"
	"hlbc/internal/dump"
	"hlbc/internal/interp"
	"hlbc/internal/nativehost"
	"hlbc/internal/pipeline"
	"hlbc/internal/project"
	"hlbc/internal/ui"
	"hlbc/internal/verify"
)

func newBuildCmd(flags *globalFlags) *cobra.Command {
	var entry string
	cmd := &cobra.Command{
		Use:   "build [path]",
		Short: "Read hlbc.toml and run the asm, verify, write, dump, and run stages",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := "."
			if len(args) == 1 {
				start = args[0]
			}
			return runBuild(cmd, flags, start, entry)
		},
	}
	cmd.Flags().StringVar(&entry, "entry", "Main:main", "entrypoint, as ClassPath:method")
	return cmd
}

func runBuild(cmd *cobra.Command, flags *globalFlags, start, entry string) error {
	manifestPath, ok, err := project.FindManifest(start)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("hlbc build: no %s found above %s", project.ManifestName, start)
	}
	manifest, err := project.Load(manifestPath)
	if err != nil {
		return err
	}
	root := filepath.Dir(manifestPath)
	entryPath := filepath.Join(root, manifest.Module.Entry)
	outputPath := filepath.Join(root, manifest.Module.Output)

	registry := nativehost.Standard()
	if len(manifest.Natives.Search) > 0 {
		dirs := make([]string, len(manifest.Natives.Search))
		for i, d := range manifest.Natives.Search {
			dirs[i] = filepath.Join(root, d)
		}
		if err := nativehost.ValidateSearchPaths(context.Background(), registry, dirs); err != nil {
			return reportErr(flags, err)
		}
	}

	src, err := os.ReadFile(entryPath)
	if err != nil {
		return fmt.Errorf("hlbc build: reading %s: %w", entryPath, err)
	}
	digest := project.HashBytes(src)
	cache := bcio.NewCache(filepath.Join(root, ".hlbc-cache"))

	var mod *bytecode.Module
	var encoded []byte
	if cached, ok := cache.Load(digest); ok {
		mod, err = bcio.Decode(cached)
		if err != nil {
			return reportErr(flags, err)
		}
		encoded = cached
		if !flags.quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "cache hit for %s\n", entryPath)
		}
	} else {
		interactive := !flags.quiet && term.IsTerminal(int(os.Stdout.Fd()))
		mod, encoded, err = runPipeline(cmd, flags, entryPath, entry, interactive)
		if err != nil {
			return reportErr(flags, err)
		}
		if err := cache.Store(digest, encoded); err != nil {
			return fmt.Errorf("hlbc build: caching %s: %w", entryPath, err)
		}
	}

	if err := os.WriteFile(outputPath, encoded, 0o644); err != nil {
		return fmt.Errorf("hlbc build: writing %s: %w", outputPath, err)
	}

	if !flags.quiet {
		fmt.Fprint(cmd.OutOrStdout(), dump.String(mod))
	}

	result, err := interp.Run(mod, registry.Loader())
	if err != nil {
		return reportErr(flags, err)
	}
	if !flags.quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "=> %s\n", result.String())
	}
	return nil
}

// runPipeline drives the asm -> verify -> write stages for a single
// entry file, reporting pipeline.Event progress on events. When
// interactive is set, a bubbletea progress model consumes the events on
// the terminal; otherwise they are drained silently and the result is
// returned once the pipeline finishes.
func runPipeline(cmd *cobra.Command, flags *globalFlags, entryPath, entry string, interactive bool) (*bytecode.Module, []byte, error) {
	events := make(chan pipeline.Event, 8)
	type outcome struct {
		mod     *bytecode.Module
		encoded []byte
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		mod, encoded, err := assembleAndEncode(entryPath, entry, flags, events)
		done <- outcome{mod: mod, encoded: encoded, err: err}
		close(events)
	}()

	if interactive {
		p := tea.NewProgram(ui.NewProgressModel("build", []string{entryPath}, events))
		if _, err := p.Run(); err != nil {
			return nil, nil, fmt.Errorf("hlbc build: progress UI: %w", err)
		}
	} else {
		for range events {
		}
	}

	o := <-done
	return o.mod, o.encoded, o.err
}

func assembleAndEncode(entryPath, entry string, flags *globalFlags, events chan<- pipeline.Event) (*bytecode.Module, []byte, error) {
	events <- pipeline.Event{File: entryPath, Stage: pipeline.StageAsm, Status: pipeline.StatusWorking}
	mod, err := assembleFile(entryPath, entry, flags)
	if err != nil {
		events <- pipeline.Event{File: entryPath, Stage: pipeline.StageAsm, Status: pipeline.StatusError, Err: err}
		return nil, nil, err
	}

	events <- pipeline.Event{File: entryPath, Stage: pipeline.StageVerify, Status: pipeline.StatusWorking}
	if err := verify.Module(mod); err != nil {
		events <- pipeline.Event{File: entryPath, Stage: pipeline.StageVerify, Status: pipeline.StatusError, Err: err}
		return nil, nil, err
	}

	events <- pipeline.Event{File: entryPath, Stage: pipeline.StageWrite, Status: pipeline.StatusWorking}
	encoded, err := bcio.Encode(mod)
	if err != nil {
		events <- pipeline.Event{File: entryPath, Stage: pipeline.StageWrite, Status: pipeline.StatusError, Err: err}
		return nil, nil, err
	}
	events <- pipeline.Event{File: entryPath, Stage: pipeline.StageWrite, Status: pipeline.StatusDone}
	return mod, encoded, nil
}
