package nativehost

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/sync/errgroup"

	"hlbc/internal/diagx"
)

// Declaration is one native-registration descriptor an hlbc.toml build
// expects to find satisfied, e.g. natives/log.native.toml:
//
//	name = "std@log"
//
// It names a native the compiled module will call; ValidateSearchPaths
// checks every declaration against r rather than loading code from
// disk, since native handlers are Go functions linked into this binary.
type Declaration struct {
	Name string `toml:"name"`
}

// ValidateSearchPaths walks every directory in dirs, parses each
// "*.native.toml" file found directly inside it, and checks that r has
// a handler registered for the declared name. Directories are searched
// concurrently (golang.org/x/sync/errgroup), matching how the teacher's
// driver package parallelizes independent per-file validation work at
// startup; the first unresolved-native or malformed-file error cancels
// the remaining work and is returned.
func ValidateSearchPaths(ctx context.Context, r *Registry, dirs []string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, dir := range dirs {
		dir := dir
		g.Go(func() error {
			return validateDir(ctx, r, dir)
		})
	}
	return g.Wait()
}

func validateDir(ctx context.Context, r *Registry, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("nativehost: reading search path %q: %w", dir, err)
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".native.toml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		g.Go(func() error {
			return validateFile(ctx, r, path)
		})
	}
	return g.Wait()
}

func validateFile(ctx context.Context, r *Registry, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var decl Declaration
	if _, err := toml.DecodeFile(path, &decl); err != nil {
		return fmt.Errorf("nativehost: %s: %w", path, err)
	}
	if decl.Name == "" {
		return fmt.Errorf("nativehost: %s: missing `name`", path)
	}
	if !r.Has(decl.Name) {
		return diagx.New(diagx.UnresolvedNative,
			fmt.Sprintf("%s declares native %q, which no registered handler satisfies", path, decl.Name))
	}
	return nil
}
