package generator

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/tools/go/packages"

	"github.com/wippyai/fieldoffsets/errors"
)

// GeneratedSuffix is the file name suffix of every file the generator writes.
const GeneratedSuffix = "_fieldoffsets.go"

// Package is a type-checked package ready for inspection.
type Package struct {
	Name    string
	PkgPath string
	Dir     string
	Fset    *token.FileSet
	Files   []*ast.File
	Types   *types.Package
}

// LoadConfig controls how packages are loaded.
type LoadConfig struct {
	// Dir is the directory patterns are resolved against. Empty means the
	// current directory.
	Dir string
	// Tags are build tags applied while loading.
	Tags []string
}

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo

// Load type-checks the packages matching patterns.
//
// Errors located in previously generated files are ignored: a stale table
// stops compiling as soon as a field is renamed, and regenerating it is the fix.
func Load(ctx context.Context, cfg LoadConfig, patterns ...string) ([]*Package, error) {
	if len(patterns) == 0 {
		patterns = []string{"."}
	}

	log := Logger().With(zap.Strings("patterns", patterns))
	log.Debug("loading packages", zap.String("dir", cfg.Dir), zap.Strings("tags", cfg.Tags))

	pcfg := &packages.Config{
		Context: ctx,
		Mode:    loadMode,
		Dir:     cfg.Dir,
		Tests:   false,
		Logf: func(format string, args ...any) {
			log.Sugar().Debugf(format, args...)
		},
	}
	if len(cfg.Tags) > 0 {
		pcfg.BuildFlags = []string{"-tags=" + strings.Join(cfg.Tags, ",")}
	}

	pkgs, err := packages.Load(pcfg, patterns...)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "load packages")
	}
	if len(pkgs) == 0 {
		return nil, errors.NotFound(errors.PhaseLoad, "package", strings.Join(patterns, " "))
	}

	out := make([]*Package, 0, len(pkgs))
	for _, p := range pkgs {
		if err := loadError(p); err != nil {
			return nil, err
		}
		if len(p.GoFiles) == 0 {
			return nil, errors.New(errors.PhaseLoad, errors.KindNotFound).
				Path(p.PkgPath).
				Detail("no Go files").
				Build()
		}
		out = append(out, &Package{
			Name:    p.Name,
			PkgPath: p.PkgPath,
			Dir:     filepath.Dir(p.GoFiles[0]),
			Fset:    p.Fset,
			Files:   p.Syntax,
			Types:   p.Types,
		})
		log.Debug("loaded package", zap.String("pkg", p.PkgPath), zap.Int("files", len(p.Syntax)))
	}
	return out, nil
}

func loadError(p *packages.Package) error {
	var msgs []string
	for _, e := range p.Errors {
		if isGeneratedPos(e.Pos) {
			Logger().Debug("ignoring error in generated file", zap.String("pos", e.Pos), zap.String("msg", e.Msg))
			continue
		}
		msgs = append(msgs, e.Error())
	}
	if len(msgs) == 0 {
		return nil
	}
	return errors.New(errors.PhaseLoad, errors.KindInvalidData).
		Path(p.PkgPath).
		Detail("%d error(s):\n%s", len(msgs), strings.Join(msgs, "\n")).
		Build()
}

// isGeneratedPos reports whether a "file:line:col" position lies in a file
// written by this generator.
func isGeneratedPos(pos string) bool {
	return strings.Contains(pos, GeneratedSuffix+":") || isGeneratedFile(pos)
}

func isGeneratedFile(name string) bool {
	return strings.HasSuffix(name, GeneratedSuffix)
}

func (p *Package) String() string {
	return fmt.Sprintf("%s (%s)", p.PkgPath, p.Dir)
}
