package generator

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/fieldoffsets/errors"
)

// Options configures a generator run.
type Options struct {
	// Types names the struct types to generate for. Empty selects every type
	// carrying the //fieldoffsets:generate directive.
	Types []string
	// Method is the generated method name. Defaults to FieldOffsets.
	Method string
	// Output overrides the output file. Only valid for a single package.
	Output string
	// Dir is the directory patterns are resolved against.
	Dir string
	// Tags are build tags applied while loading.
	Tags []string
	// Args is recorded in the generated header.
	Args []string
	// DryRun renders without writing.
	DryRun bool
}

// Result describes the file produced for one package.
type Result struct {
	Package string
	Path    string
	Types   []string
	Source  []byte
}

// Generator runs Load, Inspect and Render over a set of packages.
type Generator struct {
	opts Options
	log  *zap.Logger
}

// New creates a generator with the given options
func New(opts Options) *Generator {
	if opts.Method == "" {
		opts.Method = DefaultMethod
	}
	return &Generator{
		opts: opts,
		log:  Logger(),
	}
}

// Run generates one file per package matching patterns. Packages are
// processed concurrently; the first error cancels the rest.
func (g *Generator) Run(ctx context.Context, patterns ...string) ([]Result, error) {
	pkgs, err := Load(ctx, LoadConfig{Dir: g.opts.Dir, Tags: g.opts.Tags}, patterns...)
	if err != nil {
		return nil, err
	}
	if g.opts.Output != "" && len(pkgs) > 1 {
		return nil, errors.InvalidInput(errors.PhaseWrite, "output file can only be set for a single package")
	}

	results := make([]Result, len(pkgs))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))

	for i, pkg := range pkgs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := g.generate(pkg)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Target is a package together with its accepted structs.
type Target struct {
	Package *Package
	Structs []*Struct
}

// Targets loads packages and returns the accepted structs of each without
// rendering anything.
func (g *Generator) Targets(ctx context.Context, patterns ...string) ([]Target, error) {
	pkgs, err := Load(ctx, LoadConfig{Dir: g.opts.Dir, Tags: g.opts.Tags}, patterns...)
	if err != nil {
		return nil, err
	}
	out := make([]Target, 0, len(pkgs))
	for _, pkg := range pkgs {
		structs, err := Inspect(pkg, g.opts.Types, g.opts.Method)
		if err != nil {
			return nil, err
		}
		out = append(out, Target{Package: pkg, Structs: structs})
	}
	return out, nil
}

func (g *Generator) generate(pkg *Package) (Result, error) {
	log := g.log.With(zap.String("pkg", pkg.PkgPath))

	structs, err := Inspect(pkg, g.opts.Types, g.opts.Method)
	if err != nil {
		return Result{}, err
	}

	src, err := Render(NewFile(pkg, structs, g.opts.Method, g.opts.Args))
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Package: pkg.PkgPath,
		Path:    g.outputPath(pkg, structs),
		Source:  src,
	}
	for _, s := range structs {
		res.Types = append(res.Types, s.Name)
	}

	if g.opts.DryRun {
		log.Debug("dry run", zap.String("output", res.Path))
		return res, nil
	}
	if err := os.WriteFile(res.Path, src, 0o644); err != nil {
		return Result{}, errors.New(errors.PhaseWrite, errors.KindInvalidData).
			Path(pkg.PkgPath).
			Detail("write %s", res.Path).
			Cause(err).
			Build()
	}
	log.Info("wrote field offsets", zap.String("output", res.Path), zap.Strings("types", res.Types))
	return res, nil
}

// outputPath follows the stringer convention: <dir>/<first type>_fieldoffsets.go.
func (g *Generator) outputPath(pkg *Package, structs []*Struct) string {
	if g.opts.Output != "" {
		return g.opts.Output
	}
	return filepath.Join(pkg.Dir, strings.ToLower(structs[0].Name)+GeneratedSuffix)
}
