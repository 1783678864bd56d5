package generator

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"sort"
	"sync"
	"testing"
)

const runtimeStub = `package fieldoffsets

type Field struct {
	Name   string
	Offset uintptr
}
`

var (
	runtimeOnce sync.Once
	runtimePkg  *types.Package
	runtimeErr  error
)

// testImporter resolves unsafe and a stub of the runtime package so sources
// can be type-checked without the go command.
type testImporter struct{}

func (testImporter) Import(path string) (*types.Package, error) {
	switch path {
	case "unsafe":
		return types.Unsafe, nil
	case RuntimePath:
		runtimeOnce.Do(func() {
			fset := token.NewFileSet()
			f, err := parser.ParseFile(fset, "field.go", runtimeStub, 0)
			if err != nil {
				runtimeErr = err
				return
			}
			var conf types.Config
			runtimePkg, runtimeErr = conf.Check(RuntimePath, fset, []*ast.File{f}, nil)
		})
		return runtimePkg, runtimeErr
	}
	return nil, fmt.Errorf("unexpected import %q", path)
}

// checkSource type-checks files (name -> source) as one package and returns
// it with the recorded type info.
func checkSource(pkgPath string, files map[string]string) (*Package, *types.Info, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	fset := token.NewFileSet()
	var parsed []*ast.File
	for _, name := range names {
		f, err := parser.ParseFile(fset, name, files[name], parser.ParseComments)
		if err != nil {
			return nil, nil, err
		}
		parsed = append(parsed, f)
	}

	info := &types.Info{
		Types: make(map[ast.Expr]types.TypeAndValue),
		Defs:  make(map[*ast.Ident]types.Object),
	}
	conf := types.Config{
		Importer: testImporter{},
		Sizes:    types.SizesFor("gc", "amd64"),
	}
	tpkg, err := conf.Check(pkgPath, fset, parsed, info)
	if err != nil {
		return nil, nil, err
	}
	return &Package{
		Name:    tpkg.Name(),
		PkgPath: pkgPath,
		Dir:     "/src/" + tpkg.Name(),
		Fset:    fset,
		Files:   parsed,
		Types:   tpkg,
	}, info, nil
}

func mustCheck(t *testing.T, files map[string]string) *Package {
	t.Helper()
	pkg, _, err := checkSource("example.com/ffi", files)
	if err != nil {
		t.Fatalf("type-check: %v", err)
	}
	return pkg
}
