package generator

import (
	"bytes"
	"fmt"
	"go/format"
	"go/types"
	"strconv"
	"strings"

	"github.com/wippyai/fieldoffsets/errors"
)

// RuntimePath is the import path of the package declaring Field.
const RuntimePath = "github.com/wippyai/fieldoffsets"

// File is the input of Render: every accepted struct of one package.
type File struct {
	Package string
	PkgPath string
	Structs []*Struct
	Method  string

	// Args is recorded in the generated header, e.g. ["-type=Data"].
	Args []string

	// RuntimeName and UnsafeName are the local names of the imports. Empty
	// means the default package name.
	RuntimeName string
	UnsafeName  string
}

// NewFile prepares a File for pkg, choosing import names that do not collide
// with package-level identifiers.
func NewFile(pkg *Package, structs []*Struct, method string, args []string) *File {
	f := &File{
		Package: pkg.Name,
		PkgPath: pkg.PkgPath,
		Structs: structs,
		Method:  method,
		Args:    args,
	}
	if pkg.Types != nil {
		f.RuntimeName = importName(pkg.Types.Scope(), "fieldoffsets")
		f.UnsafeName = importName(pkg.Types.Scope(), "unsafe")
	}
	return f
}

func importName(scope *types.Scope, want string) string {
	if scope.Lookup(want) == nil {
		return ""
	}
	for i := 1; ; i++ {
		name := want + strconv.Itoa(i)
		if scope.Lookup(name) == nil {
			return name
		}
	}
}

// Render emits the gofmt'ed source of f. On a formatting failure the
// unformatted source is attached to the error as its Value.
func Render(f *File) ([]byte, error) {
	if len(f.Structs) == 0 {
		return nil, errors.InvalidInput(errors.PhaseRender, "no structs to render")
	}
	method := f.Method
	if method == "" {
		method = DefaultMethod
	}

	selfImport := f.PkgPath == RuntimePath
	runtimeName := pick(f.RuntimeName, "fieldoffsets")
	unsafeName := pick(f.UnsafeName, "unsafe")

	fieldType := runtimeName + ".Field"
	if selfImport {
		fieldType = "Field"
	}

	needUnsafe := false
	for _, s := range f.Structs {
		if len(s.Fields) > 0 {
			needUnsafe = true
			break
		}
	}

	var buf bytes.Buffer
	if len(f.Args) > 0 {
		fmt.Fprintf(&buf, "// Code generated by \"fieldoffsets %s\"; DO NOT EDIT.\n\n", strings.Join(f.Args, " "))
	} else {
		buf.WriteString("// Code generated by fieldoffsets; DO NOT EDIT.\n\n")
	}
	fmt.Fprintf(&buf, "package %s\n\n", f.Package)

	buf.WriteString("import (\n")
	if needUnsafe {
		writeImport(&buf, f.UnsafeName, "unsafe")
	}
	if !selfImport {
		if needUnsafe {
			buf.WriteByte('\n')
		}
		writeImport(&buf, f.RuntimeName, RuntimePath)
	}
	buf.WriteString(")\n")

	for _, s := range f.Structs {
		renderStruct(&buf, s, method, fieldType, unsafeName)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, errors.New(errors.PhaseRender, errors.KindInvalidData).
			Path(f.PkgPath).
			Detail("format generated source").
			Cause(err).
			Value(buf.Bytes()).
			Build()
	}
	return src, nil
}

func renderStruct(buf *bytes.Buffer, s *Struct, method, fieldType, unsafeName string) {
	recv := s.Receiver()
	n := len(s.Fields)

	fmt.Fprintf(buf, "\n// %s returns the byte offset of each named field of %s, in declaration order.\n", method, s.Name)
	fmt.Fprintf(buf, "func (%s) %s() [%d]%s {\n", recv, method, n, fieldType)
	if n == 0 {
		fmt.Fprintf(buf, "\treturn [0]%s{}\n}\n", fieldType)
		return
	}
	fmt.Fprintf(buf, "\treturn [%d]%s{\n", n, fieldType)
	for _, field := range s.Fields {
		fmt.Fprintf(buf, "\t\t{Name: %s, Offset: %s.Offsetof(%s{}.%s)},\n",
			strconv.Quote(field.Name), unsafeName, recv, field.Name)
	}
	buf.WriteString("\t}\n}\n")
}

func writeImport(buf *bytes.Buffer, name, path string) {
	buf.WriteByte('\t')
	if name != "" {
		buf.WriteString(name)
		buf.WriteByte(' ')
	}
	buf.WriteString(strconv.Quote(path))
	buf.WriteByte('\n')
}

func pick(s, def string) string {
	if s != "" {
		return s
	}
	return def
}
