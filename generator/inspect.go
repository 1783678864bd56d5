package generator

import (
	"go/ast"
	"go/token"
	"go/types"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/fieldoffsets/errors"
)

// Directive marks a struct declaration for generation when no explicit type
// names are given.
const Directive = "//fieldoffsets:generate"

// DefaultMethod is the name of the generated method.
const DefaultMethod = "FieldOffsets"

// Struct is one accepted struct declaration.
type Struct struct {
	Name       string
	TypeParams []string
	Fields     []FieldInfo
	Pos        token.Position

	// Underlying is the type-checked struct the fields were read from.
	Underlying *types.Struct
}

// FieldInfo describes one named field, in declaration order.
type FieldInfo struct {
	Name     string
	Type     string // relative to the declaring package
	Embedded bool
	Exported bool
}

// Receiver returns the receiver type expression, e.g. "Pair[K, V]".
func (s *Struct) Receiver() string {
	if len(s.TypeParams) == 0 {
		return s.Name
	}
	return s.Name + "[" + strings.Join(s.TypeParams, ", ") + "]"
}

// Inspect selects the target declarations of pkg and validates each one.
// method is the name the generated method will take; it is checked for
// collisions with existing fields and methods.
func Inspect(pkg *Package, names []string, method string) ([]*Struct, error) {
	if method == "" {
		method = DefaultMethod
	}
	if !token.IsIdentifier(method) {
		return nil, errors.InvalidInput(errors.PhaseInspect, "method name "+method+" is not an identifier")
	}

	log := Logger().With(zap.String("pkg", pkg.PkgPath))

	targets := dedupe(names)
	if len(targets) == 0 {
		targets = directiveTargets(pkg.Files)
		log.Debug("using directive targets", zap.Strings("types", targets))
	}
	if len(targets) == 0 {
		return nil, errors.New(errors.PhaseInspect, errors.KindInvalidInput).
			Path(pkg.PkgPath).
			Detail("no types named and no %s directive found", Directive).
			Build()
	}

	structs := make([]*Struct, 0, len(targets))
	for _, name := range targets {
		s, err := inspectType(pkg, name, method)
		if err != nil {
			return nil, err
		}
		log.Debug("accepted struct", zap.String("type", s.Name), zap.Int("fields", len(s.Fields)))
		structs = append(structs, s)
	}
	return structs, nil
}

func inspectType(pkg *Package, name, method string) (*Struct, error) {
	obj := pkg.Types.Scope().Lookup(name)
	if obj == nil {
		return nil, errors.NotFound(errors.PhaseInspect, "type", name)
	}
	tn, ok := obj.(*types.TypeName)
	if !ok {
		return nil, errors.New(errors.PhaseInspect, errors.KindUnsupported).
			Path(name).
			Detail("%s is a %s, not a type", name, objectKind(obj)).
			Build()
	}
	if tn.IsAlias() {
		return nil, errors.NotStruct(errors.PhaseInspect, name, "alias of "+types.TypeString(types.Unalias(tn.Type()), types.RelativeTo(pkg.Types)))
	}

	named, ok := tn.Type().(*types.Named)
	if !ok {
		return nil, errors.NotStruct(errors.PhaseInspect, name, types.TypeString(tn.Type(), nil))
	}
	st, ok := named.Underlying().(*types.Struct)
	if !ok {
		return nil, errors.NotStruct(errors.PhaseInspect, name, describe(named.Underlying()))
	}

	s := &Struct{
		Name:       name,
		Pos:        pkg.Fset.Position(tn.Pos()),
		Underlying: st,
	}
	s.TypeParams = receiverParams(name, named.TypeParams())

	qual := types.RelativeTo(pkg.Types)
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		typ := types.TypeString(f.Type(), qual)
		if f.Name() == "_" {
			return nil, errors.UnnamedField(errors.PhaseInspect, name, i, typ)
		}
		if f.Name() == method {
			return nil, errors.Conflict(errors.PhaseInspect, name, method, "field")
		}
		s.Fields = append(s.Fields, FieldInfo{
			Name:     f.Name(),
			Type:     typ,
			Embedded: f.Embedded(),
			Exported: f.Exported(),
		})
	}

	for i := 0; i < named.NumMethods(); i++ {
		m := named.Method(i)
		if m.Name() != method {
			continue
		}
		if isGeneratedFile(pkg.Fset.Position(m.Pos()).Filename) {
			continue
		}
		return nil, errors.Conflict(errors.PhaseInspect, name, method, "method")
	}

	return s, nil
}

// receiverParams names the type parameters of the generated receiver. Blank
// parameters cannot be referenced in the composite literal passed to
// unsafe.Offsetof, so they get fresh names (_T0, _T1, ...) that collide with
// neither the other parameters nor the type itself.
func receiverParams(typeName string, tps *types.TypeParamList) []string {
	if tps.Len() == 0 {
		return nil
	}
	taken := map[string]bool{typeName: true}
	for i := range tps.Len() {
		taken[tps.At(i).Obj().Name()] = true
	}

	out := make([]string, tps.Len())
	next := 0
	for i := range tps.Len() {
		name := tps.At(i).Obj().Name()
		for name == "_" {
			cand := "_T" + strconv.Itoa(next)
			next++
			if !taken[cand] {
				name = cand
				taken[cand] = true
			}
		}
		out[i] = name
	}
	return out
}

// directiveTargets returns the names of type specs carrying Directive, in
// source order.
func directiveTargets(files []*ast.File) []string {
	var names []string
	for _, f := range files {
		for _, decl := range f.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, spec := range gd.Specs {
				ts := spec.(*ast.TypeSpec)
				doc := ts.Doc
				if doc == nil && len(gd.Specs) == 1 {
					doc = gd.Doc
				}
				if hasDirective(doc) {
					names = append(names, ts.Name.Name)
				}
			}
		}
	}
	return names
}

// hasDirective scans the raw comment list; CommentGroup.Text drops directives.
func hasDirective(doc *ast.CommentGroup) bool {
	if doc == nil {
		return false
	}
	for _, c := range doc.List {
		if strings.TrimSpace(c.Text) == Directive {
			return true
		}
	}
	return false
}

func describe(t types.Type) string {
	switch u := t.(type) {
	case *types.Interface:
		if !u.IsMethodSet() {
			return "type-set constraint (union)"
		}
		return "interface"
	case *types.Basic:
		return "named basic type " + u.Name()
	case *types.Pointer:
		return "pointer"
	case *types.Slice:
		return "slice"
	case *types.Array:
		return "array"
	case *types.Map:
		return "map"
	case *types.Chan:
		return "chan"
	case *types.Signature:
		return "func"
	default:
		return types.TypeString(t, nil)
	}
}

func objectKind(obj types.Object) string {
	switch obj.(type) {
	case *types.Const:
		return "constant"
	case *types.Var:
		return "variable"
	case *types.Func:
		return "function"
	default:
		return "non-type object"
	}
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
