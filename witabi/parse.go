package witabi

import (
	"regexp"
	"strings"

	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/fieldoffsets/errors"
)

// declPattern matches the head of a named type declaration. Bodies never
// nest braces, so the declaration ends at the next '}'.
var declPattern = regexp.MustCompile(`\b(record|enum|flags|variant)\s+(%?[a-zA-Z][a-zA-Z0-9-]*)\s*\{`)

var identPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]*$`)

// ParseRecords extracts the record, enum, flags and variant declarations from
// WIT text, in source order. Anything outside those declarations (package,
// interface and world headers, functions) is skipped. A declaration may refer
// to types declared before it.
func ParseRecords(src string) ([]*wit.TypeDef, error) {
	src = stripComments(src)
	p := &parser{defs: make(map[string]*wit.TypeDef)}

	var out []*wit.TypeDef
	for _, m := range declPattern.FindAllStringSubmatchIndex(src, -1) {
		keyword := src[m[2]:m[3]]
		name := unescape(src[m[4]:m[5]])
		end := strings.IndexByte(src[m[1]:], '}')
		if end < 0 {
			return nil, errors.InvalidData(errors.PhaseParse, []string{name}, "unterminated "+keyword)
		}
		body := src[m[1] : m[1]+end]

		if _, dup := p.defs[name]; dup {
			return nil, errors.New(errors.PhaseParse, errors.KindConflict).
				Path(name).
				Detail("%s %q declared twice", keyword, name).
				Build()
		}

		td, err := p.parseDecl(keyword, name, body)
		if err != nil {
			return nil, err
		}
		p.defs[name] = td
		out = append(out, td)
	}

	if len(out) == 0 {
		return nil, errors.InvalidInput(errors.PhaseParse, "no type declarations found in WIT text")
	}
	if ce := Logger().Check(zap.DebugLevel, "parsed WIT declarations"); ce != nil {
		names := make([]string, len(out))
		for i, td := range out {
			names[i] = *td.Name
		}
		ce.Write(zap.Strings("types", names))
	}
	return out, nil
}

// ParseRecord parses WIT text and returns its last record. Earlier
// declarations are available to it as field types.
func ParseRecord(src string) (*wit.TypeDef, error) {
	defs, err := ParseRecords(src)
	if err != nil {
		return nil, err
	}
	for i := len(defs) - 1; i >= 0; i-- {
		if _, ok := defs[i].Kind.(*wit.Record); ok {
			return defs[i], nil
		}
	}
	return nil, errors.InvalidInput(errors.PhaseParse, "no record found in WIT text")
}

// FindRecord returns the record named name from defs
func FindRecord(defs []*wit.TypeDef, name string) (*wit.TypeDef, error) {
	for _, td := range defs {
		if td.Name == nil || *td.Name != name {
			continue
		}
		if _, ok := td.Kind.(*wit.Record); !ok {
			return nil, errors.New(errors.PhaseParse, errors.KindUnsupported).
				Path(name).
				Detail("%s is a %s, not a record", name, kindName(td.Kind)).
				Build()
		}
		return td, nil
	}
	return nil, errors.NotFound(errors.PhaseParse, "record", name)
}

type parser struct {
	defs map[string]*wit.TypeDef
}

func (p *parser) parseDecl(keyword, name, body string) (*wit.TypeDef, error) {
	items := splitTopLevel(body)
	seen := make(map[string]bool, len(items))
	td := &wit.TypeDef{Name: &name}

	switch keyword {
	case "record":
		rec := &wit.Record{}
		for _, item := range items {
			fname, ftype, ok := strings.Cut(item, ":")
			if !ok {
				return nil, errors.InvalidData(errors.PhaseParse, []string{name}, "record field without type: "+item)
			}
			fname = unescape(strings.TrimSpace(fname))
			if err := checkIdent(name, fname, seen); err != nil {
				return nil, err
			}
			t, err := p.parseType(ftype)
			if err != nil {
				return nil, errors.New(errors.PhaseParse, errors.KindInvalidData).
					Path(name, fname).
					Cause(err).
					Detail("field type %s", strings.TrimSpace(ftype)).
					Build()
			}
			rec.Fields = append(rec.Fields, wit.Field{Name: fname, Type: t})
		}
		td.Kind = rec

	case "enum":
		enum := &wit.Enum{}
		for _, item := range items {
			cname := unescape(item)
			if err := checkIdent(name, cname, seen); err != nil {
				return nil, err
			}
			enum.Cases = append(enum.Cases, wit.EnumCase{Name: cname})
		}
		td.Kind = enum

	case "flags":
		flags := &wit.Flags{}
		for _, item := range items {
			fname := unescape(item)
			if err := checkIdent(name, fname, seen); err != nil {
				return nil, err
			}
			flags.Flags = append(flags.Flags, wit.Flag{Name: fname})
		}
		td.Kind = flags

	case "variant":
		variant := &wit.Variant{}
		for _, item := range items {
			cname, payload := item, ""
			if i := strings.IndexByte(item, '('); i >= 0 && strings.HasSuffix(item, ")") {
				cname, payload = item[:i], item[i+1:len(item)-1]
			}
			cname = unescape(strings.TrimSpace(cname))
			if err := checkIdent(name, cname, seen); err != nil {
				return nil, err
			}
			c := wit.Case{Name: cname}
			if strings.TrimSpace(payload) != "" {
				t, err := p.parseType(payload)
				if err != nil {
					return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "case "+cname+" of "+name)
				}
				c.Type = t
			}
			variant.Cases = append(variant.Cases, c)
		}
		td.Kind = variant
	}

	if len(items) == 0 && keyword != "record" {
		return nil, errors.InvalidData(errors.PhaseParse, []string{name}, keyword+" must have at least one case")
	}
	return td, nil
}

// parseType parses a type expression: a primitive, a generic form
// (list, option, tuple, result) or the name of an earlier declaration.
func (p *parser) parseType(s string) (wit.Type, error) {
	s = strings.TrimSpace(s)

	if head, args, ok := splitGeneric(s); ok {
		params := splitTopLevel(args)
		switch head {
		case "list":
			if len(params) != 1 {
				return nil, errors.InvalidData(errors.PhaseParse, nil, "list takes one type: "+s)
			}
			elem, err := p.parseType(params[0])
			if err != nil {
				return nil, err
			}
			return &wit.TypeDef{Kind: &wit.List{Type: elem}}, nil

		case "option":
			if len(params) != 1 {
				return nil, errors.InvalidData(errors.PhaseParse, nil, "option takes one type: "+s)
			}
			inner, err := p.parseType(params[0])
			if err != nil {
				return nil, err
			}
			return &wit.TypeDef{Kind: &wit.Option{Type: inner}}, nil

		case "tuple":
			tuple := &wit.Tuple{}
			for _, param := range params {
				t, err := p.parseType(param)
				if err != nil {
					return nil, err
				}
				tuple.Types = append(tuple.Types, t)
			}
			return &wit.TypeDef{Kind: tuple}, nil

		case "result":
			if len(params) == 0 || len(params) > 2 {
				return nil, errors.InvalidData(errors.PhaseParse, nil, "result takes one or two types: "+s)
			}
			res := &wit.Result{}
			okType, err := p.parseOptionalType(params[0])
			if err != nil {
				return nil, err
			}
			res.OK = okType
			if len(params) == 2 {
				if res.Err, err = p.parseOptionalType(params[1]); err != nil {
					return nil, err
				}
			}
			return &wit.TypeDef{Kind: res}, nil

		case "own", "borrow":
			return nil, errors.Unsupported(errors.PhaseParse, "resource handle "+s)
		}
		return nil, errors.Unsupported(errors.PhaseParse, "generic type "+head)
	}

	if s == "result" {
		return &wit.TypeDef{Kind: &wit.Result{}}, nil
	}
	if td, ok := p.defs[unescape(s)]; ok {
		return td, nil
	}

	t, err := wit.ParseType(s)
	if err != nil {
		return nil, errors.ParseFailed("type "+s, err)
	}
	if t == nil {
		return nil, errors.NotFound(errors.PhaseParse, "type", s)
	}
	return t, nil
}

// parseOptionalType treats "_" as an absent result payload
func (p *parser) parseOptionalType(s string) (wit.Type, error) {
	if strings.TrimSpace(s) == "_" {
		return nil, nil
	}
	return p.parseType(s)
}

func kindName(k wit.TypeDefKind) string {
	switch k.(type) {
	case *wit.Record:
		return "record"
	case *wit.Enum:
		return "enum"
	case *wit.Flags:
		return "flags"
	case *wit.Variant:
		return "variant"
	}
	return "type"
}

func checkIdent(decl, name string, seen map[string]bool) error {
	if !identPattern.MatchString(name) {
		return errors.InvalidData(errors.PhaseParse, []string{decl}, "invalid identifier "+name)
	}
	if seen[name] {
		return errors.Conflict(errors.PhaseParse, decl, name, "member")
	}
	seen[name] = true
	return nil
}

// splitGeneric splits "head<args>" into its parts
func splitGeneric(s string) (head, args string, ok bool) {
	open := strings.IndexByte(s, '<')
	if open <= 0 || !strings.HasSuffix(s, ">") {
		return "", "", false
	}
	return strings.TrimSpace(s[:open]), s[open+1 : len(s)-1], true
}

// splitTopLevel splits on commas outside angle brackets and parens,
// dropping empty items so trailing commas are accepted.
func splitTopLevel(s string) []string {
	var result []string
	var current strings.Builder
	depth := 0

	flush := func() {
		if str := strings.TrimSpace(current.String()); str != "" {
			result = append(result, str)
		}
		current.Reset()
	}

	for _, ch := range s {
		switch ch {
		case '<', '(':
			depth++
			current.WriteRune(ch)
		case '>', ')':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				flush()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}
	flush()

	return result
}

func stripComments(src string) string {
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		if idx := strings.Index(line, "//"); idx >= 0 {
			lines[i] = line[:idx]
		}
	}
	return strings.Join(lines, "\n")
}

// unescape drops the '%' prefix WIT uses to quote keywords as identifiers
func unescape(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "%")
}
