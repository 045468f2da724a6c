package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/tsq/internal/ir"
)

// Load error codes (E001-E099)
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeDefinition  = "E007" // Malformed object, property or enum definition
)

// LoadError represents an error that occurred while loading a schema.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load reads a schema from a CUE file or a directory of CUE files.
//
// The expected layout is:
//
//	objects: Person: {
//		primaryKey: "id"
//		properties: {
//			id:      "string"
//			age:     "int"
//			owner:   "Person?"              // optional link
//			dogs:    {type: "Dog", collection: "list"}
//			address: {type: "Address", optional: true}
//			mood:    {type: "enum", enum: "Mood"}
//		}
//	}
//	objects: Address: {embedded: true, properties: {city: "string"}}
//	enums: Mood: {raw: "string", cases: ["happy", "sad"]}
//
// A property written as a bare string is its type; a trailing "?" makes it
// optional. A type that is not a primitive type name refers to an object.
// Property order is the CUE declaration order.
func Load(path string) (*Schema, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema path: %v", err)}
	}

	if !info.IsDir() {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading schema file: %v", err)}
		}
		return Parse(src, path)
	}

	files, err := findCUEFiles(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Validate(); err != nil {
		return nil, buildError(err)
	}
	return FromCUE(value)
}

// Parse compiles CUE source into a schema. filename is used for positions.
func Parse(src []byte, filename string) (*Schema, error) {
	value := cuecontext.New().CompileBytes(src, cue.Filename(filename))
	if err := value.Validate(); err != nil {
		return nil, buildError(err)
	}
	return FromCUE(value)
}

// FromCUE extracts a schema from an already-built CUE value.
func FromCUE(v cue.Value) (*Schema, error) {
	s := New()

	enumsVal := v.LookupPath(cue.ParsePath("enums"))
	if enumsVal.Exists() {
		iter, err := enumsVal.Fields()
		if err != nil {
			return nil, buildError(err)
		}
		for iter.Next() {
			e, err := parseEnum(iter.Selector().Unquoted(), iter.Value())
			if err != nil {
				return nil, err
			}
			s.Enums[e.Name] = e
		}
	}

	objectsVal := v.LookupPath(cue.ParsePath("objects"))
	if !objectsVal.Exists() {
		return nil, &LoadError{Code: ErrCodeDefinition, Message: "schema declares no objects", Pos: v.Pos()}
	}
	iter, err := objectsVal.Fields()
	if err != nil {
		return nil, buildError(err)
	}
	for iter.Next() {
		o, err := parseObject(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		s.order = append(s.order, o.Name)
		s.Objects[o.Name] = o
	}

	return s, nil
}

func parseObject(name string, v cue.Value) (*Object, error) {
	o := &Object{Name: name}

	if ev := v.LookupPath(cue.ParsePath("embedded")); ev.Exists() {
		b, err := ev.Bool()
		if err != nil {
			return nil, definitionError(ev, fmt.Sprintf("%s.embedded must be a bool", name))
		}
		o.Embedded = b
	}
	if pv := v.LookupPath(cue.ParsePath("primaryKey")); pv.Exists() {
		pk, err := pv.String()
		if err != nil {
			return nil, definitionError(pv, fmt.Sprintf("%s.primaryKey must be a string", name))
		}
		o.PrimaryKey = pk
	}

	propsVal := v.LookupPath(cue.ParsePath("properties"))
	if !propsVal.Exists() {
		return o, nil
	}
	iter, err := propsVal.Fields()
	if err != nil {
		return nil, buildError(err)
	}
	for iter.Next() {
		p, err := parseProperty(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		o.Properties = append(o.Properties, p)
	}
	return o, nil
}

func parseProperty(name string, v cue.Value) (Property, error) {
	p := Property{Name: name}
	if err := v.Err(); err != nil {
		return p, buildError(err)
	}

	// Shorthand: `age: "int"`, `owner: "Person?"`
	if v.Kind() == cue.StringKind {
		typeName, _ := v.String()
		if strings.HasSuffix(typeName, "?") {
			p.Optional = true
			typeName = strings.TrimSuffix(typeName, "?")
		}
		setType(&p, typeName)
		return p, nil
	}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	typeName, err := typeVal.String()
	if err != nil {
		return p, definitionError(v, fmt.Sprintf("property %s: type is required", name))
	}
	setType(&p, typeName)

	if ov := v.LookupPath(cue.ParsePath("objectType")); ov.Exists() {
		if p.ObjectType, err = ov.String(); err != nil {
			return p, definitionError(ov, fmt.Sprintf("property %s: objectType must be a string", name))
		}
	}
	if ev := v.LookupPath(cue.ParsePath("enum")); ev.Exists() {
		if p.Enum, err = ev.String(); err != nil {
			return p, definitionError(ev, fmt.Sprintf("property %s: enum must be a string", name))
		}
	}
	if cv := v.LookupPath(cue.ParsePath("collection")); cv.Exists() {
		cname, err := cv.String()
		kind, ok := ParseCollection(cname)
		if err != nil || !ok {
			return p, definitionError(cv, fmt.Sprintf("property %s: collection must be list, set or map", name))
		}
		p.Collection = kind
	}
	if optVal := v.LookupPath(cue.ParsePath("optional")); optVal.Exists() {
		if p.Optional, err = optVal.Bool(); err != nil {
			return p, definitionError(optVal, fmt.Sprintf("property %s: optional must be a bool", name))
		}
	}
	return p, nil
}

// setType resolves a type name. Anything that is not a primitive type name
// is treated as an object type reference.
func setType(p *Property, typeName string) {
	if t, ok := ParseType(typeName); ok {
		p.Type = t
		return
	}
	p.Type = TypeObject
	p.ObjectType = typeName
}

func parseEnum(name string, v cue.Value) (*Enum, error) {
	e := &Enum{Name: name}

	rawVal := v.LookupPath(cue.ParsePath("raw"))
	rawName, err := rawVal.String()
	if err != nil {
		return nil, definitionError(v, fmt.Sprintf("enum %s: raw is required", name))
	}
	raw, ok := ParseType(rawName)
	if !ok {
		return nil, definitionError(rawVal, fmt.Sprintf("enum %s: unknown raw type %q", name, rawName))
	}
	e.Raw = raw

	casesVal := v.LookupPath(cue.ParsePath("cases"))
	iter, err := casesVal.List()
	if err != nil {
		return nil, definitionError(v, fmt.Sprintf("enum %s: cases must be a list", name))
	}
	for iter.Next() {
		cv := iter.Value()
		switch cv.Kind() {
		case cue.IntKind:
			n, err := cv.Int64()
			if err != nil {
				return nil, buildError(err)
			}
			e.Cases = append(e.Cases, ir.Int(n))
		case cue.StringKind:
			str, _ := cv.String()
			e.Cases = append(e.Cases, ir.String(str))
		default:
			return nil, definitionError(cv, fmt.Sprintf("enum %s: cases must be ints or strings", name))
		}
	}
	return e, nil
}

func definitionError(v cue.Value, msg string) *LoadError {
	return &LoadError{Code: ErrCodeDefinition, Message: msg, Pos: v.Pos()}
}

// buildError extracts position info from CUE errors.
func buildError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: ErrCodeBuildFailed, Message: err.Error()}
	}
	first := errs[0]
	loadErr := &LoadError{Code: ErrCodeBuildFailed, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		loadErr.Pos = positions[0]
	}
	return loadErr
}

func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
