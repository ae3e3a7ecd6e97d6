// Package extconfig reads the datatype definitions of formulas.yaml files
// and turns them into a formula factory.
//
// A definition file looks like:
//
//	version: v2
//	datatypes:
//	  - name: List
//	    params: [T]
//	    constructors:
//	      - name: nil
//	      - name: cons
//	        args:
//	          - {destructor: head, type: T}
//	          - {destructor: tail, type: List(T)}
//
// Argument types are written in the formula notation. They may mention the
// type parameters, given sets, the datatype being defined (applied to its
// own parameters) and the datatypes defined earlier in the file.
package extconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/formulas/internal/ast"
	"github.com/funvibe/formulas/internal/config"
	"github.com/funvibe/formulas/internal/diagnostics"
	"github.com/funvibe/formulas/internal/parser"
	ts "github.com/funvibe/formulas/internal/typesystem"
)

// Config is the top-level content of a definition file.
type Config struct {
	// Version is the notation of the argument types, "v1" or "v2".
	// Defaults to v2.
	Version string `yaml:"version,omitempty"`

	Datatypes []Datatype `yaml:"datatypes"`

	path string
}

// Datatype is the definition of one inductive datatype.
type Datatype struct {
	Name         string        `yaml:"name"`
	Params       []string      `yaml:"params,omitempty"`
	Constructors []Constructor `yaml:"constructors"`
}

// Constructor is a value constructor with its arguments.
type Constructor struct {
	Name string     `yaml:"name"`
	Args []Argument `yaml:"args,omitempty"`
}

// Argument is one constructor argument. Destructor may be empty when the
// argument has no accessor.
type Argument struct {
	Destructor string `yaml:"destructor,omitempty"`
	Type       string `yaml:"type"`
}

// LoadConfig reads and parses a definition file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses definition file content from bytes.
// The path argument is used only for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	cfg.path = path
	return &cfg, nil
}

// FindConfig searches for formulas.yaml starting from dir and walking up
// to parent directories. It returns an empty path when there is none.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range []string{config.ExtensionFileName, config.ExtensionFileAltName} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// validate checks the configuration for structural errors. Name syntax and
// argument types are checked when the datatypes are built.
func (c *Config) validate(path string) error {
	switch c.Version {
	case "", "v1", "v2":
	default:
		return fmt.Errorf("%s: unknown version %q (want v1 or v2)", path, c.Version)
	}
	if len(c.Datatypes) == 0 {
		return fmt.Errorf("%s: no datatypes defined", path)
	}

	seen := make(map[string]int)
	for i, dt := range c.Datatypes {
		if dt.Name == "" {
			return fmt.Errorf("%s: datatypes[%d]: name is required", path, i)
		}
		if prev, ok := seen[dt.Name]; ok {
			return fmt.Errorf("%s: datatypes[%d]: %s is already defined by datatypes[%d]", path, i, dt.Name, prev)
		}
		seen[dt.Name] = i
		if len(dt.Constructors) == 0 {
			return fmt.Errorf("%s: datatype %s: at least one constructor is required", path, dt.Name)
		}
		for j, cons := range dt.Constructors {
			if cons.Name == "" {
				return fmt.Errorf("%s: datatype %s: constructors[%d]: name is required", path, dt.Name, j)
			}
			for k, arg := range cons.Args {
				if arg.Type == "" {
					return fmt.Errorf("%s: datatype %s: constructor %s: args[%d]: type is required", path, dt.Name, cons.Name, k)
				}
			}
		}
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Version == "" {
		c.Version = "v2"
	}
}

// LanguageVersion returns the notation of the argument types.
func (c *Config) LanguageVersion() config.LanguageVersion {
	if c.Version == "v1" {
		return config.V1
	}
	return config.V2
}

// Build finalises the datatypes in file order.
func (c *Config) Build() ([]*ast.Datatype, error) {
	var (
		out  []*ast.Datatype
		exts []ast.Extension
	)
	for _, def := range c.Datatypes {
		ff, err := ast.GetInstance(exts...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.path, err)
		}
		dt, err := c.build(ff, def)
		if err != nil {
			return nil, fmt.Errorf("%s: datatype %s: %w", c.path, def.Name, err)
		}
		out = append(out, dt)
		exts = append(exts, dt.Extensions()...)
	}
	return out, nil
}

// Factory returns the factory holding the extensions of every datatype of
// the file.
func (c *Config) Factory() (*ast.Factory, error) {
	dts, err := c.Build()
	if err != nil {
		return nil, err
	}
	var exts []ast.Extension
	for _, dt := range dts {
		exts = append(exts, dt.Extensions()...)
	}
	ff, err := ast.GetInstance(exts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.path, err)
	}
	return ff, nil
}

// build runs the datatype builder, turning its contract violations into
// errors.
func (c *Config) build(ff *ast.Factory, def Datatype) (dt *ast.Datatype, err error) {
	defer func() {
		if r := recover(); r != nil {
			ce, ok := r.(*ast.ContractError)
			if !ok {
				panic(r)
			}
			dt, err = nil, ce
		}
	}()

	b := ast.NewDatatypeBuilder(def.Name, def.Params...)
	for _, cons := range def.Constructors {
		cb := b.AddConstructor(cons.Name)
		for _, arg := range cons.Args {
			t, err := c.argumentType(ff, b, def, arg.Type)
			if err != nil {
				return nil, fmt.Errorf("constructor %s: %w", cons.Name, err)
			}
			cb.AddArgument(arg.Destructor, t)
		}
	}
	return b.Finalize(), nil
}

func (c *Config) argumentType(ff *ast.Factory, b *ast.DatatypeBuilder, def Datatype, text string) (ts.Type, error) {
	res := parser.ParseExpression(ff, text, c.LanguageVersion(), c.path)
	if res.HasErrors() {
		return nil, fmt.Errorf("type %q: %s", text, diagnostics.Join(res.Problems))
	}
	r := &typeReader{b: b, def: def}
	t, err := r.read(res.Formula.(ast.Expression))
	if err != nil {
		return nil, fmt.Errorf("type %q: %w", text, err)
	}
	return t, nil
}

// typeReader interprets a type expression in which the datatype being
// defined appears as an applied free identifier.
type typeReader struct {
	b   *ast.DatatypeBuilder
	def Datatype
}

func (r *typeReader) read(e ast.Expression) (ts.Type, error) {
	switch x := e.(type) {
	case *ast.FreeIdentifier:
		if x.Name() == r.def.Name {
			if len(r.def.Params) > 0 {
				return nil, fmt.Errorf("%s needs its type parameters", x.Name())
			}
			return r.b.Self(), nil
		}
	case *ast.UnaryExpression:
		if x.Tag() == ast.POW {
			base, err := r.read(x.Child())
			if err != nil {
				return nil, err
			}
			return ts.PowerSet(base), nil
		}
	case *ast.BinaryExpression:
		switch x.Tag() {
		case ast.CPROD, ast.REL:
			l, err := r.read(x.Left())
			if err != nil {
				return nil, err
			}
			rt, err := r.read(x.Right())
			if err != nil {
				return nil, err
			}
			if x.Tag() == ast.REL {
				return ts.Relation(l, rt), nil
			}
			return ts.Product(l, rt), nil
		case ast.FUNIMAGE:
			if id, ok := x.Left().(*ast.FreeIdentifier); ok && id.Name() == r.def.Name {
				return r.self(x.Right())
			}
		}
	case *ast.ExtendedExpression:
		tc, ok := x.Extension().(*ast.TypeConstructorExtension)
		if !ok {
			break
		}
		args := make([]ts.Type, len(x.ChildExpressions()))
		for i, a := range x.ChildExpressions() {
			t, err := r.read(a)
			if err != nil {
				return nil, err
			}
			args[i] = t
		}
		return tc.Datatype().Type(args...), nil
	}
	return ast.ToType(e)
}

// self checks that a recursive use passes the parameters in order.
func (r *typeReader) self(arg ast.Expression) (ts.Type, error) {
	args := maplets(arg, len(r.def.Params))
	if len(args) != len(r.def.Params) {
		return nil, fmt.Errorf("%s takes %d type parameters", r.def.Name, len(r.def.Params))
	}
	for i, a := range args {
		id, ok := a.(*ast.FreeIdentifier)
		if !ok || id.Name() != r.def.Params[i] {
			return nil, fmt.Errorf("%s must be applied to its own parameters %v", r.def.Name, r.def.Params)
		}
	}
	return r.b.Self(), nil
}

// maplets splits a ↦ b ↦ c, the form of several application arguments,
// into at most n operands.
func maplets(e ast.Expression, n int) []ast.Expression {
	if n <= 1 {
		return []ast.Expression{e}
	}
	if m, ok := e.(*ast.BinaryExpression); ok && m.Tag() == ast.MAPSTO {
		return append(maplets(m.Left(), n-1), m.Right())
	}
	return []ast.Expression{e}
}
