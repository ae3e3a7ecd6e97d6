package extconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/formulas/internal/ast"
	"github.com/funvibe/formulas/internal/config"
	"github.com/funvibe/formulas/internal/parser"
	ts "github.com/funvibe/formulas/internal/typesystem"
)

const listYAML = `
datatypes:
  - name: List
    params: [T]
    constructors:
      - name: nil
      - name: cons
        args:
          - {destructor: head, type: T}
          - {destructor: tail, type: List(T)}
`

func TestParseConfig_ValidList(t *testing.T) {
	cfg, err := ParseConfig([]byte(listYAML), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Version != "v2" {
		t.Errorf("version = %q, want default v2", cfg.Version)
	}
	if len(cfg.Datatypes) != 1 {
		t.Fatalf("expected 1 datatype, got %d", len(cfg.Datatypes))
	}
	dt := cfg.Datatypes[0]
	if dt.Name != "List" || len(dt.Params) != 1 || dt.Params[0] != "T" {
		t.Errorf("datatype = %+v", dt)
	}
	if len(dt.Constructors) != 2 {
		t.Fatalf("expected 2 constructors, got %d", len(dt.Constructors))
	}
	cons := dt.Constructors[1]
	if cons.Name != "cons" || len(cons.Args) != 2 {
		t.Fatalf("constructor = %+v", cons)
	}
	if cons.Args[1].Destructor != "tail" || cons.Args[1].Type != "List(T)" {
		t.Errorf("args[1] = %+v", cons.Args[1])
	}
}

func TestFactory_List(t *testing.T) {
	cfg, err := ParseConfig([]byte(listYAML), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dts, err := cfg.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list := dts[0]
	if list.Destructor("head") == nil || list.Destructor("tail") == nil {
		t.Fatal("expected head and tail destructors")
	}
	if list.Constructor("nil") == nil || !list.Constructor("nil").IsBasic() {
		t.Error("expected nil to be a basic constructor")
	}

	ff, err := cfg.Factory()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := parser.ParsePredicate(ff, "l=cons(1,nil) ∧ head(l)=1", config.V2, nil)
	if res.HasErrors() {
		t.Fatalf("parse errors: %v", res.Problems)
	}

	again, err := ParseConfig([]byte(listYAML), "other.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dts2, err := again.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dts2[0] != list {
		t.Error("identical definitions should yield the same datatype")
	}
}

func TestFactory_ReferencesEarlierDatatypes(t *testing.T) {
	yaml := `
datatypes:
  - name: Pair
    params: [A, B]
    constructors:
      - name: mk
        args:
          - {destructor: fst, type: A}
          - {destructor: snd, type: B}
  - name: Tree
    params: [T]
    constructors:
      - name: leaf
      - name: node
        args:
          - {destructor: val, type: "Pair(T,ℤ)"}
          - {destructor: kids, type: "ℙ(Tree(T))"}
          - {type: "T↔BOOL"}
`
	cfg, err := ParseConfig([]byte(yaml), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dts, err := cfg.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pair, tree := dts[0], dts[1]
	node := tree.Constructor("node")
	if node.Arity() != 3 {
		t.Fatalf("node arity = %d, want 3", node.Arity())
	}
	if d := node.Destructors()[2]; d != nil {
		t.Errorf("third argument should have no destructor, got %s", d.Name())
	}

	ff, err := cfg.Factory()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := pair.Type(ts.GivenType{Name: "S"}, ts.IntegerType{})
	res := parser.ParseType(ff, "Pair(S,ℤ)", config.V2, nil)
	if res.HasErrors() {
		t.Fatalf("parse errors: %v", res.Problems)
	}
	if !ts.Equal(want, res.Type) {
		t.Errorf("type = %s, want %s", res.Type, want)
	}
}

func TestParseConfig_V1(t *testing.T) {
	yaml := `
version: v1
datatypes:
  - name: Box
    constructors:
      - name: box
        args:
          - {destructor: content, type: "ℤ"}
`
	cfg, err := ParseConfig([]byte(yaml), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LanguageVersion() != config.V1 {
		t.Errorf("version = %s, want V1", cfg.LanguageVersion())
	}
	if _, err := cfg.Factory(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "datatypes: []", "no datatypes"},
		{"bad yaml", "datatypes: [", "parsing test.yaml"},
		{"bad version", "version: v3\ndatatypes: [{name: A, constructors: [{name: a}]}]", "unknown version"},
		{"no name", "datatypes: [{constructors: [{name: a}]}]", "name is required"},
		{"no constructors", "datatypes: [{name: A}]", "at least one constructor"},
		{"duplicate", "datatypes: [{name: A, constructors: [{name: a}]}, {name: A, constructors: [{name: b}]}]", "already defined"},
		{"constructor name", "datatypes: [{name: A, constructors: [{args: [{type: ℤ}]}]}]", "constructors[0]: name is required"},
		{"argument type", "datatypes: [{name: A, constructors: [{name: a, args: [{destructor: d}]}]}]", "type is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml), "test.yaml")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
			if !strings.Contains(err.Error(), "test.yaml") {
				t.Errorf("error %q does not name the file", err)
			}
		})
	}
}

func TestFactory_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			"self with other arguments",
			"datatypes: [{name: L, params: [T], constructors: [{name: e}, {name: c, args: [{type: \"L(ℤ)\"}]}]}]",
			"own parameters",
		},
		{
			"self without arguments",
			"datatypes: [{name: L, params: [T], constructors: [{name: e}, {name: c, args: [{type: L}]}]}]",
			"needs its type parameters",
		},
		{
			"no basic constructor",
			"datatypes: [{name: S, params: [T], constructors: [{name: c, args: [{type: \"S(T)\"}]}]}]",
			"no basic constructor",
		},
		{
			"not a type",
			"datatypes: [{name: A, constructors: [{name: a, args: [{type: \"1+2\"}]}]}]",
			"not a type expression",
		},
		{
			"syntax error",
			"datatypes: [{name: A, constructors: [{name: a, args: [{type: \"ℙ(\"}]}]}]",
			"type \"ℙ(\"",
		},
		{
			"clashing constructors",
			"datatypes: [{name: A, constructors: [{name: z}]}, {name: B, constructors: [{name: z}]}]",
			"test.yaml",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseConfig([]byte(tt.yaml), "test.yaml")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			_, err = cfg.Factory()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.ExtensionFileName)
	if err := os.WriteFile(path, []byte(listYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Datatypes[0].Name != "List" {
		t.Errorf("name = %q, want List", cfg.Datatypes[0].Name)
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestFindConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	found, err := FindConfig(nested)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != "" && strings.HasPrefix(found, root) {
		t.Errorf("found %q before any file was written", found)
	}

	path := filepath.Join(root, config.ExtensionFileAltName)
	if err := os.WriteFile(path, []byte(listYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	found, err = FindConfig(nested)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != path {
		t.Errorf("found %q, want %q", found, path)
	}
}

func TestTypesOfArguments(t *testing.T) {
	cfg, err := ParseConfig([]byte(listYAML), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ff, err := cfg.Factory()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var list *ast.Datatype
	for _, e := range ff.Extensions() {
		if tc, ok := e.(*ast.TypeConstructorExtension); ok {
			list = tc.Datatype()
		}
	}
	if list == nil {
		t.Fatal("factory has no type constructor")
	}
	res := parser.ParseType(ff, "List(BOOL)", config.V2, nil)
	if res.HasErrors() {
		t.Fatalf("parse errors: %v", res.Problems)
	}
	if !ts.Equal(list.Type(ts.BooleanType{}), res.Type) {
		t.Errorf("type = %s, want List(BOOL)", res.Type)
	}
}
