package parser

import (
	"os"
	"strings"
	"testing"

	"github.com/echopoint/wgtcc/pkg/ast"
	"github.com/echopoint/wgtcc/pkg/ctypes"
	"github.com/echopoint/wgtcc/pkg/diag"
	"github.com/echopoint/wgtcc/pkg/lexer"
	"gopkg.in/yaml.v3"
)

// TestSpec represents one test case from parse.yaml
type TestSpec struct {
	Name   string   `yaml:"name"`
	Input  string   `yaml:"input"`
	Errors []string `yaml:"errors"`
}

// TestFile represents the parse.yaml file structure
type TestFile struct {
	Tests []TestSpec `yaml:"tests"`
}

func parseSrc(t *testing.T, src string) (*ast.TranslationUnit, *diag.List, *Parser) {
	t.Helper()
	errs := &diag.List{}
	p := New(lexer.New(src), errs)
	unit := p.ParseTranslationUnit()
	return unit, errs, p
}

func TestParseYAML(t *testing.T) {
	data, err := os.ReadFile("../../testdata/parse.yaml")
	if err != nil {
		t.Fatalf("failed to read parse.yaml: %v", err)
	}

	var testFile TestFile
	if err := yaml.Unmarshal(data, &testFile); err != nil {
		t.Fatalf("failed to parse parse.yaml: %v", err)
	}

	for _, tc := range testFile.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			_, errs, p := parseSrc(t, tc.Input)

			if len(errs.Diags) != len(tc.Errors) {
				t.Fatalf("expected %d diagnostics, got %d: %v",
					len(tc.Errors), len(errs.Diags), errs.Diags)
			}
			for i, want := range tc.Errors {
				if !strings.Contains(errs.Diags[i].Message, want) {
					t.Errorf("diagnostic %d: expected %q in %q",
						i, want, errs.Diags[i].Message)
				}
			}
			if (len(tc.Errors) > 0) != p.Invalid() {
				t.Errorf("Invalid() = %v with %d expected errors",
					p.Invalid(), len(tc.Errors))
			}
		})
	}
}

func funcBody(t *testing.T, unit *ast.TranslationUnit, idx int) *ast.CompoundStmt {
	t.Helper()
	if idx >= len(unit.Items) {
		t.Fatalf("unit has %d items, wanted index %d", len(unit.Items), idx)
	}
	def, ok := unit.Items[idx].(*ast.FuncDef)
	if !ok {
		t.Fatalf("item %d is %T, expected *ast.FuncDef", idx, unit.Items[idx])
	}
	return def.Body
}

func TestFileScopeRedeclarationAST(t *testing.T) {
	unit, errs, _ := parseSrc(t, "int x = 3; int x = 4;")
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Diags)
	}
	if len(unit.Items) != 2 {
		t.Fatalf("expected 2 top-level items, got %d", len(unit.Items))
	}
	for i, item := range unit.Items {
		cs, ok := item.(*ast.CompoundStmt)
		if !ok || len(cs.Items) != 1 {
			t.Fatalf("item %d: expected a one-statement compound, got %T", i, item)
		}
		assign, ok := cs.Items[0].(*ast.BinaryOp)
		if !ok || assign.Op != ast.OpAssign {
			t.Fatalf("item %d: expected assignment initializer, got %T", i, cs.Items[0])
		}
	}
}

func TestStaticThenDefinitionLinkage(t *testing.T) {
	_, errs, p := parseSrc(t, "static int f(void); int f(void) { return 0; }")
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Diags)
	}
	sym := p.fileScope.Find("f")
	if sym == nil {
		t.Fatal("f not found at file scope")
	}
	if sym.Linkage() != ast.LinkInternal {
		t.Fatalf("linkage of f: expected internal, got %v", sym.Linkage())
	}
}

func TestTypedefRoundTrip(t *testing.T) {
	_, errs, p := parseSrc(t, "typedef int T; T y;")
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Diags)
	}
	tn, ok := p.fileScope.Find("T").(*ast.TypeName)
	if !ok {
		t.Fatal("T is not bound to a type name")
	}
	y := p.fileScope.Find("y")
	if y == nil {
		t.Fatal("y not found")
	}
	if !ctypes.Equal(y.Type(), tn.Type()) {
		t.Fatalf("type of y (%s) is not the type bound to T (%s)", y.Type(), tn.Type())
	}
}

func TestMemberAccessType(t *testing.T) {
	unit, errs, _ := parseSrc(t,
		"struct S; struct S* p; struct S { int a; }; int f(void) { return p->a; }")
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Diags)
	}
	body := funcBody(t, unit, 3)
	ret, ok := body.Items[0].(*ast.ReturnStmt)
	if !ok {
		t.Fatalf("expected return statement, got %T", body.Items[0])
	}
	memberRef, ok := ret.Expr.(*ast.BinaryOp)
	if !ok || memberRef.Op != ast.OpArrow {
		t.Fatalf("expected '->' node, got %T", ret.Expr)
	}
	if !ctypes.Equal(memberRef.Type(), ctypes.Int()) {
		t.Fatalf("p->a should have type int, got %s", memberRef.Type())
	}
	if memberRef.Member == nil || memberRef.Member.Name != "a" {
		t.Fatal("member reference was not resolved to 'a'")
	}
	if memberRef.Rhs == nil {
		t.Fatal("member reference rhs was not filled by the checker")
	}
}

func TestEnumeratorsAreConstants(t *testing.T) {
	_, errs, p := parseSrc(t, "enum Color { RED, GREEN = 5, BLUE };")
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Diags)
	}
	blue, ok := p.fileScope.Find("BLUE").(*ast.Constant)
	if !ok {
		t.Fatal("BLUE is not a constant in the ordinary namespace")
	}
	if blue.I != 6 {
		t.Fatalf("BLUE: expected 6, got %d", blue.I)
	}
	red, _ := p.fileScope.Find("RED").(*ast.Constant)
	if red == nil || red.I != 0 {
		t.Fatal("RED should be the constant 0")
	}
}

func TestSizeofEqualsWidth(t *testing.T) {
	unit, errs, _ := parseSrc(t,
		"struct P { char c; int x; }; int f(void) { return sizeof(struct P); }")
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Diags)
	}
	body := funcBody(t, unit, 1)
	ret := body.Items[0].(*ast.ReturnStmt)
	c, ok := ret.Expr.(*ast.Constant)
	if !ok {
		t.Fatalf("sizeof should fold to a constant, got %T", ret.Expr)
	}
	if c.I != 8 {
		t.Fatalf("sizeof(struct P): expected 8, got %d", c.I)
	}
	if !ctypes.Equal(c.Type(), ctypes.ULong()) {
		t.Fatalf("sizeof should have type unsigned long, got %s", c.Type())
	}
}

func TestSizeofBasicTypes(t *testing.T) {
	tests := []struct {
		expr  string
		width int64
	}{
		{"sizeof(char)", 1},
		{"sizeof(int)", 4},
		{"sizeof(long)", 8},
		{"sizeof(double)", 8},
		{"sizeof(int*)", 8},
		{"sizeof(int[10])", 40},
		{"_Alignof(double)", 8},
	}

	for _, tt := range tests {
		unit, errs, _ := parseSrc(t, "long f(void) { return "+tt.expr+"; }")
		if errs.HasErrors() {
			t.Errorf("%s: unexpected diagnostics: %v", tt.expr, errs.Diags)
			continue
		}
		ret := funcBody(t, unit, 0).Items[0].(*ast.ReturnStmt)
		c, ok := ret.Expr.(*ast.Constant)
		if !ok {
			t.Errorf("%s: expected constant, got %T", tt.expr, ret.Expr)
			continue
		}
		if c.I != tt.width {
			t.Errorf("%s: expected %d, got %d", tt.expr, tt.width, c.I)
		}
	}
}

func TestScopeDepthRestored(t *testing.T) {
	src := `
int g;
int f(int n) {
	int i;
	for (i = 0; i < n; i = i + 1) {
		while (n) {
			if (i) { n = n - 1; } else { break; }
		}
	}
	switch (n) { case 1: return 1; default: return 0; }
}
`
	_, errs, p := parseSrc(t, src)
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Diags)
	}
	if p.curScope != p.fileScope {
		t.Fatal("scope stack did not return to the file scope")
	}
}

func TestUnresolvedJumpsDrained(t *testing.T) {
	_, _, p := parseSrc(t, "int f(void) { goto late; late: return 0; }")
	if len(p.unresolvedJumps) != 0 {
		t.Fatal("unresolved jumps must be drained at function exit")
	}
}

func TestBlockExternUnifiesWithFileScope(t *testing.T) {
	_, errs, _ := parseSrc(t, "int f(void) { extern int zz; return zz; } int zz;")
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Diags)
	}

	_, errs, _ = parseSrc(t, "int f(void) { extern double zz; return 0; } int zz;")
	if len(errs.Diags) != 1 || !strings.Contains(errs.Diags[0].Message, "conflicting types") {
		t.Fatalf("expected one conflicting-types diagnostic, got %v", errs.Diags)
	}
}

func TestFunctionParamsVisibleInBody(t *testing.T) {
	_, errs, _ := parseSrc(t, "int add(int a, int b) { return a + b; }")
	if errs.HasErrors() {
		t.Fatalf("parameters must be visible in the body: %v", errs.Diags)
	}
}

func TestPrototypeScopeHasNoLinkage(t *testing.T) {
	// The parameter name of a prototype must not leak into file scope.
	_, errs, p := parseSrc(t, "int f(int inner); int g(void) { return inner; }")
	if p.fileScope.Find("inner") != nil {
		t.Fatal("prototype parameter leaked into file scope")
	}
	if len(errs.Diags) != 1 || !strings.Contains(errs.Diags[0].Message, "undefined symbol") {
		t.Fatalf("expected undefined-symbol diagnostic, got %v", errs.Diags)
	}
}

func TestDeclaratorNesting(t *testing.T) {
	// int (*fp)(void): pointer to function returning int.
	_, errs, p := parseSrc(t, "int (*fp)(void);")
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Diags)
	}
	fp := p.fileScope.Find("fp")
	ptr := ctypes.ToPointer(fp.Type())
	if ptr == nil {
		t.Fatalf("fp should be a pointer, got %s", fp.Type())
	}
	fn := ctypes.ToFunc(ptr.Base())
	if fn == nil || !ctypes.Equal(fn.Return(), ctypes.Int()) {
		t.Fatalf("fp should point to a function returning int, got %s", ptr.Base())
	}

	// int (*arr)[4]: pointer to array of 4 ints.
	_, errs, p = parseSrc(t, "int (*arr)[4];")
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Diags)
	}
	ptr = ctypes.ToPointer(p.fileScope.Find("arr").Type())
	if ptr == nil {
		t.Fatal("arr should be a pointer")
	}
	arrType := ctypes.ToArray(ptr.Base())
	if arrType == nil || arrType.Len() != 4 {
		t.Fatalf("arr should point to int[4], got %s", ptr.Base())
	}
}

func TestFunctionReturningFunctionRejected(t *testing.T) {
	_, errs, _ := parseSrc(t, "int (f(void))(void);")
	if !errs.HasErrors() {
		t.Fatal("function returning function must be diagnosed")
	}
}

func TestArrayInitializerByDesignator(t *testing.T) {
	unit, errs, _ := parseSrc(t, "int a[4] = {[2] = 5, 7};")
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Diags)
	}
	decl := unit.Items[0].(*ast.CompoundStmt)
	inits, ok := decl.Items[0].(*ast.CompoundStmt)
	if !ok || len(inits.Items) != 2 {
		t.Fatalf("expected 2 element initializers, got %+v", decl.Items[0])
	}
	first := inits.Items[0].(*ast.BinaryOp)
	elem := first.Lhs.(*ast.Object)
	if elem.Offset != 8 {
		t.Fatalf("designated element offset: expected 8, got %d", elem.Offset)
	}
	second := inits.Items[1].(*ast.BinaryOp)
	if second.Lhs.(*ast.Object).Offset != 0 {
		t.Fatalf("default index should fill from 0, got offset %d",
			second.Lhs.(*ast.Object).Offset)
	}
}

func TestParserReleaseResetsPools(t *testing.T) {
	_, _, p := parseSrc(t, "int f(void) { return 1 + 2; }")
	if p.pools.binaryOp.Live() == 0 {
		t.Fatal("expected live binary nodes before release")
	}
	p.Release()
	if p.pools.binaryOp.Live() != 0 {
		t.Fatal("Release must drop all pools")
	}
}
