package parser

import (
	"testing"

	"github.com/echopoint/wgtcc/pkg/ast"
	"github.com/echopoint/wgtcc/pkg/ctypes"
)

// firstExpr returns the first expression statement of the only function
// in src.
func firstExpr(t *testing.T, src string) ast.Expr {
	t.Helper()
	unit, errs, _ := parseSrc(t, src)
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Diags)
	}
	for _, item := range unit.Items {
		def, ok := item.(*ast.FuncDef)
		if !ok {
			continue
		}
		for _, s := range def.Body.Items {
			if e, ok := s.(ast.Expr); ok {
				return e
			}
		}
	}
	t.Fatal("no expression statement found")
	return nil
}

func TestArithmeticResultTypes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want ctypes.Type
	}{
		{"int plus int", "int f(int a) { a + 1; return 0; }", ctypes.Int()},
		{"char promotes", "int f(char c) { c + c; return 0; }", ctypes.Int()},
		{"int with double", "int f(double d) { 1 + d; return 0; }", ctypes.Double()},
		{"long wins", "int f(long l) { l + 1; return 0; }", ctypes.Long()},
		{"relational is bool", "int f(int a) { a < 1; return 0; }", ctypes.Bool()},
		{"equality is bool", "int f(int a) { a == 1; return 0; }", ctypes.Bool()},
		{"logical is bool", "int f(int a) { a && 1; return 0; }", ctypes.Bool()},
		{"bitwise is int", "int f(char c) { c & 1; return 0; }", ctypes.Int()},
		{"shift keeps lhs", "int f(char c) { c << 1; return 0; }", ctypes.Char()},
		{"conditional common type", "int f(int a) { a ? 1 : 2.0; return 0; }", ctypes.Double()},
		{"comma takes rhs", "int f(int a) { a, 2.0; return 0; }", ctypes.Double()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := firstExpr(t, tt.src)
			if !ctypes.Equal(e.Type(), tt.want) {
				t.Fatalf("result type: expected %s, got %s", tt.want, e.Type())
			}
		})
	}
}

func TestPointerArithmetic(t *testing.T) {
	// pointer + integer keeps the pointer type
	e := firstExpr(t, "int f(int *p) { p + 2; return 0; }")
	if ctypes.ToPointer(e.Type()) == nil {
		t.Fatalf("p + 2 should stay a pointer, got %s", e.Type())
	}

	// integer + pointer as well
	e = firstExpr(t, "int f(int *p) { 2 + p; return 0; }")
	if ctypes.ToPointer(e.Type()) == nil {
		t.Fatalf("2 + p should stay a pointer, got %s", e.Type())
	}

	// pointer - pointer of the same pointee is an integer
	e = firstExpr(t, "int f(int *a, int *b) { a - b; return 0; }")
	if !ctypes.IsInteger(e.Type()) {
		t.Fatalf("a - b should be an integer, got %s", e.Type())
	}
}

func TestSubscriptType(t *testing.T) {
	e := firstExpr(t, "int f(int *p) { p[2]; return 0; }")
	if !ctypes.Equal(e.Type(), ctypes.Int()) {
		t.Fatalf("p[2] should have the pointee type int, got %s", e.Type())
	}

	// Arrays decay in subscript position.
	e = firstExpr(t, "int f(void) { int a[3]; a[0]; return 0; }")
	if !ctypes.Equal(e.Type(), ctypes.Int()) {
		t.Fatalf("a[0] should have type int, got %s", e.Type())
	}
}

func TestDereferenceAndAddressOf(t *testing.T) {
	e := firstExpr(t, "int f(int *p) { *p; return 0; }")
	if !ctypes.Equal(e.Type(), ctypes.Int()) {
		t.Fatalf("*p should have type int, got %s", e.Type())
	}

	e = firstExpr(t, "int f(void) { int x; &x; return 0; }")
	ptr := ctypes.ToPointer(e.Type())
	if ptr == nil || !ctypes.Equal(ptr.Base(), ctypes.Int()) {
		t.Fatalf("&x should be int*, got %s", e.Type())
	}
}

func TestCompoundAssignmentDesugaring(t *testing.T) {
	e := firstExpr(t, "int f(int a) { a += 2; return 0; }")
	assign, ok := e.(*ast.BinaryOp)
	if !ok || assign.Op != ast.OpAssign {
		t.Fatalf("a += 2 should desugar to an assignment, got %T", e)
	}
	if !assign.Compound {
		t.Fatal("the desugared assignment must be marked compound")
	}
	inner, ok := assign.Rhs.(*ast.BinaryOp)
	if !ok || inner.Op != ast.OpAdd {
		t.Fatalf("rhs should be a + 2, got %T", assign.Rhs)
	}
	if inner.Lhs != assign.Lhs {
		t.Fatal("the left side must be shared so it is evaluated once")
	}
}

func TestCastResultType(t *testing.T) {
	e := firstExpr(t, "int f(double d) { (int)d; return 0; }")
	cast, ok := e.(*ast.UnaryOp)
	if !ok || cast.Op != ast.OpCast {
		t.Fatalf("expected cast node, got %T", e)
	}
	if !ctypes.Equal(cast.Type(), ctypes.Int()) {
		t.Fatalf("(int)d should have type int, got %s", cast.Type())
	}
}

func TestCallResultType(t *testing.T) {
	e := firstExpr(t, "double g(int a); int f(void) { g(1); return 0; }")
	call, ok := e.(*ast.FuncCall)
	if !ok {
		t.Fatalf("expected call node, got %T", e)
	}
	if !ctypes.Equal(call.Type(), ctypes.Double()) {
		t.Fatalf("call should have the return type double, got %s", call.Type())
	}
}

func TestCallThroughFunctionPointer(t *testing.T) {
	e := firstExpr(t, "int f(int (*fp)(int)) { fp(1); return 0; }")
	call, ok := e.(*ast.FuncCall)
	if !ok {
		t.Fatalf("expected call node, got %T", e)
	}
	if !ctypes.Equal(call.Type(), ctypes.Int()) {
		t.Fatalf("call through pointer should return int, got %s", call.Type())
	}
}

func TestIncDecRequiresLValue(t *testing.T) {
	_, errs, _ := parseSrc(t, "int f(void) { 1++; return 0; }")
	if len(errs.Diags) != 1 {
		t.Fatalf("expected one diagnostic, got %v", errs.Diags)
	}
}

func TestFloatConstantTypes(t *testing.T) {
	e := firstExpr(t, "int f(void) { 2.5; return 0; }")
	c := e.(*ast.Constant)
	if !ctypes.Equal(c.Type(), ctypes.Double()) {
		t.Fatalf("2.5 should be double, got %s", c.Type())
	}
	if c.F != 2.5 {
		t.Fatalf("floating value parsed wrong: %g", c.F)
	}

	e = firstExpr(t, "int f(void) { 2.5f; return 0; }")
	if !ctypes.Equal(e.Type(), ctypes.Float()) {
		t.Fatalf("2.5f should be float, got %s", e.Type())
	}
}

func TestIntConstantBases(t *testing.T) {
	tests := []struct {
		src string
		val int64
	}{
		{"int f(void) { 42; return 0; }", 42},
		{"int f(void) { 0x2a; return 0; }", 42},
		{"int f(void) { 052; return 0; }", 42},
		{"int f(void) { 'a'; return 0; }", 97},
	}
	for _, tt := range tests {
		c := firstExpr(t, tt.src).(*ast.Constant)
		if c.I != tt.val {
			t.Errorf("%s: expected %d, got %d", tt.src, tt.val, c.I)
		}
	}
}

// walkExprs visits every expression reachable from a statement.
func walkExprs(s ast.Node, visit func(ast.Expr)) {
	switch n := s.(type) {
	case *ast.TranslationUnit:
		for _, item := range n.Items {
			walkExprs(item, visit)
		}
	case *ast.FuncDef:
		walkExprs(n.Body, visit)
	case *ast.CompoundStmt:
		for _, item := range n.Items {
			walkExprs(item, visit)
		}
	case *ast.IfStmt:
		walkExprs(n.Cond, visit)
		walkExprs(n.Then, visit)
		walkExprs(n.Else, visit)
	case *ast.ReturnStmt:
		walkExprs(n.Expr, visit)
	case *ast.BinaryOp:
		visit(n)
		walkExprs(n.Lhs, visit)
		walkExprs(n.Rhs, visit)
	case *ast.UnaryOp:
		visit(n)
		walkExprs(n.Operand, visit)
	case *ast.ConditionalOp:
		visit(n)
		walkExprs(n.Cond, visit)
		walkExprs(n.Then, visit)
		walkExprs(n.Else, visit)
	case *ast.FuncCall:
		visit(n)
		walkExprs(n.Designator, visit)
		for _, a := range n.Args {
			walkExprs(a, visit)
		}
	case ast.Expr:
		if n != nil {
			visit(n)
		}
	}
}

// Every expression node built by the factory carries a resolved type.
func TestEveryExpressionHasType(t *testing.T) {
	src := `
struct Point { int x; int y; };
int length(struct Point *p) { return p->x * p->x + p->y * p->y; }
int f(int n) {
	int acc = 0;
	for (int i = 0; i < n; i += 1) {
		switch (i % 3) {
		case 0: acc += i; break;
		case 1: acc -= i; break;
		default: acc = acc * 2; break;
		}
	}
	return acc > 0 ? acc : -acc;
}
`
	unit, errs, _ := parseSrc(t, src)
	if errs.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", errs.Diags)
	}
	count := 0
	walkExprs(unit, func(e ast.Expr) {
		count++
		if e.Type() == nil {
			t.Fatalf("expression %T has no type", e)
		}
	})
	if count == 0 {
		t.Fatal("walk visited no expressions")
	}
}
