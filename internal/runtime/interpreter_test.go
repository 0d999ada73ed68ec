package runtime

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"treelox/internal/ast"
	"treelox/internal/diag"
	"treelox/internal/lexer"
	"treelox/internal/parser"
	"treelox/internal/resolver"
)

func parseSource(t *testing.T, source string) *ast.File {
	t.Helper()
	tokens, lexDiags := lexer.New(source).Tokenize()
	if len(lexDiags) > 0 {
		t.Fatalf("lex errors: %v", diag.List(lexDiags))
	}
	file, parseDiags := parser.New(tokens).ParseFile()
	if len(parseDiags) > 0 {
		t.Fatalf("parse errors: %v", diag.List(parseDiags))
	}
	return file
}

// runSource parses and executes source code, returning captured stdout and any error.
func runSource(t *testing.T, source string, opts ...Option) (string, error) {
	t.Helper()
	file := parseSource(t, source)

	var buf bytes.Buffer
	interp := NewInterpreter(&buf, opts...)
	err := interp.Run(file)
	return buf.String(), err
}

func expectOutput(t *testing.T, source, expected string) {
	t.Helper()
	out, err := runSource(t, source)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if strings.TrimRight(out, "\n") != strings.TrimRight(expected, "\n") {
		t.Errorf("output mismatch:\nexpected: %q\ngot:      %q", expected, out)
	}
}

func expectError(t *testing.T, source string, kind error) string {
	t.Helper()
	out, err := runSource(t, source)
	if err == nil {
		t.Fatalf("expected %v, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Errorf("expected %v, got: %v", kind, err)
	}
	return out
}

// ---- Printing ----

func TestPrintFormatting(t *testing.T) {
	tests := []struct {
		source   string
		expected string
	}{
		{`print 42;`, "42"},
		{`print 1 / 2;`, "0.5"},
		{`print 10 / 4;`, "2.5"},
		{`print 10 / 3;`, "3.3333333333333335"},
		{`print -0.25;`, "-0.25"},
		{`print 1 / 0;`, "inf"},
		{`print -1 / 0;`, "-inf"},
		{`print 0 / 0;`, "NaN"},
		{`print "hello";`, `"hello"`},
		{`print true;`, "true"},
		{`print false;`, "false"},
		{`print nil;`, "Nil"},
		{`fn f() {} print f;`, "<fn f>"},
		{`print clock;`, "<native fn clock>"},
		{`class C {} print C;`, "<class C>"},
		{`class C {} print C();`, "<C instance>"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			expectOutput(t, tt.source, tt.expected+"\n")
		})
	}
}

// ---- Operators ----

func TestArithmetic(t *testing.T) {
	expectOutput(t, `print 1 + 2 * 3;`, "7\n")
	expectOutput(t, `print (1 + 2) * 3;`, "9\n")
	expectOutput(t, `print 7 - 10;`, "-3\n")
	expectOutput(t, `print "con" + "cat";`, "\"concat\"\n")
}

func TestComparisonAndEquality(t *testing.T) {
	expectOutput(t, `print 1 < 2; print 2 <= 2; print 3 > 4; print 4 >= 5;`, "true\ntrue\nfalse\nfalse\n")
	expectOutput(t, `print 1 == 1; print 1 == "1"; print nil == nil; print nil == false;`, "true\nfalse\ntrue\nfalse\n")
	expectOutput(t, `print "a" == "a"; print "a" != "b"; print true != false;`, "true\ntrue\ntrue\n")
	expectOutput(t, `fn f() {} fn g() {} print f == f; print f == g;`, "true\nfalse\n")
	expectOutput(t, `class C {} var a = C(); var b = C(); print a == a; print a == b; print C == C;`, "true\nfalse\ntrue\n")
}

func TestMismatchedTypes(t *testing.T) {
	tests := []string{
		`print 1 + "a";`,
		`print "a" - "b";`,
		`print "a" < "b";`,
		`print -"a";`,
		`print nil * 2;`,
		`print true + true;`,
		`1();`,
		`"f"();`,
	}
	for _, source := range tests {
		t.Run(source, func(t *testing.T) {
			expectError(t, source, ErrMismatchedType)
		})
	}
}

func TestTruthiness(t *testing.T) {
	expectOutput(t, `
if 0 { print "zero"; }
if "" { print "empty"; }
if nil { print "nil"; } else { print "nil is falsy"; }
if false { print "false"; } else if true { print "else if"; }
print !nil;
print !0;
`, "\"zero\"\n\"empty\"\n\"nil is falsy\"\n\"else if\"\ntrue\nfalse\n")
}

func TestLogicalOperators(t *testing.T) {
	expectOutput(t, `print nil or "x";`, "true\n")
	expectOutput(t, `print nil || false;`, "false\n")
	expectOutput(t, `print 1 and 2;`, "true\n")
	expectOutput(t, `print 1 && nil;`, "false\n")
	// right operand is never evaluated
	expectOutput(t, `print false and missing;`, "false\n")
	expectOutput(t, `print true or missing();`, "true\n")
}

// ---- Variables and scopes ----

func TestVarDecl(t *testing.T) {
	expectOutput(t, `var x = 10; print x;`, "10\n")
	expectOutput(t, `var x; print x;`, "Nil\n")
}

func TestShadowing(t *testing.T) {
	expectOutput(t, `var x = 1; { var x = 2; print x; } print x;`, "2\n1\n")
}

func TestAssignment(t *testing.T) {
	expectOutput(t, `var x = 1; x = 2; print x;`, "2\n")
	expectOutput(t, `var a; var b; a = b = 3; print a; print b;`, "3\n3\n")
	expectOutput(t, `var x = 1; { x = 5; } print x;`, "5\n")
	expectOutput(t, `var x = 1; print x = 7;`, "7\n")
}

func TestUndefinedVariable(t *testing.T) {
	expectError(t, `print y;`, ErrUndefined)
	expectError(t, `y = 1;`, ErrUndefined)
	expectError(t, `fn f() { return z; } f();`, ErrUndefined)
}

func TestGlobalRedeclaration(t *testing.T) {
	out := expectError(t, `var a = 1; print a; var a = 2; print a;`, ErrDuplicateDeclaration)
	if out != "1\n" {
		t.Errorf("expected execution to stop at the redeclaration, got %q", out)
	}
}

func TestLateGlobalIsVisibleToEarlierFunction(t *testing.T) {
	expectOutput(t, `
fn show() { print later; }
var later = "defined after";
show();
`, "\"defined after\"\n")
}

// ---- Functions and closures ----

func TestFunctionCall(t *testing.T) {
	expectOutput(t, `fn add(a, b) { return a + b; } print add(1, 2);`, "3\n")
	expectOutput(t, `fn noReturn() {} print noReturn();`, "Nil\n")
	expectOutput(t, `fn bare() { return; } print bare();`, "Nil\n")
}

func TestRecursion(t *testing.T) {
	expectOutput(t, `
fn fib(n) {
  if n < 2 { return n; }
  return fib(n - 1) + fib(n - 2);
}
print fib(20);
`, "6765\n")
}

func TestClosureCounter(t *testing.T) {
	expectOutput(t, `
fn makeCounter() {
  var count = 0;
  fn increment() {
    count = count + 1;
    return count;
  }
  return increment;
}
var a = makeCounter();
var b = makeCounter();
print a();
print a();
print b();
print a();
`, "1\n2\n1\n3\n")
}

func TestClosureSeesDeclarationNotLaterShadow(t *testing.T) {
	expectOutput(t, `
var name = "global";
{
  fn show() { print name; }
  show();
  var name = "block";
  show();
}
`, "\"global\"\n\"global\"\n")
}

func TestArgumentsEvaluatedInCallerScope(t *testing.T) {
	expectOutput(t, `
var a = "caller";
fn f(a, b) { return b; }
print f("param", a);
`, "\"caller\"\n")
}

func TestArgumentOrder(t *testing.T) {
	expectOutput(t, `
fn trace(v) { print v; return v; }
fn three(a, b, c) {}
three(trace(1), trace(2), trace(3));
`, "1\n2\n3\n")
}

func TestArityMismatch(t *testing.T) {
	expectError(t, `fn f(a) {} f();`, ErrWrongNumberOfArguments)
	expectError(t, `fn f(a) {} f(1, 2);`, ErrWrongNumberOfArguments)
	expectError(t, `clock(1);`, ErrWrongNumberOfArguments)
	expectError(t, `class C { init(a) {} } C();`, ErrWrongNumberOfArguments)
	expectError(t, `class C {} C(1);`, ErrWrongNumberOfArguments)
}

func TestArityCheckedBeforeArguments(t *testing.T) {
	// the argument would fail with ErrUndefined if it were evaluated
	out := expectError(t, `fn f(a) {} f(print_me, missing);`, ErrWrongNumberOfArguments)
	if out != "" {
		t.Errorf("expected no output, got %q", out)
	}
}

func TestReturnPropagatesThroughLoops(t *testing.T) {
	expectOutput(t, `
fn find(limit) {
  var k = 0;
  while true {
    {
      if k == limit { return k; }
    }
    k = k + 1;
  }
}
print find(4);
`, "4\n")
}

// ---- Classes ----

func TestClassInitAndMethod(t *testing.T) {
	expectOutput(t, `
class C {
  init(v) { self.v = v; }
  get() { return self.v; }
}
print C(5).get();
`, "5\n")
}

func TestReceiverAlias(t *testing.T) {
	expectOutput(t, `
class Box {
  init(v) { @.v = v; }
  fn get() { return @.v; }
}
print Box("at").get();
`, "\"at\"\n")
}

func TestBoundMethodKeepsReceiver(t *testing.T) {
	expectOutput(t, `
class C {
  init(v) { self.v = v; }
  get() { return self.v; }
}
var a = C(1);
var b = C(2);
var m = a.get;
print m();
print b.get();
print m();
`, "1\n2\n1\n")
}

func TestInitAlwaysReturnsInstance(t *testing.T) {
	expectOutput(t, `
class Early {
  init() {
    self.ok = true;
    return 99;
  }
}
print Early();
print Early().ok;
`, "<Early instance>\ntrue\n")
}

func TestFieldsShadowMethods(t *testing.T) {
	expectOutput(t, `
class C { m() { return "method"; } }
var c = C();
print c.m();
c.m = "field";
print c.m;
`, "\"method\"\n\"field\"\n")
}

func TestSetYieldsNilAndOverwrites(t *testing.T) {
	expectOutput(t, `
class C {}
var c = C();
print c.x = 1;
c.x = 2;
print c.x;
`, "Nil\n2\n")
}

func TestMethodClosesOverDeclarationScope(t *testing.T) {
	expectOutput(t, `
fn makeGreeter(greeting) {
  class Greeter {
    greet(who) { return greeting + ", " + who; }
  }
  return Greeter;
}
print makeGreeter("hello")().greet("world");
`, "\"hello, world\"\n")
}

func TestMethodCallsOtherMethod(t *testing.T) {
	expectOutput(t, `
class Counter {
  init() { self.n = 0; }
  inc() { self.n = self.n + 1; return self; }
  twice() { return self.inc().inc(); }
}
print Counter().twice().n;
`, "2\n")
}

func TestNestedFunctionInMethodSeesReceiver(t *testing.T) {
	expectOutput(t, `
class C {
  init() { self.v = "inner"; }
  make() {
    fn peek() { return self.v; }
    return peek;
  }
}
print C().make()();
`, "\"inner\"\n")
}

func TestPropertyErrors(t *testing.T) {
	expectError(t, `var x = 1; print x.y;`, ErrNotForDotOperator)
	expectError(t, `var x = "s"; x.y = 1;`, ErrNotForDotOperator)
	expectError(t, `class C { m() {} } print C.m;`, ErrNotForDotOperator)
	expectError(t, `class C {} print C().missing;`, ErrNoFieldWithName)
}

func TestUnboundMethodCallFails(t *testing.T) {
	var buf bytes.Buffer
	interp := NewInterpreter(&buf)
	file := parseSource(t, `
class C {
  init(v) { self.v = v; }
  get() { return self.v; }
}`)
	if err := interp.Run(file); err != nil {
		t.Fatalf("runtime error: %v", err)
	}

	val, err := interp.Globals().Get("C")
	if err != nil {
		t.Fatalf("C not defined: %v", err)
	}
	cls := val.(*Class)
	get, ok := cls.FindMethod("get")
	if !ok {
		t.Fatal("method get not found")
	}

	if _, err := get.Call(interp, nil); !errors.Is(err, ErrUnboundMethod) {
		t.Fatalf("expected ErrUnboundMethod, got %v", err)
	}

	inst, err := cls.Call(interp, []Value{NumberVal(5)})
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	bound := get.Bind(inst.(*Instance))
	got, err := bound.Call(interp, nil)
	if err != nil {
		t.Fatalf("bound call: %v", err)
	}
	if got != NumberVal(5) {
		t.Errorf("expected 5, got %s", got)
	}
	if get.IsBound() {
		t.Error("Bind must not mutate the original method")
	}
}

// ---- Errors and API ----

func TestResolveErrorsStopExecution(t *testing.T) {
	for _, src := range []string{
		`print "before"; { var a = a; }`,
		`print "ran"; var a = a;`,
	} {
		out, err := runSource(t, src)
		if out != "" {
			t.Errorf("%s: expected nothing to run, got %q", src, out)
		}
		var errs resolver.Errors
		if !errors.As(err, &errs) {
			t.Fatalf("%s: expected resolver.Errors, got %T: %v", src, err, err)
		}
		if errs[0].Kind != resolver.RecursiveVariableDeclaration {
			t.Errorf("%s: expected RecursiveVariableDeclaration, got %s", src, errs[0].Kind)
		}
	}
}

func TestRuntimeErrorSpan(t *testing.T) {
	_, err := runSource(t, "var x = 1;\nprint x + nil;")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "runtime error at 2:7") {
		t.Errorf("expected location 2:7, got %v", err)
	}
}

func TestRuntimeErrorStopsFile(t *testing.T) {
	out := expectError(t, `print 1; print nil + 1; print 2;`, ErrMismatchedType)
	if out != "1\n" {
		t.Errorf("expected output to stop after the error, got %q", out)
	}
}

func TestInterpretReturnsReturnValue(t *testing.T) {
	file := parseSource(t, `return 5; print 1;`)
	var buf bytes.Buffer
	interp := NewInterpreter(&buf)

	val, err := interp.Interpret(file.Body[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != NumberVal(5) {
		t.Errorf("expected 5, got %v", val)
	}

	val, err = interp.Interpret(file.Body[1])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != nil {
		t.Errorf("expected no return value, got %v", val)
	}
}

func TestLoadAccumulatesAcrossInputs(t *testing.T) {
	var buf bytes.Buffer
	interp := NewInterpreter(&buf)

	for _, line := range []string{
		`fn makeAdder(n) { fn add(x) { return x + n; } return add; }`,
		`var add2 = makeAdder(2);`,
		`print add2(3);`,
	} {
		file := parseSource(t, line)
		distances, errs := resolver.Resolve(file.Body)
		if len(errs) > 0 {
			t.Fatalf("resolve errors: %v", resolver.Errors(errs))
		}
		interp.Load(distances)
		for _, stmt := range file.Body {
			if _, err := interp.Interpret(stmt); err != nil {
				t.Fatalf("runtime error: %v", err)
			}
		}
	}
	if buf.String() != "5\n" {
		t.Errorf("expected 5, got %q", buf.String())
	}
}

func TestClock(t *testing.T) {
	out, err := runSource(t, `print clock() >= 2000;`, WithStartTime(time.Now().Add(-3*time.Second)))
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if out != "true\n" {
		t.Errorf("expected true, got %q", out)
	}
}

func TestRegisterBuiltinsRejectsExistingName(t *testing.T) {
	env := NewEnvironment(nil)
	if err := RegisterBuiltins(env, time.Now()); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := RegisterBuiltins(env, time.Now()); !errors.Is(err, ErrDuplicateDeclaration) {
		t.Errorf("expected ErrDuplicateDeclaration, got %v", err)
	}
}

func TestDebugLogging(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := runSource(t, `fn f() { return 1; } f();`, WithLogger(logger))
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	for _, want := range []string{"msg=resolved", "msg=call", "callee=\"<fn f>\"", "msg=return"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("expected log to contain %q, got:\n%s", want, logs.String())
		}
	}
}
