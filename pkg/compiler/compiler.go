// Package compiler lowers a pkg/ast.Program into a pkg/bytecode.Program: a
// flat queue of tuples with every jump target resolved to a concrete
// index. Lowering happens in two steps, mirroring how the front end has
// always separated concerns:
//
//  1. Compile walks the AST once, emitting tuples in order and creating a
//     symbolic bytecode.Address for every forward jump target (an else
//     branch, a loop exit). Addresses referenced before their target is
//     known are resolved the moment that target's first tuple is emitted.
//  2. Once the walk finishes, every Address must be resolved; Compile treats
//     an unresolved Address as a compiler bug, not a user error, and
//     panics rather than emitting a corrupt program.
package compiler

import (
	"fmt"

	"github.com/tawk-lang/tawk/pkg/ast"
	"github.com/tawk-lang/tawk/pkg/bytecode"
)

// Compiler holds the tuple queue under construction plus the bookkeeping
// needed to resolve local-variable slots and loop control targets.
type Compiler struct {
	tuples []bytecode.Tuple
	fns    map[string]*bytecode.FunctionDef

	curFunc   *ast.FunctionDef
	localSlot map[string]int

	loopStack []loopCtx
	rangeID   int
	line      int
}

type loopCtx struct {
	breakAddr, continueAddr *bytecode.Address
}

// CompileError wraps a lowering failure (e.g. break/continue outside a
// loop) with the source line.
type CompileError struct {
	Message string
	Line    int
}

func (e *CompileError) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Message) }

// Compile lowers an entire program into an address-resolved bytecode
// Program, laid out as BEGIN rules, then main (pattern-action) rules, then
// END rules, followed by all function bodies.
func Compile(prog *ast.Program) (*bytecode.Program, error) {
	c := &Compiler{fns: map[string]*bytecode.FunctionDef{}}

	out := &bytecode.Program{Functions: c.fns}

	out.BeginStart = len(c.tuples)
	for _, rule := range prog.Rules {
		if rule.Kind == ast.PatternBegin {
			if err := c.compileStmtsErr(rule.Action); err != nil {
				return nil, err
			}
		}
	}
	out.BeginEnd = len(c.tuples)

	out.MainStart = len(c.tuples)
	for _, rule := range prog.Rules {
		if rule.Kind == ast.PatternBegin || rule.Kind == ast.PatternEnd {
			continue
		}
		if err := c.compileMainRule(rule); err != nil {
			return nil, err
		}
	}
	out.MainEnd = len(c.tuples)

	out.EndStart = len(c.tuples)
	for _, rule := range prog.Rules {
		if rule.Kind == ast.PatternEnd {
			if err := c.compileStmtsErr(rule.Action); err != nil {
				return nil, err
			}
		}
	}
	out.EndEnd = len(c.tuples)

	for _, name := range prog.FuncOrder {
		fn := prog.Functions[name]
		if err := c.compileFunction(fn); err != nil {
			return nil, err
		}
	}

	for i, t := range c.tuples {
		for _, op := range t.Operands {
			if addr, ok := op.(*bytecode.Address); ok && !addr.Resolved() {
				panic(fmt.Sprintf("compiler: unresolved jump address in tuple %d (%s)", i, t.Op))
			}
		}
	}

	out.Tuples = c.tuples
	return out, nil
}

func (c *Compiler) emit(op bytecode.Opcode, operands ...any) int {
	idx := len(c.tuples)
	c.tuples = append(c.tuples, bytecode.Tuple{Op: op, Operands: operands, Line: c.line})
	return idx
}

func (c *Compiler) here() int { return len(c.tuples) }

func (c *Compiler) resolveHere(addr *bytecode.Address) {
	addr.Resolve(c.here())
}

// ---- Rules ----

func (c *Compiler) compileMainRule(rule *ast.Rule) error {
	c.line = rule.Line

	var skip *bytecode.Address
	switch rule.Kind {
	case ast.PatternAlways:
		// no guard
	case ast.PatternExpr:
		if err := c.compileExpr(rule.Expr); err != nil {
			return err
		}
		skip = bytecode.NewAddress("rule-skip")
		c.emit(bytecode.OpJumpIfFalse, skip)
	case ast.PatternRange:
		id := c.rangeID
		c.rangeID++
		skip = bytecode.NewAddress("range-skip")
		// The range-state check and transition is handled at runtime by
		// the AVM, keyed on the range id and the two boundary
		// expressions; the compiler only needs to hand both expressions
		// and the id to a single tuple rather than hand-roll the state
		// machine here, since the AVM already tracks per-id active/inactive
		// state across calls. Both boundary expressions are evaluated every
		// record (POSIX requires the end expression to be tested against
		// the record that started the range too), then OpRangeStart
		// collapses them plus the id's current state into one bool.
		if err := c.compileExpr(rule.Expr); err != nil {
			return err
		}
		if err := c.compileExpr(rule.RangeEnd); err != nil {
			return err
		}
		c.emit(bytecode.OpRangeStart, id)
		c.emit(bytecode.OpJumpIfFalse, skip)
	}

	if rule.HasAction {
		if err := c.compileStmtsErr(rule.Action); err != nil {
			return err
		}
	} else {
		// default action: print $0
		c.emit(bytecode.OpPushNum, 0.0)
		c.emit(bytecode.OpLoadField)
		c.emit(bytecode.OpPrint, 1, int(bytecode.RedirectNone), false)
	}

	if skip != nil {
		c.resolveHere(skip)
	}
	return nil
}

// ---- Statements ----

func (c *Compiler) compileStmts(stmts []ast.Stmt) {
	_ = c.compileStmtsErr(stmts)
}

func (c *Compiler) compileStmtsErr(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := c.compileStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileStmt(s ast.Stmt) error {
	if s == nil {
		return nil
	}
	ln, _ := s.Pos()
	if ln != 0 {
		c.line = ln
	}

	switch n := s.(type) {
	case *ast.ExprStmt:
		if err := c.compileExpr(n.X); err != nil {
			return err
		}
		c.emit(bytecode.OpPop)
	case *ast.Block:
		return c.compileStmtsErr(n.Stmts)
	case *ast.If:
		return c.compileIf(n)
	case *ast.While:
		return c.compileWhile(n)
	case *ast.DoWhile:
		return c.compileDoWhile(n)
	case *ast.For:
		return c.compileFor(n)
	case *ast.ForIn:
		return c.compileForIn(n)
	case *ast.Break:
		if len(c.loopStack) == 0 {
			return &CompileError{Message: "break outside loop", Line: ln}
		}
		top := c.loopStack[len(c.loopStack)-1]
		c.emit(bytecode.OpJump, top.breakAddr)
	case *ast.Continue:
		if len(c.loopStack) == 0 {
			return &CompileError{Message: "continue outside loop", Line: ln}
		}
		top := c.loopStack[len(c.loopStack)-1]
		c.emit(bytecode.OpJump, top.continueAddr)
	case *ast.Next:
		c.emit(bytecode.OpNext)
	case *ast.NextFile:
		c.emit(bytecode.OpNextFile)
	case *ast.Exit:
		if n.Code != nil {
			if err := c.compileExpr(n.Code); err != nil {
				return err
			}
			c.emit(bytecode.OpExit, true)
		} else {
			c.emit(bytecode.OpExit, false)
		}
	case *ast.Return:
		if n.Value != nil {
			if err := c.compileExpr(n.Value); err != nil {
				return err
			}
			c.emit(bytecode.OpReturn, true)
		} else {
			c.emit(bytecode.OpReturn, false)
		}
	case *ast.Delete:
		return c.compileDelete(n)
	case *ast.Print:
		return c.compilePrint(n)
	case *ast.Printf:
		return c.compilePrintf(n)
	default:
		return &CompileError{Message: fmt.Sprintf("unsupported statement %T", n), Line: ln}
	}
	return nil
}

func (c *Compiler) compileIf(n *ast.If) error {
	if err := c.compileExpr(n.Cond); err != nil {
		return err
	}
	elseAddr := bytecode.NewAddress("if-else")
	c.emit(bytecode.OpJumpIfFalse, elseAddr)
	if err := c.compileStmt(n.Then); err != nil {
		return err
	}
	if n.Else != nil {
		endAddr := bytecode.NewAddress("if-end")
		c.emit(bytecode.OpJump, endAddr)
		c.resolveHere(elseAddr)
		if err := c.compileStmt(n.Else); err != nil {
			return err
		}
		c.resolveHere(endAddr)
	} else {
		c.resolveHere(elseAddr)
	}
	return nil
}

func (c *Compiler) compileWhile(n *ast.While) error {
	top := bytecode.NewAddress("while-top")
	c.resolveHere(top)
	end := bytecode.NewAddress("while-end")

	if err := c.compileExpr(n.Cond); err != nil {
		return err
	}
	c.emit(bytecode.OpJumpIfFalse, end)

	c.loopStack = append(c.loopStack, loopCtx{breakAddr: end, continueAddr: top})
	err := c.compileStmt(n.Body)
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	if err != nil {
		return err
	}

	c.emit(bytecode.OpJump, top)
	c.resolveHere(end)
	return nil
}

func (c *Compiler) compileDoWhile(n *ast.DoWhile) error {
	top := bytecode.NewAddress("do-top")
	c.resolveHere(top)
	contAddr := bytecode.NewAddress("do-cont")
	end := bytecode.NewAddress("do-end")

	c.loopStack = append(c.loopStack, loopCtx{breakAddr: end, continueAddr: contAddr})
	err := c.compileStmt(n.Body)
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	if err != nil {
		return err
	}

	c.resolveHere(contAddr)
	if err := c.compileExpr(n.Cond); err != nil {
		return err
	}
	c.emit(bytecode.OpJumpIfTrue, top)
	c.resolveHere(end)
	return nil
}

func (c *Compiler) compileFor(n *ast.For) error {
	if n.Init != nil {
		if err := c.compileStmt(n.Init); err != nil {
			return err
		}
	}
	top := bytecode.NewAddress("for-top")
	c.resolveHere(top)
	end := bytecode.NewAddress("for-end")
	contAddr := bytecode.NewAddress("for-cont")

	if n.Cond != nil {
		if err := c.compileExpr(n.Cond); err != nil {
			return err
		}
		c.emit(bytecode.OpJumpIfFalse, end)
	}

	c.loopStack = append(c.loopStack, loopCtx{breakAddr: end, continueAddr: contAddr})
	err := c.compileStmt(n.Body)
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	if err != nil {
		return err
	}

	c.resolveHere(contAddr)
	if n.Post != nil {
		if err := c.compileStmt(n.Post); err != nil {
			return err
		}
	}
	c.emit(bytecode.OpJump, top)
	c.resolveHere(end)
	return nil
}

func (c *Compiler) compileForIn(n *ast.ForIn) error {
	if err := c.compileArrayRef(n.Array); err != nil {
		return err
	}
	c.emit(bytecode.OpIterInit)

	top := bytecode.NewAddress("forin-top")
	c.resolveHere(top)
	end := bytecode.NewAddress("forin-end")
	c.emit(bytecode.OpIterNext, end)
	c.emitStore(&ast.Ident{Name: n.KeyVar})

	c.loopStack = append(c.loopStack, loopCtx{breakAddr: end, continueAddr: top})
	err := c.compileStmt(n.Body)
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	if err != nil {
		return err
	}

	c.emit(bytecode.OpJump, top)
	c.resolveHere(end)
	c.emit(bytecode.OpIterEnd)
	return nil
}

func (c *Compiler) compileDelete(n *ast.Delete) error {
	if len(n.Subscript) == 0 {
		if err := c.compileArrayRef(n.Array); err != nil {
			return err
		}
		c.emit(bytecode.OpDeleteArray)
		return nil
	}
	if err := c.compileArrayRef(n.Array); err != nil {
		return err
	}
	if err := c.compileSubscript(n.Subscript); err != nil {
		return err
	}
	c.emit(bytecode.OpDeleteElem)
	return nil
}

func (c *Compiler) compilePrint(n *ast.Print) error {
	for _, a := range n.Args {
		if err := c.compileExpr(a); err != nil {
			return err
		}
	}
	hasDest := n.Dest != nil
	if hasDest {
		if err := c.compileExpr(n.Dest); err != nil {
			return err
		}
	}
	c.emit(bytecode.OpPrint, len(n.Args), int(redirKind(n.Redirect)), hasDest)
	return nil
}

func (c *Compiler) compilePrintf(n *ast.Printf) error {
	for _, a := range n.Args {
		if err := c.compileExpr(a); err != nil {
			return err
		}
	}
	hasDest := n.Dest != nil
	if hasDest {
		if err := c.compileExpr(n.Dest); err != nil {
			return err
		}
	}
	c.emit(bytecode.OpPrintf, len(n.Args), int(redirKind(n.Redirect)), hasDest)
	return nil
}

func redirKind(k ast.RedirectKind) bytecode.RedirectKind {
	switch k {
	case ast.RedirectTruncate:
		return bytecode.RedirectTruncate
	case ast.RedirectAppend:
		return bytecode.RedirectAppend
	case ast.RedirectPipeOut:
		return bytecode.RedirectPipeOut
	default:
		return bytecode.RedirectNone
	}
}

// ---- Functions ----

func (c *Compiler) compileFunction(fn *ast.FunctionDef) error {
	entry := c.here()
	c.fns[fn.Name] = &bytecode.FunctionDef{
		Name:       fn.Name,
		Params:     fn.Params,
		IsArrayArg: fn.IsArrayParam,
		NumLocals:  len(fn.Params),
		Entry:      entry,
	}

	prevFunc := c.curFunc
	prevSlots := c.localSlot
	c.curFunc = fn
	c.localSlot = make(map[string]int, len(fn.Params))
	for i, p := range fn.Params {
		c.localSlot[p] = i
	}

	err := c.compileStmtsErr(fn.Body)

	// Every function falls through to an implicit `return` (uninitialized
	// scalar) if its body doesn't end with one.
	c.emit(bytecode.OpReturn, false)

	c.curFunc = prevFunc
	c.localSlot = prevSlots
	return err
}

// ---- Expressions ----

func (c *Compiler) compileExpr(e ast.Expr) error {
	if e == nil {
		return nil
	}
	ln, _ := e.Pos()
	if ln != 0 {
		c.line = ln
	}

	switch n := e.(type) {
	case *ast.NumberLit:
		c.emit(bytecode.OpPushNum, n.Value)
	case *ast.StringLit:
		c.emit(bytecode.OpPushStr, n.Value)
	case *ast.RegexLit:
		// a bare /re/ used as a value matches against $0.
		c.emit(bytecode.OpPushNum, 0.0)
		c.emit(bytecode.OpLoadField)
		c.emit(bytecode.OpPushRegex, n.Source)
		c.emit(bytecode.OpMatch)
	case *ast.Ident:
		c.emitLoad(n)
	case *ast.FieldExpr:
		if err := c.compileExpr(n.Index); err != nil {
			return err
		}
		c.emit(bytecode.OpLoadField)
	case *ast.IndexExpr:
		if err := c.compileArrayRef(n.Array); err != nil {
			return err
		}
		if err := c.compileSubscript(n.Subscript); err != nil {
			return err
		}
		c.emit(bytecode.OpLoadArrayElem)
	case *ast.Assign:
		return c.compileAssign(n)
	case *ast.IncrDecr:
		return c.compileIncrDecr(n)
	case *ast.Unary:
		if err := c.compileExpr(n.Operand); err != nil {
			return err
		}
		switch n.Op {
		case "!":
			c.emit(bytecode.OpNot)
		case "-":
			c.emit(bytecode.OpNeg)
		case "+":
			c.emit(bytecode.OpUnaryPlus)
		}
	case *ast.Binary:
		return c.compileBinary(n)
	case *ast.Ternary:
		return c.compileTernary(n)
	case *ast.In:
		if err := c.compileSubscript(n.Subscript); err != nil {
			return err
		}
		if err := c.compileArrayRef(n.Array); err != nil {
			return err
		}
		c.emit(bytecode.OpIn)
	case *ast.Grouping:
		if len(n.Exprs) == 0 {
			c.emit(bytecode.OpPushUninit)
			return nil
		}
		return c.compileExpr(n.Exprs[len(n.Exprs)-1])
	case *ast.Call:
		return c.compileCall(n)
	case *ast.Getline:
		return c.compileGetline(n)
	default:
		return &CompileError{Message: fmt.Sprintf("unsupported expression %T", n), Line: ln}
	}
	return nil
}

// compileSubscript pushes a single subscript string built from one or
// more index expressions joined by SUBSEP, matching spec.md §3's
// multi-dimensional array convention.
func (c *Compiler) compileSubscript(subs []ast.Expr) error {
	for _, s := range subs {
		if err := c.compileExpr(s); err != nil {
			return err
		}
	}
	c.emit(bytecode.OpJoinSubsep, len(subs))
	return nil
}

// compileArrayRef pushes a reference to the array value named by e
// (always a bare identifier in valid AWK), auto-vivifying a global or
// local array on first use.
func (c *Compiler) compileArrayRef(e ast.Expr) error {
	id, ok := e.(*ast.Ident)
	if !ok {
		return &CompileError{Message: "array reference must be a plain identifier"}
	}
	if c.curFunc != nil {
		if slot, ok := c.localSlot[id.Name]; ok {
			c.emit(bytecode.OpLoadLocalArrayRef, slot)
			return nil
		}
	}
	c.emit(bytecode.OpLoadArrayRef, id.Name)
	return nil
}

func (c *Compiler) emitLoad(id *ast.Ident) {
	if c.curFunc != nil {
		if slot, ok := c.localSlot[id.Name]; ok {
			c.emit(bytecode.OpLoadLocal, slot)
			return
		}
	}
	c.emit(bytecode.OpLoadGlobal, id.Name)
}

func (c *Compiler) emitStore(id *ast.Ident) {
	if c.curFunc != nil {
		if slot, ok := c.localSlot[id.Name]; ok {
			c.emit(bytecode.OpStoreLocal, slot)
			return
		}
	}
	c.emit(bytecode.OpStoreGlobal, id.Name)
}

func (c *Compiler) compileAssign(n *ast.Assign) error {
	if n.Op != "=" {
		// Desugar `x += y` into `x = x + y` (and similarly for the other
		// compound assignment operators) so the lvalue-handling logic
		// below stays in one place.
		binOp := n.Op[:len(n.Op)-1]
		desugared := &ast.Assign{Base: n.Base, Target: n.Target, Op: "=", Value: &ast.Binary{
			Base: n.Base, Op: binOp, Left: n.Target, Right: n.Value,
		}}
		return c.compileAssign(desugared)
	}

	switch target := n.Target.(type) {
	case *ast.Ident:
		if err := c.compileExpr(n.Value); err != nil {
			return err
		}
		c.emit(bytecode.OpDup)
		c.emitStore(target)
	case *ast.FieldExpr:
		if err := c.compileExpr(target.Index); err != nil {
			return err
		}
		if err := c.compileExpr(n.Value); err != nil {
			return err
		}
		c.emit(bytecode.OpStoreField)
	case *ast.IndexExpr:
		if err := c.compileArrayRef(target.Array); err != nil {
			return err
		}
		if err := c.compileSubscript(target.Subscript); err != nil {
			return err
		}
		if err := c.compileExpr(n.Value); err != nil {
			return err
		}
		c.emit(bytecode.OpStoreArrayElem)
	default:
		return &CompileError{Message: "invalid assignment target"}
	}
	return nil
}

// compileIncrDecr lowers ++/-- directly to one of three dedicated
// increment opcodes, each of which reads, bumps, and writes back the
// target in the VM without needing any stack rotation tricks — the VM
// has direct access to the local frame, globals map, field array, and
// array storage it's updating, so there's no need to round-trip the old
// value through the operand stack the way a pure load/store sequence
// would require.
func (c *Compiler) compileIncrDecr(n *ast.IncrDecr) error {
	delta := 1.0
	if n.Op == "--" {
		delta = -1.0
	}
	switch target := n.Target.(type) {
	case *ast.Ident:
		if c.curFunc != nil {
			if slot, ok := c.localSlot[target.Name]; ok {
				c.emit(bytecode.OpIncr, slot, delta, n.Postfix)
				return nil
			}
		}
		c.emit(bytecode.OpIncrGlobal, target.Name, delta, n.Postfix)
	case *ast.FieldExpr:
		if err := c.compileExpr(target.Index); err != nil {
			return err
		}
		c.emit(bytecode.OpIncrField, delta, n.Postfix)
	case *ast.IndexExpr:
		if err := c.compileArrayRef(target.Array); err != nil {
			return err
		}
		if err := c.compileSubscript(target.Subscript); err != nil {
			return err
		}
		c.emit(bytecode.OpIncrArrayElem, delta, n.Postfix)
	default:
		return &CompileError{Message: "invalid ++/-- target"}
	}
	return nil
}

func (c *Compiler) compileBinary(n *ast.Binary) error {
	switch n.Op {
	case "&&":
		if err := c.compileExpr(n.Left); err != nil {
			return err
		}
		falseAddr := bytecode.NewAddress("and-false")
		endAddr := bytecode.NewAddress("and-end")
		c.emit(bytecode.OpDup)
		c.emit(bytecode.OpJumpIfFalse, falseAddr)
		c.emit(bytecode.OpPop)
		if err := c.compileExpr(n.Right); err != nil {
			return err
		}
		c.emit(bytecode.OpJump, endAddr)
		c.resolveHere(falseAddr)
		c.resolveHere(endAddr)
		return nil
	case "||":
		if err := c.compileExpr(n.Left); err != nil {
			return err
		}
		trueAddr := bytecode.NewAddress("or-true")
		endAddr := bytecode.NewAddress("or-end")
		c.emit(bytecode.OpDup)
		c.emit(bytecode.OpJumpIfTrue, trueAddr)
		c.emit(bytecode.OpPop)
		if err := c.compileExpr(n.Right); err != nil {
			return err
		}
		c.emit(bytecode.OpJump, endAddr)
		c.resolveHere(trueAddr)
		c.resolveHere(endAddr)
		return nil
	}

	if err := c.compileExpr(n.Left); err != nil {
		return err
	}
	if n.Op == "~" || n.Op == "!~" {
		if err := c.compileRegexArg(n.Right); err != nil {
			return err
		}
	} else if err := c.compileExpr(n.Right); err != nil {
		return err
	}
	switch n.Op {
	case "+":
		c.emit(bytecode.OpAdd)
	case "-":
		c.emit(bytecode.OpSub)
	case "*":
		c.emit(bytecode.OpMul)
	case "/":
		c.emit(bytecode.OpDiv)
	case "%":
		c.emit(bytecode.OpMod)
	case "^":
		c.emit(bytecode.OpPow)
	case "concat":
		c.emit(bytecode.OpConcat)
	case "~":
		c.emit(bytecode.OpMatch)
	case "!~":
		c.emit(bytecode.OpNotMatch)
	case "<":
		c.emit(bytecode.OpCompareLt)
	case "<=":
		c.emit(bytecode.OpCompareLe)
	case ">":
		c.emit(bytecode.OpCompareGt)
	case ">=":
		c.emit(bytecode.OpCompareGe)
	case "==":
		c.emit(bytecode.OpCompareEq)
	case "!=":
		c.emit(bytecode.OpCompareNe)
	default:
		return &CompileError{Message: fmt.Sprintf("unknown binary operator %q", n.Op)}
	}
	return nil
}

func (c *Compiler) compileTernary(n *ast.Ternary) error {
	if err := c.compileExpr(n.Cond); err != nil {
		return err
	}
	elseAddr := bytecode.NewAddress("ternary-else")
	endAddr := bytecode.NewAddress("ternary-end")
	c.emit(bytecode.OpJumpIfFalse, elseAddr)
	if err := c.compileExpr(n.Then); err != nil {
		return err
	}
	c.emit(bytecode.OpJump, endAddr)
	c.resolveHere(elseAddr)
	if err := c.compileExpr(n.Else); err != nil {
		return err
	}
	c.resolveHere(endAddr)
	return nil
}

// compileCall lowers a user-function, builtin, or extension call. Which
// of the three n.Name names was decided by ast.Resolve, which also
// rejects (as a SemanticError, before compileCall ever runs) any name
// matching none of them — so the OpCall/OpInvokeExtension choice below
// is a pure readout of that decision, not a guess.
func (c *Compiler) compileCall(n *ast.Call) error {
	if n.IsBuiltin || ast.IsBuiltinName(n.Name) {
		return c.compileBuiltinCall(n)
	}
	for i, a := range n.Args {
		isArr := i < len(n.ArgIsArray) && n.ArgIsArray[i]
		if isArr {
			if err := c.compileArrayRef(a); err != nil {
				return err
			}
		} else {
			if err := c.compileExpr(a); err != nil {
				return err
			}
		}
	}
	if n.IsExtension {
		c.emit(bytecode.OpInvokeExtension, n.Name, len(n.Args))
		return nil
	}
	c.emit(bytecode.OpCall, n.Name, len(n.Args))
	return nil
}

var builtinOpcode = map[string]bytecode.Opcode{
	"length":  bytecode.OpBuiltinLength,
	"substr":  bytecode.OpBuiltinSubstr,
	"split":   bytecode.OpBuiltinSplit,
	"sprintf": bytecode.OpBuiltinSprintf,
	"index":   bytecode.OpBuiltinIndex,
	"sin":     bytecode.OpBuiltinSin,
	"cos":     bytecode.OpBuiltinCos,
	"atan2":   bytecode.OpBuiltinAtan2,
	"exp":     bytecode.OpBuiltinExp,
	"log":     bytecode.OpBuiltinLog,
	"sqrt":    bytecode.OpBuiltinSqrt,
	"int":     bytecode.OpBuiltinInt,
	"rand":    bytecode.OpBuiltinRand,
	"srand":   bytecode.OpBuiltinSrand,
	"tolower": bytecode.OpBuiltinTolower,
	"toupper": bytecode.OpBuiltinToupper,
	"system":  bytecode.OpBuiltinSystem,
}

func (c *Compiler) compileBuiltinCall(n *ast.Call) error {
	switch n.Name {
	case "close":
		if len(n.Args) != 1 {
			return &CompileError{Message: "close() takes exactly one argument"}
		}
		if err := c.compileExpr(n.Args[0]); err != nil {
			return err
		}
		c.emit(bytecode.OpClose)
		return nil
	case "fflush":
		if len(n.Args) == 0 {
			c.emit(bytecode.OpPushStr, "")
		} else {
			if err := c.compileExpr(n.Args[0]); err != nil {
				return err
			}
		}
		c.emit(bytecode.OpFflush)
		return nil
	case "length":
		if len(n.Args) == 0 {
			c.emit(bytecode.OpPushNum, 0.0)
			c.emit(bytecode.OpLoadField)
		} else if id, ok := n.Args[0].(*ast.Ident); ok && c.isKnownArray(id) {
			if err := c.compileArrayRef(id); err != nil {
				return err
			}
		} else {
			if err := c.compileExpr(n.Args[0]); err != nil {
				return err
			}
		}
		c.emit(bytecode.OpBuiltinLength)
		return nil
	case "sub", "gsub":
		return c.compileSubGsub(n)
	case "split":
		// split(s, arr[, fs]) — arr is always passed by array reference.
		if len(n.Args) < 2 {
			return &CompileError{Message: "split() requires at least 2 arguments"}
		}
		if err := c.compileExpr(n.Args[0]); err != nil {
			return err
		}
		if err := c.compileArrayRef(n.Args[1]); err != nil {
			return err
		}
		if len(n.Args) >= 3 {
			if err := c.compileRegexArg(n.Args[2]); err != nil {
				return err
			}
		} else {
			c.emit(bytecode.OpPushUninit)
		}
		c.emit(bytecode.OpBuiltinSplit)
		return nil
	case "match":
		if len(n.Args) != 2 {
			return &CompileError{Message: "match() requires exactly 2 arguments"}
		}
		if err := c.compileExpr(n.Args[0]); err != nil {
			return err
		}
		if err := c.compileRegexArg(n.Args[1]); err != nil {
			return err
		}
		c.emit(bytecode.OpBuiltinMatchFn, 2)
		return nil
	}

	op, ok := builtinOpcode[n.Name]
	if !ok {
		return &CompileError{Message: fmt.Sprintf("unknown builtin %q", n.Name)}
	}
	for _, a := range n.Args {
		if err := c.compileExpr(a); err != nil {
			return err
		}
	}
	c.emit(op, len(n.Args))
	return nil
}

// compileRegexArg compiles an expression used as a builtin's ERE
// argument (split's fs, match's pattern, sub/gsub's ere). A bare /re/
// literal here names a pattern, not a boolean test against $0, so it
// pushes its source text directly rather than going through the
// generic RegexLit-as-expression path in compileExpr.
func (c *Compiler) compileRegexArg(e ast.Expr) error {
	if r, ok := e.(*ast.RegexLit); ok {
		c.emit(bytecode.OpPushStr, r.Source)
		return nil
	}
	return c.compileExpr(e)
}

// compileSubGsub lowers sub(ere, repl[, target]) / gsub(ere, repl[, target]).
// target is an lvalue the builtin rewrites in place, so (mirroring
// compileGetline) the compiler hands the VM a target descriptor rather
// than a plain value; a missing third argument defaults to $0.
func (c *Compiler) compileSubGsub(n *ast.Call) error {
	if len(n.Args) < 2 {
		return &CompileError{Message: fmt.Sprintf("%s() requires at least 2 arguments", n.Name)}
	}
	if err := c.compileRegexArg(n.Args[0]); err != nil {
		return err
	}
	if err := c.compileExpr(n.Args[1]); err != nil {
		return err
	}

	var target ast.Expr = &ast.FieldExpr{Base: n.Base, Index: &ast.NumberLit{Base: n.Base, Value: 0}}
	if len(n.Args) >= 3 {
		target = n.Args[2]
	}

	targetKind := getlineTargetNone
	var targetOperand any
	switch t := target.(type) {
	case *ast.Ident:
		if c.curFunc != nil {
			if slot, ok := c.localSlot[t.Name]; ok {
				targetKind, targetOperand = getlineTargetLocal, slot
				break
			}
		}
		targetKind, targetOperand = getlineTargetGlobal, t.Name
	case *ast.FieldExpr:
		if err := c.compileExpr(t.Index); err != nil {
			return err
		}
		targetKind = getlineTargetField
	default:
		return &CompileError{Message: fmt.Sprintf("unsupported %s() target", n.Name)}
	}

	op := bytecode.OpBuiltinSub
	if n.Name == "gsub" {
		op = bytecode.OpBuiltinGsub
	}
	c.emit(op, targetKind, targetOperand)
	return nil
}

// isKnownArray reports whether id names a parameter already resolved as
// an array in the current function, used only to decide how to compile
// length(x) when x could be either a scalar or an array.
func (c *Compiler) isKnownArray(id *ast.Ident) bool {
	if c.curFunc == nil {
		return false
	}
	for i, p := range c.curFunc.Params {
		if p == id.Name {
			return i < len(c.curFunc.IsArrayParam) && c.curFunc.IsArrayParam[i]
		}
	}
	return false
}

// getline target-kind tags, interpreted by the VM's OpGetline handler.
const (
	getlineTargetNone = iota
	getlineTargetLocal
	getlineTargetGlobal
	getlineTargetField
)

// compileGetline lowers any of the five POSIX getline forms. Rather than
// round-trip the line read through the operand stack and a separate
// store sequence (which breaks down for a field target, since the field
// array rebuild needs the index and the new value adjacent on the
// stack), the compiler hands the VM a target descriptor — local slot,
// global name, or field index — as extra tuple operands, and the VM
// performs the assignment itself as part of executing the single
// OpGetline tuple. Array-element targets (`getline arr[i]`) are
// POSIX-legal but rare enough in practice that they are not supported.
func (c *Compiler) compileGetline(n *ast.Getline) error {
	hasSource := n.Source != nil
	if hasSource {
		if err := c.compileExpr(n.Source); err != nil {
			return err
		}
	}

	targetKind := getlineTargetNone
	var targetOperand any
	if n.Var != nil {
		switch v := n.Var.(type) {
		case *ast.Ident:
			if c.curFunc != nil {
				if slot, ok := c.localSlot[v.Name]; ok {
					targetKind, targetOperand = getlineTargetLocal, slot
					break
				}
			}
			targetKind, targetOperand = getlineTargetGlobal, v.Name
		case *ast.FieldExpr:
			if err := c.compileExpr(v.Index); err != nil {
				return err
			}
			targetKind = getlineTargetField
		default:
			return &CompileError{Message: "unsupported getline target"}
		}
	}

	c.emit(bytecode.OpGetline, int(n.Kind), hasSource, targetKind, targetOperand)
	return nil
}
