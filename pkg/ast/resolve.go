package ast

import "fmt"

// SemanticError is a name-resolution failure caught by Resolve: an
// unresolved call (neither a user function, a builtin, nor a registered
// extension keyword), a duplicate function definition, or an
// extension-keyword arity mismatch. Distinct from ParseError (a grammar
// failure) and CompileError (a lowering failure) since it belongs to its
// own pass over an already-parsed tree.
type SemanticError struct {
	Message   string
	Line, Col int
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Message)
}

// ExtensionLookup is the subset of extension.Registry's API Resolve needs
// to recognize and arity-check a call as a registered extension keyword,
// kept as a small local interface (rather than importing pkg/extension
// directly) the same way GetlineKind mirrors bytecode.GetlineKind to keep
// this package free of a dependency on a downstream stage. Arity is -1
// for a variable-argument keyword.
type ExtensionLookup interface {
	LookupArity(keyword string) (arity int, ok bool)
}

// Resolve performs the two-pass function analysis needed to know, at
// lowering time, which formal parameters of each user function are arrays
// rather than scalars, plus a final pass binding every call site to a
// user function, a builtin, or an extension keyword. AWK never declares
// array-ness explicitly: a parameter is an array if the function body
// ever subscripts it, passes it to delete, tests it with `in`, iterates
// it with `for (k in p)`, or passes it as the third argument of split().
//
// Pass 1 walks every function body in isolation and marks direct array
// usage. Pass 2 walks every call site and propagates array-ness across
// function boundaries: if f(x) is called as g(y) and x is known to be an
// array parameter of f, then y — when itself a bare parameter of the
// caller — must also be an array parameter of the caller. This repeats
// until a fixed point since propagation can chain through several
// functions call each other in any order.
//
// ext may be nil, in which case a call that resolves to neither a user
// function nor a builtin is always reported as unresolved — callers that
// never register extensions (most tests) get the same "undefined
// function" diagnostic a real program would, just without an extension
// registry to consult first.
func Resolve(prog *Program, ext ExtensionLookup) []error {
	var errs []error

	for _, name := range prog.FuncOrder {
		fn := prog.Functions[name]
		fn.IsArrayParam = make([]bool, len(fn.Params))
	}

	for _, name := range prog.FuncOrder {
		fn := prog.Functions[name]
		markDirectArrayUse(fn, fn.Body)
	}

	for changed := true; changed; {
		changed = false
		for _, name := range prog.FuncOrder {
			fn := prog.Functions[name]
			if propagateCallSites(prog, fn, fn.Body) {
				changed = true
			}
		}
	}

	resolveCalls(prog, ext, &errs)
	for _, name := range prog.FuncOrder {
		fn := prog.Functions[name]
		resolveCallsInFunc(prog, fn, ext, &errs)
	}

	return errs
}

func paramIndex(fn *FunctionDef, name string) int {
	for i, p := range fn.Params {
		if p == name {
			return i
		}
	}
	return -1
}

// markDirectArrayUse scans fn's own body for subscript/delete/in/for-in
// uses of its parameters and flips IsArrayParam accordingly.
func markDirectArrayUse(fn *FunctionDef, stmts []Stmt) {
	var walkExpr func(e Expr)
	var walkStmt func(s Stmt)

	markIfParam := func(e Expr) {
		if id, ok := e.(*Ident); ok {
			if i := paramIndex(fn, id.Name); i >= 0 {
				fn.IsArrayParam[i] = true
			}
		}
	}

	walkExpr = func(e Expr) {
		switch n := e.(type) {
		case nil:
		case *IndexExpr:
			markIfParam(n.Array)
			walkExpr(n.Array)
			for _, s := range n.Subscript {
				walkExpr(s)
			}
		case *In:
			markIfParam(n.Array)
			for _, s := range n.Subscript {
				walkExpr(s)
			}
		case *Assign:
			walkExpr(n.Target)
			walkExpr(n.Value)
		case *IncrDecr:
			walkExpr(n.Target)
		case *Unary:
			walkExpr(n.Operand)
		case *Binary:
			walkExpr(n.Left)
			walkExpr(n.Right)
		case *Ternary:
			walkExpr(n.Cond)
			walkExpr(n.Then)
			walkExpr(n.Else)
		case *Grouping:
			for _, x := range n.Exprs {
				walkExpr(x)
			}
		case *Call:
			for _, a := range n.Args {
				walkExpr(a)
			}
		case *FieldExpr:
			walkExpr(n.Index)
		case *Getline:
			walkExpr(n.Var)
			walkExpr(n.Source)
		}
	}

	walkStmt = func(s Stmt) {
		switch n := s.(type) {
		case nil:
		case *ExprStmt:
			walkExpr(n.X)
		case *Block:
			for _, st := range n.Stmts {
				walkStmt(st)
			}
		case *If:
			walkExpr(n.Cond)
			walkStmt(n.Then)
			walkStmt(n.Else)
		case *While:
			walkExpr(n.Cond)
			walkStmt(n.Body)
		case *DoWhile:
			walkStmt(n.Body)
			walkExpr(n.Cond)
		case *For:
			walkStmt(n.Init)
			walkExpr(n.Cond)
			walkStmt(n.Post)
			walkStmt(n.Body)
		case *ForIn:
			markIfParam(n.Array)
			walkStmt(n.Body)
		case *Exit:
			walkExpr(n.Code)
		case *Return:
			walkExpr(n.Value)
		case *Delete:
			markIfParam(n.Array)
			for _, sub := range n.Subscript {
				walkExpr(sub)
			}
		case *Print:
			for _, a := range n.Args {
				walkExpr(a)
			}
			walkExpr(n.Dest)
		case *Printf:
			for _, a := range n.Args {
				walkExpr(a)
			}
			walkExpr(n.Dest)
		}
	}

	for _, s := range stmts {
		walkStmt(s)
	}
}

// propagateCallSites walks fn's calls to other functions and, where an
// argument is a bare identifier matching one of fn's own parameters,
// copies the callee's array-ness for that position onto fn's parameter.
// Returns true if it changed anything, so the fixed-point loop in Resolve
// knows to run another round.
func propagateCallSites(prog *Program, fn *FunctionDef, stmts []Stmt) bool {
	changed := false

	var walkExpr func(e Expr)
	var walkStmt func(s Stmt)

	considerCall := func(n *Call) {
		callee, ok := prog.Functions[n.Name]
		if !ok {
			return
		}
		for i, a := range n.Args {
			if i >= len(callee.IsArrayParam) || !callee.IsArrayParam[i] {
				continue
			}
			id, ok := a.(*Ident)
			if !ok {
				continue
			}
			pi := paramIndex(fn, id.Name)
			if pi < 0 || fn.IsArrayParam[pi] {
				continue
			}
			fn.IsArrayParam[pi] = true
			changed = true
		}
	}

	walkExpr = func(e Expr) {
		switch n := e.(type) {
		case nil:
		case *Call:
			considerCall(n)
			for _, a := range n.Args {
				walkExpr(a)
			}
		case *IndexExpr:
			walkExpr(n.Array)
			for _, s := range n.Subscript {
				walkExpr(s)
			}
		case *In:
			for _, s := range n.Subscript {
				walkExpr(s)
			}
		case *Assign:
			walkExpr(n.Target)
			walkExpr(n.Value)
		case *IncrDecr:
			walkExpr(n.Target)
		case *Unary:
			walkExpr(n.Operand)
		case *Binary:
			walkExpr(n.Left)
			walkExpr(n.Right)
		case *Ternary:
			walkExpr(n.Cond)
			walkExpr(n.Then)
			walkExpr(n.Else)
		case *Grouping:
			for _, x := range n.Exprs {
				walkExpr(x)
			}
		case *FieldExpr:
			walkExpr(n.Index)
		case *Getline:
			walkExpr(n.Var)
			walkExpr(n.Source)
		}
	}

	walkStmt = func(s Stmt) {
		switch n := s.(type) {
		case nil:
		case *ExprStmt:
			walkExpr(n.X)
		case *Block:
			for _, st := range n.Stmts {
				walkStmt(st)
			}
		case *If:
			walkExpr(n.Cond)
			walkStmt(n.Then)
			walkStmt(n.Else)
		case *While:
			walkExpr(n.Cond)
			walkStmt(n.Body)
		case *DoWhile:
			walkStmt(n.Body)
			walkExpr(n.Cond)
		case *For:
			walkStmt(n.Init)
			walkExpr(n.Cond)
			walkStmt(n.Post)
			walkStmt(n.Body)
		case *ForIn:
			walkStmt(n.Body)
		case *Exit:
			walkExpr(n.Code)
		case *Return:
			walkExpr(n.Value)
		case *Delete:
			for _, sub := range n.Subscript {
				walkExpr(sub)
			}
		case *Print:
			for _, a := range n.Args {
				walkExpr(a)
			}
			walkExpr(n.Dest)
		case *Printf:
			for _, a := range n.Args {
				walkExpr(a)
			}
			walkExpr(n.Dest)
		}
	}

	for _, st := range stmts {
		walkStmt(st)
	}
	return changed
}

// resolveCalls fills in Call.IsUserFunc/IsBuiltin/IsExtension/ArgIsArray
// for every call expression reachable from a rule's pattern or action,
// appending a SemanticError to *errs for any name that resolves to none
// of the three, or an extension keyword called with the wrong arity.
func resolveCalls(prog *Program, ext ExtensionLookup, errs *[]error) {
	for _, rule := range prog.Rules {
		if rule.Expr != nil {
			resolveCallsInExpr(prog, rule.Expr, ext, errs)
		}
		if rule.RangeEnd != nil {
			resolveCallsInExpr(prog, rule.RangeEnd, ext, errs)
		}
		resolveCallsInStmts(prog, rule.Action, ext, errs)
	}
}

func resolveCallsInFunc(prog *Program, fn *FunctionDef, ext ExtensionLookup, errs *[]error) {
	resolveCallsInStmts(prog, fn.Body, ext, errs)
}

func resolveCallsInStmts(prog *Program, stmts []Stmt, ext ExtensionLookup, errs *[]error) {
	for _, s := range stmts {
		resolveCallsInStmt(prog, s, ext, errs)
	}
}

func resolveCallsInStmt(prog *Program, s Stmt, ext ExtensionLookup, errs *[]error) {
	switch n := s.(type) {
	case nil:
	case *ExprStmt:
		resolveCallsInExpr(prog, n.X, ext, errs)
	case *Block:
		resolveCallsInStmts(prog, n.Stmts, ext, errs)
	case *If:
		resolveCallsInExpr(prog, n.Cond, ext, errs)
		resolveCallsInStmt(prog, n.Then, ext, errs)
		resolveCallsInStmt(prog, n.Else, ext, errs)
	case *While:
		resolveCallsInExpr(prog, n.Cond, ext, errs)
		resolveCallsInStmt(prog, n.Body, ext, errs)
	case *DoWhile:
		resolveCallsInStmt(prog, n.Body, ext, errs)
		resolveCallsInExpr(prog, n.Cond, ext, errs)
	case *For:
		resolveCallsInStmt(prog, n.Init, ext, errs)
		resolveCallsInExpr(prog, n.Cond, ext, errs)
		resolveCallsInStmt(prog, n.Post, ext, errs)
		resolveCallsInStmt(prog, n.Body, ext, errs)
	case *ForIn:
		resolveCallsInExpr(prog, n.Array, ext, errs)
		resolveCallsInStmt(prog, n.Body, ext, errs)
	case *Exit:
		resolveCallsInExpr(prog, n.Code, ext, errs)
	case *Return:
		resolveCallsInExpr(prog, n.Value, ext, errs)
	case *Delete:
		resolveCallsInExpr(prog, n.Array, ext, errs)
		for _, sub := range n.Subscript {
			resolveCallsInExpr(prog, sub, ext, errs)
		}
	case *Print:
		for _, a := range n.Args {
			resolveCallsInExpr(prog, a, ext, errs)
		}
		resolveCallsInExpr(prog, n.Dest, ext, errs)
	case *Printf:
		for _, a := range n.Args {
			resolveCallsInExpr(prog, a, ext, errs)
		}
		resolveCallsInExpr(prog, n.Dest, ext, errs)
	}
}

func resolveCallsInExpr(prog *Program, e Expr, ext ExtensionLookup, errs *[]error) {
	switch n := e.(type) {
	case nil:
	case *Call:
		switch {
		case prog.Functions[n.Name] != nil:
			callee := prog.Functions[n.Name]
			n.IsUserFunc = true
			n.ArgIsArray = make([]bool, len(n.Args))
			for i := range n.Args {
				if i < len(callee.IsArrayParam) {
					n.ArgIsArray[i] = callee.IsArrayParam[i]
				}
			}
		case IsBuiltinName(n.Name):
			n.IsBuiltin = true
		case ext != nil:
			if arity, ok := ext.LookupArity(n.Name); ok {
				n.IsExtension = true
				if arity >= 0 && arity != len(n.Args) {
					*errs = append(*errs, &SemanticError{
						Message: fmt.Sprintf("extension %q expects %d argument(s), got %d", n.Name, arity, len(n.Args)),
						Line:    n.Line, Col: n.Col,
					})
				}
			} else {
				*errs = append(*errs, &SemanticError{
					Message: fmt.Sprintf("call to undefined function %q", n.Name),
					Line:    n.Line, Col: n.Col,
				})
			}
		default:
			*errs = append(*errs, &SemanticError{
				Message: fmt.Sprintf("call to undefined function %q", n.Name),
				Line:    n.Line, Col: n.Col,
			})
		}
		for _, a := range n.Args {
			resolveCallsInExpr(prog, a, ext, errs)
		}
	case *IndexExpr:
		resolveCallsInExpr(prog, n.Array, ext, errs)
		for _, s := range n.Subscript {
			resolveCallsInExpr(prog, s, ext, errs)
		}
	case *In:
		for _, s := range n.Subscript {
			resolveCallsInExpr(prog, s, ext, errs)
		}
		resolveCallsInExpr(prog, n.Array, ext, errs)
	case *Assign:
		resolveCallsInExpr(prog, n.Target, ext, errs)
		resolveCallsInExpr(prog, n.Value, ext, errs)
	case *IncrDecr:
		resolveCallsInExpr(prog, n.Target, ext, errs)
	case *Unary:
		resolveCallsInExpr(prog, n.Operand, ext, errs)
	case *Binary:
		resolveCallsInExpr(prog, n.Left, ext, errs)
		resolveCallsInExpr(prog, n.Right, ext, errs)
	case *Ternary:
		resolveCallsInExpr(prog, n.Cond, ext, errs)
		resolveCallsInExpr(prog, n.Then, ext, errs)
		resolveCallsInExpr(prog, n.Else, ext, errs)
	case *Grouping:
		for _, x := range n.Exprs {
			resolveCallsInExpr(prog, x, ext, errs)
		}
	case *FieldExpr:
		resolveCallsInExpr(prog, n.Index, ext, errs)
	case *Getline:
		resolveCallsInExpr(prog, n.Var, ext, errs)
		resolveCallsInExpr(prog, n.Source, ext, errs)
	}
}

// builtinNames is the POSIX builtin function set recognized independent
// of the function table; kept here (rather than importing pkg/lexer) so
// pkg/ast has no dependency on the front end.
var builtinNames = map[string]bool{
	"length": true, "substr": true, "index": true, "split": true,
	"sub": true, "gsub": true, "match": true, "sprintf": true,
	"sin": true, "cos": true, "atan2": true, "exp": true, "log": true,
	"sqrt": true, "int": true, "rand": true, "srand": true,
	"tolower": true, "toupper": true, "system": true, "close": true,
	"fflush": true,
}

// IsBuiltinName reports whether name is a POSIX builtin function.
func IsBuiltinName(name string) bool {
	return builtinNames[name]
}
