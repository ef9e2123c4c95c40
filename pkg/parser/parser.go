// Package parser turns a token stream from pkg/lexer into a pkg/ast.Program
// using recursive descent, in the same style the front end of this project
// has always used: one function per grammar production, errors accumulated
// rather than raised, and a final Errors() call the caller checks once
// parsing finishes instead of on every call.
package parser

import (
	"fmt"

	"github.com/tawk-lang/tawk/pkg/ast"
	"github.com/tawk-lang/tawk/pkg/lexer"
)

// ParseError is one recorded parse failure; the parser records every one
// it meets, but Parse returns only the first.
type ParseError struct {
	Message    string
	Line, Col  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Message)
}

// Parser consumes a fully-lexed token slice and builds an ast.Program.
type Parser struct {
	toks []lexer.Token
	pos  int
	errs []*ParseError

	prog *ast.Program
}

// Parse lexes src in full and parses it into a Program. Lexer errors are
// reported as parse errors rather than silently truncating the token
// stream, since a lex failure partway through the source would otherwise
// make every later parse error meaningless.
//
// ext, if non-nil, is consulted while resolving call sites so a call to
// a registered extension keyword is recognized and arity-checked rather
// than reported as an undefined function; pass nil when no extensions
// are registered (e.g. most tests exercising only builtins/user
// functions).
func Parse(src string, ext ast.ExtensionLookup) (*ast.Program, []*ParseError) {
	l := lexer.New(src)
	var toks []lexer.Token
	var errs []*ParseError
	for {
		tok, err := l.NextToken()
		if err != nil {
			if le, ok := err.(*lexer.LexerError); ok {
				errs = append(errs, &ParseError{Message: le.Message, Line: le.Line, Col: le.Column})
			} else {
				errs = append(errs, &ParseError{Message: err.Error()})
			}
			break
		}
		toks = append(toks, tok)
		if tok.Type == lexer.EOF {
			break
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	p := &Parser{toks: toks}
	p.prog = &ast.Program{Functions: map[string]*ast.FunctionDef{}}
	p.parseProgram()
	if len(p.errs) > 0 {
		return nil, p.errs[:1]
	}
	if resolveErrs := ast.Resolve(p.prog, ext); len(resolveErrs) > 0 {
		for _, e := range resolveErrs {
			p.errs = append(p.errs, &ParseError{Message: e.Error()})
		}
		return nil, p.errs
	}
	return p.prog, nil
}

func (p *Parser) Errors() []*ParseError { return p.errs }

func (p *Parser) addError(format string, args ...any) {
	tok := p.cur()
	p.errs = append(p.errs, &ParseError{Message: fmt.Sprintf(format, args...), Line: tok.Line, Col: tok.Column})
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) peekAt(n int) lexer.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) at(tt lexer.TokenType) bool { return p.cur().Type == tt }

func (p *Parser) advance() lexer.Token {
	tok := p.cur()
	if tok.Type != lexer.EOF {
		p.pos++
	}
	return tok
}

// skipNewlines consumes any run of NEWLINE tokens; POSIX awk allows (and
// in many places requires tolerating) blank lines between statements and
// after tokens like { , && || do else.
func (p *Parser) skipNewlines() {
	for p.at(lexer.NEWLINE) {
		p.advance()
	}
}

// skipTerminators consumes a run of NEWLINE and ';' tokens, the standard
// separator between statements.
func (p *Parser) skipTerminators() {
	for p.at(lexer.NEWLINE) || p.at(lexer.SEMICOLON) {
		p.advance()
	}
}

func (p *Parser) expect(tt lexer.TokenType, what string) lexer.Token {
	if !p.at(tt) {
		p.addError("expected %s, got %q", what, p.cur().Literal)
		return p.cur()
	}
	return p.advance()
}

func (p *Parser) pos2(tok lexer.Token) (int, int) { return tok.Line, tok.Column }

func posOf(tok lexer.Token) ast.Base { return ast.Base{Line: tok.Line, Col: tok.Column} }

func newIf(tok lexer.Token, cond ast.Expr, then, els ast.Stmt) *ast.If {
	return &ast.If{Base: posOf(tok), Cond: cond, Then: then, Else: els}
}

func newWhile(tok lexer.Token, cond ast.Expr, body ast.Stmt) *ast.While {
	return &ast.While{Base: posOf(tok), Cond: cond, Body: body}
}

func newDoWhile(tok lexer.Token, body ast.Stmt, cond ast.Expr) *ast.DoWhile {
	return &ast.DoWhile{Base: posOf(tok), Body: body, Cond: cond}
}

func newFor(tok lexer.Token, init ast.Stmt, cond ast.Expr, post ast.Stmt, body ast.Stmt) *ast.For {
	return &ast.For{Base: posOf(tok), Init: init, Cond: cond, Post: post, Body: body}
}

func newForIn(tok lexer.Token, keyVar string, arr ast.Expr, body ast.Stmt) *ast.ForIn {
	return &ast.ForIn{Base: posOf(tok), KeyVar: keyVar, Array: arr, Body: body}
}

func newDelete(tok lexer.Token, arr ast.Expr, subscript []ast.Expr) *ast.Delete {
	return &ast.Delete{Base: posOf(tok), Array: arr, Subscript: subscript}
}

// ---- Top level ----

func (p *Parser) parseProgram() {
	p.skipTerminators()
	for !p.at(lexer.EOF) {
		switch {
		case p.at(lexer.FUNCTION) || p.at(lexer.FUNC_NAME) && p.peekAt(1).Type == lexer.LPAREN:
			p.parseFunctionDef()
		default:
			p.parseRule()
		}
		p.skipTerminators()
	}
}

func (p *Parser) parseFunctionDef() {
	start := p.cur()
	p.advance() // 'function' (or bare FUNC_NAME in some awk dialects; lexer always emits FUNCTION keyword)
	nameTok := p.cur()
	if nameTok.Type != lexer.IDENT && nameTok.Type != lexer.FUNC_NAME {
		p.addError("expected function name, got %q", nameTok.Literal)
	}
	p.advance()
	fn := &ast.FunctionDef{Name: nameTok.Literal}
	fn.Line, fn.Col = p.pos2(start)

	p.expect(lexer.LPAREN, "'('")
	for !p.at(lexer.RPAREN) && !p.at(lexer.EOF) {
		id := p.expect(lexer.IDENT, "parameter name")
		fn.Params = append(fn.Params, id.Literal)
		if p.at(lexer.COMMA) {
			p.advance()
			p.skipNewlines()
		} else {
			break
		}
	}
	p.expect(lexer.RPAREN, "')'")
	p.skipNewlines()
	fn.Body = p.parseBlock()

	if _, exists := p.prog.Functions[fn.Name]; exists {
		p.addError("function %q redefined", fn.Name)
	}
	p.prog.Functions[fn.Name] = fn
	p.prog.FuncOrder = append(p.prog.FuncOrder, fn.Name)
}

func (p *Parser) parseRule() {
	rule := &ast.Rule{}
	rule.Line, rule.Col = p.pos2(p.cur())

	switch {
	case p.at(lexer.BEGIN):
		p.advance()
		rule.Kind = ast.PatternBegin
	case p.at(lexer.END):
		p.advance()
		rule.Kind = ast.PatternEnd
	case p.at(lexer.LBRACE):
		rule.Kind = ast.PatternAlways
	default:
		rule.Kind = ast.PatternExpr
		rule.Expr = p.parseExpr(precTernary, false)
		if p.at(lexer.COMMA) {
			p.advance()
			p.skipNewlines()
			rule.Kind = ast.PatternRange
			rule.RangeEnd = p.parseExpr(precTernary, false)
		}
	}

	if p.at(lexer.LBRACE) {
		rule.Action = p.parseBlock()
		rule.HasAction = true
	} else if rule.Kind == ast.PatternBegin || rule.Kind == ast.PatternEnd {
		p.addError("BEGIN/END require an action block")
	}
	p.prog.Rules = append(p.prog.Rules, rule)
}

func (p *Parser) parseBlock() []ast.Stmt {
	p.expect(lexer.LBRACE, "'{'")
	p.skipTerminators()
	var stmts []ast.Stmt
	for !p.at(lexer.RBRACE) && !p.at(lexer.EOF) {
		stmts = append(stmts, p.parseStatement())
		p.skipTerminators()
	}
	p.expect(lexer.RBRACE, "'}'")
	return stmts
}

// ---- Statements ----

func (p *Parser) parseStatement() ast.Stmt {
	tok := p.cur()
	switch tok.Type {
	case lexer.LBRACE:
		return &ast.Block{Base: posOf(tok), Stmts: p.parseBlock()}
	case lexer.IF:
		return p.parseIf()
	case lexer.WHILE:
		return p.parseWhile()
	case lexer.DO:
		return p.parseDoWhile()
	case lexer.FOR:
		return p.parseFor()
	case lexer.BREAK:
		p.advance()
		return &ast.Break{Base: posOf(tok)}
	case lexer.CONTINUE:
		p.advance()
		return &ast.Continue{Base: posOf(tok)}
	case lexer.NEXT:
		p.advance()
		return &ast.Next{Base: posOf(tok)}
	case lexer.NEXTFILE:
		p.advance()
		return &ast.NextFile{Base: posOf(tok)}
	case lexer.EXIT:
		p.advance()
		stmt := &ast.Exit{Base: posOf(tok)}
		if p.startsExpr() {
			stmt.Code = p.parseExpr(precTernary, false)
		}
		return stmt
	case lexer.RETURN:
		p.advance()
		stmt := &ast.Return{Base: posOf(tok)}
		if p.startsExpr() {
			stmt.Value = p.parseExpr(precTernary, false)
		}
		return stmt
	case lexer.DELETE:
		return p.parseDelete()
	case lexer.PRINT:
		return p.parsePrint()
	case lexer.PRINTF:
		return p.parsePrintf()
	case lexer.SEMICOLON:
		return &ast.Block{Base: posOf(tok)}
	default:
		expr := p.parseExpr(precTernary, false)
		return &ast.ExprStmt{Base: posOf(tok), X: expr}
	}
}

// startsExpr reports whether the current token could begin an expression,
// used to distinguish `exit` / `exit 1` and `return` / `return x`.
func (p *Parser) startsExpr() bool {
	switch p.cur().Type {
	case lexer.SEMICOLON, lexer.NEWLINE, lexer.RBRACE, lexer.EOF:
		return false
	}
	return true
}

func (p *Parser) parseIf() ast.Stmt {
	tok := p.advance()
	p.expect(lexer.LPAREN, "'('")
	cond := p.parseExpr(precTernary, false)
	p.expect(lexer.RPAREN, "')'")
	p.skipNewlines()
	then := p.parseStatement()
	stmt := newIf(tok, cond, then, nil)
	save := p.pos
	p.skipTerminators()
	if p.at(lexer.ELSE) {
		p.advance()
		p.skipNewlines()
		stmt.Else = p.parseStatement()
	} else {
		p.pos = save
	}
	return stmt
}

func (p *Parser) parseWhile() ast.Stmt {
	tok := p.advance()
	p.expect(lexer.LPAREN, "'('")
	cond := p.parseExpr(precTernary, false)
	p.expect(lexer.RPAREN, "')'")
	p.skipNewlines()
	body := p.parseStatement()
	return newWhile(tok, cond, body)
}

func (p *Parser) parseDoWhile() ast.Stmt {
	tok := p.advance()
	p.skipNewlines()
	body := p.parseStatement()
	p.skipTerminators()
	p.expect(lexer.WHILE, "'while'")
	p.expect(lexer.LPAREN, "'('")
	cond := p.parseExpr(precTernary, false)
	p.expect(lexer.RPAREN, "')'")
	return newDoWhile(tok, body, cond)
}

func (p *Parser) parseFor() ast.Stmt {
	tok := p.advance()
	p.expect(lexer.LPAREN, "'('")

	// Disambiguate `for (k in arr)` from the C-style for.
	if p.at(lexer.IDENT) && p.peekAt(1).Type == lexer.IN {
		keyTok := p.advance()
		p.advance() // 'in'
		arr := p.parseExpr(precTernary, false)
		p.expect(lexer.RPAREN, "')'")
		p.skipNewlines()
		body := p.parseStatement()
		return newForIn(tok, keyTok.Literal, arr, body)
	}
	// Also handle `for ((k) in arr)`
	if p.at(lexer.LPAREN) {
		save := p.pos
		p.advance()
		if p.at(lexer.IDENT) && p.peekAt(1).Type == lexer.RPAREN && p.peekAt(2).Type == lexer.IN {
			keyTok := p.advance()
			p.advance() // ')'
			p.advance() // 'in'
			arr := p.parseExpr(precTernary, false)
			p.expect(lexer.RPAREN, "')'")
			p.skipNewlines()
			body := p.parseStatement()
			return newForIn(tok, keyTok.Literal, arr, body)
		}
		p.pos = save
	}

	var init ast.Stmt
	if !p.at(lexer.SEMICOLON) {
		init = p.parseStatement()
	}
	p.expect(lexer.SEMICOLON, "';'")
	var cond ast.Expr
	if !p.at(lexer.SEMICOLON) {
		cond = p.parseExpr(precTernary, false)
	}
	p.expect(lexer.SEMICOLON, "';'")
	var post ast.Stmt
	if !p.at(lexer.RPAREN) {
		post = p.parseStatement()
	}
	p.expect(lexer.RPAREN, "')'")
	p.skipNewlines()
	body := p.parseStatement()
	return newFor(tok, init, cond, post, body)
}

func (p *Parser) parseDelete() ast.Stmt {
	tok := p.advance()
	name := p.expect(lexer.IDENT, "array name")
	arr := &ast.Ident{Name: name.Literal}
	arr.Line, arr.Col = p.pos2(name)
	stmt := newDelete(tok, arr, nil)
	if p.at(lexer.LBRACKET) {
		p.advance()
		stmt.Subscript = p.parseExprList(lexer.RBRACKET)
		p.expect(lexer.RBRACKET, "']'")
	} else if p.at(lexer.LPAREN) {
		// some awk implementations accept delete arr(...)  — not standard
		// but tolerated; treat as whole-array delete and report it.
		p.addError("unexpected '(' after delete target")
	}
	return stmt
}

// parsePrintArgs parses the comma-separated expression list used by print
// and printf, stopping before a bare '>' / '>>' / '|' so those can be
// reinterpreted as output redirection rather than relational/pipe
// operators — the same ambiguity POSIX's grammar resolves with a
// dedicated "simple_print_statement" production.
func (p *Parser) parsePrintArgs() []ast.Expr {
	if !p.startsExpr() || p.at(lexer.GT) || p.at(lexer.APPEND) || p.at(lexer.PIPE) {
		return nil
	}
	var args []ast.Expr
	args = append(args, p.parseExpr(precTernary, true))
	for p.at(lexer.COMMA) {
		p.advance()
		p.skipNewlines()
		args = append(args, p.parseExpr(precTernary, true))
	}
	// A single parenthesized, comma-separated group — print (a, b) — is
	// sugar for print a, b.
	if len(args) == 1 {
		if g, ok := args[0].(*ast.Grouping); ok && len(g.Exprs) > 1 {
			return g.Exprs
		}
	}
	return args
}

func (p *Parser) parseRedirect() (ast.RedirectKind, ast.Expr) {
	switch {
	case p.at(lexer.GT):
		p.advance()
		return ast.RedirectTruncate, p.parseExpr(precConcat, false)
	case p.at(lexer.APPEND):
		p.advance()
		return ast.RedirectAppend, p.parseExpr(precConcat, false)
	case p.at(lexer.PIPE):
		p.advance()
		return ast.RedirectPipeOut, p.parseExpr(precConcat, false)
	}
	return ast.RedirectNone, nil
}

func (p *Parser) parsePrint() ast.Stmt {
	tok := p.advance()
	args := p.parsePrintArgs()
	kind, dest := p.parseRedirect()
	return &ast.Print{Base: posOf(tok), Args: args, Redirect: kind, Dest: dest}
}

func (p *Parser) parsePrintf() ast.Stmt {
	tok := p.advance()
	args := p.parsePrintArgs()
	kind, dest := p.parseRedirect()
	return &ast.Printf{Base: posOf(tok), Args: args, Redirect: kind, Dest: dest}
}

// ---- Expressions ----
//
// Precedence climbs from assignment (lowest) to grouping/field (highest).
// noGT suppresses the bare '>' (and '|' used for getline piping) at the
// top level of an expression, matching the print/printf redirection
// carve-out in the POSIX grammar.

const (
	precAssign = iota
	precTernary
	precOr
	precAnd
	precIn
	precMatch
	precRel
	precConcat
	precAdditive
	precMultiplicative
	precUnary
	precPow
	precPostfix
)

func (p *Parser) parseExpr(minPrec int, noGT bool) ast.Expr {
	left := p.parseUnary(noGT)
	return p.parseBinaryRHS(left, minPrec, noGT)
}

func (p *Parser) parseExprList(end lexer.TokenType) []ast.Expr {
	var exprs []ast.Expr
	for !p.at(end) && !p.at(lexer.EOF) {
		exprs = append(exprs, p.parseExpr(precTernary, false))
		if p.at(lexer.COMMA) {
			p.advance()
			p.skipNewlines()
		} else {
			break
		}
	}
	return exprs
}

// parseBinaryRHS implements precedence climbing over the non-unary
// operators, plus the special-cased assignment, ternary, concatenation,
// and `in` productions that don't fit a single uniform operator table.
func (p *Parser) parseBinaryRHS(left ast.Expr, minPrec int, noGT bool) ast.Expr {
	for {
		tok := p.cur()

		if isAssignOp(tok.Type) && minPrec <= precTernary {
			p.advance()
			value := p.parseExpr(precAssign, noGT)
			left = &ast.Assign{Base: posOf(tok), Target: left, Op: assignOpStr(tok.Type), Value: value}
			continue
		}

		if tok.Type == lexer.QUESTION && minPrec <= precTernary {
			p.advance()
			p.skipNewlines()
			then := p.parseExpr(precTernary, noGT)
			p.expect(lexer.COLON, "':'")
			p.skipNewlines()
			els := p.parseExpr(precTernary, noGT)
			left = &ast.Ternary{Base: posOf(tok), Cond: left, Then: then, Else: els}
			continue
		}

		if tok.Type == lexer.OR && minPrec <= precOr {
			p.advance()
			p.skipNewlines()
			right := p.parseExprAt(precAnd, noGT)
			left = &ast.Binary{Base: posOf(tok), Op: "||", Left: left, Right: right}
			continue
		}

		if tok.Type == lexer.AND && minPrec <= precAnd {
			p.advance()
			p.skipNewlines()
			right := p.parseExprAt(precIn, noGT)
			left = &ast.Binary{Base: posOf(tok), Op: "&&", Left: left, Right: right}
			continue
		}

		if tok.Type == lexer.IN && minPrec <= precIn {
			p.advance()
			arr := p.parseExprAt(precMatch, noGT)
			left = &ast.In{Base: posOf(tok), Subscript: groupExprs(left), Array: arr}
			continue
		}

		if (tok.Type == lexer.MATCH || tok.Type == lexer.NOTMATCH) && minPrec <= precMatch {
			p.advance()
			right := p.parseExprAt(precRel, noGT)
			op := "~"
			if tok.Type == lexer.NOTMATCH {
				op = "!~"
			}
			left = &ast.Binary{Base: posOf(tok), Op: op, Left: left, Right: right}
			continue
		}

		if isRelOp(tok.Type, noGT) && minPrec <= precRel {
			p.advance()
			right := p.parseExprAt(precConcat, noGT)
			left = &ast.Binary{Base: posOf(tok), Op: tok.Literal, Left: left, Right: right}
			continue
		}

		if minPrec <= precConcat && startsConcatOperand(tok, noGT) {
			right := p.parseExprAt(precAdditive, noGT)
			left = &ast.Binary{Base: posOf(tok), Op: "concat", Left: left, Right: right}
			continue
		}

		if (tok.Type == lexer.PLUS || tok.Type == lexer.MINUS) && minPrec <= precAdditive {
			p.advance()
			right := p.parseExprAt(precMultiplicative, noGT)
			left = &ast.Binary{Base: posOf(tok), Op: tok.Literal, Left: left, Right: right}
			continue
		}

		if (tok.Type == lexer.STAR || tok.Type == lexer.SLASH || tok.Type == lexer.PERCENT) && minPrec <= precMultiplicative {
			p.advance()
			right := p.parseUnary(noGT)
			left = &ast.Binary{Base: posOf(tok), Op: tok.Literal, Left: left, Right: right}
			continue
		}

		break
	}
	return left
}

func (p *Parser) parseExprAt(prec int, noGT bool) ast.Expr {
	left := p.parseUnary(noGT)
	return p.parseBinaryRHS(left, prec, noGT)
}

// groupExprs turns a parenthesized list `(a, b)` parsed as *ast.Grouping
// back into its element list for the `in` operator's multi-subscript
// form; a bare expression becomes a one-element list.
func groupExprs(e ast.Expr) []ast.Expr {
	if g, ok := e.(*ast.Grouping); ok && len(g.Exprs) > 1 {
		return g.Exprs
	}
	return []ast.Expr{e}
}

// startsConcatOperand decides whether the current token can begin the
// right operand of the implicit concatenation operator. '+' and '-' are
// deliberately excluded: `a - b` parses as subtraction, not as `a`
// concatenated with unary-minus `b` — concatenation only kicks in when no
// other binary operator claims the token, and the additive check runs
// after this one.
func startsConcatOperand(tok lexer.Token, noGT bool) bool {
	switch tok.Type {
	case lexer.NUMBER, lexer.STRING, lexer.ERE, lexer.IDENT, lexer.FUNC_NAME,
		lexer.BUILTIN_FUNC_NAME, lexer.DOLLAR, lexer.LPAREN, lexer.NOT:
		return true
	}
	return false
}

func isAssignOp(tt lexer.TokenType) bool {
	switch tt {
	case lexer.ASSIGN, lexer.ADD_ASSIGN, lexer.SUB_ASSIGN, lexer.MUL_ASSIGN,
		lexer.DIV_ASSIGN, lexer.MOD_ASSIGN, lexer.POW_ASSIGN:
		return true
	}
	return false
}

func assignOpStr(tt lexer.TokenType) string {
	switch tt {
	case lexer.ADD_ASSIGN:
		return "+="
	case lexer.SUB_ASSIGN:
		return "-="
	case lexer.MUL_ASSIGN:
		return "*="
	case lexer.DIV_ASSIGN:
		return "/="
	case lexer.MOD_ASSIGN:
		return "%="
	case lexer.POW_ASSIGN:
		return "^="
	default:
		return "="
	}
}

func isRelOp(tt lexer.TokenType, noGT bool) bool {
	switch tt {
	case lexer.LT, lexer.LE, lexer.NE, lexer.EQ, lexer.GE:
		return true
	case lexer.GT:
		return !noGT
	default:
		return false
	}
}

// parseUnary handles prefix operators, postfix ++/--, and the ^ tower
// (right-associative, binding tighter than unary minus: -2^2 == -4).
func (p *Parser) parseUnary(noGT bool) ast.Expr {
	tok := p.cur()
	switch tok.Type {
	case lexer.NOT:
		p.advance()
		operand := p.parseUnary(noGT)
		return &ast.Unary{Base: posOf(tok), Op: "!", Operand: operand}
	case lexer.MINUS:
		p.advance()
		operand := p.parseUnary(noGT)
		return &ast.Unary{Base: posOf(tok), Op: "-", Operand: operand}
	case lexer.PLUS:
		p.advance()
		operand := p.parseUnary(noGT)
		return &ast.Unary{Base: posOf(tok), Op: "+", Operand: operand}
	case lexer.INCR, lexer.DECR:
		p.advance()
		target := p.parseUnary(noGT)
		op := "++"
		if tok.Type == lexer.DECR {
			op = "--"
		}
		return &ast.IncrDecr{Base: posOf(tok), Target: target, Op: op, Postfix: false}
	}
	return p.parsePow(noGT)
}

func (p *Parser) parsePow(noGT bool) ast.Expr {
	base := p.parsePostfix(noGT)
	if p.at(lexer.CARET) {
		tok := p.advance()
		// right-associative: the RHS may itself start with unary minus,
		// e.g. 2^-2.
		right := p.parseUnary(noGT)
		return &ast.Binary{Base: posOf(tok), Op: "^", Left: base, Right: right}
	}
	return base
}

func (p *Parser) parsePostfix(noGT bool) ast.Expr {
	expr := p.parsePrimary(noGT)
	for p.at(lexer.INCR) || p.at(lexer.DECR) {
		tok := p.advance()
		op := "++"
		if tok.Type == lexer.DECR {
			op = "--"
		}
		expr = &ast.IncrDecr{Base: posOf(tok), Target: expr, Op: op, Postfix: true}
	}
	return expr
}

func (p *Parser) parsePrimary(noGT bool) ast.Expr {
	tok := p.cur()
	switch tok.Type {
	case lexer.NUMBER:
		p.advance()
		return &ast.NumberLit{Base: posOf(tok), Value: parseFloat(tok.Literal)}
	case lexer.STRING:
		p.advance()
		return &ast.StringLit{Base: posOf(tok), Value: tok.Literal}
	case lexer.ERE:
		p.advance()
		return &ast.RegexLit{Base: posOf(tok), Source: tok.Literal}
	case lexer.DOLLAR:
		p.advance()
		idx := p.parseUnary(noGT)
		return p.maybeIndexOrCall(&ast.FieldExpr{Base: posOf(tok), Index: idx}, noGT)
	case lexer.LPAREN:
		p.advance()
		exprs := p.parseExprList(lexer.RPAREN)
		p.expect(lexer.RPAREN, "')'")
		grp := &ast.Grouping{Base: posOf(tok), Exprs: exprs}
		if p.at(lexer.PIPE) && p.peekAt(1).Type == lexer.GETLINE {
			return p.parseGetlineFromCmd(grp)
		}
		return grp
	case lexer.GETLINE:
		return p.parseGetline(noGT)
	case lexer.BUILTIN_FUNC_NAME:
		p.advance()
		return p.parseCall(tok, true)
	case lexer.FUNC_NAME:
		p.advance()
		return p.parseCall(tok, false)
	case lexer.IDENT:
		p.advance()
		id := &ast.Ident{Base: posOf(tok), Name: tok.Literal}
		if p.at(lexer.LBRACKET) {
			p.advance()
			sub := p.parseExprList(lexer.RBRACKET)
			p.expect(lexer.RBRACKET, "']'")
			idx := &ast.IndexExpr{Base: posOf(tok), Array: id, Subscript: sub}
			if p.at(lexer.PIPE) && p.peekAt(1).Type == lexer.GETLINE {
				return p.parseGetlineFromCmd(idx)
			}
			return idx
		}
		if p.at(lexer.PIPE) && p.peekAt(1).Type == lexer.GETLINE {
			return p.parseGetlineFromCmd(id)
		}
		return id
	default:
		p.addError("unexpected token %q in expression", tok.Literal)
		p.advance()
		return &ast.StringLit{Base: posOf(tok), Value: ""}
	}
}

// maybeIndexOrCall supports $var[i] style subscripting of a computed
// field name, which awk allows since $ binds to a primary expression.
func (p *Parser) maybeIndexOrCall(e ast.Expr, noGT bool) ast.Expr {
	if p.at(lexer.PIPE) && p.peekAt(1).Type == lexer.GETLINE {
		return p.parseGetlineFromCmd(e)
	}
	return e
}

func (p *Parser) parseCall(nameTok lexer.Token, builtin bool) ast.Expr {
	call := &ast.Call{Base: posOf(nameTok), Name: nameTok.Literal}
	if !p.at(lexer.LPAREN) {
		// length may be used bare, with no parens at all.
		return call
	}
	p.advance()
	call.Args = p.parseExprList(lexer.RPAREN)
	p.expect(lexer.RPAREN, "')'")
	_ = builtin
	if p.at(lexer.PIPE) && p.peekAt(1).Type == lexer.GETLINE {
		return p.parseGetlineFromCmd(call)
	}
	return call
}

// parseGetline handles the four forms that start with the `getline`
// keyword itself: `getline`, `getline var`, `getline < file`, and
// `getline var < file`. The fifth form, `cmd | getline [var]`, is parsed
// from the command-expression side in parseGetlineFromCmd.
func (p *Parser) parseGetline(noGT bool) ast.Expr {
	tok := p.advance()
	g := &ast.Getline{Base: posOf(tok)}
	if p.at(lexer.IDENT) || p.at(lexer.DOLLAR) {
		g.Var = p.parseUnary(noGT)
		g.Kind = ast.GetlineVar
	} else {
		g.Kind = ast.GetlineSimple
	}
	if p.at(lexer.LT) {
		p.advance()
		g.Source = p.parseExprAt(precConcat, noGT)
		if g.Kind == ast.GetlineVar {
			g.Kind = ast.GetlineFileVar
		} else {
			g.Kind = ast.GetlineFile
		}
	}
	return g
}

func (p *Parser) parseGetlineFromCmd(cmd ast.Expr) ast.Expr {
	tok := p.advance() // '|'
	p.expect(lexer.GETLINE, "'getline'")
	g := &ast.Getline{Base: posOf(tok), Source: cmd, Kind: ast.GetlineCmd}
	if p.at(lexer.IDENT) || p.at(lexer.DOLLAR) {
		g.Var = p.parseUnary(false)
		g.Kind = ast.GetlineCmdVar
	}
	return g
}

func parseFloat(lit string) float64 {
	var f float64
	_, err := fmt.Sscanf(lit, "%g", &f)
	if err != nil {
		return 0
	}
	return f
}
