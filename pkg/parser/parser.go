// Package parser implements a recursive-descent parser for the subset of
// T-SQL needed for column-level lineage analysis: SELECT (with CTEs and
// set operations), INSERT, UPDATE, MERGE, CREATE TABLE, CREATE PROCEDURE,
// and the DECLARE/SET/IF/WHILE/BEGIN...END/GO control-flow scaffolding
// that real procedure bodies are wrapped in.
//
// # Usage
//
//	prog, err := parser.Parse(sqlText)
//	if err != nil {
//	    // handle error
//	}
//
// Unlike a general-purpose multi-dialect SQL engine, this parser targets
// exactly one dialect, so there is no pluggable clause/operator
// machinery: every grammar rule is hardcoded against the T-SQL token set
// in pkg/token.
package parser

import (
	"fmt"

	"github.com/Glaschu/tsqllineage/pkg/token"
)

// Parser parses T-SQL into an AST.
type Parser struct {
	lexer  *Lexer
	token  Token // current token
	peek   Token // lookahead token
	peek2  Token // second lookahead token
	errors []error
}

// NewParser creates a new parser for the given SQL input.
func NewParser(sql string) *Parser {
	p := &Parser{
		lexer: NewLexer(sql),
	}
	// Read three tokens to initialize current, peek, and peek2.
	p.nextToken()
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a full script (possibly multiple GO-separated batches)
// into a Program.
func Parse(sql string) (*Program, error) {
	p := NewParser(sql)
	prog := p.parseProgram()
	if len(p.errors) > 0 {
		return prog, p.errors[0]
	}
	return prog, nil
}

// ParseStatement parses a single statement and returns it. Useful for
// tests and for callers that already split a script into individual
// statements.
func ParseStatement(sql string) (Statement, error) {
	p := NewParser(sql)
	stmt := p.parseTopLevelStatement()
	if len(p.errors) > 0 {
		return stmt, p.errors[0]
	}
	return stmt, nil
}

// ---------- Token helpers ----------

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.peek2
	p.peek2 = p.lexer.NextToken()
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t TokenType) bool {
	return p.token.Type == t
}

// checkPeek returns true if the peek token is of the given type.
func (p *Parser) checkPeek(t TokenType) bool {
	return p.peek.Type == t
}

// checkPeek2 returns true if the peek2 token is of the given type.
func (p *Parser) checkPeek2(t TokenType) bool {
	return p.peek2.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// matchAny consumes the current token if it matches any of the given types.
func (p *Parser) matchAny(types ...TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.nextToken()
			return true
		}
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.token.Type, t))
	return false
}

// addError records a parse error at the current token. It does not
// advance; callers that must skip the offending token to keep making
// progress call nextToken themselves.
func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, &ParseError{
		Pos:     p.token.Pos,
		Message: msg,
	})
}

// ---------- Keyword helpers ----------

// isJoinKeyword returns true if the token is a JOIN-related keyword that
// cannot double as a bare table alias.
func (p *Parser) isJoinKeyword(tok Token) bool {
	switch tok.Type {
	case token.JOIN, token.LEFT, token.RIGHT, token.INNER, token.OUTER, token.FULL, token.CROSS, token.ON:
		return true
	}
	return false
}

// isClauseKeyword returns true if the token starts a new clause and so
// cannot double as a bare table/column alias.
func (p *Parser) isClauseKeyword(tok Token) bool {
	switch tok.Type {
	case token.WHERE, token.GROUP, token.HAVING, token.ORDER, token.UNION, token.INTERSECT, token.EXCEPT,
		token.SET, token.FROM, token.INTO, token.WHEN, token.USING, token.OUTPUT:
		return true
	}
	return false
}
