package parser

import (
	"fmt"
	"strings"

	"github.com/Glaschu/tsqllineage/pkg/token"
)

// Primary expression parsing: literals, column refs, variables, function calls.
//
// Grammar:
//
//	primary       → literal | column_ref | variable | func_call | paren_expr | case_expr | cast_expr | exists_expr
//	literal       → NUMBER | STRING | TRUE | FALSE | NULL
//	column_ref    → [table "."] column | [schema "." table "."] column
//	func_call     → identifier "(" [DISTINCT] [expr_list | "*"] ")" [OVER window_spec]

// parsePrimary parses primary expressions.
func (p *Parser) parsePrimary() Expr {
	switch p.token.Type {
	case token.NUMBER:
		lit := &Literal{Type: LiteralNumber, Value: p.token.Literal}
		p.nextToken()
		return lit

	case token.STRING:
		lit := &Literal{Type: LiteralString, Value: p.token.Literal}
		p.nextToken()
		return lit

	case token.TRUE:
		p.nextToken()
		return &Literal{Type: LiteralBool, Value: "true"}

	case token.FALSE:
		p.nextToken()
		return &Literal{Type: LiteralBool, Value: "false"}

	case token.NULL:
		p.nextToken()
		return &Literal{Type: LiteralNull, Value: "null"}

	case token.LOCALVAR:
		v := &Variable{Name: p.token.Literal}
		p.nextToken()
		return v

	case token.CASE:
		return p.parseCaseExpr()

	case token.CAST:
		return p.parseCastExpr()

	case token.NOT:
		if p.checkPeek(token.EXISTS) {
			p.nextToken() // consume NOT
			return p.parseExistsExpr(true)
		}
		p.nextToken()
		return &UnaryExpr{Op: token.NOT, Expr: p.parsePrimary()}

	case token.EXISTS:
		return p.parseExistsExpr(false)

	case token.IDENT:
		return p.parseIdentifierExpr()

	case token.LPAREN:
		return p.parseParenExpr()

	case token.STAR:
		p.nextToken()
		return &StarExpr{}

	default:
		p.addError(fmt.Sprintf("unexpected token in expression: %s", p.token.Type))
		p.nextToken()
		return nil
	}
}

// parseIdentifierExpr parses an identifier which could be a column ref or function call.
func (p *Parser) parseIdentifierExpr() Expr {
	name := p.token.Literal
	p.nextToken()

	if p.check(token.LPAREN) {
		return p.parseFuncCall(name)
	}

	if p.check(token.DOT) {
		return p.parseQualifiedColumnRef(name)
	}

	return &ColumnRef{Column: name}
}

// parseQualifiedColumnRef parses a qualified column reference of the form
// table.column or schema.table.column (or a trailing table.* star).
func (p *Parser) parseQualifiedColumnRef(firstPart string) Expr {
	parts := []string{firstPart}

	for p.match(token.DOT) {
		if p.check(token.STAR) {
			p.nextToken()
			return &StarExpr{Table: parts[len(parts)-1]}
		}

		// After a dot a keyword is just a name part (c.desc, t.end).
		if p.check(token.IDENT) || token.IsKeyword(p.token.Type) {
			parts = append(parts, p.token.Literal)
			p.nextToken()
		}
	}

	ref := &ColumnRef{}
	switch len(parts) {
	case 2:
		ref.Table = parts[0]
		ref.Column = parts[1]
	case 3, 4:
		// schema.table.column or catalog.schema.table.column: the table
		// qualifier closest to the column is what lineage resolution
		// matches against scope entries.
		ref.Table = parts[len(parts)-2]
		ref.Column = parts[len(parts)-1]
	default:
		ref.Column = parts[len(parts)-1]
	}

	return ref
}

// parseFuncCall parses a function call.
func (p *Parser) parseFuncCall(name string) Expr {
	fn := &FuncCall{Name: strings.ToUpper(name)}

	p.expect(token.LPAREN)

	if p.check(token.STAR) {
		fn.Star = true
		p.nextToken()
	} else if !p.check(token.RPAREN) {
		if p.match(token.DISTINCT) {
			fn.Distinct = true
		}

		for {
			arg := p.parseExpression()
			fn.Args = append(fn.Args, arg)

			if !p.match(token.COMMA) {
				break
			}
		}
	}

	p.expect(token.RPAREN)

	if p.match(token.OVER) {
		fn.Window = p.parseWindowSpec()
	}

	return fn
}
