package parser

import "github.com/Glaschu/tsqllineage/pkg/token"

// Special expression parsing: CASE, CAST, EXISTS, parenthesized expressions, subqueries.
//
// Grammar:
//
//	case_expr     → CASE [expr] (WHEN expr THEN expr)+ [ELSE expr] END
//	cast_expr     → CAST "(" expr AS type_name ")"
//	exists_expr   → [NOT] EXISTS "(" select_stmt ")"
//	paren_expr    → "(" expression ")" | "(" select_stmt ")"  -- subquery if SELECT/WITH
//	type_name     → identifier ["(" number ["," number] ")"]

// parseCaseExpr parses a CASE expression.
func (p *Parser) parseCaseExpr() Expr {
	p.expect(token.CASE)
	caseExpr := &CaseExpr{}

	if !p.check(token.WHEN) {
		caseExpr.Operand = p.parseExpression()
	}

	for p.match(token.WHEN) {
		when := WhenClause{}
		when.Condition = p.parseExpression()
		p.expect(token.THEN)
		when.Result = p.parseExpression()
		caseExpr.Whens = append(caseExpr.Whens, when)
	}

	if p.match(token.ELSE) {
		caseExpr.Else = p.parseExpression()
	}

	p.expect(token.END)
	return caseExpr
}

// parseCastExpr parses a CAST expression.
func (p *Parser) parseCastExpr() Expr {
	p.expect(token.CAST)
	p.expect(token.LPAREN)

	cast := &CastExpr{}
	cast.Expr = p.parseExpression()

	p.expect(token.AS)
	cast.TypeName = p.parseTypeName()

	p.expect(token.RPAREN)
	return cast
}

// parseTypeName parses a type name with optional parameters, e.g.
// VARCHAR(255) or DECIMAL(10, 2).
func (p *Parser) parseTypeName() string {
	if !p.check(token.IDENT) {
		p.addError("expected type name")
		return ""
	}

	typeName := p.token.Literal
	p.nextToken()

	if p.match(token.LPAREN) {
		typeName += "("
		for {
			if p.check(token.NUMBER) || p.check(token.IDENT) {
				typeName += p.token.Literal
				p.nextToken()
			}

			if !p.match(token.COMMA) {
				break
			}
			typeName += ", "
		}
		p.expect(token.RPAREN)
		typeName += ")"
	}

	return typeName
}

// parseParenExpr parses a parenthesized expression or scalar subquery.
func (p *Parser) parseParenExpr() Expr {
	p.expect(token.LPAREN)

	if p.check(token.SELECT) || p.check(token.WITH) {
		subquery := &SubqueryExpr{Select: p.parseSelectStmt()}
		p.expect(token.RPAREN)
		return subquery
	}

	expr := p.parseExpression()
	p.expect(token.RPAREN)
	return &ParenExpr{Expr: expr}
}

// parseExistsExpr parses an EXISTS expression.
func (p *Parser) parseExistsExpr(not bool) Expr {
	p.nextToken() // consume EXISTS

	p.expect(token.LPAREN)
	exists := &ExistsExpr{Not: not, Select: p.parseSelectStmt()}
	p.expect(token.RPAREN)

	return exists
}
