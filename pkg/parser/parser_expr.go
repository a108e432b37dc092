package parser

import "github.com/Glaschu/tsqllineage/pkg/token"

// Expression precedence parsing using Pratt (precedence-climbing) parsing.
//
// Precedence levels, low to high:
//
//	precOr          OR
//	precAnd         AND
//	precComparison  =, <>, <, >, <=, >=, IS, IN, BETWEEN, LIKE
//	precAddition    +, -
//	precMultiply    *, /, %
//	precUnary       unary -, +, NOT
const (
	precNone = iota
	precOr
	precAnd
	precComparison
	precAddition
	precMultiply
	precUnary
)

// parseExpression parses an expression using precedence climbing.
func (p *Parser) parseExpression() Expr {
	return p.parseExpressionWithPrecedence(precNone + 1)
}

func (p *Parser) parseExpressionWithPrecedence(minPrecedence int) Expr {
	left := p.parsePrefixExpr()
	if left == nil {
		return nil
	}

	for {
		prec := p.infixPrecedence()
		if prec < minPrecedence {
			break
		}

		left = p.parseInfixExpr(left, prec)
		if left == nil {
			break
		}
	}

	return left
}

// parsePrefixExpr parses prefix expressions (unary operators and primaries).
func (p *Parser) parsePrefixExpr() Expr {
	switch p.token.Type {
	case token.NOT:
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(precUnary)
		return &UnaryExpr{Op: token.NOT, Expr: expr}

	case token.MINUS:
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(precUnary)
		return &UnaryExpr{Op: token.MINUS, Expr: expr}

	case token.PLUS:
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(precUnary)
		return &UnaryExpr{Op: token.PLUS, Expr: expr}

	default:
		return p.parsePrimary()
	}
}

// infixPrecedence returns the precedence of the current token as an infix
// operator, or precNone if it isn't one.
func (p *Parser) infixPrecedence() int {
	switch p.token.Type {
	case token.OR:
		return precOr
	case token.AND:
		return precAnd
	case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE:
		return precComparison
	case token.IS, token.IN, token.BETWEEN, token.LIKE, token.NOT:
		return precComparison
	case token.PLUS, token.MINUS:
		return precAddition
	case token.STAR, token.SLASH, token.PERCENT:
		return precMultiply
	default:
		return precNone
	}
}

// parseInfixExpr parses an infix expression given the left operand and
// the current operator's precedence.
func (p *Parser) parseInfixExpr(left Expr, prec int) Expr {
	switch p.token.Type {
	case token.NOT:
		return p.parseNotInfixExpr(left)

	case token.IS:
		return p.parseIsExpr(left)

	case token.IN:
		p.nextToken()
		return p.parseInExpr(left, false)

	case token.BETWEEN:
		p.nextToken()
		return p.parseBetweenExpr(left, false)

	case token.LIKE:
		p.nextToken()
		return p.parseLikeExpr(left, false)
	}

	op := p.token
	p.nextToken()
	right := p.parseExpressionWithPrecedence(prec + 1)
	return &BinaryExpr{Left: left, Op: op.Type, Right: right}
}

// parseNotInfixExpr handles NOT as an infix modifier (NOT IN, NOT BETWEEN, NOT LIKE).
func (p *Parser) parseNotInfixExpr(left Expr) Expr {
	p.nextToken() // consume NOT

	switch p.token.Type {
	case token.IN:
		p.nextToken()
		return p.parseInExpr(left, true)

	case token.BETWEEN:
		p.nextToken()
		return p.parseBetweenExpr(left, true)

	case token.LIKE:
		p.nextToken()
		return p.parseLikeExpr(left, true)

	default:
		p.addError("expected IN, BETWEEN, or LIKE after NOT")
		return left
	}
}

// parseIsExpr parses IS [NOT] NULL.
func (p *Parser) parseIsExpr(left Expr) Expr {
	p.nextToken() // consume IS
	isNot := p.match(token.NOT)
	if !p.expect(token.NULL) {
		return left
	}
	return &IsNullExpr{Expr: left, Not: isNot}
}

// parseInExpr parses an IN expression.
func (p *Parser) parseInExpr(left Expr, not bool) Expr {
	p.expect(token.LPAREN)
	in := &InExpr{Expr: left, Not: not}

	if p.check(token.SELECT) || p.check(token.WITH) {
		in.Query = p.parseSelectStmt()
	} else {
		in.Values = p.parseExpressionList()
	}

	p.expect(token.RPAREN)
	return in
}

// parseBetweenExpr parses a BETWEEN expression.
func (p *Parser) parseBetweenExpr(left Expr, not bool) Expr {
	between := &BetweenExpr{Expr: left, Not: not}
	between.Low = p.parseExpressionWithPrecedence(precAddition)
	p.expect(token.AND)
	between.High = p.parseExpressionWithPrecedence(precAddition)
	return between
}

// parseLikeExpr parses a LIKE expression.
func (p *Parser) parseLikeExpr(left Expr, not bool) Expr {
	like := &LikeExpr{Expr: left, Not: not}
	like.Pattern = p.parseExpressionWithPrecedence(precAddition)
	return like
}

// parseExpressionList parses a comma-separated list of expressions.
func (p *Parser) parseExpressionList() []Expr {
	var exprs []Expr
	exprs = append(exprs, p.parseExpression())
	for p.match(token.COMMA) {
		exprs = append(exprs, p.parseExpression())
	}
	return exprs
}
