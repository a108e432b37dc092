package parser

import "github.com/Glaschu/tsqllineage/pkg/token"

// FROM clause and JOIN parsing.
//
// Grammar:
//
//	from_clause   → table_ref (join | "," table_ref)*
//	table_ref     → table_name | derived_table
//	table_name    → [[catalog "."] schema "."] identifier [[AS] alias]
//	derived_table → "(" select_stmt ")" [AS] alias
//	join          → [INNER] JOIN table_ref [ON expr | USING (cols)]
//	              | (LEFT|RIGHT|FULL) [OUTER] JOIN table_ref [ON expr | USING (cols)]
//	              | CROSS JOIN table_ref

// parseFromClause parses the FROM clause: the first table reference plus
// any joins, including implicit comma joins.
func (p *Parser) parseFromClause() *FromClause {
	from := &FromClause{}
	from.Source = p.parseTableRef()

	for p.isJoinStart() {
		from.Joins = append(from.Joins, p.parseJoin())
	}

	return from
}

// isJoinStart reports whether the current token can begin a join.
func (p *Parser) isJoinStart() bool {
	switch p.token.Type {
	case token.COMMA, token.JOIN, token.INNER, token.LEFT, token.RIGHT, token.FULL, token.CROSS:
		return true
	}
	return false
}

// parseTableRef parses a table reference: a derived table or a plain
// (possibly qualified) table name.
func (p *Parser) parseTableRef() TableRef {
	if p.check(token.LPAREN) {
		return p.parseDerivedTable()
	}
	return p.parseTableName()
}

// parseTableName parses a table name with optional catalog/schema
// qualification and an optional alias.
func (p *Parser) parseTableName() *TableName {
	table := &TableName{}
	startPos := p.token.Pos

	if !p.check(token.IDENT) {
		p.addError("expected table name")
		return table
	}

	parts := []string{p.token.Literal}
	p.nextToken()

	for p.match(token.DOT) {
		if p.check(token.IDENT) {
			parts = append(parts, p.token.Literal)
			p.nextToken()
		}
	}

	switch len(parts) {
	case 1:
		table.Name = parts[0]
	case 2:
		table.Schema = parts[0]
		table.Name = parts[1]
	default:
		table.Catalog = parts[0]
		table.Schema = parts[1]
		table.Name = parts[len(parts)-1]
	}

	if p.match(token.AS) {
		if p.check(token.IDENT) {
			table.Alias = p.token.Literal
			p.nextToken()
		}
	} else if p.check(token.IDENT) && !p.isJoinKeyword(p.token) && !p.isClauseKeyword(p.token) {
		table.Alias = p.token.Literal
		p.nextToken()
	}

	table.Span = token.Span{Start: startPos, End: p.token.Pos}
	return table
}

// parseDerivedTable parses a subquery used as a FROM-clause item. An alias
// is required, matching T-SQL's derived-table rules.
func (p *Parser) parseDerivedTable() *DerivedTable {
	startPos := p.token.Pos
	p.expect(token.LPAREN)

	derived := &DerivedTable{Select: p.parseSelectStmt()}
	p.expect(token.RPAREN)

	if p.match(token.AS) {
		if p.check(token.IDENT) {
			derived.Alias = p.token.Literal
			p.nextToken()
		}
	} else if p.check(token.IDENT) {
		derived.Alias = p.token.Literal
		p.nextToken()
	} else {
		p.addError("expected alias for derived table")
	}

	derived.Span = token.Span{Start: startPos, End: p.token.Pos}
	return derived
}

// parseJoin parses one JOIN clause or implicit comma-join.
func (p *Parser) parseJoin() *Join {
	join := &Join{}

	if p.match(token.COMMA) {
		join.Type = JoinComma
		join.Right = p.parseTableRef()
		return join
	}

	switch {
	case p.match(token.INNER):
		join.Type = JoinInner
		p.expect(token.JOIN)
	case p.match(token.LEFT):
		join.Type = JoinLeft
		p.match(token.OUTER)
		p.expect(token.JOIN)
	case p.match(token.RIGHT):
		join.Type = JoinRight
		p.match(token.OUTER)
		p.expect(token.JOIN)
	case p.match(token.FULL):
		join.Type = JoinFull
		p.match(token.OUTER)
		p.expect(token.JOIN)
	case p.match(token.CROSS):
		join.Type = JoinCross
		p.expect(token.JOIN)
	default:
		join.Type = JoinInner
		p.expect(token.JOIN)
	}

	join.Right = p.parseTableRef()

	if join.Type != JoinCross {
		p.parseJoinCondition(join)
	}

	return join
}

// parseJoinCondition parses the ON or USING clause following a join, if any.
func (p *Parser) parseJoinCondition(join *Join) {
	switch {
	case p.match(token.ON):
		join.Condition = p.parseExpression()
	case p.match(token.USING):
		join.Using = p.parseUsingColumns()
	}
}

// parseUsingColumns parses the column list in USING (col1, col2, ...).
func (p *Parser) parseUsingColumns() []string {
	p.expect(token.LPAREN)
	var cols []string
	for {
		if !p.check(token.IDENT) {
			p.addError("expected column name in USING clause")
			break
		}
		cols = append(cols, p.token.Literal)
		p.nextToken()
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	return cols
}
