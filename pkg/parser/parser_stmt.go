package parser

import "github.com/Glaschu/tsqllineage/pkg/token"

// parseProgram parses a whole script into GO-separated batches.
func (p *Parser) parseProgram() *Program {
	prog := &Program{}
	batch := &Batch{}

	for !p.check(token.EOF) {
		if p.check(token.GO) {
			p.nextToken()
			p.match(token.NUMBER) // optional repeat count (GO 3); has no lineage effect
			if len(batch.Statements) > 0 {
				prog.Batches = append(prog.Batches, batch)
				batch = &Batch{}
			}
			continue
		}

		stmt := p.parseTopLevelStatement()
		if stmt != nil {
			batch.Statements = append(batch.Statements, stmt)
		}
		p.match(token.SEMICOLON)
	}

	if len(batch.Statements) > 0 {
		prog.Batches = append(prog.Batches, batch)
	}
	return prog
}

// parseTopLevelStatement dispatches on the current token to the right
// statement parser. This is the single entry point used both at batch
// scope and inside BEGIN...END/IF/WHILE bodies.
func (p *Parser) parseTopLevelStatement() Statement {
	switch p.token.Type {
	case token.SELECT:
		return p.parseSelectStmt()
	case token.WITH:
		return p.parseWithPrefixedStmt()
	case token.INSERT:
		return p.parseInsertStmt()
	case token.UPDATE:
		return p.parseUpdateStmt()
	case token.DELETE:
		return p.parseDeleteStmt()
	case token.MERGE:
		return p.parseMergeStmt()
	case token.CREATE:
		return p.parseCreateStmt()
	case token.DECLARE:
		return p.parseDeclareStmt()
	case token.SET:
		return p.parseSetStmt()
	case token.PRINT:
		return p.parsePrintStmt()
	case token.IF:
		return p.parseIfStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.BEGIN:
		return p.parseBeginEndBlock()
	case token.EXEC, token.EXECUTE:
		return p.parseExecStmt()
	default:
		p.addError("unexpected token at start of statement: " + p.token.Type.String())
		p.nextToken()
		return nil
	}
}

// parseWithPrefixedStmt parses a leading WITH cte_list and attaches it to
// whichever statement follows: a CTE list can feed a SELECT, or, in T-SQL,
// an INSERT/UPDATE/DELETE/MERGE that references the CTEs in its own
// SELECT/FROM/USING clause. The CTE list is parsed once, then the next
// token picks the statement parser.
func (p *Parser) parseWithPrefixedStmt() Statement {
	startPos := p.token.Pos
	with := p.parseWithClause()

	switch p.token.Type {
	case token.INSERT:
		stmt := p.parseInsertStmt()
		stmt.With = with
		stmt.Span.Start = startPos
		return stmt
	case token.UPDATE:
		stmt := p.parseUpdateStmt()
		stmt.With = with
		stmt.Span.Start = startPos
		return stmt
	case token.DELETE:
		stmt := p.parseDeleteStmt()
		stmt.With = with
		stmt.Span.Start = startPos
		return stmt
	case token.MERGE:
		stmt := p.parseMergeStmt()
		stmt.With = with
		stmt.Span.Start = startPos
		return stmt
	default:
		stmt := &SelectStmt{With: with}
		stmt.Body = p.parseSelectBody()
		stmt.Span = token.Span{Start: startPos, End: p.token.Pos}
		return stmt
	}
}

// parseSelectStmt parses [WITH cte_list] select_body.
func (p *Parser) parseSelectStmt() *SelectStmt {
	stmt := &SelectStmt{}
	startPos := p.token.Pos

	if p.check(token.WITH) {
		stmt.With = p.parseWithClause()
	}

	stmt.Body = p.parseSelectBody()
	stmt.Span = token.Span{Start: startPos, End: p.token.Pos}
	return stmt
}

// parseWithClause parses a WITH clause with one or more CTEs.
func (p *Parser) parseWithClause() *WithClause {
	with := &WithClause{}
	p.expect(token.WITH)

	if p.match(token.RECURSIVE) {
		with.Recursive = true
	}

	for {
		with.CTEs = append(with.CTEs, p.parseCTE())
		if !p.match(token.COMMA) {
			break
		}
	}

	return with
}

// parseCTE parses a single name [(cols)] AS (select) CTE definition.
func (p *Parser) parseCTE() *CTE {
	cte := &CTE{}

	if p.check(token.IDENT) {
		cte.Name = p.token.Literal
		p.nextToken()
	} else {
		p.addError("expected CTE name")
	}

	if p.match(token.LPAREN) {
		for {
			if p.check(token.IDENT) {
				cte.Columns = append(cte.Columns, p.token.Literal)
				p.nextToken()
			}
			if !p.match(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN)
	}

	p.expect(token.AS)
	p.expect(token.LPAREN)
	cte.Select = p.parseSelectStmt()
	p.expect(token.RPAREN)

	return cte
}

// parseSelectBody parses select_core [(UNION|INTERSECT|EXCEPT) [ALL] select_body].
func (p *Parser) parseSelectBody() *SelectBody {
	body := &SelectBody{}
	body.Left = p.parseSelectCore()

	var op SetOpType
	switch {
	case p.check(token.UNION):
		op = SetOpUnion
	case p.check(token.INTERSECT):
		op = SetOpIntersect
	case p.check(token.EXCEPT):
		op = SetOpExcept
	default:
		return body
	}
	p.nextToken()

	all := false
	if p.match(token.ALL) {
		all = true
		if op == SetOpUnion {
			op = SetOpUnionAll
		}
	}

	body.Op = op
	body.All = all
	body.Right = p.parseSelectBody()
	return body
}

// parseSelectCore parses:
//
//	SELECT [TOP n [PERCENT] [WITH TIES]] [DISTINCT|ALL] select_list
//	  [INTO table]
//	  [FROM from_clause]
//	  [WHERE expr] [GROUP BY expr_list] [HAVING expr]
//	  [ORDER BY order_list]
func (p *Parser) parseSelectCore() *SelectCore {
	core := &SelectCore{}
	p.expect(token.SELECT)

	if p.match(token.TOP) {
		core.Top = p.parseTopClause()
	}

	if p.match(token.DISTINCT) {
		core.Distinct = true
	} else {
		p.match(token.ALL)
	}

	core.Columns = p.parseSelectList()

	if p.match(token.INTO) {
		core.IntoTable = p.parseQualifiedName()
	}

	if p.match(token.FROM) {
		core.From = p.parseFromClause()
	}

	if p.match(token.WHERE) {
		core.Where = p.parseExpression()
	}

	if p.match(token.GROUP) {
		p.expect(token.BY)
		core.GroupBy = p.parseExpressionList()
	}

	if p.match(token.HAVING) {
		core.Having = p.parseExpression()
	}

	if p.match(token.ORDER) {
		p.expect(token.BY)
		core.OrderBy = p.parseOrderByList()
	}

	return core
}

// parseTopClause parses TOP n [PERCENT] [WITH TIES], after TOP was consumed.
func (p *Parser) parseTopClause() *TopClause {
	top := &TopClause{}
	needParen := p.match(token.LPAREN)
	top.Count = p.parseExpression()
	if needParen {
		p.expect(token.RPAREN)
	}
	if p.match(token.PERCENTKW) {
		top.Percent = true
	}
	if p.match(token.WITH) {
		p.expect(token.TIES)
		top.WithTies = true
	}
	return top
}

// parseQualifiedName parses a possibly dotted identifier and returns it
// joined by ".", used for SELECT ... INTO targets and for the procedure
// names of CREATE PROCEDURE and EXEC, where a bare string is enough
// (schema qualification is preserved).
func (p *Parser) parseQualifiedName() string {
	name := p.token.Literal
	p.nextToken()
	for p.match(token.DOT) {
		name += "." + p.token.Literal
		p.nextToken()
	}
	return name
}

// parseSelectList parses a comma-separated list of select items.
func (p *Parser) parseSelectList() []SelectItem {
	var items []SelectItem
	items = append(items, p.parseSelectItem())
	for p.match(token.COMMA) {
		items = append(items, p.parseSelectItem())
	}
	return items
}

// parseSelectItem parses one SELECT list entry: *, table.*, expr [[AS] alias],
// or the T-SQL "alias = expr" form.
func (p *Parser) parseSelectItem() SelectItem {
	if p.check(token.STAR) {
		p.nextToken()
		return SelectItem{Star: true}
	}

	if p.check(token.IDENT) && p.checkPeek(token.DOT) && p.checkPeek2(token.STAR) {
		table := p.token.Literal
		p.nextToken() // ident
		p.nextToken() // dot
		p.nextToken() // star
		return SelectItem{TableStar: table}
	}

	// alias = expr form: a bare identifier immediately followed by '='.
	if p.check(token.IDENT) && p.checkPeek(token.EQ) {
		alias := p.token.Literal
		p.nextToken() // ident
		p.nextToken() // =
		expr := p.parseExpression()
		return SelectItem{Expr: expr, Alias: alias}
	}

	expr := p.parseExpression()
	item := SelectItem{Expr: expr}

	if p.match(token.AS) {
		item.Alias = p.token.Literal
		p.expect(token.IDENT)
	} else if p.check(token.IDENT) && !p.isJoinKeyword(p.token) && !p.isClauseKeyword(p.token) {
		item.Alias = p.token.Literal
		p.nextToken()
	}

	return item
}

// parseOrderByList parses a comma-separated ORDER BY list.
func (p *Parser) parseOrderByList() []OrderByItem {
	var items []OrderByItem
	items = append(items, p.parseOrderByItem())
	for p.match(token.COMMA) {
		items = append(items, p.parseOrderByItem())
	}
	return items
}

// parseOrderByItem parses a single ORDER BY expression with optional ASC/DESC.
func (p *Parser) parseOrderByItem() OrderByItem {
	item := OrderByItem{Expr: p.parseExpression()}
	if p.match(token.DESC) {
		item.Desc = true
	} else {
		p.match(token.ASC)
	}
	return item
}
