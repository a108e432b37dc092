package parser

import "github.com/Glaschu/tsqllineage/pkg/token"

// DML and control-flow statement parsing: INSERT, UPDATE, DELETE, MERGE,
// CREATE TABLE, CREATE [OR ALTER] PROCEDURE, DECLARE, SET, PRINT, IF,
// WHILE, BEGIN...END, and EXEC.

// parseInsertStmt parses INSERT [INTO] table [(cols)] (VALUES (...) [, (...)] | select_stmt | DEFAULT VALUES).
func (p *Parser) parseInsertStmt() *InsertStmt {
	stmt := &InsertStmt{}
	startPos := p.token.Pos
	p.expect(token.INSERT)
	p.match(token.INTO)

	stmt.Table = p.parseTableName()

	if p.match(token.LPAREN) {
		for {
			if p.check(token.IDENT) {
				stmt.Columns = append(stmt.Columns, p.token.Literal)
				p.nextToken()
			}
			if !p.match(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN)
	}

	switch {
	case p.match(token.DEFAULT):
		p.expect(token.VALUES)
		stmt.DefaultValues = true
	case p.match(token.VALUES):
		stmt.Values = append(stmt.Values, p.parseValuesRow())
		for p.match(token.COMMA) {
			stmt.Values = append(stmt.Values, p.parseValuesRow())
		}
	default:
		stmt.Select = p.parseSelectStmt()
	}

	stmt.Span = token.Span{Start: startPos, End: p.token.Pos}
	return stmt
}

// parseValuesRow parses a single "(expr, expr, ...)" tuple in a VALUES list.
func (p *Parser) parseValuesRow() []Expr {
	p.expect(token.LPAREN)
	row := p.parseExpressionList()
	p.expect(token.RPAREN)
	return row
}

// parseUpdateStmt parses UPDATE table [alias] SET col = expr, ... [FROM from_clause] [WHERE expr].
func (p *Parser) parseUpdateStmt() *UpdateStmt {
	stmt := &UpdateStmt{}
	startPos := p.token.Pos
	p.expect(token.UPDATE)

	stmt.Table = p.parseTableName()
	if p.check(token.IDENT) && !p.isClauseKeyword(p.token) {
		stmt.Alias = p.token.Literal
		p.nextToken()
	}

	p.expect(token.SET)
	stmt.SetClauses = append(stmt.SetClauses, p.parseSetClause())
	for p.match(token.COMMA) {
		stmt.SetClauses = append(stmt.SetClauses, p.parseSetClause())
	}

	if p.match(token.FROM) {
		stmt.From = p.parseFromClause()
	}

	if p.match(token.WHERE) {
		stmt.Where = p.parseExpression()
	}

	stmt.Span = token.Span{Start: startPos, End: p.token.Pos}
	return stmt
}

// parseSetClause parses a single assignment in a SET list. The target
// column may optionally carry an alias qualifier ("T.col = expr"), as
// MERGE's WHEN MATCHED THEN UPDATE SET requires; the qualifier is
// discarded since an UPDATE/MERGE statement has exactly one target.
func (p *Parser) parseSetClause() SetClause {
	sc := SetClause{}
	if p.check(token.IDENT) {
		sc.Column = p.token.Literal
		p.nextToken()
		if p.match(token.DOT) {
			if p.check(token.IDENT) {
				sc.Column = p.token.Literal
				p.nextToken()
			}
		}
	} else {
		p.addError("expected column name in SET clause")
	}
	p.expect(token.EQ)
	sc.Value = p.parseExpression()
	return sc
}

// parseDeleteStmt parses DELETE [FROM] table [FROM from_clause] [WHERE expr].
func (p *Parser) parseDeleteStmt() *DeleteStmt {
	stmt := &DeleteStmt{}
	startPos := p.token.Pos
	p.expect(token.DELETE)
	p.match(token.FROM)

	stmt.Table = p.parseTableName()

	if p.match(token.FROM) {
		stmt.From = p.parseFromClause()
	}

	if p.match(token.WHERE) {
		stmt.Where = p.parseExpression()
	}

	stmt.Span = token.Span{Start: startPos, End: p.token.Pos}
	return stmt
}

// parseMergeStmt parses:
//
//	MERGE [INTO] target [alias] USING source [alias] ON expr
//	  (WHEN MATCHED [AND expr] THEN UPDATE SET ... | DELETE)*
//	  (WHEN NOT MATCHED [BY TARGET] [AND expr] THEN INSERT (cols) VALUES (...))*
//	  (WHEN NOT MATCHED BY SOURCE [AND expr] THEN UPDATE SET ... | DELETE)*
func (p *Parser) parseMergeStmt() *MergeStmt {
	stmt := &MergeStmt{}
	startPos := p.token.Pos
	p.expect(token.MERGE)
	p.match(token.INTO)

	stmt.Target = p.parseTableName()
	if p.check(token.IDENT) && !p.isClauseKeyword(p.token) {
		stmt.TargetAlias = p.token.Literal
		p.nextToken()
	}

	p.expect(token.USING)
	stmt.Source = p.parseTableRef()
	if p.check(token.IDENT) && !p.isClauseKeyword(p.token) {
		stmt.SourceAlias = p.token.Literal
		p.nextToken()
	}

	p.expect(token.ON)
	stmt.OnCondition = p.parseExpression()

	for p.check(token.WHEN) {
		stmt.WhenClauses = append(stmt.WhenClauses, p.parseMergeWhenClause())
	}

	stmt.Span = token.Span{Start: startPos, End: p.token.Pos}
	return stmt
}

// parseMergeWhenClause parses one WHEN ... THEN ... branch of a MERGE.
func (p *Parser) parseMergeWhenClause() *MergeWhenClause {
	when := &MergeWhenClause{}
	p.expect(token.WHEN)

	if p.match(token.NOT) {
		p.expect(token.MATCHED)
		when.When = MergeWhenNotMatchedByTarget
		if p.match(token.BY) {
			if isIdentLiteral(p.token, "TARGET") {
				p.nextToken()
			} else if isIdentLiteral(p.token, "SOURCE") {
				p.nextToken()
				when.When = MergeWhenNotMatchedBySource
			}
		}
	} else {
		p.expect(token.MATCHED)
		when.When = MergeWhenMatched
	}

	if p.match(token.AND) {
		p.parseExpression() // condition on the match; lineage does not depend on it
	}

	p.expect(token.THEN)

	switch {
	case p.match(token.UPDATE):
		when.Action = MergeActionUpdate
		p.expect(token.SET)
		when.SetClauses = append(when.SetClauses, p.parseSetClause())
		for p.match(token.COMMA) {
			when.SetClauses = append(when.SetClauses, p.parseSetClause())
		}

	case p.match(token.DELETE):
		when.Action = MergeActionDelete

	case p.match(token.INSERT):
		when.Action = MergeActionInsert
		if p.match(token.LPAREN) {
			for {
				if p.check(token.IDENT) {
					when.Columns = append(when.Columns, p.token.Literal)
					p.nextToken()
				}
				if !p.match(token.COMMA) {
					break
				}
			}
			p.expect(token.RPAREN)
		}
		p.expect(token.VALUES)
		p.expect(token.LPAREN)
		when.Values = p.parseExpressionList()
		p.expect(token.RPAREN)

	default:
		p.addError("expected UPDATE, DELETE, or INSERT in MERGE WHEN clause")
	}

	return when
}

// isIdentLiteral reports whether tok is an IDENT whose literal
// case-insensitively equals word. TARGET/SOURCE in "NOT MATCHED BY
// TARGET/SOURCE" are contextual, not reserved, keywords.
func isIdentLiteral(tok Token, word string) bool {
	if tok.Type != token.IDENT {
		return false
	}
	return len(tok.Literal) == len(word) && equalFold(tok.Literal, word)
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'a' && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if cb >= 'a' && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// parseCreateStmt dispatches CREATE to a table or a [OR ALTER] procedure.
func (p *Parser) parseCreateStmt() Statement {
	p.expect(token.CREATE)

	if p.match(token.OR) {
		p.expect(token.ALTER)
	}

	switch {
	case p.check(token.PROC) || p.check(token.PROCEDURE):
		return p.parseCreateProcedureStmt()
	case p.check(token.TABLE):
		return p.parseCreateTableStmt()
	default:
		p.addError("expected TABLE or PROCEDURE after CREATE")
		return nil
	}
}

// parseCreateTableStmt parses CREATE TABLE name (col type, col type, ...).
func (p *Parser) parseCreateTableStmt() *CreateTableStmt {
	stmt := &CreateTableStmt{}
	startPos := p.token.Pos
	p.expect(token.TABLE)

	stmt.Table = p.parseTableName()

	p.expect(token.LPAREN)
	for {
		if !p.check(token.IDENT) {
			break
		}
		col := ColumnDef{Name: p.token.Literal}
		p.nextToken()
		col.TypeName = p.parseTypeName()
		stmt.Columns = append(stmt.Columns, col)

		// Skip constraint/attribute keywords up to the next comma or close
		// paren; lineage only needs the column name and declared type.
		for !p.check(token.COMMA) && !p.check(token.RPAREN) && !p.check(token.EOF) {
			p.nextToken()
		}

		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)

	stmt.Span = token.Span{Start: startPos, End: p.token.Pos}
	return stmt
}

// parseCreateProcedureStmt parses:
//
//	CREATE [OR ALTER] PROC[EDURE] name [(@p1 TYPE [= default] [OUTPUT], ...)] AS
//	  BEGIN statement* END
func (p *Parser) parseCreateProcedureStmt() *CreateProcedureStmt {
	stmt := &CreateProcedureStmt{}
	startPos := p.token.Pos

	if !p.match(token.PROC) {
		p.expect(token.PROCEDURE)
	}

	stmt.Name = p.parseQualifiedName()

	if p.match(token.LPAREN) {
		stmt.Params = p.parseProcParamList()
		p.expect(token.RPAREN)
	} else if p.check(token.LOCALVAR) {
		stmt.Params = p.parseProcParamList()
	}

	p.expect(token.AS)

	if p.check(token.BEGIN) {
		block := p.parseBeginEndBlock()
		stmt.Body = block.Statements
	} else {
		stmt.Body = append(stmt.Body, p.parseTopLevelStatement())
	}

	stmt.Span = token.Span{Start: startPos, End: p.token.Pos}
	return stmt
}

// parseProcParamList parses a comma-separated @param TYPE [= default] [OUTPUT] list.
func (p *Parser) parseProcParamList() []ProcParam {
	var params []ProcParam
	for p.check(token.LOCALVAR) {
		param := ProcParam{Name: p.token.Literal}
		p.nextToken()
		param.TypeName = p.parseTypeName()

		if p.match(token.EQ) {
			param.Default = p.parseExpression()
		}
		if p.match(token.OUTPUT) {
			param.Output = true
		}

		params = append(params, param)
		if !p.match(token.COMMA) {
			break
		}
	}
	return params
}

// parseDeclareStmt parses DECLARE @a TYPE [= expr], @b TYPE [= expr], ...
func (p *Parser) parseDeclareStmt() *DeclareStmt {
	stmt := &DeclareStmt{}
	startPos := p.token.Pos
	p.expect(token.DECLARE)

	for {
		item := DeclareItem{}
		if p.check(token.LOCALVAR) {
			item.Name = p.token.Literal
			p.nextToken()
		} else {
			p.addError("expected @variable in DECLARE")
			break
		}

		item.TypeName = p.parseTypeName()

		if p.match(token.EQ) {
			item.Default = p.parseExpression()
		}

		stmt.Items = append(stmt.Items, item)
		if !p.match(token.COMMA) {
			break
		}
	}

	stmt.Span = token.Span{Start: startPos, End: p.token.Pos}
	return stmt
}

// parseSetStmt parses SET @variable = expr.
func (p *Parser) parseSetStmt() *SetStmt {
	stmt := &SetStmt{}
	startPos := p.token.Pos
	p.expect(token.SET)

	if p.check(token.LOCALVAR) {
		stmt.Variable = p.token.Literal
		p.nextToken()
	} else {
		p.addError("expected @variable after SET")
	}

	p.expect(token.EQ)
	stmt.Value = p.parseExpression()

	stmt.Span = token.Span{Start: startPos, End: p.token.Pos}
	return stmt
}

// parsePrintStmt parses PRINT expr.
func (p *Parser) parsePrintStmt() *PrintStmt {
	stmt := &PrintStmt{}
	startPos := p.token.Pos
	p.expect(token.PRINT)
	stmt.Value = p.parseExpression()
	stmt.Span = token.Span{Start: startPos, End: p.token.Pos}
	return stmt
}

// parseBeginEndBlock parses BEGIN statement* END.
func (p *Parser) parseBeginEndBlock() *BeginEndBlock {
	block := &BeginEndBlock{}
	startPos := p.token.Pos
	p.expect(token.BEGIN)

	for !p.check(token.END) && !p.check(token.EOF) {
		stmt := p.parseTopLevelStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.match(token.SEMICOLON)
	}

	p.expect(token.END)
	block.Span = token.Span{Start: startPos, End: p.token.Pos}
	return block
}

// parseIfStmt parses IF expr statement [ELSE statement].
func (p *Parser) parseIfStmt() *IfStmt {
	stmt := &IfStmt{}
	startPos := p.token.Pos
	p.expect(token.IF)

	stmt.Condition = p.parseExpression()
	stmt.Then = p.parseTopLevelStatement()

	if p.match(token.ELSE) {
		stmt.Else = p.parseTopLevelStatement()
	}

	stmt.Span = token.Span{Start: startPos, End: p.token.Pos}
	return stmt
}

// parseWhileStmt parses WHILE expr statement.
func (p *Parser) parseWhileStmt() *WhileStmt {
	stmt := &WhileStmt{}
	startPos := p.token.Pos
	p.expect(token.WHILE)

	stmt.Condition = p.parseExpression()
	stmt.Body = p.parseTopLevelStatement()

	stmt.Span = token.Span{Start: startPos, End: p.token.Pos}
	return stmt
}

// parseExecStmt parses EXEC[UTE] [@retval =] procedure_name [args...].
// Arguments are consumed but discarded: the called procedure's lineage is
// analyzed independently, not inlined at the call site.
func (p *Parser) parseExecStmt() *ExecStmt {
	stmt := &ExecStmt{}
	startPos := p.token.Pos
	p.nextToken() // consume EXEC/EXECUTE

	if p.check(token.LOCALVAR) && p.checkPeek(token.EQ) {
		p.nextToken() // @retval
		p.nextToken() // =
	}

	stmt.ProcedureName = p.parseQualifiedName()

	for !p.check(token.SEMICOLON) && !p.check(token.EOF) && !p.check(token.GO) {
		p.nextToken()
	}

	stmt.Span = token.Span{Start: startPos, End: p.token.Pos}
	return stmt
}
