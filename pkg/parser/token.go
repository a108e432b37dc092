package parser

import "github.com/Glaschu/tsqllineage/pkg/token"

// Local aliases so the rest of this package can write bare Token/Position
// instead of qualifying every reference to pkg/token. There is exactly one
// dialect, so unlike the multi-dialect version of this file there is no
// dynamic keyword registration to re-export here.
type (
	Token     = token.Token
	TokenType = token.TokenType
	Position  = token.Position
)
