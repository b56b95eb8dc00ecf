package filter

import (
	"errors"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

var filterLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "Hinted", Pattern: `[A-Za-z_][A-Za-z0-9_]*'[^']*'`},
	{Name: "Quoted", Pattern: `'[^']*'`},
	{Name: "Word", Pattern: `[^\s()']+`},
})

var (
	tokWhitespace = filterLexer.Symbols()["Whitespace"]
	tokLParen     = filterLexer.Symbols()["LParen"]
	tokRParen     = filterLexer.Symbols()["RParen"]
	tokHinted     = filterLexer.Symbols()["Hinted"]
	tokQuoted     = filterLexer.Symbols()["Quoted"]
	tokWord       = filterLexer.Symbols()["Word"]
)

// tokenize splits input into tokens, dropping whitespace
func tokenize(input string) ([]lexer.Token, error) {
	lex, err := filterLexer.LexString("", input)
	if err != nil {
		return nil, lexError(input, err)
	}

	all, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, lexError(input, err)
	}

	tokens := make([]lexer.Token, 0, len(all))
	for _, tok := range all {
		if tok.Type == tokWhitespace || tok.EOF() {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func lexError(input string, err error) error {
	pos := strings.IndexByte(input, '\'')
	var lexErr *lexer.Error
	if errors.As(err, &lexErr) {
		pos = lexErr.Pos.Offset
	}
	if pos < 0 {
		pos = 0
	}
	return &MalformedFilterError{Input: input, Pos: pos, Reason: "unterminated quoted value"}
}

// isKeyword reports whether tok is the connective word (case-insensitive)
func isKeyword(tok lexer.Token, word string) bool {
	return tok.Type == tokWord && strings.EqualFold(tok.Value, word)
}

// valueOf converts a value token into a Value
func valueOf(tok lexer.Token) Value {
	switch tok.Type {
	case tokHinted:
		quote := strings.IndexByte(tok.Value, '\'')
		return Value{
			Raw:    tok.Value[quote+1 : len(tok.Value)-1],
			Hint:   tok.Value[:quote],
			Quoted: true,
		}
	case tokQuoted:
		return Value{Raw: tok.Value[1 : len(tok.Value)-1], Quoted: true}
	default:
		return Value{Raw: tok.Value}
	}
}
