package contemply

// Kind classifies a token produced by the Lexer.
type Kind int

const (
	EOF Kind = iota
	NEWLINE
	UNKNOWN

	STRING
	INTEGER
	FLOAT
	SYMBOL

	LPAR
	RPAR
	LSQRBR
	RSQRBR
	COMMA

	ASSIGN
	ASSIGN_PLUS
	COMP_EQ
	COMP_NOT_EQ
	COMP_LT
	COMP_GT
	COMP_LT_EQ
	COMP_GT_EQ
	ADD
	SUB
	MULT
	DIV

	IF
	ELSE
	ELSEIF
	ENDIF
	WHILE
	ENDWHILE
	FOR
	IN
	ENDFOR
	BREAK

	CMD_LINE_START // #:
	CMD_BLOCK      // #::
	COMMENT        // #% or a lone #

	FILE_START // >>
	FILE_END   // <<
	OUTPUT     // ->
)

var kindNames = map[Kind]string{
	EOF:            "EOF",
	NEWLINE:        "NEWLINE",
	UNKNOWN:        "UNKNOWN",
	STRING:         "STRING",
	INTEGER:        "INTEGER",
	FLOAT:          "FLOAT",
	SYMBOL:         "SYMBOL",
	LPAR:           "LPAR",
	RPAR:           "RPAR",
	LSQRBR:         "LSQRBR",
	RSQRBR:         "RSQRBR",
	COMMA:          "COMMA",
	ASSIGN:         "ASSIGN",
	ASSIGN_PLUS:    "ASSIGN_PLUS",
	COMP_EQ:        "COMP_EQ",
	COMP_NOT_EQ:    "COMP_NOT_EQ",
	COMP_LT:        "COMP_LT",
	COMP_GT:        "COMP_GT",
	COMP_LT_EQ:     "COMP_LT_EQ",
	COMP_GT_EQ:     "COMP_GT_EQ",
	ADD:            "ADD",
	SUB:            "SUB",
	MULT:           "MULT",
	DIV:            "DIV",
	IF:             "IF",
	ELSE:           "ELSE",
	ELSEIF:         "ELSEIF",
	ENDIF:          "ENDIF",
	WHILE:          "WHILE",
	ENDWHILE:       "ENDWHILE",
	FOR:            "FOR",
	IN:             "IN",
	ENDFOR:         "ENDFOR",
	BREAK:          "BREAK",
	CMD_LINE_START: "CMD_LINE_START",
	CMD_BLOCK:      "CMD_BLOCK",
	COMMENT:        "COMMENT",
	FILE_START:     "FILE_START",
	FILE_END:       "FILE_END",
	OUTPUT:         "OUTPUT",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Kind(?)"
}

// keywords are matched against whole identifiers only.
var keywords = map[string]Kind{
	"if":       IF,
	"else":     ELSE,
	"elseif":   ELSEIF,
	"endif":    ENDIF,
	"while":    WHILE,
	"endwhile": ENDWHILE,
	"for":      FOR,
	"in":       IN,
	"endfor":   ENDFOR,
	"break":    BREAK,
}

var operators = map[Kind]string{
	COMP_EQ:     "==",
	COMP_NOT_EQ: "!=",
	COMP_LT:     "<",
	COMP_GT:     ">",
	COMP_LT_EQ:  "<=",
	COMP_GT_EQ:  ">=",
	ADD:         "+",
	SUB:         "-",
	MULT:        "*",
	DIV:         "/",
}

// IsOperator reports whether k is a binary expression operator.
func (k Kind) IsOperator() bool {
	_, ok := operators[k]
	return ok
}

// Symbol returns the source spelling of an operator kind.
func (k Kind) Symbol() string {
	if s, ok := operators[k]; ok {
		return s
	}
	return k.String()
}

// Token is a single lexeme. Value holds the literal text for strings,
// numbers and symbols.
type Token struct {
	Kind  Kind
	Value string
	Pos   Position
}
