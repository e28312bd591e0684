package calor

import (
	"fmt"
	"strconv"
	"unicode"
)

// ParseExpr parses a single contract clause such as "x + 1 > x" or
// "result >= 0 && result < n" into an expression tree. The surface syntax is
// C-like: && || ! == != < <= > >= + - * / %, decimal literals, identifiers,
// calls and parentheses.
func ParseExpr(input string) (Expr, error) {
	tokens, err := lexExpr(input)
	if err != nil {
		return nil, err
	}

	p := &exprParser{tokens: tokens}
	expr, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokenEOF {
		return nil, fmt.Errorf("calor: unexpected %q at offset %d", tok.text, tok.pos)
	}
	return expr, nil
}

type tokenKind int

const (
	tokenEOF = tokenKind(iota)
	tokenNumber
	tokenIdent
	tokenOp
	tokenLParen
	tokenRParen
	tokenComma
)

type exprToken struct {
	kind tokenKind
	text string
	pos  int
}

func lexExpr(input string) ([]exprToken, error) {
	var tokens []exprToken
	for i := 0; i < len(input); {
		ch := rune(input[i])
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case ch >= '0' && ch <= '9':
			start := i
			for i < len(input) && input[i] >= '0' && input[i] <= '9' {
				i++
			}
			tokens = append(tokens, exprToken{tokenNumber, input[start:i], start})
		case ch == '_' || unicode.IsLetter(ch):
			start := i
			for i < len(input) && (input[i] == '_' || unicode.IsLetter(rune(input[i])) || unicode.IsDigit(rune(input[i]))) {
				i++
			}
			tokens = append(tokens, exprToken{tokenIdent, input[start:i], start})
		case ch == '(':
			tokens = append(tokens, exprToken{tokenLParen, "(", i})
			i++
		case ch == ')':
			tokens = append(tokens, exprToken{tokenRParen, ")", i})
			i++
		case ch == ',':
			tokens = append(tokens, exprToken{tokenComma, ",", i})
			i++
		case ch == '&' || ch == '|' || ch == '=':
			// && || == are the only operators using these characters.
			if i+1 >= len(input) || input[i+1] != input[i] {
				return nil, fmt.Errorf("calor: invalid operator at offset %d", i)
			}
			tokens = append(tokens, exprToken{tokenOp, input[i : i+2], i})
			i += 2
		case ch == '<' || ch == '>' || ch == '!':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, exprToken{tokenOp, input[i : i+2], i})
				i += 2
			} else {
				tokens = append(tokens, exprToken{tokenOp, input[i : i+1], i})
				i++
			}
		case ch == '+' || ch == '-' || ch == '*' || ch == '/' || ch == '%':
			tokens = append(tokens, exprToken{tokenOp, input[i : i+1], i})
			i++
		default:
			return nil, fmt.Errorf("calor: invalid character %q at offset %d", ch, i)
		}
	}
	return append(tokens, exprToken{tokenEOF, "", len(input)}), nil
}

// Binding powers, loosest first.
var binaryPrecedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3, "<": 3, "<=": 3, ">": 3, ">=": 3,
	"+": 4, "-": 4,
	"*": 5, "/": 5, "%": 5,
}

var binaryOpsByToken = map[string]BinaryOp{
	"||": OR, "&&": AND,
	"==": EQ, "!=": NE, "<": LT, "<=": LE, ">": GT, ">=": GE,
	"+": ADD, "-": SUB,
	"*": MUL, "/": DIV, "%": REM,
}

type exprParser struct {
	tokens []exprToken
	index  int
}

func (p *exprParser) peek() exprToken {
	return p.tokens[p.index]
}

func (p *exprParser) next() exprToken {
	tok := p.tokens[p.index]
	if tok.kind != tokenEOF {
		p.index++
	}
	return tok
}

// parseBinary parses expressions via precedence climbing.
func (p *exprParser) parseBinary(minPrec int) (Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		if tok.kind != tokenOp {
			return lhs, nil
		}
		prec, ok := binaryPrecedence[tok.text]
		if !ok || prec < minPrec {
			return lhs, nil
		}
		p.next()

		rhs, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		lhs = NewBinaryExpr(binaryOpsByToken[tok.text], lhs, rhs)
	}
}

func (p *exprParser) parseUnary() (Expr, error) {
	switch tok := p.peek(); {
	case tok.kind == tokenOp && tok.text == "-":
		p.next()
		expr, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return NewUnaryExpr(NEG, expr), nil
	case tok.kind == tokenOp && tok.text == "!":
		p.next()
		expr, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return NewUnaryExpr(NOT, expr), nil
	default:
		return p.parsePrimary()
	}
}

func (p *exprParser) parsePrimary() (Expr, error) {
	switch tok := p.next(); tok.kind {
	case tokenNumber:
		value, err := strconv.ParseUint(tok.text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("calor: invalid literal %q at offset %d", tok.text, tok.pos)
		}
		return NewLiteralExpr(value), nil

	case tokenIdent:
		if p.peek().kind != tokenLParen {
			return NewRefExpr(tok.text), nil
		}
		p.next()
		args, err := p.parseCallArgs()
		if err != nil {
			return nil, err
		}
		return NewCallExpr(tok.text, args...), nil

	case tokenLParen:
		expr, err := p.parseBinary(1)
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokenRParen {
			return nil, fmt.Errorf("calor: expected ')' at offset %d", closing.pos)
		}
		return expr, nil

	default:
		return nil, fmt.Errorf("calor: unexpected %q at offset %d", tok.text, tok.pos)
	}
}

func (p *exprParser) parseCallArgs() ([]Expr, error) {
	if p.peek().kind == tokenRParen {
		p.next()
		return nil, nil
	}

	var args []Expr
	for {
		arg, err := p.parseBinary(1)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		switch tok := p.next(); tok.kind {
		case tokenComma:
		case tokenRParen:
			return args, nil
		default:
			return nil, fmt.Errorf("calor: expected ',' or ')' at offset %d", tok.pos)
		}
	}
}
