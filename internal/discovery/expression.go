package discovery

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Predicate expressions describe the filter a scope method applies.
// Conditions are joined by "and":
//
//	status = 'active'
//	has roles where role_type = 'volunteer'
//	whereHas(orders)
//	sum(orders.total) > 1000
//	created_at >= :since

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokParam
	tokOp
	tokLParen
	tokRParen
	tokComma
	tokEOF
)

type token struct {
	kind tokenKind
	text string
}

func tokenize(expr string) ([]token, error) {
	var tokens []token
	runes := []rune(expr)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '\'' || r == '"':
			quote := r
			var b strings.Builder
			j := i + 1
			for ; j < len(runes) && runes[j] != quote; j++ {
				if runes[j] == '\\' && j+1 < len(runes) {
					j++
				}
				b.WriteRune(runes[j])
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("unterminated string at offset %d", i)
			}
			tokens = append(tokens, token{tokString, b.String()})
			i = j + 1
		case r == ':':
			j := i + 1
			for j < len(runes) && isIdentRune(runes[j]) {
				j++
			}
			if j == i+1 {
				return nil, fmt.Errorf("empty parameter name at offset %d", i)
			}
			tokens = append(tokens, token{tokParam, string(runes[i+1 : j])})
			i = j
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			j := i + 1
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			tokens = append(tokens, token{tokNumber, string(runes[i:j])})
			i = j
		case isIdentRune(r):
			j := i
			for j < len(runes) && (isIdentRune(runes[j]) || runes[j] == '.') {
				j++
			}
			tokens = append(tokens, token{tokIdent, string(runes[i:j])})
			i = j
		case r == '(':
			tokens = append(tokens, token{tokLParen, "("})
			i++
		case r == ')':
			tokens = append(tokens, token{tokRParen, ")"})
			i++
		case r == ',':
			tokens = append(tokens, token{tokComma, ","})
			i++
		case strings.ContainsRune("=!<>", r):
			j := i + 1
			if j < len(runes) && strings.ContainsRune("=>", runes[j]) {
				j++
			}
			op := string(runes[i:j])
			switch op {
			case "=", "==", "!=", "<>", "<", "<=", ">", ">=":
			default:
				return nil, fmt.Errorf("unknown operator %q", op)
			}
			if op == "==" {
				op = "="
			}
			if op == "<>" {
				op = "!="
			}
			tokens = append(tokens, token{tokOp, op})
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", r, i)
		}
	}
	return append(tokens, token{tokEOF, ""}), nil
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

type conditionKind int

const (
	condEquality conditionKind = iota
	condCompare
	condHas
	condAggregate
)

// value is a literal or a :param placeholder
type value struct {
	Literal any
	Param   string
}

func (v value) isParam() bool { return v.Param != "" }

// condition is one parsed conjunct of a predicate expression
type condition struct {
	Kind  conditionKind
	Field string
	Op    string
	Value value
	// Path is the relation chain of has and aggregate conditions
	Path []string
	// Where is the terminal filter of a has condition
	Where []condition
	// Func is the aggregate function
	Func string
}

var aggregateFuncs = map[string]bool{"sum": true, "count": true, "avg": true, "min": true, "max": true}

type parser struct {
	tokens []token
	pos    int
}

// parseExpression parses a predicate expression into its conjuncts
func parseExpression(expr string) ([]condition, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("empty expression")
	}
	tokens, err := tokenize(expr)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	var conditions []condition
	for {
		cond, err := p.condition()
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, cond)

		if p.peek().kind == tokEOF {
			return conditions, nil
		}
		if !p.keyword("and") {
			return nil, fmt.Errorf("expected 'and', found %q", p.peek().text)
		}
	}
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// keyword consumes the identifier kw (case-insensitive) if it is next
func (p *parser) keyword(kw string) bool {
	t := p.peek()
	if t.kind == tokIdent && strings.EqualFold(t.text, kw) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, fmt.Errorf("expected %s, found %q", what, t.text)
	}
	return t, nil
}

func (p *parser) condition() (condition, error) {
	t := p.peek()
	if t.kind != tokIdent {
		return condition{}, fmt.Errorf("expected a condition, found %q", t.text)
	}

	lower := strings.ToLower(t.text)
	switch {
	case lower == "has":
		p.next()
		return p.hasCondition(false)
	case lower == "wherehas" && p.tokens[p.pos+1].kind == tokLParen:
		p.next()
		return p.hasCondition(true)
	case aggregateFuncs[lower] && p.tokens[p.pos+1].kind == tokLParen:
		p.next()
		return p.aggregate(lower)
	}

	field := p.next().text
	op, err := p.expect(tokOp, "an operator")
	if err != nil {
		return condition{}, err
	}
	val, err := p.value()
	if err != nil {
		return condition{}, err
	}
	kind := condCompare
	if op.text == "=" {
		kind = condEquality
	}
	return condition{Kind: kind, Field: field, Op: op.text, Value: val}, nil
}

func (p *parser) hasCondition(parenthesized bool) (condition, error) {
	if parenthesized {
		if _, err := p.expect(tokLParen, "'('"); err != nil {
			return condition{}, err
		}
	}
	rel, err := p.expect(tokIdent, "a relation")
	if err != nil {
		return condition{}, err
	}
	if parenthesized {
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return condition{}, err
		}
	}

	cond := condition{Kind: condHas, Path: strings.Split(rel.text, ".")}
	if !p.keyword("where") {
		return cond, nil
	}

	// The where tail extends over following equalities
	for {
		eq, err := p.condition()
		if err != nil {
			return condition{}, err
		}
		if eq.Kind != condEquality && eq.Kind != condCompare {
			return condition{}, fmt.Errorf("unsupported condition in where clause of %s", rel.text)
		}
		cond.Where = append(cond.Where, eq)

		if !p.continuesWhere() {
			return cond, nil
		}
		p.next()
	}
}

// continuesWhere reports whether the next tokens are "and <field> <op>"
func (p *parser) continuesWhere() bool {
	if p.pos+2 >= len(p.tokens) {
		return false
	}
	and, field, op := p.tokens[p.pos], p.tokens[p.pos+1], p.tokens[p.pos+2]
	return and.kind == tokIdent && strings.EqualFold(and.text, "and") &&
		field.kind == tokIdent && !strings.EqualFold(field.text, "has") &&
		op.kind == tokOp
}

func (p *parser) aggregate(fn string) (condition, error) {
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return condition{}, err
	}
	target, err := p.expect(tokIdent, "an aggregate target")
	if err != nil {
		return condition{}, err
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return condition{}, err
	}
	op, err := p.expect(tokOp, "an operator")
	if err != nil {
		return condition{}, err
	}
	val, err := p.value()
	if err != nil {
		return condition{}, err
	}

	return condition{
		Kind:  condAggregate,
		Func:  fn,
		Path:  strings.Split(target.text, "."),
		Op:    op.text,
		Value: val,
	}, nil
}

func (p *parser) value() (value, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return value{Literal: t.text}, nil
	case tokNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return value{}, fmt.Errorf("invalid number %q", t.text)
		}
		return value{Literal: f}, nil
	case tokParam:
		return value{Param: t.text}, nil
	case tokIdent:
		switch strings.ToLower(t.text) {
		case "true":
			return value{Literal: true}, nil
		case "false":
			return value{Literal: false}, nil
		case "null":
			return value{Literal: nil}, nil
		case "and":
			return value{}, fmt.Errorf("missing value before 'and'")
		}
		return value{Literal: t.text}, nil
	default:
		return value{}, fmt.Errorf("expected a value, found %q", t.text)
	}
}
