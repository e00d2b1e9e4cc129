// Package extensibility resolves the names used in graph blueprints into
// hooks and breakers, and holds the small expression language breakers are
// written in.
package extensibility

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/comalice/botix"
)

var ErrBadExpression = errors.New("malformed breaker expression")

// Store is the readable side of a sensor value store.
type Store interface {
	Float(key string) (float64, bool)
}

// Op is a comparison operator in a breaker expression.
type Op string

const (
	OpEq Op = "=="
	OpNe Op = "!="
	OpGt Op = ">"
	OpGe Op = ">="
	OpLt Op = "<"
	OpLe Op = "<="
)

// Expression is a parsed "key op value" comparison, e.g. "line > 0.5" or
// "bumper == true".
type Expression struct {
	Key   string
	Op    Op
	Value float64
}

// ParseExpression parses "key op value". Booleans compare as 1 and 0.
func ParseExpression(s string) (Expression, error) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return Expression{}, fmt.Errorf("%q: want \"key op value\": %w", s, ErrBadExpression)
	}
	key, op, raw := parts[0], Op(parts[1]), parts[2]
	switch op {
	case OpEq, OpNe, OpGt, OpGe, OpLt, OpLe:
	default:
		return Expression{}, fmt.Errorf("%q: unknown operator %q: %w", s, op, ErrBadExpression)
	}

	var v float64
	switch raw {
	case "true":
		v = 1
	case "false":
		v = 0
	default:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Expression{}, fmt.Errorf("%q: value %q: %w", s, raw, ErrBadExpression)
		}
		v = f
	}
	return Expression{Key: key, Op: op, Value: v}, nil
}

// Eval compares the stored value for Key. A missing key never matches.
func (e Expression) Eval(store Store) bool {
	got, ok := store.Float(e.Key)
	if !ok {
		return false
	}
	switch e.Op {
	case OpEq:
		return got == e.Value
	case OpNe:
		return got != e.Value
	case OpGt:
		return got > e.Value
	case OpGe:
		return got >= e.Value
	case OpLt:
		return got < e.Value
	case OpLe:
		return got <= e.Value
	}
	return false
}

// Predicate binds the expression to store.
func (e Expression) Predicate(store Store) botix.Predicate {
	return botix.PredicateFunc(func() bool { return e.Eval(store) })
}

func (e Expression) String() string {
	return e.Key + " " + string(e.Op) + " " + strconv.FormatFloat(e.Value, 'f', -1, 64)
}
