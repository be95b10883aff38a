package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/diegoholiveira/jsonlogic/v3"

	"github.com/TimurManjosov/flagcore/rules"
)

// ErrEmptyExpression is returned when an expression is empty or whitespace.
var ErrEmptyExpression = errors.New("invalid expression: empty or whitespace")

// ErrInvalidExpression is returned when an expression is not valid JSON Logic.
var ErrInvalidExpression = errors.New("invalid expression: not valid JSON Logic")

// ExpressionSpecificity is the specificity contribution of one expression
// extension, matching a single built-in constraint category.
const ExpressionSpecificity = 1

// ExpressionExtension compiles a JSON Logic expression into a rule extension.
// The expression is evaluated against the context's attribute map; the result
// is interpreted with JavaScript-like truthiness. The expression is validated
// at construction so snapshots carrying bad expressions are rejected at the
// decode boundary rather than at evaluation time.
func ExpressionExtension(name, expression string) (rules.Extension, error) {
	if err := ValidateExpression(expression); err != nil {
		return rules.Extension{}, err
	}
	return rules.Extension{
		Name:        name,
		Specificity: ExpressionSpecificity,
		Source:      expression,
		Match: func(ctx rules.EvalContext) (bool, error) {
			data, err := json.Marshal(ctx.AttributeMap())
			if err != nil {
				return false, err
			}
			var out bytes.Buffer
			if err := jsonlogic.Apply(strings.NewReader(expression), bytes.NewReader(data), &out); err != nil {
				return false, ErrInvalidExpression
			}
			var result any
			if err := json.Unmarshal(out.Bytes(), &result); err != nil {
				return false, err
			}
			return isTruthy(result), nil
		},
	}, nil
}

// ValidateExpression checks that an expression is valid JSON Logic by
// applying it against an empty data set.
func ValidateExpression(expression string) error {
	if strings.TrimSpace(expression) == "" {
		return ErrEmptyExpression
	}
	var rule any
	if err := json.Unmarshal([]byte(expression), &rule); err != nil {
		return ErrInvalidExpression
	}
	var out bytes.Buffer
	if err := jsonlogic.Apply(strings.NewReader(expression), strings.NewReader("{}"), &out); err != nil {
		return ErrInvalidExpression
	}
	return nil
}

// isTruthy follows JavaScript-like truthiness rules.
func isTruthy(v any) bool {
	if v == nil {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
