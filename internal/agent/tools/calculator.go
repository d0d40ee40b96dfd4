// Package tools holds the tools the agent can call during an invocation.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
)

// Calculator evaluates arithmetic expressions.
type Calculator struct{}

// NewCalculator returns the calculator tool.
func NewCalculator() *Calculator { return &Calculator{} }

func (c *Calculator) Name() string { return "calculator" }

func (c *Calculator) Description() string {
	return "Evaluate an arithmetic expression. Supports + - * / % ^, parentheses, " +
		"the constants pi and e, and the functions sqrt, abs, pow, floor, ceil, round, min, max, ln, log, exp, sin, cos, tan."
}

func (c *Calculator) InputSchema() string {
	return `{"type":"object","properties":{"expression":{"type":"string","description":"Arithmetic expression, e.g. (2 + 3) * 4 ^ 2"}},"required":["expression"]}`
}

type calculatorInput struct {
	Expression string `json:"expression"`
}

// Execute evaluates {"expression": "..."} and returns the numeric result.
func (c *Calculator) Execute(_ context.Context, input string) (string, error) {
	var in calculatorInput
	if err := json.Unmarshal([]byte(input), &in); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	if strings.TrimSpace(in.Expression) == "" {
		return "", errors.New("expression is required")
	}

	v, err := Evaluate(in.Expression)
	if err != nil {
		return "", err
	}
	return FormatNumber(v), nil
}

var constants = map[string]any{
	"pi": math.Pi,
	"PI": math.Pi,
	"e":  math.E,
	"E":  math.E,
}

// Only the math functions below are callable; expr's own builtins (len,
// filter, ...) are switched off.
var calculatorOptions = []expr.Option{
	expr.Env(constants),
	expr.DisableAllBuiltins(),
	unary("sqrt", func(x float64) (float64, error) {
		if x < 0 {
			return 0, errors.New("sqrt of negative number")
		}
		return math.Sqrt(x), nil
	}),
	unary("abs", pure(math.Abs)),
	unary("floor", pure(math.Floor)),
	unary("ceil", pure(math.Ceil)),
	unary("round", pure(math.Round)),
	unary("exp", pure(math.Exp)),
	unary("sin", pure(math.Sin)),
	unary("cos", pure(math.Cos)),
	unary("tan", pure(math.Tan)),
	unary("ln", positive("ln", math.Log)),
	unary("log", positive("log", math.Log10)),
	function("pow", 2, func(args []float64) float64 { return math.Pow(args[0], args[1]) }),
	function("min", -1, func(args []float64) float64 {
		m := args[0]
		for _, a := range args[1:] {
			m = math.Min(m, a)
		}
		return m
	}),
	function("max", -1, func(args []float64) float64 {
		m := args[0]
		for _, a := range args[1:] {
			m = math.Max(m, a)
		}
		return m
	}),
}

// Evaluate computes an arithmetic expression.
func Evaluate(expression string) (float64, error) {
	program, err := expr.Compile(expression, calculatorOptions...)
	if err != nil {
		return 0, err
	}
	out, err := expr.Run(program, constants)
	if err != nil {
		return 0, err
	}
	v, err := toFloat(out)
	if err != nil {
		return 0, fmt.Errorf("result %w", err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("result is not a finite number")
	}
	return v, nil
}

// FormatNumber renders integers without a decimal point and other values
// with the shortest exact representation.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func pure(f func(float64) float64) func(float64) (float64, error) {
	return func(x float64) (float64, error) { return f(x), nil }
}

func positive(name string, f func(float64) float64) func(float64) (float64, error) {
	return func(x float64) (float64, error) {
		if x <= 0 {
			return 0, fmt.Errorf("%s of non-positive number", name)
		}
		return f(x), nil
	}
}

func unary(name string, f func(float64) (float64, error)) expr.Option {
	return expr.Function(name, func(params ...any) (any, error) {
		args, err := floatArgs(name, 1, params)
		if err != nil {
			return nil, err
		}
		return f(args[0])
	})
}

// function registers name taking arity arguments; -1 means one or more.
func function(name string, arity int, f func([]float64) float64) expr.Option {
	return expr.Function(name, func(params ...any) (any, error) {
		args, err := floatArgs(name, arity, params)
		if err != nil {
			return nil, err
		}
		return f(args), nil
	})
}

func floatArgs(name string, arity int, params []any) ([]float64, error) {
	switch {
	case arity < 0 && len(params) == 0:
		return nil, fmt.Errorf("%s takes at least 1 argument", name)
	case arity == 1 && len(params) != 1:
		return nil, fmt.Errorf("%s takes 1 argument", name)
	case arity > 1 && len(params) != arity:
		return nil, fmt.Errorf("%s takes %d arguments", name, arity)
	}
	args := make([]float64, len(params))
	for i, p := range params {
		f, err := toFloat(p)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d %w", name, i+1, err)
		}
		args[i] = f
	}
	return args, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("is not a number: %v", v)
	}
}
