package services

import (
	"errors"
	"math"
	"regexp"
	"strings"

	"github.com/Knetic/govaluate"
)

var (
	ErrInvalidExpression     = errors.New("expression contains characters outside the arithmetic set")
	ErrUnevaluableExpression = errors.New("expression could not be evaluated")
)

var (
	arithmeticCharset = regexp.MustCompile(`^[0-9+\-*/().\s]+$`)
	binaryOperator    = regexp.MustCompile(`[0-9.)]\s*[+\-*/]\s*[\-(\s]*[0-9.(]`)
	// govaluate reads "**" as exponentiation
	exponent = regexp.MustCompile(`\*\s*\*`)
)

// NormalizeArithmetic trims whitespace and one optional trailing "=".
func NormalizeArithmetic(message string) string {
	expr := strings.TrimSpace(message)
	expr = strings.TrimSuffix(expr, "=")
	return strings.TrimSpace(expr)
}

// IsArithmetic reports whether a chat message should be answered by the local
// evaluator. A bare number is treated as an answer, not as a question.
func IsArithmetic(message string) bool {
	expr := NormalizeArithmetic(message)
	if expr == "" || !arithmeticCharset.MatchString(expr) {
		return false
	}
	return binaryOperator.MatchString(expr)
}

// EvaluateArithmetic computes expr using + - * / and parentheses only.
func EvaluateArithmetic(expr string) (float64, error) {
	expr = NormalizeArithmetic(expr)
	if expr == "" || !arithmeticCharset.MatchString(expr) || exponent.MatchString(expr) {
		return 0, ErrInvalidExpression
	}

	expression, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return 0, ErrUnevaluableExpression
	}

	raw, err := expression.Evaluate(nil)
	if err != nil {
		return 0, ErrUnevaluableExpression
	}

	result, ok := raw.(float64)
	if !ok || math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, ErrUnevaluableExpression
	}

	return result, nil
}
