// Package matcher provides a simple "rule" language that may be used
// inside NextShort plugin directives to filter lease events. The matcher
// library is based on github.com/Knetic/govaluate.
//
// Expressions can access the following parameters:
//
//	event      the name of the lease event (string)
//	hwaddr     the hardware address of the lease (string)
//	shortaddr  the short address of the lease (number)
//	timestamp  the last-seen timestamp in unix seconds (number)
package matcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/nextshort/core/lease"
)

type (
	// Matcher is a lease event matcher
	Matcher struct {
		// expr holds the pre-compiled expression
		expr *govaluate.EvaluableExpression
	}

	// ExprFunc can be used expose functions to matcher expressions
	ExprFunc func(args ...interface{}) (interface{}, error)
)

// builtin functions available in all expressions
var builtin = map[string]ExprFunc{
	"hasPrefix": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("hasPrefix: expected 2 arguments but got %d", len(args))
		}

		s, ok1 := args[0].(string)
		prefix, ok2 := args[1].(string)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("hasPrefix: expected string arguments")
		}

		return strings.HasPrefix(s, prefix), nil
	},
}

// New compiles the condition cond. An empty condition matches every
// event
func New(cond string, fns ...map[string]ExprFunc) (*Matcher, error) {
	if strings.TrimSpace(cond) == "" {
		return &Matcher{}, nil
	}

	functions := make(map[string]govaluate.ExpressionFunction)
	for _, m := range append([]map[string]ExprFunc{builtin}, fns...) {
		for name, fn := range m {
			functions[name] = govaluate.ExpressionFunction(fn)
		}
	}

	expr, err := govaluate.NewEvaluableExpressionWithFunctions(cond, functions)
	if err != nil {
		return nil, err
	}

	return &Matcher{expr: expr}, nil
}

// SetupMatcher parses the if and if_op conditions of the current
// dispenser block and returns a lease event matcher. The position of
// the controller is not modified
func SetupMatcher(c *caddy.Controller, fns ...map[string]ExprFunc) (*Matcher, error) {
	cond, err := ParseConditions(c.Dispenser)
	if err != nil {
		return nil, err
	}

	return New(cond, fns...)
}

// SetupMatcherRemainingArgs is like SetupMatcher but also consumes all
// remaining arguments of the current line and uses them as an
// additional condition
func SetupMatcherRemainingArgs(c *caddy.Controller, fns ...map[string]ExprFunc) (*Matcher, error) {
	lineCond := strings.Join(c.RemainingArgs(), " ")

	blockCond, err := ParseConditions(c.Dispenser)
	if err != nil {
		return nil, err
	}

	return New(joinConditions([]string{lineCond, blockCond}, "&&"), fns...)
}

// EmptyCondition returns true if the matcher does not have any
// condition and thus matches every event
func (m *Matcher) EmptyCondition() bool {
	return m.expr == nil
}

// Match evaluates the expression stored in the matcher against the
// given lease event
func (m *Matcher) Match(ctx context.Context, event caddy.EventName, l *lease.Lease) (bool, error) {
	if m.expr == nil {
		return true, nil
	}

	params := map[string]interface{}{
		"event":     string(event),
		"hwaddr":    "",
		"shortaddr": float64(0),
		"timestamp": float64(0),
	}

	if l != nil {
		params["hwaddr"] = l.HwAddr.String()
		params["shortaddr"] = float64(l.ShortAddr)
		params["timestamp"] = float64(l.LastSeen.Unix())
	}

	result, err := m.expr.Evaluate(params)
	if err != nil {
		return false, err
	}

	if b, ok := result.(bool); ok {
		return b, nil
	}

	return false, fmt.Errorf("expression did not evaluate to a boolean. instead, got: %v", result)
}
