// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package script

import (
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/govaluate"
)

var (
	// ErrEmptyScript is returned when compiling blank source text.
	ErrEmptyScript = errors.New("empty script")

	// ErrCompile wraps every parse failure.
	ErrCompile = errors.New("script compile failed")
)

// Program is a compiled expression. It is safe for concurrent use.
type Program struct {
	source string
	expr   *govaluate.EvaluableExpression
}

// Compile parses src into a reusable program.
func Compile(src string) (*Program, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, ErrEmptyScript
	}
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(src, functions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}
	return &Program{source: src, expr: expr}, nil
}

// MustCompile is Compile for known-good constants.
func MustCompile(src string) *Program {
	p, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return p
}

// Source returns the serialized form of the program. Compile(p.Source())
// yields an equivalent program.
func (p *Program) Source() string {
	return p.source
}

// Execute runs the program against env and returns the raw result
// (bool, float64 or string).
func (p *Program) Execute(env Env) (interface{}, error) {
	v, err := p.expr.Evaluate(env.parameters())
	if err != nil {
		return nil, fmt.Errorf("execute %q: %w", p.source, err)
	}
	return v, nil
}

// Bool runs the program and requires a boolean result.
func (p *Program) Bool(env Env) (bool, error) {
	v, err := p.Execute(env)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("execute %q: result %v is not a boolean", p.source, v)
	}
	return b, nil
}

// String runs the program and renders the result as text.
func (p *Program) String(env Env) (string, error) {
	v, err := p.Execute(env)
	if err != nil {
		return "", err
	}
	return toString(v), nil
}
