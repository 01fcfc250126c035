package filter

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/hlsub/heyloyalty"
)

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
}

// CompilerOption configures an expr compiler
type CompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) CompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newProgramCache(size)
		}
	}
}

// exprCompiler implements Compiler for expr-based filters
type exprCompiler struct {
	cache *programCache
}

// NewCompiler creates a new expr-based filter compiler
func NewCompiler(opts ...CompilerOption) Compiler {
	c := &exprCompiler{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile compiles an expression into an executable filter. The expression
// is type checked against the list environment, so unknown names fail here.
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(newEnvironment(heyloyalty.List{})),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Match evaluates the filter against a list
func (f *exprFilter) Match(list heyloyalty.List) (bool, error) {
	out, err := expr.Run(f.program, newEnvironment(list))
	if err != nil {
		return false, &EvaluationError{Expression: f.expression, ListID: list.ID, Err: err}
	}
	return out.(bool), nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// Apply returns the lists matching f, preserving order
func Apply(f Filter, lists []heyloyalty.List) ([]heyloyalty.List, error) {
	matched := make([]heyloyalty.List, 0, len(lists))
	for _, list := range lists {
		ok, err := f.Match(list)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, list)
		}
	}
	return matched, nil
}

// newEnvironment exposes a list's properties and helpers to expressions
func newEnvironment(list heyloyalty.List) map[string]any {
	fieldNames := make([]string, 0, len(list.Fields))
	for _, f := range list.Fields {
		fieldNames = append(fieldNames, f.Name)
	}

	return map[string]any{
		"ID":         list.ID,
		"Name":       list.Name,
		"Fields":     fieldNames,
		"FieldCount": len(list.Fields),

		"hasField": func(name string) bool {
			return list.Field(name) != nil
		},
		"meta": func(key string) string {
			if v, ok := list.Raw[key]; ok && v != nil {
				return fmt.Sprint(v)
			}
			return ""
		},
		"named": func(name string) bool {
			return strings.EqualFold(list.Name, name)
		},
	}
}
