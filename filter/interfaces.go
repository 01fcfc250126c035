package filter

import (
	"github.com/s0up4200/hlsub/heyloyalty"
)

// Filter decides whether a list is selected
type Filter interface {
	// Match checks if a list matches the filter criteria
	Match(list heyloyalty.List) (bool, error)
}

// CompiledFilter represents a pre-compiled filter ready for evaluation
type CompiledFilter interface {
	Filter

	// Expression returns the original filter expression
	Expression() string
}

// Compiler compiles filter expressions into executable filters
type Compiler interface {
	// Compile parses and compiles a filter expression
	Compile(expression string) (CompiledFilter, error)
}
