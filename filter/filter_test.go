package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/hlsub/heyloyalty"
)

func testLists() []heyloyalty.List {
	return []heyloyalty.List{
		{
			ID:   5,
			Name: "Newsletter",
			Fields: []heyloyalty.ListField{
				{Name: "firstname"},
				{Name: "categories"},
			},
			Raw: map[string]any{"country": "DK"},
		},
		{ID: 7, Name: "Events"},
		{ID: 12, Name: "Kids newsletter", Raw: map[string]any{"country": "SE"}},
	}
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name        string
		expression  string
		wantErr     bool
		errContains string
	}{
		{
			name:       "valid expression",
			expression: `Name contains "news"`,
		},
		{
			name:        "empty expression",
			expression:  "  ",
			wantErr:     true,
			errContains: "empty expression",
		},
		{
			name:       "invalid syntax",
			expression: `hasField("unclosed`,
			wantErr:    true,
		},
		{
			name:       "unknown variable",
			expression: `Title == "x"`,
			wantErr:    true,
		},
		{
			name:       "non boolean result",
			expression: `Name`,
			wantErr:    true,
		},
		{
			name:       "complex expression",
			expression: `ID > 5 and hasField("categories") or meta("country") == "SE"`,
		},
	}

	compiler := NewCompiler()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := compiler.Compile(tt.expression)
			if tt.wantErr {
				require.Error(t, err)
				var compErr *CompilationError
				assert.True(t, errors.As(err, &compErr))
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expression, filter.Expression())
		})
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		wantIDs    []int
	}{
		{"name contains", `lower(Name) contains "newsletter"`, []int{5, 12}},
		{"id comparison", `ID >= 7`, []int{7, 12}},
		{"has field", `hasField("categories")`, []int{5}},
		{"field count", `FieldCount == 0`, []int{7, 12}},
		{"metadata", `meta("country") == "DK"`, []int{5}},
		{"missing metadata", `meta("country") == ""`, []int{7}},
		{"case insensitive name", `named("events")`, []int{7}},
		{"field list", `"firstname" in Fields`, []int{5}},
		{"no match", `ID > 100`, []int{}},
	}

	compiler := NewCompiler(WithCache(10))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := compiler.Compile(tt.expression)
			require.NoError(t, err)

			matched, err := Apply(filter, testLists())
			require.NoError(t, err)

			ids := []int{}
			for _, l := range matched {
				ids = append(ids, l.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestCompilerCache(t *testing.T) {
	compiler := NewCompiler(WithCache(2)).(*exprCompiler)

	first, err := compiler.Compile(`ID == 1`)
	require.NoError(t, err)

	again, err := compiler.Compile(` ID == 1 `)
	require.NoError(t, err)
	assert.Same(t, first, again)

	_, err = compiler.Compile(`ID == 2`)
	require.NoError(t, err)
	_, err = compiler.Compile(`ID == 3`)
	require.NoError(t, err)
	assert.Equal(t, 2, compiler.cache.Len())

	_, ok := compiler.cache.Get(`ID == 1`)
	assert.False(t, ok, "least recently used entry should be evicted")
}
