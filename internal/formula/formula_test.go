package formula

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	vars := Vars{
		"quantity":     decimal.NewFromInt(10),
		"record_count": decimal.NewFromInt(4),
		"hours":        decimal.NewFromFloat(7.5),
	}

	testCases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "plain number",
			src:  "42",
			want: "42",
		},
		{
			name: "decimal number",
			src:  "0.5",
			want: "0.5",
		},
		{
			name: "addition and subtraction left to right",
			src:  "10 - 4 + 2",
			want: "8",
		},
		{
			name: "multiplication binds tighter than addition",
			src:  "2 + 3 * 4",
			want: "14",
		},
		{
			name: "parentheses override precedence",
			src:  "(2 + 3) * 4",
			want: "20",
		},
		{
			name: "unary minus",
			src:  "-5 + 8",
			want: "3",
		},
		{
			name: "variable lookup",
			src:  "quantity * 100",
			want: "1000",
		},
		{
			name: "multiple variables",
			src:  "quantity * 2 + record_count",
			want: "24",
		},
		{
			name: "tabs and newlines between tokens",
			src:  "quantity\t* 2 +\n record_count",
			want: "24",
		},
		{
			name: "min picks the smaller argument",
			src:  "min(quantity, 3)",
			want: "3",
		},
		{
			name: "max picks the larger argument",
			src:  "max(quantity * 10, 500)",
			want: "500",
		},
		{
			name: "min with three arguments",
			src:  "min(9, 2, 5)",
			want: "2",
		},
		{
			name: "nested calls",
			src:  "max(min(quantity, 8), 6)",
			want: "8",
		},
		{
			name: "division keeps fractional precision",
			src:  "hours / 3",
			want: "2.5",
		},
		{
			name: "whitespace is insignificant",
			src:  "  quantity*2  ",
			want: "20",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			expr, err := Parse(tc.src)
			require.NoError(t, err)

			got, err := expr.Evaluate(vars)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestEvaluateDivisionPrecision(t *testing.T) {
	expr, err := Parse("10 / 3")
	require.NoError(t, err)

	got, err := expr.Evaluate(nil)
	require.NoError(t, err)
	assert.Equal(t, "3.333333333333", got.String())
}

func TestEvaluateErrors(t *testing.T) {
	t.Run("unknown variable", func(t *testing.T) {
		expr, err := Parse("quantity * missing")
		require.NoError(t, err)

		_, err = expr.Evaluate(Vars{"quantity": decimal.NewFromInt(1)})
		assert.Error(t, err)
	})

	t.Run("division by zero", func(t *testing.T) {
		expr, err := Parse("100 / hours")
		require.NoError(t, err)

		_, err = expr.Evaluate(Vars{"hours": decimal.Zero})
		assert.Error(t, err)
	})
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{name: "empty source", src: ""},
		{name: "trailing operator", src: "quantity *"},
		{name: "unbalanced parenthesis", src: "(1 + 2"},
		{name: "unknown function", src: "avg(1, 2)"},
		{name: "malformed number", src: "1.2.3"},
		{name: "trailing garbage", src: "1 + 2 )"},
		{name: "unterminated call", src: "min(1, 2"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.src)
			assert.Error(t, err)
		})
	}
}

func TestSource(t *testing.T) {
	expr, err := Parse("quantity * 1.1")
	require.NoError(t, err)
	assert.Equal(t, "quantity * 1.1", expr.Source())
}
