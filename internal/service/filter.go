package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/warebill/warebill/internal/domain/performance"
	"github.com/warebill/warebill/internal/types"
)

// matchesFilters evaluates a rule's filter predicates against one record. All
// conditions must hold; a record lacking a referenced field never matches.
func matchesFilters(r *performance.Record, conditions []types.FilterCondition) bool {
	for _, cond := range conditions {
		fieldValue, ok := r.FieldValue(cond.Field)
		if !ok {
			return false
		}
		if !evaluateCondition(fieldValue, cond) {
			return false
		}
	}
	return true
}

func evaluateCondition(fieldValue any, cond types.FilterCondition) bool {
	switch cond.Operator {
	case types.FilterOpEqual:
		return compareValues(fieldValue, cond.Value) == 0
	case types.FilterOpGreaterThan:
		return compareValues(fieldValue, cond.Value) > 0
	case types.FilterOpGreaterOrEqual:
		return compareValues(fieldValue, cond.Value) >= 0
	case types.FilterOpLessThan:
		return compareValues(fieldValue, cond.Value) < 0
	case types.FilterOpLessOrEqual:
		return compareValues(fieldValue, cond.Value) <= 0
	case types.FilterOpIn:
		return lo.Contains(cond.Values, fieldString(fieldValue))
	case types.FilterOpContains:
		return strings.Contains(fieldString(fieldValue), fieldString(cond.Value))
	}
	return false
}

// compareValues orders two values numerically when both parse as decimals,
// lexically otherwise. ISO day strings order correctly under the lexical
// fallback, which is what date filters rely on.
func compareValues(a, b any) int {
	da, aok := toDecimal(a)
	db, bok := toDecimal(b)
	if aok && bok {
		return da.Cmp(db)
	}
	return strings.Compare(fieldString(a), fieldString(b))
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch v := v.(type) {
	case decimal.Decimal:
		return v, true
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	}
	return decimal.Zero, false
}

func fieldString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case decimal.Decimal:
		return v.String()
	case nil:
		return ""
	}
	return fmt.Sprintf("%v", v)
}
