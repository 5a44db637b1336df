package query

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Parse extracts list parameters from URL query values. Filters on fields
// outside config.AllowedFilters are ignored.
func Parse(q url.Values, config Config) Params {
	params := Params{
		Page:      intOrDefault(q.Get("page"), 1),
		PageSize:  clamp(intOrDefault(q.Get("page_size"), DefaultPageSize), 1, MaxPageSize),
		SortBy:    q.Get("sort_by"),
		SortOrder: normalizeSortOrder(q.Get("order")),
		Search:    strings.TrimSpace(q.Get("search")),
	}
	for _, field := range config.AllowedFilters {
		for _, v := range q[field] {
			if cond, ok := parseCondition(field, v); ok {
				params.Conditions = append(params.Conditions, cond)
			}
		}
	}
	return params
}

// parseCondition parses op.value; a bare value means equality.
func parseCondition(field, value string) (Condition, bool) {
	switch value {
	case "":
		return Condition{}, false
	case "is.null":
		return Condition{Field: field, Operator: OpNull}, true
	case "not.is.null":
		return Condition{Field: field, Operator: OpNotNull}, true
	}

	op, raw, found := strings.Cut(value, ".")
	if !found || !Operator(op).IsValid() {
		return Condition{Field: field, Operator: OpEq, Value: value}, true
	}
	if strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		return Condition{Field: field, Operator: Operator(op), Values: splitList(raw[1 : len(raw)-1])}, true
	}
	return Condition{Field: field, Operator: Operator(op), Value: raw}, true
}

func splitList(inner string) []string {
	var values []string
	for _, part := range strings.Split(inner, ",") {
		if s := strings.TrimSpace(part); s != "" {
			values = append(values, s)
		}
	}
	return values
}

func intOrDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

func clamp(v, lower, upper int) int {
	return max(lower, min(v, upper))
}

func normalizeSortOrder(s string) string {
	if strings.EqualFold(s, "desc") {
		return "desc"
	}
	return "asc"
}
