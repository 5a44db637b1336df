// Package query parses list parameters (pagination, sorting, filters and
// free-text search) and applies them to GORM queries.
//
// Filters use the field=op.value form:
//
//	GET /api/v1/executions?status=in.(failed,cancelled)&started_at=gte.2026-01-01&order=desc
package query

// Operator is a filter operator.
type Operator string

const (
	OpEq      Operator = "eq"
	OpNeq     Operator = "neq"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpIn      Operator = "in"
	OpNin     Operator = "nin"
	OpIlike   Operator = "ilike"
	OpNull    Operator = "null"
	OpNotNull Operator = "notNull"
)

var operators = map[Operator]bool{
	OpEq: true, OpNeq: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpIn: true, OpNin: true, OpIlike: true, OpNull: true, OpNotNull: true,
}

// IsValid reports whether the operator is known.
func (o Operator) IsValid() bool { return operators[o] }

// Condition is a single filter condition.
type Condition struct {
	Field    string
	Operator Operator
	Value    string
	Values   []string // in, nin
}

// Params holds parsed list parameters.
type Params struct {
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
	Search     string
	Conditions []Condition
}

// Where appends a condition. Callers use it for server-side scoping such
// as restricting a list to the requesting user.
func (p *Params) Where(field string, op Operator, value string) {
	p.Conditions = append(p.Conditions, Condition{Field: field, Operator: op, Value: value})
}

// Pagination metadata returned with a page of results.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Result is one page of rows with optional facet counts.
type Result[T any] struct {
	Data       []T                       `json:"data"`
	Pagination Pagination                `json:"pagination"`
	Facets     map[string]map[string]int `json:"facets,omitempty"`
}

// Config defines what a list endpoint accepts. Only fields named here are
// ever interpolated into SQL.
type Config struct {
	AllowedFilters    []string
	AllowedSortFields []string
	SearchFields      []string
	FacetFields       []string
	// Columns maps public field names to column names.
	Columns     map[string]string
	DefaultSort string
}

// Column returns the column for a public field name.
func (c Config) Column(field string) string {
	if col, ok := c.Columns[field]; ok {
		return col
	}
	return field
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
