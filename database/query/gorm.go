package query

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Apply runs params against db and returns one page of T.
func Apply[T any](db *gorm.DB, params Params, config Config) (*Result[T], error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = DefaultPageSize
	}

	q := filtered(db, params.Conditions, config)
	if params.Search != "" && len(config.SearchFields) > 0 {
		q = applySearch(q, params.Search, config)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	facets, err := computeFacets(db, params.Conditions, config)
	if err != nil {
		return nil, err
	}

	var data []T
	err = applySort(q, params, config).
		Offset((params.Page - 1) * params.PageSize).
		Limit(params.PageSize).
		Find(&data).Error
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	return &Result[T]{
		Data: data,
		Pagination: Pagination{
			Page:       params.Page,
			PageSize:   params.PageSize,
			Total:      int(total),
			TotalPages: max(1, (int(total)+params.PageSize-1)/params.PageSize),
		},
		Facets: facets,
	}, nil
}

func filtered(db *gorm.DB, conditions []Condition, config Config) *gorm.DB {
	q := db.Session(&gorm.Session{})
	for _, cond := range conditions {
		q = applyCondition(q, cond, config)
	}
	return q
}

func applySearch(db *gorm.DB, search string, config Config) *gorm.DB {
	pattern := "%" + strings.ToLower(search) + "%"
	conds := make([]string, 0, len(config.SearchFields))
	args := make([]any, 0, len(config.SearchFields))
	for _, f := range config.SearchFields {
		conds = append(conds, fmt.Sprintf("LOWER(%s) LIKE ?", config.Column(f)))
		args = append(args, pattern)
	}
	return db.Where(strings.Join(conds, " OR "), args...)
}

func applyCondition(db *gorm.DB, cond Condition, config Config) *gorm.DB {
	col := config.Column(cond.Field)

	switch cond.Operator {
	case OpEq, OpIn:
		if len(cond.Values) > 0 {
			return db.Where(col+" IN ?", cond.Values)
		}
		return db.Where(col+" = ?", cond.Value)
	case OpNeq, OpNin:
		if len(cond.Values) > 0 {
			return db.Where(col+" NOT IN ?", cond.Values)
		}
		return db.Where(col+" <> ?", cond.Value)
	case OpGt:
		return db.Where(col+" > ?", cond.Value)
	case OpGte:
		return db.Where(col+" >= ?", cond.Value)
	case OpLt:
		return db.Where(col+" < ?", cond.Value)
	case OpLte:
		return db.Where(col+" <= ?", cond.Value)
	case OpIlike:
		return db.Where("LOWER("+col+") LIKE ?", "%"+strings.ToLower(cond.Value)+"%")
	case OpNull:
		return db.Where(col + " IS NULL")
	case OpNotNull:
		return db.Where(col + " IS NOT NULL")
	}
	return db
}

func applySort(db *gorm.DB, params Params, config Config) *gorm.DB {
	if params.SortBy != "" && contains(config.AllowedSortFields, params.SortBy) {
		order := config.Column(params.SortBy)
		if params.SortOrder == "desc" {
			order += " DESC"
		}
		return db.Order(order)
	}
	if config.DefaultSort != "" {
		return db.Order(config.DefaultSort)
	}
	return db
}

// computeFacets counts rows per value of each facet field. Each facet is
// filtered by every condition except those on the facet itself.
func computeFacets(db *gorm.DB, conditions []Condition, config Config) (map[string]map[string]int, error) {
	if len(config.FacetFields) == 0 {
		return nil, nil
	}

	facets := make(map[string]map[string]int, len(config.FacetFields))
	for _, field := range config.FacetFields {
		var others []Condition
		for _, c := range conditions {
			if c.Field != field {
				others = append(others, c)
			}
		}

		var rows []struct {
			Value string
			Count int
		}
		col := config.Column(field)
		err := filtered(db, others, config).
			Select(col + " AS value, COUNT(*) AS count").
			Group(col).
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("facet %s: %w", field, err)
		}

		counts := make(map[string]int, len(rows))
		for _, r := range rows {
			counts[r.Value] = r.Count
		}
		facets[field] = counts
	}
	return facets, nil
}
