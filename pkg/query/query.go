// Package query shapes list requests: pagination, sorting and field projection
// parsed from URL query values.
package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/example/bloomcart/pkg/apperr"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	DefaultSort  = "-createdAt"
	// MaxPage keeps (page-1)*limit within int64 for every accepted limit.
	MaxPage int64 = math.MaxInt64/MaxLimit + 1
)

// SortField is a single order-by clause.
type SortField struct {
	Field string
	Desc  bool
}

// Options bundles the list shaping parsed from a request.
type Options struct {
	Sort   []SortField
	Fields []string
	// Paginate is set only when the caller sent page or limit.
	Paginate bool
	Page     int
	Limit    int
}

// Meta describes one page of a paginated list.
type Meta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

// Parse reads page, limit, sort and fields. Sort fields must appear in sortable and
// projected fields in projectable; an empty list accepts any field.
func Parse(values url.Values, sortable, projectable []string) (Options, error) {
	if values == nil {
		values = url.Values{}
	}

	sortRaw := strings.TrimSpace(values.Get("sort"))
	if sortRaw == "" {
		sortRaw = DefaultSort
	}
	sort, err := parseSort(sortRaw, sortable)
	if err != nil {
		return Options{}, err
	}

	fields, err := parseFields(values.Get("fields"), projectable)
	if err != nil {
		return Options{}, err
	}

	opts := Options{Sort: sort, Fields: fields}

	_, hasPage := values["page"]
	_, hasLimit := values["limit"]
	if hasPage || hasLimit {
		opts.Paginate = true
		opts.Page = max(1, parseInt(values.Get("page"), 1))
		opts.Limit = min(MaxLimit, max(1, parseInt(values.Get("limit"), DefaultLimit)))
		if int64(opts.Page) > MaxPage {
			return Options{}, apperr.Validation("page must not exceed %d", MaxPage)
		}
	}

	return opts, nil
}

// Skip is the number of records before the requested page.
func (o Options) Skip() int64 {
	if !o.Paginate {
		return 0
	}
	return int64(o.Page-1) * int64(o.Limit)
}

// Meta builds the pagination metadata for total matching records.
func (o Options) Meta(total int64) Meta {
	pages := 0
	if o.Limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(o.Limit)))
	}
	return Meta{Total: total, Page: o.Page, Limit: o.Limit, Pages: pages}
}

func parseSort(raw string, allowed []string) ([]SortField, error) {
	var out []SortField
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field := SortField{Field: part}
		if strings.HasPrefix(part, "-") {
			field = SortField{Field: strings.TrimPrefix(part, "-"), Desc: true}
		}
		if !isAllowed(field.Field, allowed) {
			return nil, apperr.Validation("unsupported sort field %q", field.Field)
		}
		out = append(out, field)
	}
	return out, nil
}

func parseFields(raw string, allowed []string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !isAllowed(part, allowed) {
			return nil, apperr.Validation("unsupported field %q", part)
		}
		out = append(out, part)
	}
	return out, nil
}

func isAllowed(field string, allowed []string) bool {
	if field == "" {
		return false
	}
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == field {
			return true
		}
	}
	return false
}

func parseInt(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return n
}
