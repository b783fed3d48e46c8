package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/flowershop/admin-api/internal/domain"
)

const (
	// DefaultPageSize is used when the client omits pageSize.
	DefaultPageSize = 10
	// DefaultMaxPageSize caps pageSize for non-export listings.
	DefaultMaxPageSize = 200
)

var (
	ErrInvalidPageNumber = errors.New("pagination: invalid pageNumber")
	ErrInvalidPageSize   = errors.New("pagination: invalid pageSize")
	ErrInvalidExport     = errors.New("pagination: invalid isExport")
	ErrInvalidOrderBy    = errors.New("pagination: invalid orderBy")
)

// Options control how Parse behaves for a given listing.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
	// DefaultOrderBy is applied when the client omits orderBy, e.g. "name:1".
	DefaultOrderBy     string
	AllowedOrderFields []string
}

// FromRequest parses the listing query parameters of r.
func FromRequest(r *http.Request, opts Options) (domain.ListQuery, error) {
	if r == nil {
		return domain.ListQuery{}, errors.New("pagination: nil request")
	}
	return Parse(r.URL.Query(), opts)
}

// Parse reads keyword, pageNumber, pageSize, isExport and orderBy.
func Parse(values url.Values, opts Options) (domain.ListQuery, error) {
	if values == nil {
		values = url.Values{}
	}

	query := domain.ListQuery{Keyword: strings.TrimSpace(values.Get("keyword"))}

	pageNumber, err := parsePositive(values.Get("pageNumber"), 1)
	if err != nil {
		return domain.ListQuery{}, fmt.Errorf("%w: %v", ErrInvalidPageNumber, err)
	}
	query.PageNumber = pageNumber

	query.PageSize, err = parsePageSize(values.Get("pageSize"), opts)
	if err != nil {
		return domain.ListQuery{}, err
	}

	if raw := strings.TrimSpace(values.Get("isExport")); raw != "" {
		query.IsExport, err = strconv.ParseBool(raw)
		if err != nil {
			return domain.ListQuery{}, fmt.Errorf("%w: %q", ErrInvalidExport, raw)
		}
	}

	orderBy := strings.TrimSpace(values.Get("orderBy"))
	if orderBy == "" {
		orderBy = opts.DefaultOrderBy
	}
	query.Sort, err = ParseOrderBy(orderBy, opts.AllowedOrderFields)
	if err != nil {
		return domain.ListQuery{}, err
	}
	return query, nil
}

// ParseLimit reads an optional positive integer limit. Zero means no limit.
func ParseLimit(raw string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	return parsePositive(raw, 0)
}

// ParseOrderBy parses "field:1,other:-1". Every field must be listed in allowed.
func ParseOrderBy(raw string, allowed []string) ([]domain.SortField, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, field := range allowed {
		allowedSet[field] = struct{}{}
	}

	seen := make(map[string]struct{})
	var fields []domain.SortField
	for _, part := range strings.Split(raw, ",") {
		name, dir, ok := strings.Cut(strings.TrimSpace(part), ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidOrderBy, part)
		}
		if _, ok := allowedSet[name]; !ok {
			return nil, fmt.Errorf("%w: field %q is not sortable", ErrInvalidOrderBy, name)
		}
		var desc bool
		switch strings.TrimSpace(dir) {
		case "1":
		case "-1":
			desc = true
		default:
			return nil, fmt.Errorf("%w: direction %q", ErrInvalidOrderBy, dir)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		fields = append(fields, domain.SortField{Field: name, Desc: desc})
	}
	return fields, nil
}

func parsePageSize(raw string, opts Options) (int, error) {
	maxPageSize := opts.MaxPageSize
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}
	defaultPageSize := opts.DefaultPageSize
	if defaultPageSize <= 0 {
		defaultPageSize = DefaultPageSize
	}

	value, err := parsePositive(raw, defaultPageSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPageSize, err)
	}
	if value > maxPageSize {
		value = maxPageSize
	}
	return value, nil
}

func parsePositive(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("must be an integer")
	}
	if value < 1 {
		return 0, errors.New("must be greater than zero")
	}
	return value, nil
}
