package shared

// Filter represents query filter options
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// DefaultFilter returns a filter with default values
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: 20,
		OrderBy:  "created_at",
		OrderDir: "desc",
	}
}

// Offset returns the row offset implied by the page settings
func (f Filter) Offset() int {
	page := f.Page
	if page < 1 {
		page = 1
	}
	size := f.PageSize
	if size < 1 {
		size = 20
	}
	return (page - 1) * size
}

// Limit returns the row limit implied by the page settings
func (f Filter) Limit() int {
	if f.PageSize < 1 {
		return 20
	}
	return f.PageSize
}
