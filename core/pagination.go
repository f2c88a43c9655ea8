package core

// Nav is a pagination control.
type Nav int

// Pagination controls.
const (
	NavFirst Nav = iota
	NavPrev
	NavNext
	NavLast
)

// Pagination derives page counts and navigation for a listing.
type Pagination struct {
	CurrentPage int `json:"current_page" yaml:"current_page"`
	TotalCount  int `json:"total_count" yaml:"total_count"`
	PageSize    int `json:"page_size" yaml:"page_size"`
}

// TotalPages is ceil(TotalCount / PageSize), but never less than 1 so that
// an empty listing still reads "page 1 of 1".
func (p Pagination) TotalPages() int {
	if p.PageSize <= 0 || p.TotalCount <= 0 {
		return 1
	}
	return max(1, (p.TotalCount+p.PageSize-1)/p.PageSize)
}

// Clamp bounds page into [1, TotalPages].
func (p Pagination) Clamp(page int) int {
	return min(max(page, 1), p.TotalPages())
}

// Target returns the page reached by nav from the current page.
func (p Pagination) Target(nav Nav) int {
	switch nav {
	case NavFirst:
		return 1
	case NavPrev:
		return p.Clamp(p.CurrentPage - 1)
	case NavNext:
		return p.Clamp(p.CurrentPage + 1)
	case NavLast:
		return p.TotalPages()
	default:
		return p.Clamp(p.CurrentPage)
	}
}

// HasPrev reports whether first/prev are enabled.
func (p Pagination) HasPrev() bool { return p.CurrentPage > 1 }

// HasNext reports whether next/last are enabled.
func (p Pagination) HasNext() bool { return p.CurrentPage < p.TotalPages() }

// Enabled reports whether the nav control is usable from the current page.
func (p Pagination) Enabled(nav Nav) bool {
	switch nav {
	case NavFirst, NavPrev:
		return p.HasPrev()
	case NavNext, NavLast:
		return p.HasNext()
	default:
		return false
	}
}
