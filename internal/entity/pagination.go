package entity

type PageRequest struct {
	Page    int
	PerPage int
}

// Normalize clamps the page to >= 1 and per-page to [1, max], using def when unset.
func (p PageRequest) Normalize(def, max int) PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = def
	}
	if p.PerPage > max {
		p.PerPage = max
	}
	return p
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PerPage
}

type Pagination struct {
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Pages   int `json:"pages"`
}

func NewPagination(total int, page PageRequest) *Pagination {
	pages := 0
	if page.PerPage > 0 {
		pages = (total + page.PerPage - 1) / page.PerPage
	}
	return &Pagination{Total: total, Page: page.Page, PerPage: page.PerPage, Pages: pages}
}
