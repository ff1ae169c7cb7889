package service

import "ecommerce-backend/internal/entity"

// Paging holds the listing limits from configuration.
type Paging struct {
	DefaultPageSize int
	MaxPageSize     int
}

func (p Paging) normalize(page entity.PageRequest) entity.PageRequest {
	def, max := p.DefaultPageSize, p.MaxPageSize
	if def < 1 {
		def = 10
	}
	if max < def {
		max = def
	}
	return page.Normalize(def, max)
}
