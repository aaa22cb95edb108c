package stores

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"roadwatch-be/models"
)

// ListQuery is the flat filter/search/sort/page shape the report store
// understands. Zero values mean "not constrained".
type ListQuery struct {
	SearchTerm      string
	Issue           string
	Severity        string
	Status          string
	User            primitive.ObjectID
	ExcludeStatuses []models.ReportStatus
	Sort            string // "newest" (default) or "oldest"
	Page            int
	Limit           int
}

// Normalize clamps pagination to sane bounds.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 10
	}
	return q
}

// Meta describes one page of a list result.
type Meta struct {
	Page      int   `json:"page"`
	Limit     int   `json:"limit"`
	Total     int64 `json:"total"`
	TotalPage int   `json:"totalPage"`
}

// NewMeta computes page math for a total count.
func NewMeta(page, limit int, total int64) Meta {
	totalPage := int((total + int64(limit) - 1) / int64(limit))
	return Meta{Page: page, Limit: limit, Total: total, TotalPage: totalPage}
}
