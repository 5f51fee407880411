package domain

// StudentListFilter narrows the student destination listing.
type StudentListFilter struct {
	IncludeUnpublished bool
	GraduationYear     int
	CollegeID          *int64
	Search             *string
	Limit              int
	Offset             int
}

// StudentEntry is one row of the student destination listing.
type StudentEntry struct {
	User       User        `json:"user"`
	TestScores []TestScore `json:"test_scores"`
	Decisions  []Decision  `json:"decisions"`
	Attending  *College    `json:"attending_college,omitempty"`
}

type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

func NewPage[T any](items []T, total, page, pageSize int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 1
	if pageSize > 0 && total > 0 {
		pages = (total + pageSize - 1) / pageSize
	}
	return Page[T]{Items: items, Total: total, Page: page, PageSize: pageSize, TotalPages: pages}
}
