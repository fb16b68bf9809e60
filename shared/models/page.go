package models

// AccountFilter narrows a search. Zero-valued fields do not filter; Gender
// and RoleID are pointers because their zero values are meaningful.
type AccountFilter struct {
	Username string
	Email    string
	Gender   *Gender
	RoleID   *int
}

// Pagination is 1-based.
type Pagination struct {
	Page     int
	PageSize int
}

// Offset is the number of rows skipped before the requested page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type AccountPage struct {
	Data       []Account `json:"data"`
	Total      int       `json:"total"`
	TotalPages int       `json:"totalPages"`
}
