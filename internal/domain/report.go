package domain

// ImportReport summarizes one import operation over a CSV stream.
type ImportReport struct {
	Source         string      `json:"source"`
	TotalRows      int         `json:"total_rows"`
	Inserted       int         `json:"inserted"`
	DuplicateEmail int         `json:"duplicate_email"`
	Invalid        int         `json:"invalid"`
	Rejections     []Rejection `json:"rejections,omitempty"`
}

// Rejection records one rejected row. Row numbers are 1-based over data rows,
// counted after any header line.
type Rejection struct {
	Row    int    `json:"row"`
	Reason Reason `json:"reason"`
}

// RejectRow registers a rejection and bumps the matching counter. Duplicate
// emails are counted apart from the other failures.
func (r *ImportReport) RejectRow(row int, reason Reason) {
	if reason == ReasonDuplicateEmail {
		r.DuplicateEmail++
	} else {
		r.Invalid++
	}

	r.Rejections = append(r.Rejections, Rejection{Row: row, Reason: reason})
}
