package models

import (
	"time"

	"parcelhop/internal/domain"
)

// Ratings holds the overall score plus the three detailed scores, each 1..5.
type Ratings struct {
	Overall       int `json:"overall"`
	Communication int `json:"communication"`
	Punctuality   int `json:"punctuality"`
	Care          int `json:"care"`
}

// Validate checks every score is within 1..5.
func (r Ratings) Validate() error {
	for _, f := range []struct {
		name  string
		value int
	}{
		{"overall", r.Overall},
		{"communication", r.Communication},
		{"punctuality", r.Punctuality},
		{"care", r.Care},
	} {
		if f.value < 1 || f.value > 5 {
			return domain.ValidationError{Field: "ratings." + f.name, Msg: "must be between 1 and 5"}
		}
	}
	return nil
}

type Review struct {
	ID            domain.ID `json:"id"`
	TransactionID domain.ID `json:"transaction_id"`
	ReviewerID    domain.ID `json:"reviewer_id"`
	ReviewedID    domain.ID `json:"reviewed_id"`
	Ratings       Ratings   `json:"ratings"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
