package lawyers

import "time"

// Lawyer is a practitioner available for recommendation.
type Lawyer struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization"`
	Rating         float64   `json:"rating"`
	CasesWon       int       `json:"casesWon"`
	Verified       bool      `json:"verified"`
	CreatedAt      time.Time `json:"createdAt"`
}
