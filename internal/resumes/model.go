package resumes

import (
	"time"

	"resulenz-backend/internal/scoring"
)

// KeyPrefix prefixes every record key in a principal's namespace.
const KeyPrefix = "resume:"

// Record is the persisted value under "resume:<id>".
// A nil Feedback means analysis is still pending.
type Record struct {
	ID             string    `json:"id"`
	ResumePath     string    `json:"resumePath"`
	ImagePath      string    `json:"imagePath"`
	CompanyName    string    `json:"companyName"`
	JobTitle       string    `json:"jobTitle"`
	JobDescription string    `json:"jobDescription"`
	Feedback       *Feedback `json:"feedback"`
	CreatedAt      time.Time `json:"createdAt,omitzero"`
}

// Feedback is the canonical AI review.
type Feedback struct {
	Score        int      `json:"score"`
	Summary      string   `json:"summary"`
	Strengths    []string `json:"strengths"`
	Weaknesses   []string `json:"weaknesses"`
	Improvements []string `json:"improvements"`
}

// Status values exposed to readers.
const (
	StatusPending = "pending"
	StatusReady   = "ready"
)

// Status reports whether feedback has arrived.
func (r Record) Status() string {
	if r.Feedback == nil {
		return StatusPending
	}
	return StatusReady
}

// Key returns the record key for id.
func Key(id string) string {
	return KeyPrefix + id
}

// Route is the presentation route for a record.
func Route(id string) string {
	return "/resume/" + id
}

// Lists adapts the feedback lists for scoring.
func (f Feedback) Lists() scoring.Lists {
	return scoring.Lists{
		Strengths:    f.Strengths,
		Weaknesses:   f.Weaknesses,
		Improvements: f.Improvements,
	}
}
