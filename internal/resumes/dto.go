package resumes

import (
	"time"

	"resulenz-backend/internal/blobref"
	"resulenz-backend/internal/scoring"
)

// RecordResponse is the outward-facing record.
type RecordResponse struct {
	ID             string           `json:"id"`
	CompanyName    string           `json:"companyName"`
	JobTitle       string           `json:"jobTitle"`
	JobDescription string           `json:"jobDescription,omitempty"`
	ResumePath     string           `json:"resumePath"`
	ImagePath      string           `json:"imagePath"`
	Status         string           `json:"status"`
	Feedback       *Feedback        `json:"feedback"`
	Display        *scoring.Summary `json:"display,omitempty"`
	CreatedAt      *time.Time       `json:"createdAt,omitempty"`
}

// IngestResponse answers a successful ingestion.
type IngestResponse struct {
	RecordResponse
	Route      string `json:"route"`
	StatusText string `json:"statusText"`
}

// ViewResponse is an opened presentation view.
type ViewResponse struct {
	ViewID    string         `json:"viewId"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Resume    *blobref.Ref   `json:"resume"`
	Image     *blobref.Ref   `json:"image"`
	Record    RecordResponse `json:"record"`
}

// HistoryItem is one row of the history listing.
type HistoryItem struct {
	ID          string       `json:"id"`
	CompanyName string       `json:"companyName"`
	JobTitle    string       `json:"jobTitle"`
	Status      string       `json:"status"`
	Score       *int         `json:"score,omitempty"`
	Tier        scoring.Tier `json:"tier,omitempty"`
	Route       string       `json:"route"`
	CreatedAt   *time.Time   `json:"createdAt,omitempty"`
}

func toRecordResponse(rec Record, withDescription bool) RecordResponse {
	resp := RecordResponse{
		ID:          rec.ID,
		CompanyName: rec.CompanyName,
		JobTitle:    rec.JobTitle,
		ResumePath:  rec.ResumePath,
		ImagePath:   rec.ImagePath,
		Status:      rec.Status(),
		Feedback:    rec.Feedback,
	}
	if withDescription {
		resp.JobDescription = rec.JobDescription
	}
	if rec.Feedback != nil {
		summary := scoring.Summarize(rec.Feedback.Score, rec.Feedback.Lists())
		resp.Display = &summary
	}
	if !rec.CreatedAt.IsZero() {
		t := rec.CreatedAt
		resp.CreatedAt = &t
	}
	return resp
}

func toHistoryItem(rec Record) HistoryItem {
	item := HistoryItem{
		ID:          rec.ID,
		CompanyName: rec.CompanyName,
		JobTitle:    rec.JobTitle,
		Status:      rec.Status(),
		Route:       Route(rec.ID),
	}
	if rec.Feedback != nil {
		score := scoring.Clamp(rec.Feedback.Score)
		item.Score = &score
		item.Tier = scoring.Classify(score, scoring.SchemeGauge)
	}
	if !rec.CreatedAt.IsZero() {
		t := rec.CreatedAt
		item.CreatedAt = &t
	}
	return item
}
