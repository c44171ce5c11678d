// AngelaMos | 2026
// dto.go

package wheel

import (
	"time"
)

// MinSegments is the smallest wheel that can be spun.
const MinSegments = 2

type WheelRequest struct {
	Title    string    `json:"title"            validate:"required,min=1,max=120"`
	Segments []Segment `json:"segments"         validate:"required,dive"`
	Design   *Design   `json:"design,omitempty"`
}

type WheelResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Segments  []Segment `json:"segments"`
	Design    *Design   `json:"design,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ListParams struct {
	Page     int
	PageSize int
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToWheelResponse(w *Wheel) WheelResponse {
	segments := []Segment(w.Segments)
	if segments == nil {
		segments = []Segment{}
	}
	return WheelResponse{
		ID:        w.ID,
		Title:     w.Title,
		Segments:  segments,
		Design:    w.Design,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}
