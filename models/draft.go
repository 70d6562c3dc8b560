package models

import (
	"database/sql/driver"
	"encoding/json"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Citation links a span of draft text back to its supporting evidence
type Citation struct {
	EvidenceID uuid.UUID `json:"evidence_id"`
	Title      string    `json:"title"`
	Quote      string    `json:"quote"`
}

// Citations represents the ordered citation list of a draft
type Citations []Citation

// Value implements driver.Valuer for JSONB
func (c Citations) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB
func (c *Citations) Scan(value interface{}) error {
	if value == nil {
		*c = make(Citations, 0)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*c = make(Citations, 0)
		return nil
	}

	if len(bytes) == 0 {
		*c = make(Citations, 0)
		return nil
	}

	return json.Unmarshal(bytes, c)
}

// DraftState is a generated legal document together with its citation set.
// Text and citations always travel as one unit; a draft is replaced
// wholesale, never partially merged.
type DraftState struct {
	DraftText string    `json:"draft_text"`
	Citations Citations `json:"citations"`
}

// exhibitMarkerPattern matches the inline citation markers embedded in
// draft text, e.g. [Exhibit:9f1c6c0e-6d7b-4c1a-8f2e-0b5a9cb1d201]
var exhibitMarkerPattern = regexp.MustCompile(`\[Exhibit:([0-9a-fA-F-]{36})\]`)

// ExhibitMarker is one inline citation marker found in draft text
type ExhibitMarker struct {
	EvidenceID uuid.UUID
	Start      int
	End        int
}

// ParseExhibitMarkers returns the citation markers embedded in draft text
// in order of appearance. Markers whose id is not a valid UUID are skipped.
func ParseExhibitMarkers(text string) []ExhibitMarker {
	var markers []ExhibitMarker
	for _, loc := range exhibitMarkerPattern.FindAllStringSubmatchIndex(text, -1) {
		id, err := uuid.Parse(text[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		markers = append(markers, ExhibitMarker{
			EvidenceID: id,
			Start:      loc[0],
			End:        loc[1],
		})
	}
	return markers
}

// Draft represents a stored draft row; each successful generation for a
// case replaces the previous one as the current draft.
type Draft struct {
	ID        uuid.UUID `json:"id"`
	CaseID    uuid.UUID `json:"case_id"`
	DraftText string    `json:"draft_text"`
	Citations Citations `json:"citations"`
	CreatedAt time.Time `json:"created_at"`
}

// State returns the draft's text and citations as one DraftState
func (d *Draft) State() *DraftState {
	return &DraftState{
		DraftText: d.DraftText,
		Citations: d.Citations,
	}
}
