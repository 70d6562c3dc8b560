package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EvidenceStatus represents the lifecycle status of an evidence item
type EvidenceStatus string

const (
	EvidenceStatusUploading    EvidenceStatus = "uploading"
	EvidenceStatusQueued       EvidenceStatus = "queued"
	EvidenceStatusProcessing   EvidenceStatus = "processing"
	EvidenceStatusReviewNeeded EvidenceStatus = "review_needed"
	EvidenceStatusCompleted    EvidenceStatus = "completed"
	EvidenceStatusFailed       EvidenceStatus = "failed"
)

// evidenceTransitions is the table of allowed status transitions.
// failed -> queued is the retry edge and only happens on explicit user action.
var evidenceTransitions = map[EvidenceStatus][]EvidenceStatus{
	EvidenceStatusUploading:  {EvidenceStatusQueued},
	EvidenceStatusQueued:     {EvidenceStatusProcessing},
	EvidenceStatusProcessing: {EvidenceStatusReviewNeeded, EvidenceStatusCompleted, EvidenceStatusFailed},
	EvidenceStatusFailed:     {EvidenceStatusQueued},
}

// CanTransitionTo reports whether moving from s to next is an allowed edge
func (s EvidenceStatus) CanTransitionTo(next EvidenceStatus) bool {
	for _, allowed := range evidenceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the automatic pipeline will not advance s further
func (s EvidenceStatus) IsTerminal() bool {
	switch s {
	case EvidenceStatusReviewNeeded, EvidenceStatusCompleted, EvidenceStatusFailed:
		return true
	}
	return false
}

// IsValid reports whether s is a known status
func (s EvidenceStatus) IsValid() bool {
	switch s {
	case EvidenceStatusUploading, EvidenceStatusQueued, EvidenceStatusProcessing,
		EvidenceStatusReviewNeeded, EvidenceStatusCompleted, EvidenceStatusFailed:
		return true
	}
	return false
}

// EvidenceType represents the media type of an evidence item, fixed at creation
type EvidenceType string

const (
	EvidenceTypeText  EvidenceType = "text"
	EvidenceTypeImage EvidenceType = "image"
	EvidenceTypeAudio EvidenceType = "audio"
	EvidenceTypeVideo EvidenceType = "video"
	EvidenceTypePDF   EvidenceType = "pdf"
)

// EvidenceTypeMeta holds the display metadata for an evidence type
type EvidenceTypeMeta struct {
	Icon  string `json:"icon"`
	Label string `json:"label"`
}

// evidenceTypeMeta is the exhaustive type -> icon/label table. Adding a new
// evidence type is a single-point change here.
var evidenceTypeMeta = map[EvidenceType]EvidenceTypeMeta{
	EvidenceTypeText:  {Icon: "message-square", Label: "Text"},
	EvidenceTypeImage: {Icon: "image", Label: "Image"},
	EvidenceTypeAudio: {Icon: "mic", Label: "Audio"},
	EvidenceTypeVideo: {Icon: "video", Label: "Video"},
	EvidenceTypePDF:   {Icon: "file-text", Label: "PDF"},
}

// Meta returns the display metadata for t; ok is false for unknown types
func (t EvidenceType) Meta() (EvidenceTypeMeta, bool) {
	meta, ok := evidenceTypeMeta[t]
	return meta, ok
}

// IsValid reports whether t is a known evidence type
func (t EvidenceType) IsValid() bool {
	_, ok := evidenceTypeMeta[t]
	return ok
}

// Speaker identifies who produced the content of an evidence item,
// as determined by the analysis pipeline
type Speaker string

const (
	SpeakerPlaintiff  Speaker = "plaintiff"
	SpeakerDefendant  Speaker = "defendant"
	SpeakerThirdParty Speaker = "third_party"
	SpeakerUnknown    Speaker = "unknown"
)

// Labels represents the unordered tag set produced by analysis
type Labels []string

// Value implements driver.Valuer for JSONB
func (l Labels) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSONB
func (l *Labels) Scan(value interface{}) error {
	if value == nil {
		*l = make(Labels, 0)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*l = make(Labels, 0)
		return nil
	}

	if len(bytes) == 0 {
		*l = make(Labels, 0)
		return nil
	}

	return json.Unmarshal(bytes, l)
}

// LegalTag is one legal-category match produced by analysis.
// Confidence is in [0,1].
type LegalTag struct {
	Category   string   `json:"category"`
	Confidence float64  `json:"confidence"`
	Keywords   []string `json:"keywords"`
}

// LegalTags represents a list of legal-category matches
type LegalTags []LegalTag

// Value implements driver.Valuer for JSONB
func (t LegalTags) Value() (driver.Value, error) {
	return json.Marshal(t)
}

// Scan implements sql.Scanner for JSONB
func (t *LegalTags) Scan(value interface{}) error {
	if value == nil {
		*t = make(LegalTags, 0)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*t = make(LegalTags, 0)
		return nil
	}

	if len(bytes) == 0 {
		*t = make(LegalTags, 0)
		return nil
	}

	return json.Unmarshal(bytes, t)
}

// Evidence represents one uploaded artifact attached to a legal case.
// Summary, Labels, Speaker and LegalTags are set by the analysis pipeline
// and are nil/empty until the item reaches review_needed or completed.
type Evidence struct {
	ID     uuid.UUID      `json:"id"`
	CaseID uuid.UUID      `json:"case_id"`
	Type   EvidenceType   `json:"type"`
	Status EvidenceStatus `json:"status"`

	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`

	// StoragePath and VectorRef are opaque references owned by the
	// storage and vector-index services; never mutated here.
	StoragePath string  `json:"storage_path"`
	VectorRef   *string `json:"vector_ref,omitempty"`

	Summary   *string   `json:"summary,omitempty"`
	Labels    Labels    `json:"labels,omitempty"`
	Speaker   *Speaker  `json:"speaker,omitempty"`
	LegalTags LegalTags `json:"legal_tags,omitempty"`

	ErrorMessage *string `json:"error_message,omitempty"`

	UploadDate time.Time `json:"upload_date"`
	UpdatedAt  time.Time `json:"updated_at"`
}
