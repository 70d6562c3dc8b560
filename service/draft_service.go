package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"chagok-backend/models"
	"chagok-backend/repository"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
)

// DraftService handles draft generation for a case
type DraftService struct {
	caseRepo     *repository.CaseRepository
	evidenceRepo *repository.EvidenceRepository
	draftRepo    *repository.DraftRepository
	geminiClient *genai.Client
}

// DraftServiceOption is a functional option for DraftService
type DraftServiceOption func(*DraftService)

// DraftWithCaseRepository sets the case repository
func DraftWithCaseRepository(repo *repository.CaseRepository) DraftServiceOption {
	return func(s *DraftService) {
		s.caseRepo = repo
	}
}

// DraftWithEvidenceRepository sets the evidence repository
func DraftWithEvidenceRepository(repo *repository.EvidenceRepository) DraftServiceOption {
	return func(s *DraftService) {
		s.evidenceRepo = repo
	}
}

// DraftWithDraftRepository sets the draft repository
func DraftWithDraftRepository(repo *repository.DraftRepository) DraftServiceOption {
	return func(s *DraftService) {
		s.draftRepo = repo
	}
}

// DraftWithGeminiClient sets the Gemini client
func DraftWithGeminiClient(client *genai.Client) DraftServiceOption {
	return func(s *DraftService) {
		s.geminiClient = client
	}
}

// NewDraftService creates a new draft service
func NewDraftService(opts ...DraftServiceOption) *DraftService {
	s := &DraftService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	ErrEmptySelection      = errors.New("draft generation requires at least one evidence item")
	ErrEvidenceOutsideCase = errors.New("selected evidence does not belong to the case")
	ErrEvidenceNotAnalyzed = errors.New("selected evidence has no completed analysis")
	ErrGenerationFailed    = errors.New("failed to generate draft")
	ErrDraftNotFound       = errors.New("no draft exists for case")
)

const (
	generationAPI  = "https://generativelanguage.googleapis.com/v1beta/models/gemini-3-pro-preview:generateContent"
	maxRetries     = 3
	initialBackoff = time.Second
	maxQuoteLength = 200
)

// GenerateDraftRequest represents a request to generate a draft from a
// selected evidence subset. EvidenceIDs is treated as a set: duplicates
// are collapsed and order carries no meaning.
type GenerateDraftRequest struct {
	CaseID      uuid.UUID
	EvidenceIDs []uuid.UUID
}

// GenerateDraftResult holds the newly generated draft
type GenerateDraftResult struct {
	Draft *models.DraftState
}

// GenerateDraft produces a legal document draft citing the selected
// evidence. On success the stored draft for the case is replaced
// wholesale; on failure the previous draft is left untouched.
func (s *DraftService) GenerateDraft(ctx context.Context, req GenerateDraftRequest) (*GenerateDraftResult, error) {
	if s.caseRepo == nil {
		return nil, errors.New("case repository not set")
	}
	if s.evidenceRepo == nil {
		return nil, errors.New("evidence repository not set")
	}
	if s.draftRepo == nil {
		return nil, errors.New("draft repository not set")
	}

	selected := dedupeIDs(req.EvidenceIDs)
	if len(selected) == 0 {
		return nil, ErrEmptySelection
	}

	legalCase, err := s.caseRepo.GetByID(ctx, req.CaseID)
	if err != nil {
		return nil, ErrCaseNotFound
	}

	evidence := make([]*models.Evidence, 0, len(selected))
	byID := make(map[uuid.UUID]*models.Evidence, len(selected))
	for _, id := range selected {
		item, err := s.evidenceRepo.GetByID(ctx, id)
		if err != nil {
			return nil, ErrEvidenceNotFound
		}
		if item.CaseID != req.CaseID {
			return nil, ErrEvidenceOutsideCase
		}
		if item.Status != models.EvidenceStatusCompleted && item.Status != models.EvidenceStatusReviewNeeded {
			return nil, ErrEvidenceNotAnalyzed
		}
		evidence = append(evidence, item)
		byID[item.ID] = item
	}

	prompt := s.buildGenerationPrompt(legalCase, evidence)

	var draftText string
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}

		draftText, err = s.callGenerationAPI(ctx, prompt, 0.2)
		if err != nil {
			if attempt == maxRetries-1 {
				return nil, fmt.Errorf("failed to generate draft after %d attempts: %w", maxRetries, err)
			}
			continue
		}

		if draftText != "" {
			break
		}

		if attempt == maxRetries-1 {
			return nil, ErrGenerationFailed
		}
	}

	if draftText == "" {
		return nil, ErrGenerationFailed
	}

	citations := extractCitations(draftText, byID)

	draft := &models.Draft{
		CaseID:    req.CaseID,
		DraftText: draftText,
		Citations: citations,
	}
	if err := s.draftRepo.Replace(ctx, draft); err != nil {
		return nil, fmt.Errorf("failed to store draft: %w", err)
	}

	return &GenerateDraftResult{Draft: draft.State()}, nil
}

// GetDraftRequest represents a request for a case's current draft
type GetDraftRequest struct {
	CaseID uuid.UUID
}

// GetDraftResult holds the case's current draft
type GetDraftResult struct {
	Draft *models.DraftState
}

// GetDraft retrieves the current draft for a case
func (s *DraftService) GetDraft(ctx context.Context, req GetDraftRequest) (*GetDraftResult, error) {
	if s.draftRepo == nil {
		return nil, errors.New("draft repository not set")
	}

	draft, err := s.draftRepo.GetByCaseID(ctx, req.CaseID)
	if err != nil {
		return nil, ErrDraftNotFound
	}

	return &GetDraftResult{Draft: draft.State()}, nil
}

// dedupeIDs collapses the selection to set semantics, keeping first
// appearance order for stable prompts
func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// formatEvidenceFacts renders one evidence item's analysis as prompt input
func formatEvidenceFacts(item *models.Evidence) string {
	var builder strings.Builder

	meta, _ := item.Type.Meta()
	builder.WriteString(fmt.Sprintf("EVIDENCE %s (%s, filed %s):\n", item.ID, meta.Label, item.UploadDate.Format("2006-01-02")))
	if item.Summary != nil {
		builder.WriteString(fmt.Sprintf("Summary: %s\n", *item.Summary))
	}
	if item.Speaker != nil {
		builder.WriteString(fmt.Sprintf("Speaker: %s\n", *item.Speaker))
	}
	if len(item.Labels) > 0 {
		builder.WriteString(fmt.Sprintf("Labels: %s\n", strings.Join(item.Labels, ", ")))
	}
	for _, tag := range item.LegalTags {
		builder.WriteString(fmt.Sprintf("Legal category: %s (confidence %.2f; keywords: %s)\n",
			tag.Category, tag.Confidence, strings.Join(tag.Keywords, ", ")))
	}

	return builder.String()
}

// buildGenerationPrompt builds the drafting prompt from the case and the
// selected evidence analyses
func (s *DraftService) buildGenerationPrompt(legalCase *models.Case, evidence []*models.Evidence) string {
	var facts strings.Builder
	for i, item := range evidence {
		if i > 0 {
			facts.WriteString("\n")
		}
		facts.WriteString(formatEvidenceFacts(item))
	}

	return fmt.Sprintf(`You are an expert divorce-law attorney drafting a written statement of facts for submission to family court.

CASE:
Client: %s
Matter: %s

EVIDENCE ON RECORD:
%s

TASK:
Write a statement of facts that presents the evidence above as a coherent account supporting the client's position.

OUTPUT REQUIREMENTS:
- Use formal legal language
- Organize chronologically where dates are known
- Every sentence that relies on a specific evidence item MUST end with a citation marker of the form [Exhibit:<evidence id>] using the exact evidence id shown above
- Do not invent facts not present in the evidence summaries
- Do not reference evidence items that are not listed above
- No markdown formatting (plain text)
- Write in third person about the client

TONE CONSTRAINTS (CRITICAL):
- Do NOT use inflammatory or emotional language
- Use objective descriptors; state what the evidence shows, not conclusions about character
- Avoid hyperbole
- Maintain professional, factual tone throughout

Write the statement now:`,
		legalCase.ClientName,
		legalCase.Title,
		facts.String(),
	)
}

// extractCitations builds the citation list from the markers embedded in
// the generated text. Markers pointing outside the selected set are
// dropped; each evidence item is cited once, in order of first appearance.
func extractCitations(draftText string, selected map[uuid.UUID]*models.Evidence) models.Citations {
	citations := make(models.Citations, 0)
	cited := make(map[uuid.UUID]bool)

	for _, marker := range models.ParseExhibitMarkers(draftText) {
		item, ok := selected[marker.EvidenceID]
		if !ok {
			log.Printf("Warning: Dropping citation marker for unselected evidence %s", marker.EvidenceID)
			continue
		}
		if cited[marker.EvidenceID] {
			continue
		}
		cited[marker.EvidenceID] = true
		citations = append(citations, models.Citation{
			EvidenceID: item.ID,
			Title:      item.Filename,
			Quote:      citationQuote(item),
		})
	}

	return citations
}

// citationQuote extracts the supporting excerpt shown alongside a citation
func citationQuote(item *models.Evidence) string {
	if item.Summary == nil {
		return ""
	}
	quote := strings.TrimSpace(*item.Summary)
	if len(quote) > maxQuoteLength {
		quote = quote[:maxQuoteLength] + "..."
	}
	return quote
}

// callGenerationAPI calls the Gemini generation API directly via HTTP
func (s *DraftService) callGenerationAPI(ctx context.Context, prompt string, temperature float64) (string, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY not set")
	}

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature": temperature,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", generationAPI, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		log.Printf("Gemini API error: Status %d, Body: %s", resp.StatusCode, string(bodyBytes))
		return "", fmt.Errorf("API error: %d - %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason,omitempty"`
		} `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason,omitempty"`
		} `json:"promptFeedback,omitempty"`
		Error struct {
			Code    int    `json:"code,omitempty"`
			Message string `json:"message,omitempty"`
		} `json:"error,omitempty"`
	}

	bodyBytes, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		log.Printf("Failed to decode response. Body: %s", string(bodyBytes))
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if apiResp.Error.Message != "" {
		return "", fmt.Errorf("API error: %s (code: %d)", apiResp.Error.Message, apiResp.Error.Code)
	}

	if apiResp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("API blocked prompt: %s", apiResp.PromptFeedback.BlockReason)
	}

	if len(apiResp.Candidates) == 0 {
		log.Printf("API returned no candidates. Full response: %s", string(bodyBytes))
		return "", fmt.Errorf("API returned no candidates")
	}

	var responseText strings.Builder
	for i, candidate := range apiResp.Candidates {
		if candidate.FinishReason != "" && candidate.FinishReason != "STOP" {
			log.Printf("Warning: Candidate %d finished with reason: %s", i, candidate.FinishReason)
		}

		if len(candidate.Content.Parts) == 0 {
			return "", fmt.Errorf("API candidate has no parts (finish reason: %s)", candidate.FinishReason)
		}

		for _, part := range candidate.Content.Parts {
			if part.Text == "" {
				continue
			}
			responseText.WriteString(part.Text)
		}
	}

	result := responseText.String()
	if result == "" {
		return "", fmt.Errorf("API returned empty content")
	}

	return result, nil
}
