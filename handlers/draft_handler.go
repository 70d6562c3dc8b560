package handlers

import (
	"errors"
	"net/http"

	"chagok-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DraftHandler handles HTTP requests for draft generation
type DraftHandler struct {
	draftService *service.DraftService
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(draftService *service.DraftService) *DraftHandler {
	return &DraftHandler{draftService: draftService}
}

// GenerateDraftRequest represents the request body for generating a draft
type GenerateDraftRequest struct {
	EvidenceIDs []string `json:"evidence_ids" binding:"required"`
}

// GenerateDraft handles POST /api/cases/:caseId/draft. Generation is
// synchronous; the response carries the new draft.
func (h *DraftHandler) GenerateDraft(c *gin.Context) {
	caseID, err := uuid.Parse(c.Param("caseId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_CASE_ID",
				"message": "Invalid case ID format",
			},
		})
		return
	}

	var req GenerateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	evidenceIDs := make([]uuid.UUID, 0, len(req.EvidenceIDs))
	for _, idStr := range req.EvidenceIDs {
		id, err := uuid.Parse(idStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_EVIDENCE_ID",
					"message": "Invalid evidence ID format: " + idStr,
				},
			})
			return
		}
		evidenceIDs = append(evidenceIDs, id)
	}

	result, err := h.draftService.GenerateDraft(c.Request.Context(), service.GenerateDraftRequest{
		CaseID:      caseID,
		EvidenceIDs: evidenceIDs,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptySelection):
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "EMPTY_SELECTION",
					"message": "At least one evidence item must be selected",
				},
			})
		case errors.Is(err, service.ErrCaseNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "CASE_NOT_FOUND",
					"message": "Case not found",
				},
			})
		case errors.Is(err, service.ErrEvidenceNotFound), errors.Is(err, service.ErrEvidenceOutsideCase):
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_SELECTION",
					"message": "Selected evidence does not belong to this case",
				},
			})
		case errors.Is(err, service.ErrEvidenceNotAnalyzed):
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "EVIDENCE_NOT_ANALYZED",
					"message": "Selected evidence has not finished analysis",
				},
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "GENERATION_FAILED",
					"message": "Failed to generate draft",
				},
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result.Draft,
	})
}

// GetDraft handles GET /api/cases/:caseId/draft
func (h *DraftHandler) GetDraft(c *gin.Context) {
	caseID, err := uuid.Parse(c.Param("caseId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_CASE_ID",
				"message": "Invalid case ID format",
			},
		})
		return
	}

	result, err := h.draftService.GetDraft(c.Request.Context(), service.GetDraftRequest{CaseID: caseID})
	if err != nil {
		if errors.Is(err, service.ErrDraftNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "No draft exists for this case",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result.Draft,
	})
}
