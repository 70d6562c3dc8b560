package handlers

import (
	"net/http"

	"chagok-backend/models"
	"chagok-backend/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CaseHandler handles HTTP requests for cases
type CaseHandler struct {
	caseRepo *repository.CaseRepository
}

// NewCaseHandler creates a new case handler
func NewCaseHandler(caseRepo *repository.CaseRepository) *CaseHandler {
	return &CaseHandler{caseRepo: caseRepo}
}

// CreateCaseRequest represents the request body for creating a case
type CreateCaseRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	Title      string `json:"title" binding:"required"`
	ClientName string `json:"client_name"`
}

// CreateCase handles POST /api/cases
func (h *CaseHandler) CreateCase(c *gin.Context) {
	var req CreateCaseRequest
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

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_USER_ID",
				"message": "Invalid user_id format",
			},
		})
		return
	}

	legalCase := &models.Case{
		ID:         uuid.New(),
		UserID:     userID,
		Status:     models.CaseStatusOpen,
		Title:      req.Title,
		ClientName: req.ClientName,
	}

	if err := h.caseRepo.Create(c.Request.Context(), legalCase); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CREATE_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    legalCase,
	})
}

// GetCase handles GET /api/cases/:caseId
func (h *CaseHandler) GetCase(c *gin.Context) {
	id, err := uuid.Parse(c.Param("caseId"))
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

	legalCase, err := h.caseRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Case not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    legalCase,
	})
}

// ListCases handles GET /api/cases?user_id=
func (h *CaseHandler) ListCases(c *gin.Context) {
	userID, err := uuid.Parse(c.Query("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_USER_ID",
				"message": "Invalid or missing user_id",
			},
		})
		return
	}

	cases, err := h.caseRepo.ListByUserID(c.Request.Context(), userID)
	if err != nil {
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
		"data":    cases,
	})
}
