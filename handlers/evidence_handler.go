package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"chagok-backend/models"
	"chagok-backend/service"
	"chagok-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EvidenceHandler handles HTTP requests for evidence operations
type EvidenceHandler struct {
	evidenceService *service.EvidenceService
	storage         storage.Storage
	maxFileSize     int64
}

// NewEvidenceHandler creates a new evidence handler
func NewEvidenceHandler(evidenceService *service.EvidenceService, store storage.Storage) *EvidenceHandler {
	return &EvidenceHandler{
		evidenceService: evidenceService,
		storage:         store,
		maxFileSize:     100 * 1024 * 1024, // 100MB, recordings included
	}
}

// mimeEvidenceTypes maps upload MIME types to evidence types
var mimeEvidenceTypes = map[string]models.EvidenceType{
	"text/plain":      models.EvidenceTypeText,
	"image/png":       models.EvidenceTypeImage,
	"image/jpeg":      models.EvidenceTypeImage,
	"image/gif":       models.EvidenceTypeImage,
	"audio/mpeg":      models.EvidenceTypeAudio,
	"audio/mp4":       models.EvidenceTypeAudio,
	"audio/wav":       models.EvidenceTypeAudio,
	"audio/x-wav":     models.EvidenceTypeAudio,
	"video/mp4":       models.EvidenceTypeVideo,
	"video/quicktime": models.EvidenceTypeVideo,
	"application/pdf": models.EvidenceTypePDF,
}

// extensionEvidenceTypes covers uploads whose Content-Type header is missing
var extensionEvidenceTypes = map[string]models.EvidenceType{
	".txt":  models.EvidenceTypeText,
	".png":  models.EvidenceTypeImage,
	".jpg":  models.EvidenceTypeImage,
	".jpeg": models.EvidenceTypeImage,
	".gif":  models.EvidenceTypeImage,
	".mp3":  models.EvidenceTypeAudio,
	".m4a":  models.EvidenceTypeAudio,
	".wav":  models.EvidenceTypeAudio,
	".mp4":  models.EvidenceTypeVideo,
	".mov":  models.EvidenceTypeVideo,
	".pdf":  models.EvidenceTypePDF,
}

// UploadEvidence handles POST /api/cases/:caseId/evidence
func (h *EvidenceHandler) UploadEvidence(c *gin.Context) {
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

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "File is required",
			},
		})
		return
	}

	if fileHeader.Size > h.maxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_TOO_LARGE",
				"message": fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxFileSize),
			},
		})
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")

	// An explicit type wins; otherwise infer from MIME, then extension
	evidenceType := models.EvidenceType(c.PostForm("type"))
	if evidenceType == "" {
		var ok bool
		evidenceType, ok = mimeEvidenceTypes[mimeType]
		if !ok {
			ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
			evidenceType = extensionEvidenceTypes[ext]
		}
	}
	if !evidenceType.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILE_TYPE",
				"message": "File type not allowed. Allowed types: TXT, PNG, JPG, GIF, MP3, M4A, WAV, MP4, MOV, PDF",
			},
		})
		return
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_OPEN_ERROR",
				"message": err.Error(),
			},
		})
		return
	}
	defer file.Close()

	result, err := h.evidenceService.CreateEvidence(c.Request.Context(), service.CreateEvidenceRequest{
		CaseID:   caseID,
		Type:     evidenceType,
		Filename: fileHeader.Filename,
		MimeType: mimeType,
		Size:     fileHeader.Size,
		Data:     file,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCaseNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "CASE_NOT_FOUND",
					"message": "Case not found",
				},
			})
		case errors.Is(err, service.ErrInvalidEvidence):
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_FILE_TYPE",
					"message": "Unknown evidence type",
				},
			})
		case errors.Is(err, service.ErrArtifactStoreError):
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UPLOAD_FAILED",
					"message": "Failed to store file",
				},
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": err.Error(),
				},
			})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    result.Evidence,
	})
}

// ListEvidenceStates handles GET /api/cases/:caseId/evidence/states.
// This is the consolidated batch endpoint the portal polls.
func (h *EvidenceHandler) ListEvidenceStates(c *gin.Context) {
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

	result, err := h.evidenceService.ListEvidenceStates(c.Request.Context(), service.ListEvidenceStatesRequest{
		CaseID: caseID,
	})
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
		"data":    result.Evidence,
	})
}

// GetEvidence handles GET /api/evidence/:id
func (h *EvidenceHandler) GetEvidence(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid evidence ID format",
			},
		})
		return
	}

	result, err := h.evidenceService.GetEvidence(c.Request.Context(), service.GetEvidenceRequest{ID: id})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Evidence not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result.Evidence,
	})
}

// DownloadEvidence handles GET /api/evidence/:id/file
func (h *EvidenceHandler) DownloadEvidence(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid evidence ID format",
			},
		})
		return
	}

	result, err := h.evidenceService.GetEvidence(c.Request.Context(), service.GetEvidenceRequest{ID: id})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Evidence not found",
			},
		})
		return
	}
	evidence := result.Evidence

	reader, err := h.storage.Download(c.Request.Context(), evidence.StoragePath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DOWNLOAD_FAILED",
				"message": fmt.Sprintf("Failed to download file: %v", err),
			},
		})
		return
	}
	defer reader.Close()

	c.Header("Content-Type", evidence.MimeType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", evidence.Filename))
	c.DataFromReader(http.StatusOK, evidence.Size, evidence.MimeType, reader, nil)
}

// RetryEvidence handles POST /api/evidence/:id/retry
func (h *EvidenceHandler) RetryEvidence(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid evidence ID format",
			},
		})
		return
	}

	result, err := h.evidenceService.RetryEvidence(c.Request.Context(), service.RetryEvidenceRequest{
		EvidenceID: id,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEvidenceNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Evidence not found",
				},
			})
		case errors.Is(err, service.ErrEvidenceNotFailed):
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_RETRYABLE",
					"message": "Only failed evidence can be retried",
				},
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": err.Error(),
				},
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"id":     id,
			"status": result.Status,
		},
	})
}

// ClaimEvidence handles POST /api/evidence/:id/claim, called by the
// analysis worker when it picks a queued item up
func (h *EvidenceHandler) ClaimEvidence(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid evidence ID format",
			},
		})
		return
	}

	result, err := h.evidenceService.ClaimEvidence(c.Request.Context(), service.ClaimEvidenceRequest{
		EvidenceID: id,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_QUEUED",
					"message": "Evidence is not queued",
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
		"data": gin.H{
			"id":     id,
			"status": result.Status,
		},
	})
}

// AnalysisCallbackRequest represents the analysis outcome pushed by the
// AI worker once a run finishes
type AnalysisCallbackRequest struct {
	Status       string           `json:"status" binding:"required"`
	Summary      *string          `json:"summary"`
	Labels       models.Labels    `json:"labels"`
	Speaker      *models.Speaker  `json:"speaker"`
	LegalTags    models.LegalTags `json:"legal_tags"`
	VectorRef    *string          `json:"vector_ref"`
	ErrorMessage *string          `json:"error_message"`
}

// ApplyAnalysis handles POST /api/evidence/:id/analysis
func (h *EvidenceHandler) ApplyAnalysis(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid evidence ID format",
			},
		})
		return
	}

	var req AnalysisCallbackRequest
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

	status := models.EvidenceStatus(req.Status)
	if !status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_STATUS",
				"message": "Unknown evidence status",
			},
		})
		return
	}

	result, err := h.evidenceService.ApplyAnalysis(c.Request.Context(), service.ApplyAnalysisRequest{
		EvidenceID:   id,
		Status:       status,
		Summary:      req.Summary,
		Labels:       req.Labels,
		Speaker:      req.Speaker,
		LegalTags:    req.LegalTags,
		VectorRef:    req.VectorRef,
		ErrorMessage: req.ErrorMessage,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_TRANSITION",
					"message": "Analysis result does not apply to the record's current status",
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
		"data": gin.H{
			"id":     id,
			"status": result.Status,
		},
	})
}

// DeleteEvidence handles DELETE /api/evidence/:id
func (h *EvidenceHandler) DeleteEvidence(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid evidence ID format",
			},
		})
		return
	}

	_, err = h.evidenceService.DeleteEvidence(c.Request.Context(), service.DeleteEvidenceRequest{
		EvidenceID: id,
	})
	if err != nil {
		if errors.Is(err, service.ErrEvidenceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Evidence not found",
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
		"data": gin.H{
			"message": "Evidence deleted",
		},
	})
}
