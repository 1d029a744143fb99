package handler

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"askdoc/internal/app"
	"askdoc/internal/pkg/pdfextract"
	"askdoc/internal/transport/http/response"
)

const maxPDFSize = 10 << 20 // 10 MB

type QAHandler struct {
	qaService *app.QAService
}

type IngestRequest struct {
	Title   string `json:"title"`
	Content string `json:"content" binding:"required"`
}

// AskRequest carries the question. DocIDs is accepted for wire compatibility
// but ignored: retrieval always scans all of the user's active documents.
type AskRequest struct {
	Question string `json:"question" binding:"required"`
	DocIDs   []uint `json:"doc_ids"`
}

func NewQAHandler(qaService *app.QAService) *QAHandler {
	return &QAHandler{qaService: qaService}
}

func (h *QAHandler) Ingest(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "invalid token payload")
		return
	}

	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	doc, err := h.qaService.Ingest(c.Request.Context(), app.IngestInput{
		UserID:  userID,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, "ingest failed")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Document ingested successfully",
		"document_id": doc.ID,
	})
}

// UploadPDF accepts a multipart form with "file" (PDF) and optional "title",
// extracts the text and ingests it like a JSON document.
func (h *QAHandler) UploadPDF(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "invalid token payload")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "missing file")
		return
	}
	if file.Size > maxPDFSize {
		response.Error(c, http.StatusBadRequest, "file too large (max 10MB)")
		return
	}
	if strings.ToLower(filepath.Ext(file.Filename)) != ".pdf" {
		response.Error(c, http.StatusBadRequest, "only PDF files are allowed")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to read file")
		return
	}
	defer f.Close()

	text, err := pdfextract.ExtractText(f)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "failed to extract text from PDF")
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		response.Error(c, http.StatusBadRequest, "PDF contains no extractable text")
		return
	}

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		title = strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	}

	doc, err := h.qaService.Ingest(c.Request.Context(), app.IngestInput{
		UserID:  userID,
		Title:   title,
		Content: text,
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, "ingest failed")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Document ingested successfully",
		"document_id": doc.ID,
	})
}

func (h *QAHandler) Ask(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "invalid token payload")
		return
	}

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := h.qaService.Ask(c.Request.Context(), app.AskInput{
		UserID:   userID,
		Question: req.Question,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrNoDocuments):
			response.Error(c, http.StatusBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, "ask failed")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"answer":      result.Answer,
		"document_id": result.DocumentID,
		"similarity":  result.Similarity,
	})
}

func (h *QAHandler) ToggleDocument(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "invalid token payload")
		return
	}

	docID, err := parseUintParam(c, "id")
	if err != nil || docID == 0 {
		response.Error(c, http.StatusBadRequest, "invalid document id")
		return
	}

	newState, err := h.qaService.ToggleDocument(userID, docID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, "Document not found")
		default:
			response.Error(c, http.StatusInternalServerError, "toggle document failed")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   fmt.Sprintf("Document %d toggled to %t", docID, newState),
		"is_active": newState,
	})
}

func (h *QAHandler) ListDocuments(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "invalid token payload")
		return
	}

	docs, err := h.qaService.ListDocuments(userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "list documents failed")
		return
	}

	out := make([]gin.H, 0, len(docs))
	for _, d := range docs {
		out = append(out, gin.H{
			"id":        d.ID,
			"title":     d.Title,
			"is_active": d.IsActive,
		})
	}
	c.JSON(http.StatusOK, gin.H{"documents": out})
}

func (h *QAHandler) History(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "invalid token payload")
		return
	}

	limit := 0
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	records, err := h.qaService.History(userID, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "list history failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": records})
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	u, err := strconv.ParseUint(c.Param(key), 10, 64)
	return uint(u), err
}
