package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docinsight/internal/ai"
	"docinsight/internal/app"
	"docinsight/internal/session"
	"docinsight/internal/transport/http/response"
)

type InsightHandler struct {
	service *app.InsightService
}

type AskRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Question  string `json:"question" binding:"required"`
}

type SimilarityRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
}

func NewInsightHandler(service *app.InsightService) *InsightHandler {
	return &InsightHandler{service: service}
}

// Upload accepts a multipart form with one or more "files" parts and an
// optional "session_id" field. Omitting the id starts a new session.
func (h *InsightHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart form")
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "no files provided")
		return
	}

	files := make([]app.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read upload failed")
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read upload failed")
			return
		}
		files = append(files, app.UploadFile{Filename: fh.Filename, Data: data})
	}

	result, err := h.service.Upload(c.Request.Context(), c.PostForm("session_id"), files)
	if err != nil {
		writeServiceError(c, err, "upload failed")
		return
	}
	response.OK(c, result)
}

func (h *InsightHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.service.Ask(c.Request.Context(), req.SessionID, req.Question)
	if err != nil {
		writeServiceError(c, err, "answer question failed")
		return
	}
	response.OK(c, result)
}

func (h *InsightHandler) GetSession(c *gin.Context) {
	view, err := h.service.Session(c.Param("id"))
	if err != nil {
		writeServiceError(c, err, "get session failed")
		return
	}
	response.OK(c, view)
}

func (h *InsightHandler) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	h.service.DeleteSession(id)
	response.OK(c, gin.H{"deleted_session_id": id})
}

func (h *InsightHandler) Analysis(c *gin.Context) {
	analyses, err := h.service.Analyze(c.Param("id"))
	if err != nil {
		writeServiceError(c, err, "analyze documents failed")
		return
	}
	response.OK(c, analyses)
}

func (h *InsightHandler) Insights(c *gin.Context) {
	insights, err := h.service.Insights(c.Param("id"))
	if err != nil {
		writeServiceError(c, err, "build insights failed")
		return
	}
	response.OK(c, insights)
}

func (h *InsightHandler) Similarity(c *gin.Context) {
	var req SimilarityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	matches, err := h.service.Similarity(c.Param("id"), req.Query, req.TopK)
	if err != nil {
		writeServiceError(c, err, "similarity search failed")
		return
	}
	response.OK(c, matches)
}

func (h *InsightHandler) Questions(c *gin.Context) {
	max, _ := strconv.Atoi(c.DefaultQuery("max", "0"))
	questions, err := h.service.SmartQuestions(c.Param("id"), max)
	if err != nil {
		writeServiceError(c, err, "suggest questions failed")
		return
	}
	response.OK(c, questions)
}

func (h *InsightHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	records, err := h.service.History(c.Param("id"), limit)
	if err != nil {
		writeServiceError(c, err, "list history failed")
		return
	}
	response.OK(c, records)
}

func (h *InsightHandler) CacheStats(c *gin.Context) {
	response.OK(c, h.service.CacheStats())
}

func writeServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
	case errors.Is(err, session.ErrExpired):
		response.Error(c, http.StatusGone, response.CodeSessionExpired, err.Error())
	case errors.Is(err, session.ErrCapacityExceeded):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeCapacityExceeded, err.Error())
	case errors.Is(err, app.ErrInvalidInput),
		errors.Is(err, app.ErrEmptyQuestion),
		errors.Is(err, app.ErrNoDocuments),
		errors.Is(err, app.ErrUnsupportedFile):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrFeatureDisabled):
		response.Error(c, http.StatusForbidden, response.CodeFeatureDisabled, err.Error())
	case errors.Is(err, ai.ErrUpstreamUnavailable):
		response.Error(c, http.StatusServiceUnavailable, response.CodeUpstreamUnavailable, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
