package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/abhisek/qcbank/internal/question"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

type processQuestionRequest struct {
	QuestionText string `json:"question_text" binding:"notblank,max=32768"`
	CreatedBy    string `json:"created_by" binding:"max=64"`
	QuestionID   string `json:"question_id" binding:"max=128"`
}

// processQuestionResponse flattens the new version next to its history.
type processQuestionResponse struct {
	question.Version
	OriginalQuestion  string             `json:"original_question"`
	ProcessedQuestion string             `json:"processed_question"`
	VersionHistory    []question.Version `json:"version_history"`
}

func newProcessQuestionResponse(text string, res *question.SubmitResult) processQuestionResponse {
	processed := res.Version.Text()
	if imp := res.Version.Improvement; imp != nil {
		processed = imp.ImprovedQuestion
	}
	return processQuestionResponse{
		Version:           res.Version,
		OriginalQuestion:  text,
		ProcessedQuestion: processed,
		VersionHistory:    res.History,
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type handlers struct {
	svc     *question.Service
	log     zerolog.Logger
	version string
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{Status: "ok", Version: h.version})
}

func (h *handlers) processQuestion(c *gin.Context) {
	var req processQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Detail: bindingDetail(err)})
		return
	}

	res, err := h.svc.Submit(c.Request.Context(), question.SubmitRequest{
		Text:       req.QuestionText,
		CreatedBy:  req.CreatedBy,
		QuestionID: req.QuestionID,
	})
	if err != nil {
		h.fail(c, err, req.QuestionID)
		return
	}
	c.JSON(http.StatusCreated, newProcessQuestionResponse(req.QuestionText, res))
}

func (h *handlers) improve(c *gin.Context) {
	id := c.Param("question_id")
	res, err := h.svc.Improve(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, id)
		return
	}
	c.JSON(http.StatusCreated, newProcessQuestionResponse(res.Version.Text(), res))
}

func (h *handlers) listVersions(c *gin.Context) {
	id := c.Param("question_id")
	versions, err := h.svc.Versions(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, id)
		return
	}
	c.JSON(http.StatusOK, versions)
}

func (h *handlers) getVersion(c *gin.Context) {
	id := c.Param("question_id")
	n, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Detail: "version must be a positive integer"})
		return
	}
	v, err := h.svc.Version(c.Request.Context(), id, n)
	if err != nil {
		h.fail(c, err, id)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *handlers) listQuestions(c *gin.Context) {
	qs, err := h.svc.Questions(c.Request.Context())
	if err != nil {
		h.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, qs)
}

func (h *handlers) downloadCSV(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.svc.ExportCSV(c.Request.Context(), &buf); err != nil {
		h.fail(c, err, "")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="question_versions.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// fail maps service errors onto status codes.
func (h *handlers) fail(c *gin.Context, err error, id string) {
	var verr *question.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Detail: verr.Error()})
	case errors.Is(err, question.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Detail: notFoundDetail(c, id)})
	case errors.Is(err, context.DeadlineExceeded):
		_ = c.Error(err)
		c.JSON(http.StatusGatewayTimeout, errorResponse{Detail: "request timed out"})
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send.
		_ = c.Error(err)
		c.Status(499)
	default:
		_ = c.Error(err)
		h.log.Error().Err(err).Str("question_id", id).Msg("request failed")
		c.JSON(http.StatusInternalServerError, errorResponse{Detail: "internal server error"})
	}
}

func notFoundDetail(c *gin.Context, id string) string {
	if v := c.Param("version"); v != "" {
		return fmt.Sprintf("Version %s not found for question_id: %s", v, id)
	}
	return fmt.Sprintf("No versions found for question_id: %s", id)
}
