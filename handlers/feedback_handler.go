package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joeyportfolio/portfolio/errors"
	"github.com/joeyportfolio/portfolio/internal/feedback"
	"github.com/joeyportfolio/portfolio/types"
)

// FeedbackHandler exposes the feedback list and submission over plain HTTP
// for clients without a live session.
type FeedbackHandler struct {
	feedback FeedbackServiceInterface
}

// NewFeedbackHandler creates a new FeedbackHandler.
func NewFeedbackHandler(svc FeedbackServiceInterface) *FeedbackHandler {
	return &FeedbackHandler{feedback: svc}
}

// ListFeedback godoc
// @Summary      List feedback
// @Description  Returns every feedback entry, newest first
// @Tags         feedback
// @Produce      json
// @Success      200  {object}  types.FeedbackListResponse
// @Failure      500  {object}  types.ErrorResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /feedback [get]
func (h *FeedbackHandler) ListFeedback(c *gin.Context) {
	rows, err := h.feedback.List(c.Request.Context())
	if err != nil {
		_ = c.Error(errors.NewStoreError(err))
		return
	}
	if rows == nil {
		rows = []types.Feedback{}
	}
	c.JSON(http.StatusOK, types.FeedbackListResponse{Data: rows, Count: len(rows)})
}

// SubmitFeedback godoc
// @Summary      Submit feedback
// @Description  Stores a feedback entry. Live sessions receive it through the realtime feed.
// @Tags         feedback
// @Accept       json
// @Produce      json
// @Param        body  body      types.FeedbackCreate  true  "Feedback payload"
// @Success      201   {object}  types.Feedback
// @Failure      400   {object}  types.ErrorResponse
// @Failure      422   {object}  types.ErrorResponse
// @Failure      500   {object}  types.ErrorResponse
// @Router       /feedback [post]
func (h *FeedbackHandler) SubmitFeedback(c *gin.Context) {
	var req types.FeedbackCreate
	if !bindJSONOrError(c, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Message = strings.TrimSpace(req.Message)
	if req.Name == "" || req.Message == "" {
		_ = c.Error(errors.ValidationFailed("validation_failed", feedback.MsgRequiredFields))
		return
	}

	row, err := h.feedback.Submit(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(errors.NewStoreError(err))
		return
	}

	c.JSON(http.StatusCreated, row)
}
