package handlers

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joeyportfolio/portfolio/internal/feedback"
	"github.com/joeyportfolio/portfolio/logger"
	"github.com/joeyportfolio/portfolio/types"
	"github.com/joeyportfolio/portfolio/web"
	"go.uber.org/zap"
)

// PageHandler renders the portfolio page. The feedback list is painted once
// server-side; the page script then opens a live session.
type PageHandler struct {
	content  *types.PortfolioContent
	feedback FeedbackServiceInterface
	tmpl     *template.Template
	log      *zap.SugaredLogger
}

func NewPageHandler(content *types.PortfolioContent, svc FeedbackServiceInterface, tmpl *template.Template) *PageHandler {
	return &PageHandler{
		content:  content,
		feedback: svc,
		tmpl:     tmpl,
		log:      logger.GetLogger().Named("page"),
	}
}

// Index renders the full page.
func (h *PageHandler) Index(c *gin.Context) {
	data := web.PageData{
		Content:      *h.content,
		EmptyMessage: feedback.MsgEmpty,
		SubmitLabel:  feedback.LabelSubmit,
		Year:         time.Now().Year(),
	}

	rows, err := h.feedback.List(c.Request.Context())
	if err != nil {
		h.log.Warnw("Failed to load feedback for page render", "error", err)
		data.Error = feedback.MsgLoadFailed
	} else {
		data.Entries = rows
	}

	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		logger.LogHTTPError(c, err, http.StatusInternalServerError, "Failed to render page")
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
