package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joeyportfolio/portfolio/errors"
	"github.com/joeyportfolio/portfolio/types"
)

type ContactHandler struct {
	contact ContactServiceInterface
}

func NewContactHandler(svc ContactServiceInterface) *ContactHandler {
	return &ContactHandler{contact: svc}
}

// SubmitContact godoc
// @Summary      Send a contact message
// @Description  Accepts a contact form message and returns the reset form
// @Tags         contact
// @Accept       json
// @Produce      json
// @Param        body  body      types.ContactMessage  true  "Contact message"
// @Success      202   {object}  types.ContactReceipt
// @Failure      400   {object}  types.ErrorResponse
// @Router       /contact [post]
func (h *ContactHandler) SubmitContact(c *gin.Context) {
	var req types.ContactMessage
	if !bindJSONOrError(c, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Message) == "" {
		_ = c.Error(errors.ValidationFailed("validation_failed", "name and message must not be blank"))
		return
	}

	c.JSON(http.StatusAccepted, h.contact.Submit(c.Request.Context(), req))
}
