package types

import "time"

// DefaultFeedbackRating is the rating a fresh feedback form starts with.
const DefaultFeedbackRating = 5

// Feedback represents a feedback entry stored in the feedback table.
// ID and CreatedAt are assigned by the store on insert.
type Feedback struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedbackCreate represents the request body for submitting feedback.
// Rating bounds are enforced by the store's schema, not here.
type FeedbackCreate struct {
	Name    string `json:"name" binding:"required"`
	Message string `json:"message" binding:"required"`
	Rating  int    `json:"rating" binding:"required"`
}

// FeedbackForm is the transient, client-only state of the feedback form.
type FeedbackForm struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Rating  int    `json:"rating"`
}

// NewFeedbackForm returns a form holding its default values.
func NewFeedbackForm() FeedbackForm {
	return FeedbackForm{Rating: DefaultFeedbackRating}
}

// ToCreate converts the pending form into an insert payload.
func (f FeedbackForm) ToCreate() FeedbackCreate {
	return FeedbackCreate{
		Name:    f.Name,
		Message: f.Message,
		Rating:  f.Rating,
	}
}

// FeedbackFormPatch carries partial form edits. Nil fields are left untouched.
type FeedbackFormPatch struct {
	Name    *string `json:"name,omitempty"`
	Message *string `json:"message,omitempty"`
	Rating  *int    `json:"rating,omitempty"`
}

// Apply returns a copy of form with the non-nil patch fields applied.
func (p FeedbackFormPatch) Apply(form FeedbackForm) FeedbackForm {
	if p.Name != nil {
		form.Name = *p.Name
	}
	if p.Message != nil {
		form.Message = *p.Message
	}
	if p.Rating != nil {
		form.Rating = *p.Rating
	}
	return form
}
