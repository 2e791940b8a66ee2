package handlers

import (
	"context"

	"github.com/joeyportfolio/portfolio/types"
)

// FeedbackServiceInterface defines the feedback operations needed by handlers.
// *feedback.Service satisfies it.
type FeedbackServiceInterface interface {
	List(ctx context.Context) ([]types.Feedback, error)
	Submit(ctx context.Context, fb types.FeedbackCreate) (types.Feedback, error)
}

// ContactServiceInterface defines the contact form operation.
type ContactServiceInterface interface {
	Submit(ctx context.Context, msg types.ContactMessage) types.ContactReceipt
}

// HealthServiceInterface defines the health probes used by HealthHandler.
type HealthServiceInterface interface {
	CheckHealth(ctx context.Context) types.HealthCheck
	CheckReadiness(ctx context.Context) error
}
