package feedback

import (
	"context"
	"sync/atomic"

	"github.com/joeyportfolio/portfolio/internal/store"
	"github.com/joeyportfolio/portfolio/types"
)

// Service wires the feedback components around one RecordClient and hands
// out views.
type Service struct {
	client      store.RecordClient
	provisioner *Provisioner
	repository  *Repository
	viewOpts    []ViewOption
	provisioned atomic.Bool
}

// NewService creates a service. opts apply to every view it creates.
func NewService(client store.RecordClient, opts ...ViewOption) *Service {
	return &Service{
		client:      client,
		provisioner: NewProvisioner(client),
		repository:  NewRepository(client),
		viewOpts:    opts,
	}
}

func (s *Service) Provisioner() *Provisioner { return s.provisioner }

func (s *Service) Repository() *Repository { return s.repository }

// NewView creates an unmounted view backed by the service's store.
func (s *Service) NewView() *ViewModel {
	return NewViewModel(s.provisioner, s.repository, s.client, s.viewOpts...)
}

// Ensure provisions the table once per process. Later calls return
// immediately after the first success.
func (s *Service) Ensure(ctx context.Context) error {
	if s.provisioned.Load() {
		return nil
	}
	if _, err := s.provisioner.Ensure(ctx); err != nil {
		return err
	}
	s.provisioned.Store(true)
	return nil
}

// List ensures the table and returns all rows, newest first.
func (s *Service) List(ctx context.Context) ([]types.Feedback, error) {
	if err := s.Ensure(ctx); err != nil {
		return nil, err
	}
	return s.repository.FetchAll(ctx)
}

// Submit ensures the table and inserts fb.
func (s *Service) Submit(ctx context.Context, fb types.FeedbackCreate) (types.Feedback, error) {
	if err := s.Ensure(ctx); err != nil {
		return types.Feedback{}, err
	}
	return s.repository.Insert(ctx, fb)
}

// Ping checks the underlying store.
func (s *Service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
