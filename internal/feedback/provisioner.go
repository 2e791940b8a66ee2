// Package feedback implements the feedback flow: lazy schema provisioning,
// the repository, the realtime listener and the per-view state machine.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joeyportfolio/portfolio/internal/store"
	"github.com/joeyportfolio/portfolio/logger"
	"go.uber.org/zap"
)

var (
	// ErrCheckFailed wraps a probe failure other than a missing table.
	ErrCheckFailed = errors.New("failed to check feedback table")
	// ErrAutoCreateFailed is returned when creation failed and the fallback
	// probe still cannot see the table.
	ErrAutoCreateFailed = errors.New("could not create feedback table automatically")
)

// Provisioner guarantees the feedback table exists before use.
type Provisioner struct {
	client store.RecordClient
	log    *zap.SugaredLogger
}

// NewProvisioner creates a provisioner for client.
func NewProvisioner(client store.RecordClient) *Provisioner {
	return &Provisioner{
		client: client,
		log:    logger.GetLogger().Named("provisioner"),
	}
}

// Check probes the table with a bounded read. A missing table is reported
// as (false, nil); any other store error is fatal for initialization.
func (p *Provisioner) Check(ctx context.Context) (bool, error) {
	start := time.Now()
	err := p.client.Probe(ctx, 1)
	observe("probe", start, err)

	switch {
	case err == nil:
		return true, nil
	case store.IsNotFound(err):
		p.log.Infow("Feedback table not found")
		return false, nil
	default:
		p.log.Errorw("Error checking feedback table", "error", err)
		return false, fmt.Errorf("%w: %w", ErrCheckFailed, err)
	}
}

// Create creates the table and its policies. If creation fails, one empty
// read checks whether the table became available some other way.
func (p *Provisioner) Create(ctx context.Context) error {
	p.log.Infow("Creating feedback table")

	start := time.Now()
	err := p.client.CreateSchema(ctx)
	observe("create_schema", start, err)
	if err == nil {
		p.log.Infow("Feedback table created")
		return nil
	}

	p.log.Warnw("Error creating feedback table, probing again", "error", err)
	if perr := p.client.Probe(ctx, 0); perr != nil {
		p.log.Errorw("Feedback table still unavailable", "createError", err, "probeError", perr)
		return fmt.Errorf("%w: %w", ErrAutoCreateFailed, err)
	}

	p.log.Infow("Feedback table available after failed creation")
	return nil
}

// Ensure runs Check and, when the table is absent, Create. It reports
// whether it created the table. A present table is never recreated.
func (p *Provisioner) Ensure(ctx context.Context) (bool, error) {
	present, err := p.Check(ctx)
	if err != nil {
		return false, err
	}
	if present {
		return false, nil
	}
	if err := p.Create(ctx); err != nil {
		return false, err
	}
	return true, nil
}
