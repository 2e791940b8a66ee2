package feedback

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/joeyportfolio/portfolio/internal/metrics"
	"github.com/joeyportfolio/portfolio/logger"
	"github.com/joeyportfolio/portfolio/types"
	"go.uber.org/zap"
)

// Phase is the lifecycle position of a view.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseInitializing  Phase = "initializing"
	PhaseReady         Phase = "ready"
	// PhaseFailed means provisioning failed and the view stopped before
	// fetching. The form stays usable.
	PhaseFailed Phase = "failed"
)

// ViewState is a snapshot of one feedback view.
type ViewState struct {
	Phase          Phase              `json:"phase"`
	Entries        []types.Feedback   `json:"entries"`
	Count          int                `json:"count"`
	Form           types.FeedbackForm `json:"form"`
	IsLoading      bool               `json:"is_loading"`
	IsInitializing bool               `json:"is_initializing"`
	IsSubmitting   bool               `json:"is_submitting"`
	Subscribed     bool               `json:"subscribed"`
	Error          string             `json:"error,omitempty"`
	SubmitLabel    string             `json:"submit_label"`
	CanSubmit      bool               `json:"can_submit"`
}

// ViewOption configures a ViewModel.
type ViewOption func(*ViewModel)

// WithOperationTimeout bounds every store call the view makes. Zero, the
// default, leaves calls unbounded until the view unmounts.
func WithOperationTimeout(d time.Duration) ViewOption {
	return func(vm *ViewModel) { vm.timeout = d }
}

// WithResubscribeBackoff sets the delay bounds for reopening a lost insert
// subscription. The delay doubles from min up to max between attempts.
func WithResubscribeBackoff(min, max time.Duration) ViewOption {
	return func(vm *ViewModel) {
		if min > 0 && max >= min {
			vm.retryMin = min
			vm.retryMax = max
		}
	}
}

const (
	defaultRetryMin = 500 * time.Millisecond
	defaultRetryMax = 30 * time.Second
)

// ViewModel owns the state of one feedback view (one browser tab). All
// state is read and written on a single loop goroutine; store calls run on
// their own goroutines and post their results back to the loop.
type ViewModel struct {
	id          string
	provisioner *Provisioner
	repo        *Repository
	subscriber  Subscriber
	timeout     time.Duration
	retryMin    time.Duration
	retryMax    time.Duration
	log         *zap.SugaredLogger

	inbox    chan func()
	updates  chan ViewState
	quit     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
	last     atomic.Pointer[ViewState]

	// Loop-owned.
	state    ViewState
	listener *Listener
	mounted  bool
	retries  int
	catchUp  bool
}

// NewViewModel creates an unmounted view and starts its loop. Call Unmount
// to release it.
func NewViewModel(p *Provisioner, r *Repository, s Subscriber, opts ...ViewOption) *ViewModel {
	ctx, cancel := context.WithCancel(context.Background())
	vm := &ViewModel{
		id:          uuid.NewString(),
		provisioner: p,
		repo:        r,
		subscriber:  s,
		retryMin:    defaultRetryMin,
		retryMax:    defaultRetryMax,
		inbox:       make(chan func(), 16),
		updates:     make(chan ViewState, 1),
		quit:        make(chan struct{}),
		stopped:     make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
		state: ViewState{
			Phase:   PhaseUninitialized,
			Entries: []types.Feedback{},
			Form:    types.NewFeedbackForm(),
		},
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.log = logger.GetLogger().Named("feedback_view").With("viewID", vm.id)

	initial := vm.snapshot()
	vm.last.Store(&initial)

	go vm.run()
	return vm
}

// ID identifies the view in logs.
func (vm *ViewModel) ID() string {
	return vm.id
}

// Updates delivers the latest state after each change. Unread snapshots
// are replaced by newer ones. The channel is closed after Unmount.
func (vm *ViewModel) Updates() <-chan ViewState {
	return vm.updates
}

// Done is closed once the view has been unmounted.
func (vm *ViewModel) Done() <-chan struct{} {
	return vm.stopped
}

// Mount starts initialization: probe, create the table if needed, fetch,
// then subscribe. Mounting twice has no effect.
func (vm *ViewModel) Mount() {
	vm.post(func() {
		if vm.mounted {
			return
		}
		vm.mounted = true
		metrics.Get().ActiveViews.Inc()

		vm.state.Phase = PhaseInitializing
		vm.state.IsLoading = true
		vm.state.Error = ""
		vm.notify()

		runAsync(vm, vm.provisioner.Check, vm.onChecked, nil)
	})
}

// UpdateForm applies a partial edit to the pending form.
func (vm *ViewModel) UpdateForm(patch types.FeedbackFormPatch) {
	vm.post(func() {
		vm.state.Form = patch.Apply(vm.state.Form)
		vm.notify()
	})
}

// Submit applies patch (if any) and submits the form. It is ignored while
// the table is being created or another submission is in flight.
func (vm *ViewModel) Submit(patch *types.FeedbackFormPatch) {
	vm.post(func() {
		if patch != nil {
			vm.state.Form = patch.Apply(vm.state.Form)
		}
		if vm.state.IsSubmitting || vm.state.IsInitializing {
			vm.notify()
			return
		}
		if msg := validateForm(vm.state.Form.Name, vm.state.Form.Message); msg != "" {
			vm.state.Error = msg
			vm.notify()
			return
		}

		vm.state.IsSubmitting = true
		vm.state.Error = ""
		vm.notify()

		payload := vm.state.Form.ToCreate()
		runAsync(vm, func(ctx context.Context) (types.Feedback, error) {
			return vm.repo.Insert(ctx, payload)
		}, vm.onSubmitted, nil)
	})
}

// State returns the current snapshot. After Unmount it returns the last
// state the view had.
func (vm *ViewModel) State() ViewState {
	reply := make(chan ViewState, 1)
	if vm.post(func() { reply <- vm.snapshot() }) {
		select {
		case st := <-reply:
			return st
		case <-vm.stopped:
		}
	}
	return *vm.last.Load()
}

// Unmount tears the view down: the listener is closed, in-flight calls are
// cancelled and their results discarded. It blocks until the loop exits.
func (vm *ViewModel) Unmount() {
	vm.stopOnce.Do(func() {
		close(vm.quit)
		vm.cancel()
	})
	<-vm.stopped
}

func (vm *ViewModel) run() {
	defer close(vm.stopped)
	for {
		select {
		case fn := <-vm.inbox:
			fn()
		case <-vm.quit:
			vm.teardown()
			return
		}
	}
}

func (vm *ViewModel) teardown() {
	if err := vm.listener.Close(); err != nil {
		vm.log.Warnw("Failed to close feedback listener", "error", err)
	}
	vm.listener = nil
	vm.state.Subscribed = false

	if vm.mounted {
		metrics.Get().ActiveViews.Dec()
	}
	final := vm.snapshot()
	vm.last.Store(&final)
	close(vm.updates)
	vm.log.Debugw("Feedback view unmounted")
}

// post queues fn for the loop. It reports false once the view is gone.
func (vm *ViewModel) post(fn func()) bool {
	return vm.postCtx(context.Background(), fn)
}

func (vm *ViewModel) postCtx(ctx context.Context, fn func()) bool {
	select {
	case <-vm.quit:
		return false
	default:
	}
	select {
	case vm.inbox <- fn:
		return true
	case <-vm.quit:
		return false
	case <-ctx.Done():
		return false
	}
}

func (vm *ViewModel) opContext() (context.Context, context.CancelFunc) {
	if vm.timeout > 0 {
		return context.WithTimeout(vm.ctx, vm.timeout)
	}
	return context.WithCancel(vm.ctx)
}

// runAsync runs fn off the loop and hands its result to done on the loop.
// drop receives results the loop can no longer take.
func runAsync[T any](vm *ViewModel, fn func(context.Context) (T, error), done func(T, error), drop func(T)) {
	go func() {
		ctx, cancel := vm.opContext()
		defer cancel()

		v, err := safeCall(ctx, fn)
		handled := make(chan struct{})
		if !vm.post(func() {
			close(handled)
			done(v, err)
		}) {
			if drop != nil {
				drop(v)
			}
			return
		}
		if drop == nil {
			return
		}

		// Queued but possibly never run: the loop may exit first.
		select {
		case <-handled:
		case <-vm.stopped:
			select {
			case <-handled:
			default:
				drop(v)
			}
		}
	}()
}

func safeCall[T any](ctx context.Context, fn func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()
	return fn(ctx)
}

func (vm *ViewModel) onChecked(present bool, err error) {
	if err != nil {
		vm.failInit(err)
		return
	}
	if present {
		vm.startFetch()
		return
	}

	vm.state.IsInitializing = true
	vm.notify()
	runAsync(vm, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, vm.provisioner.Create(ctx)
	}, vm.onCreated, nil)
}

func (vm *ViewModel) onCreated(_ struct{}, err error) {
	vm.state.IsInitializing = false
	if err != nil {
		vm.failInit(err)
		return
	}
	vm.startFetch()
}

func (vm *ViewModel) failInit(err error) {
	vm.log.Errorw("Error initializing feedback system", "error", err)
	vm.state.Error = initMessage(err)
	vm.state.IsLoading = false
	vm.state.IsInitializing = false
	vm.state.Phase = PhaseFailed
	vm.notify()
}

func (vm *ViewModel) startFetch() {
	vm.notify()
	runAsync(vm, vm.repo.FetchAll, vm.onFetched, nil)
}

func (vm *ViewModel) onFetched(rows []types.Feedback, err error) {
	vm.state.IsLoading = false
	if err != nil {
		vm.state.Error = loadMessage(err)
	} else {
		// Keep anything submitted while the fetch was in flight.
		vm.state.Entries = Merge(rows, vm.state.Entries...)
	}
	vm.notify()

	// The subscription opens only after the baseline list is loaded.
	vm.subscribe()
}

func (vm *ViewModel) subscribe() {
	runAsync(vm, func(ctx context.Context) (*Listener, error) {
		return Listen(ctx, vm.subscriber, vm.deliver)
	}, vm.onSubscribed, func(l *Listener) {
		_ = l.Close()
	})
}

func (vm *ViewModel) onSubscribed(l *Listener, err error) {
	vm.state.Phase = PhaseReady
	if err != nil {
		vm.log.Warnw("Failed to subscribe to feedback inserts", "error", err, "attempt", vm.retries+1)
		vm.notify()
		vm.resubscribeLater()
		return
	}

	vm.listener = l
	vm.state.Subscribed = true
	vm.retries = 0
	vm.notify()
	go vm.watch(l)

	if vm.catchUp {
		// Rows inserted while the feed was down never arrive as events.
		vm.catchUp = false
		runAsync(vm, vm.repo.FetchAll, vm.onCaughtUp, nil)
	}
}

// watch runs off the loop and reports a subscription that ended by itself.
func (vm *ViewModel) watch(l *Listener) {
	select {
	case <-l.Done():
		if l.Lost() {
			vm.post(func() { vm.onLost(l) })
		}
	case <-vm.quit:
	}
}

func (vm *ViewModel) onLost(l *Listener) {
	if vm.listener != l {
		return
	}
	_ = l.Close()
	vm.listener = nil
	vm.state.Subscribed = false
	vm.catchUp = true
	vm.notify()
	vm.resubscribeLater()
}

func (vm *ViewModel) resubscribeLater() {
	delay := vm.retryMin
	for i := 0; i < vm.retries && delay < vm.retryMax; i++ {
		delay *= 2
	}
	if delay > vm.retryMax {
		delay = vm.retryMax
	}
	vm.retries++

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			vm.post(vm.subscribe)
		case <-vm.quit:
		}
	}()
}

func (vm *ViewModel) onCaughtUp(rows []types.Feedback, err error) {
	if err != nil {
		vm.log.Warnw("Failed to refresh feedback after resubscribing", "error", err)
		return
	}
	vm.state.Entries = Merge(rows, vm.state.Entries...)
	vm.notify()
}

// deliver runs on the listener goroutine.
func (vm *ViewModel) deliver(ctx context.Context, row types.Feedback) {
	vm.postCtx(ctx, func() {
		vm.state.Entries = Upsert(vm.state.Entries, row)
		vm.notify()
	})
}

func (vm *ViewModel) onSubmitted(row types.Feedback, err error) {
	vm.state.IsSubmitting = false
	if err != nil {
		vm.state.Error = submitMessage(err)
		vm.notify()
		return
	}
	vm.state.Entries = Upsert(vm.state.Entries, row)
	vm.state.Form = types.NewFeedbackForm()
	vm.notify()
}

func (vm *ViewModel) snapshot() ViewState {
	st := vm.state
	st.Entries = make([]types.Feedback, len(vm.state.Entries))
	copy(st.Entries, vm.state.Entries)
	st.Count = len(st.Entries)
	st.CanSubmit = !st.IsSubmitting && !st.IsInitializing

	switch {
	case st.IsSubmitting:
		st.SubmitLabel = LabelSubmitting
	case st.IsInitializing:
		st.SubmitLabel = LabelInitializing
	default:
		st.SubmitLabel = LabelSubmit
	}
	return st
}

// notify publishes the current state, replacing an unread one. Only the
// loop sends on updates, so the second send cannot block.
func (vm *ViewModel) notify() {
	st := vm.snapshot()
	vm.last.Store(&st)

	select {
	case vm.updates <- st:
	default:
		select {
		case <-vm.updates:
		default:
		}
		vm.updates <- st
	}
}
