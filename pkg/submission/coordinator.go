package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/answers"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
)

// ErrorKey is the translation key shown when a submission fails.
const ErrorKey = "beforeSubmit:submitError"

// ErrInFlight is returned when the device already has a submission running.
var ErrInFlight = errors.New("submission already in flight")

// SubmitError is the single user-facing failure of a submission.
type SubmitError struct {
	MessageKey string
	Cause      error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submission failed (%s): %v", e.MessageKey, e.Cause)
}

func (e *SubmitError) Unwrap() error {
	return e.Cause
}

// Coordinator sends a device's answers to the backend, at most one request per
// device at a time, and clears the device's answers after a confirmed success.
type Coordinator struct {
	submitter ports.Submitter
	source    string
	logger    *slog.Logger
	hooks     domain.LifecycleHooks

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSource sets the campaign tag sent with every submission.
func WithSource(source string) Option {
	return func(c *Coordinator) {
		c.source = source
	}
}

// WithHooks registers lifecycle hooks fired after each attempt.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Coordinator) {
		c.hooks = hooks
	}
}

// NewCoordinator creates a coordinator over submitter.
func NewCoordinator(submitter ports.Submitter, opts ...Option) *Coordinator {
	c := &Coordinator{
		submitter: submitter,
		logger:    logging.NewNop(),
		inFlight:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) acquire(device string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[device]; busy {
		return false
	}
	c.inFlight[device] = struct{}{}
	return true
}

func (c *Coordinator) release(device string) {
	c.mu.Lock()
	delete(c.inFlight, device)
	c.mu.Unlock()
}

// InFlight reports whether the device has a submission running.
func (c *Coordinator) InFlight(device string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, busy := c.inFlight[device]
	return busy
}

// Submit assembles and sends the device's submission.
//
// A second call for the same device while one is running fails with ErrInFlight
// and sends nothing. A failure leaves the answers untouched and returns a
// *SubmitError. After a success the answers and attachments are cleared, unless
// ctx was cancelled in the meantime: then the response is discarded and ctx's
// error returned.
func (c *Coordinator) Submit(ctx context.Context, device string, store *answers.Store, files ports.AttachmentStore, captcha string) (domain.Receipt, error) {
	if !c.acquire(device) {
		return domain.Receipt{}, ErrInFlight
	}
	defer c.release(device)

	start := time.Now()
	receipt, err := c.send(ctx, device, store, files, captcha)
	c.emit(ctx, device, receipt, time.Since(start), err)
	if err != nil {
		c.logger.Warn("submission failed", "device", device, "err", err)
		return domain.Receipt{}, &SubmitError{MessageKey: ErrorKey, Cause: err}
	}

	if err := ctx.Err(); err != nil {
		c.logger.Info("discarding submission response after cancellation", "device", device, "submission_id", receipt.SubmissionID)
		return domain.Receipt{}, err
	}

	if err := store.ResetAll(ctx); err != nil {
		c.logger.Error("failed to reset answers after submission", "device", device, "err", err)
	}
	if files != nil {
		if err := files.Clear(ctx, device); err != nil {
			c.logger.Error("failed to drop attachments after submission", "device", device, "err", err)
		}
	}
	c.logger.Info("submission accepted", "device", device, "submission_id", receipt.SubmissionID)
	return receipt, nil
}

func (c *Coordinator) send(ctx context.Context, device string, store *answers.Store, files ports.AttachmentStore, captcha string) (domain.Receipt, error) {
	var lookup AttachmentFunc
	if files != nil {
		lookup = func(ref string) (domain.Attachment, bool) {
			return files.Get(ctx, device, ref)
		}
	}
	payload, err := Project(store.Snapshot(ctx), lookup, Aux{Source: c.source, Captcha: captcha})
	if err != nil {
		return domain.Receipt{}, err
	}
	return c.submitter.Submit(ctx, payload)
}

func (c *Coordinator) emit(ctx context.Context, device string, receipt domain.Receipt, d time.Duration, err error) {
	if c.hooks.OnSubmit == nil {
		return
	}
	c.hooks.OnSubmit(ctx, &domain.SubmitEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      domain.EventSubmit,
			DeviceID:  device,
		},
		SubmissionID: receipt.SubmissionID,
		Duration:     d,
		Err:          err,
	})
}
