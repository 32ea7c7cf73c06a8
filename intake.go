package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/answers"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/locale"
	"github.com/aretw0/intake/pkg/navigation"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/aretw0/intake/pkg/schema"
	"github.com/aretw0/intake/pkg/session"
	"github.com/aretw0/intake/pkg/steps"
	"github.com/aretw0/intake/pkg/submission"
)

// ErrNoSubmitter is returned by Submit when the wizard was built without a submitter.
var ErrNoSubmitter = errors.New("no submitter configured")

// ErrNotSubmitStep is returned by Submit for a route that is not the submit step.
var ErrNotSubmitStep = errors.New("route is not a submit step")

// Wizard is the high-level entry point of the intake engine.
// It drives the step controllers for one device at a time: every operation takes
// the device ID whose answer record it reads and writes.
type Wizard struct {
	registry    *registry.Registry
	resolver    *navigation.Resolver
	navigator   *navigation.Navigator
	manager     *session.Manager
	store       ports.RecordStore
	locker      ports.DistributedLocker
	files       ports.AttachmentStore
	submitter   ports.Submitter
	coordinator *submission.Coordinator
	guesser     *locale.Guesser
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	storeName   string
	source      string
	clinical    bool
	now         func() time.Time
}

// Option defines a functional option for configuring the Wizard.
type Option func(*Wizard)

// WithRecordStore sets the backend holding answer records (default: in memory).
func WithRecordStore(store ports.RecordStore) Option {
	return func(w *Wizard) {
		w.store = store
	}
}

// WithAttachmentStore sets where uploaded and recorded audio is kept (default: in memory).
func WithAttachmentStore(files ports.AttachmentStore) Option {
	return func(w *Wizard) {
		w.files = files
	}
}

// WithLocker enables distributed locking of answer records across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(w *Wizard) {
		w.locker = locker
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Wizard) {
		w.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(w *Wizard) {
		w.hooks = hooks
	}
}

// WithSubmitter sets the backend client used by Submit.
func WithSubmitter(s ports.Submitter) Option {
	return func(w *Wizard) {
		w.submitter = s
	}
}

// WithGuesser enables country pre-selection on the welcome step.
func WithGuesser(g *locale.Guesser) Option {
	return func(w *Wizard) {
		w.guesser = g
	}
}

// WithStoreName sets the store instance name prefixing every record key.
func WithStoreName(name string) Option {
	return func(w *Wizard) {
		if name != "" {
			w.storeName = name
		}
	}
}

// WithSource sets the campaign tag sent with every submission.
func WithSource(source string) Option {
	return func(w *Wizard) {
		w.source = source
	}
}

// WithClinical enables the patient and hospital identifiers.
func WithClinical(clinical bool) Option {
	return func(w *Wizard) {
		w.clinical = clinical
	}
}

// WithClock overrides the time source used for dates and events.
func WithClock(now func() time.Time) Option {
	return func(w *Wizard) {
		if now != nil {
			w.now = now
		}
	}
}

// WithRegistry replaces the default step registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(w *Wizard) {
		if reg != nil {
			w.registry = reg
		}
	}
}

// New initializes a Wizard. The registry is validated once; a defective registry
// is reported here instead of on the first navigation.
func New(opts ...Option) (*Wizard, error) {
	w := &Wizard{
		storeName: domain.DefaultStoreName,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logging.NewNop()
	}
	if w.registry == nil {
		w.registry = registry.Default()
	}
	if err := registry.Validate(w.registry); err != nil {
		return nil, fmt.Errorf("invalid step registry: %w", err)
	}
	for _, step := range w.registry.Steps() {
		if _, ok := steps.For(step.ID); !ok {
			return nil, &domain.ConfigError{Step: step.ID, Edge: "controller"}
		}
	}
	if w.store == nil {
		w.store = memory.NewStore()
	}
	if w.files == nil {
		w.files = memory.NewAttachments()
	}

	managerOpts := []session.Option{session.WithLogger(w.logger)}
	if w.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(w.locker))
	}
	w.manager = session.NewManager(w.store, managerOpts...)
	w.resolver = navigation.NewResolver(w.registry, navigation.WithLogger(w.logger))
	w.navigator = navigation.NewNavigator(w.logger)

	if w.submitter != nil {
		w.coordinator = submission.NewCoordinator(w.submitter,
			submission.WithLogger(w.logger),
			submission.WithSource(w.source),
			submission.WithHooks(w.hooks),
		)
	}
	return w, nil
}

// Registry returns the step registry.
func (w *Wizard) Registry() *registry.Registry {
	return w.registry
}

// Manager returns the session manager guarding answer records.
func (w *Wizard) Manager() *session.Manager {
	return w.manager
}

// Steps returns every registered step in order.
func (w *Wizard) Steps() []domain.Step {
	return w.registry.Steps()
}

// Answers returns the answer store of a device.
func (w *Wizard) Answers(device string) *answers.Store {
	return answers.New(w.manager, w.storeName, device,
		answers.WithLogger(w.logger),
		answers.WithSections(w.registry.Sections()...),
	)
}

// Resume returns the step the device last navigated to, or the start step.
func (w *Wizard) Resume(ctx context.Context, device string) domain.Step {
	if route := w.Answers(device).Route(ctx); route != "" {
		if step, err := w.resolver.Resolve(route); err == nil {
			return step
		}
	}
	step, _ := w.registry.Step(w.registry.Start())
	return step
}

// Guess returns the country pre-selection of a device. ip and tz may be empty.
func (w *Wizard) Guess(ctx context.Context, device, ip, tz string) locale.Guess {
	if w.guesser == nil {
		return locale.Guess{}
	}
	return w.guesser.Guess(ctx, device, ip, tz)
}

// Reset clears one section of the device's answers.
func (w *Wizard) Reset(ctx context.Context, device string, section domain.Section) error {
	return w.Answers(device).Reset(ctx, section)
}

// ResetAll clears every answer and attachment of the device.
func (w *Wizard) ResetAll(ctx context.Context, device string) error {
	if err := w.Answers(device).ResetAll(ctx); err != nil {
		return err
	}
	return w.files.Clear(ctx, device)
}

// snapshot assembles what requirements and branch rules may consult.
func (w *Wizard) snapshot(ctx context.Context, device string, store *answers.Store) schema.Snapshot {
	snap := schema.Snapshot{
		Answers: store.Snapshot(ctx),
		Context: map[string]any{domain.ContextClinical: w.clinical},
		Now:     w.now(),
	}
	if w.guesser != nil {
		if g, ok := w.guesser.Cached(ctx, device); ok {
			snap.Context[steps.ContextGuessCountry] = g.Country
			snap.Context[steps.ContextGuessLanguage] = g.Language
		}
	}
	section := snap.Answers.Section(domain.SectionSubmitSteps)
	for _, kind := range registry.Kinds {
		ref := audioRef(section, kind)
		if ref == "" {
			continue
		}
		if att, ok := w.files.Get(ctx, device, ref); ok {
			snap.Context[steps.AudioSizeKey(kind)] = att.Size()
		}
	}
	return snap
}

// audioRef returns the attachment reference committed for a recording kind,
// preferring the live recording over a manual upload.
func audioRef(section domain.Fields, kind string) string {
	var nested map[string]any
	switch v := section[registry.LogicKey(kind)].(type) {
	case map[string]any:
		nested = v
	case domain.Fields:
		nested = v
	}
	for _, field := range []string{steps.FieldRecordingFile, steps.FieldUploadedFile} {
		if ref, ok := domain.AsString(nested[field]); ok {
			return ref
		}
	}
	return ""
}

// attachmentRef is the reference an uploaded file is stored under.
func attachmentRef(kind, field string) string {
	return registry.LogicKey(kind) + "/" + field
}

func (w *Wizard) lookup(route string) (domain.Step, steps.Controller, error) {
	step, err := w.resolver.Resolve(route)
	if err != nil {
		return domain.Step{}, steps.Controller{}, err
	}
	c, ok := steps.For(step.ID)
	if !ok {
		return domain.Step{}, steps.Controller{}, &domain.ConfigError{Step: step.ID, Edge: "controller"}
	}
	return step, c, nil
}

func (w *Wizard) base(t domain.EventType, device string) domain.EventBase {
	return domain.EventBase{Timestamp: w.now(), Type: t, DeviceID: device}
}

func (w *Wizard) fireEnter(ctx context.Context, device string, step domain.Step) {
	if w.hooks.OnStepEnter != nil {
		w.hooks.OnStepEnter(ctx, &domain.StepEvent{
			EventBase: w.base(domain.EventStepEnter, device),
			StepID:    step.ID,
			Route:     step.Route(),
		})
	}
}

func (w *Wizard) fireLeave(ctx context.Context, device string, step domain.Step, dir domain.Direction, target domain.Target) {
	if w.hooks.OnStepLeave != nil {
		w.hooks.OnStepLeave(ctx, &domain.StepEvent{
			EventBase: w.base(domain.EventStepLeave, device),
			StepID:    step.ID,
			Route:     step.Route(),
			Direction: dir,
			Target:    target.Route,
		})
	}
}

func (w *Wizard) fireValidation(ctx context.Context, device string, step domain.Step, res schema.Result) {
	if w.hooks.OnValidation != nil {
		w.hooks.OnValidation(ctx, &domain.ValidationEvent{
			EventBase: w.base(domain.EventValidation, device),
			StepID:    step.ID,
			Valid:     res.Valid(),
			Invalid:   res.Invalid(),
		})
	}
}
