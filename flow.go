package intake

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/intake/pkg/answers"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/aretw0/intake/pkg/schema"
	"github.com/aretw0/intake/pkg/steps"
)

// View is what a presentation layer needs to render a step.
type View struct {
	Step       domain.Step      `json:"step"`
	Route      string           `json:"route"`
	Kind       steps.Kind       `json:"kind"`
	Header     steps.Header     `json:"header"`
	Metadata   domain.Metadata  `json:"metadata"`
	Recording  *steps.Recording `json:"recording,omitempty"`
	Form       domain.Fields    `json:"form"`
	Fields     []string         `json:"fields,omitempty"`
	Branches   []domain.Branch  `json:"branches,omitempty"`
	Validation schema.Result    `json:"validation"`
	Back       domain.Target    `json:"back"`
	Phase      domain.Phase     `json:"phase"`
}

// Input is what a client posts when leaving a step.
type Input struct {
	Values domain.Fields

	// Files holds uploaded or recorded audio, keyed by form field.
	Files map[string]domain.Attachment

	// Branch requests an escape edge (e.g. manual upload) instead of going forward.
	Branch domain.Branch
}

// Outcome reports the result of leaving a step.
type Outcome struct {
	From         string             `json:"from"`
	To           domain.Target      `json:"to"`
	Direction    domain.Direction   `json:"direction"`
	Phase        domain.Phase       `json:"phase"`
	Validation   schema.Result      `json:"validation"`
	SubmissionID string             `json:"submission_id,omitempty"`
	Diff         *domain.RecordDiff `json:"diff,omitempty"`
}

// Blocked reports whether validation stopped the transition.
func (o *Outcome) Blocked() bool {
	return o.Phase == domain.PhaseBlocked
}

// View mounts the step at route for device: saved answers overlaid on defaults,
// validated continuously, with the header and progress parameters of the step.
func (w *Wizard) View(ctx context.Context, device, route string) (*View, error) {
	step, c, err := w.lookup(route)
	if err != nil {
		return nil, err
	}
	store := w.Answers(device)
	snap := w.snapshot(ctx, device, store)
	form := c.Initial(snap.Answers.Section(step.Props.Section), snap)

	back, err := w.resolver.Transition(step, domain.Backward())
	if err != nil {
		return nil, err
	}

	res := c.Check(form, snap)
	phase := domain.PhaseReady
	if !res.Valid() {
		phase = domain.PhaseBlocked
	}
	w.fireEnter(ctx, device, step)

	return &View{
		Step:       step,
		Route:      step.Route(),
		Kind:       c.Kind,
		Header:     c.Header,
		Metadata:   step.Props.Metadata,
		Recording:  c.Recording,
		Form:       form,
		Fields:     c.Schema.Names(),
		Branches:   c.Escapes,
		Validation: res,
		Back:       back,
		Phase:      phase,
	}, nil
}

// Validate checks values against the step at route without committing anything.
func (w *Wizard) Validate(ctx context.Context, device, route string, values domain.Fields) (schema.Result, error) {
	step, c, err := w.lookup(route)
	if err != nil {
		return schema.Result{}, err
	}
	store := w.Answers(device)
	snap := w.snapshot(ctx, device, store)
	form := c.Initial(snap.Answers.Section(step.Props.Section), snap).Merge(values)
	return c.Check(form, snap), nil
}

// Forward leaves the step at route. Valid values are committed to the step's
// section before the route changes; invalid values block the transition and
// commit nothing. The submit step delegates to Submit.
func (w *Wizard) Forward(ctx context.Context, device, route string, in Input) (*Outcome, error) {
	step, c, err := w.lookup(route)
	if err != nil {
		return nil, err
	}
	if in.Branch != "" {
		return w.escape(ctx, device, step, c, in.Branch)
	}
	if c.Kind == steps.KindSubmit {
		captcha, _ := domain.AsString(in.Values["captchaValue"])
		return w.Submit(ctx, device, route, captcha)
	}

	store := w.Answers(device)
	before := w.record(ctx, store)
	if err := w.attach(ctx, device, c, &in); err != nil {
		return nil, err
	}

	snap := w.snapshot(ctx, device, store)
	values := c.Initial(snap.Answers.Section(step.Props.Section), snap).Merge(in.Values)
	if c.Recording != nil && c.Recording.Field != "" {
		w.dropDangling(ctx, device, c, values)
	}

	res := c.Check(values, snap)
	w.fireValidation(ctx, device, step, res)
	if !res.Valid() {
		w.logger.Debug("forward blocked", "device", device, "step", step.ID, "invalid", res.Invalid())
		return &Outcome{From: step.Route(), Direction: domain.Forward(), Phase: domain.PhaseBlocked, Validation: res}, nil
	}

	if partial := c.Commit(values); partial != nil {
		if err := store.Update(ctx, step.Props.Section, partial); err != nil {
			return nil, err
		}
		snap.Answers = store.Snapshot(ctx)
	}

	dir := w.resolver.Choose(c.Branches, values, snap)
	out, err := w.leave(ctx, device, store, step, dir)
	if err != nil {
		return nil, err
	}
	out.Validation = res
	out.Diff = domain.Diff(before, w.record(ctx, store))
	return out, nil
}

// Back returns to the previous step without committing in-progress values.
func (w *Wizard) Back(ctx context.Context, device, route string) (*Outcome, error) {
	step, err := w.resolver.Resolve(route)
	if err != nil {
		return nil, err
	}
	return w.leave(ctx, device, w.Answers(device), step, domain.Backward())
}

// Submit hands the device's answers to the submission coordinator. On success the
// answers are cleared and the device moves to the thank-you step; on failure
// nothing changes and a *submission.SubmitError is returned.
func (w *Wizard) Submit(ctx context.Context, device, route, captcha string) (*Outcome, error) {
	step, c, err := w.lookup(route)
	if err != nil {
		return nil, err
	}
	if c.Kind != steps.KindSubmit {
		return nil, fmt.Errorf("%w: %s", ErrNotSubmitStep, route)
	}
	if w.coordinator == nil {
		return nil, ErrNoSubmitter
	}

	store := w.Answers(device)
	receipt, err := w.coordinator.Submit(ctx, device, store, w.files, captcha)
	if err != nil {
		return nil, err
	}
	out, err := w.leave(ctx, device, store, step, domain.Forward())
	if err != nil {
		return nil, err
	}
	out.SubmissionID = receipt.SubmissionID
	return out, nil
}

func (w *Wizard) escape(ctx context.Context, device string, step domain.Step, c steps.Controller, b domain.Branch) (*Outcome, error) {
	if !c.Escapable(b) {
		return nil, fmt.Errorf("%w: %s cannot take %q", domain.ErrInvalidDirection, step.ID, b)
	}
	return w.leave(ctx, device, w.Answers(device), step, domain.ToBranch(b))
}

func (w *Wizard) leave(ctx context.Context, device string, store *answers.Store, step domain.Step, dir domain.Direction) (*Outcome, error) {
	target, err := w.resolver.Transition(step, dir)
	if err != nil {
		return nil, err
	}
	if _, err := w.navigator.Apply(ctx, store, step.Route(), target); err != nil {
		return nil, err
	}
	w.fireLeave(ctx, device, step, dir, target)

	phase := domain.PhaseUnmounted
	if target.HistoryBack {
		phase = domain.PhaseTransitioning
	}
	return &Outcome{From: step.Route(), To: target, Direction: dir, Phase: phase}, nil
}

// attach stores the audio file posted for a recording step and replaces the
// form value with its reference.
func (w *Wizard) attach(ctx context.Context, device string, c steps.Controller, in *Input) error {
	if c.Recording == nil || c.Recording.Field == "" {
		return nil
	}
	att, ok := in.Files[c.Recording.Field]
	if !ok {
		return nil
	}
	ref := attachmentRef(c.Recording.Kind, c.Recording.Field)
	if att.Field == "" {
		att.Field = c.Recording.Field
	}
	if err := w.files.Put(ctx, device, ref, att); err != nil {
		return fmt.Errorf("failed to store %s: %w", ref, err)
	}
	in.Values = in.Values.Merge(domain.Fields{c.Recording.Field: ref})
	return nil
}

// dropDangling clears a recording reference whose file is no longer held,
// so the step asks for the audio again.
func (w *Wizard) dropDangling(ctx context.Context, device string, c steps.Controller, values domain.Fields) {
	ref, ok := domain.AsString(values[c.Recording.Field])
	if !ok {
		return
	}
	if _, held := w.files.Get(ctx, device, ref); !held {
		delete(values, c.Recording.Field)
	}
}

func (w *Wizard) record(ctx context.Context, store *answers.Store) *domain.Record {
	rec, err := w.manager.Load(ctx, store.Key())
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			w.logger.Debug("record unavailable for diff", "key", store.Key(), "err", err)
		}
		return nil
	}
	return rec.Clone()
}

// Lookup returns the step registered at route.
func (w *Wizard) Lookup(route string) (domain.Step, error) {
	return w.resolver.Resolve(registry.Normalize(route))
}
