// Package workflow sequences capability calls (availability check, session
// creation, readiness wait, invocation) and reports progress while doing so.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/aidesk/internal/capability"
)

// DefaultResetDelay is how long a finished execution keeps its progress on display.
const DefaultResetDelay = time.Second

// Recorder receives execution metrics.
type Recorder interface {
	ObserveExecution(kind capability.Kind, outcome string, elapsed time.Duration)
	ObserveBatchItem(kind capability.Kind)
	SetInFlight(kind capability.Kind, inFlight bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveExecution(capability.Kind, string, time.Duration) {}
func (nopRecorder) ObserveBatchItem(capability.Kind)                        {}
func (nopRecorder) SetInFlight(capability.Kind, bool)                       {}

type Options struct {
	Workspace  *Workspace
	Hub        *Hub
	Metrics    Recorder
	ResetDelay time.Duration
	// AfterFunc schedules the post-execution reset. Defaults to time.AfterFunc.
	AfterFunc func(time.Duration, func())
}

// checkpoints are the progress values set on entering creating_session,
// awaiting_ready and invoking.
type checkpoints struct {
	creating int
	awaiting int
	invoking int
}

var (
	standardCheckpoints  = checkpoints{creating: 30, awaiting: 60, invoking: 80}
	detectionCheckpoints = checkpoints{creating: 40, awaiting: 70, invoking: 90}
)

// Status is a snapshot of one workflow.
type Status struct {
	Kind     capability.Kind `json:"kind"`
	State    State           `json:"state"`
	Progress int             `json:"progress"`
	Busy     bool            `json:"busy"`
}

type flow struct {
	kind  capability.Kind
	marks checkpoints

	mu         sync.Mutex
	busy       bool
	state      State
	progress   int
	generation uint64
}

// Runner drives the translation, detection and summarization workflows against
// a capability surface. Each workflow admits one execution at a time; batch
// translation shares the translation workflow.
type Runner struct {
	surface    capability.Surface
	logger     zerolog.Logger
	workspace  *Workspace
	hub        *Hub
	metrics    Recorder
	resetDelay time.Duration
	afterFunc  func(time.Duration, func())
	flows      map[capability.Kind]*flow
}

func NewRunner(surface capability.Surface, logger zerolog.Logger, opts Options) *Runner {
	workspace := opts.Workspace
	if workspace == nil {
		workspace = NewWorkspace()
	}
	hub := opts.Hub
	if hub == nil {
		hub = NewHub()
	}
	var metrics Recorder = nopRecorder{}
	if opts.Metrics != nil {
		metrics = opts.Metrics
	}
	resetDelay := opts.ResetDelay
	if resetDelay <= 0 {
		resetDelay = DefaultResetDelay
	}
	afterFunc := opts.AfterFunc
	if afterFunc == nil {
		afterFunc = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}

	flows := make(map[capability.Kind]*flow, 3)
	for _, kind := range capability.Kinds() {
		marks := standardCheckpoints
		if kind == capability.KindDetection {
			marks = detectionCheckpoints
		}
		flows[kind] = &flow{kind: kind, marks: marks, state: StateIdle}
	}

	return &Runner{
		surface:    surface,
		logger:     logger,
		workspace:  workspace,
		hub:        hub,
		metrics:    metrics,
		resetDelay: resetDelay,
		afterFunc:  afterFunc,
		flows:      flows,
	}
}

func (r *Runner) Workspace() *Workspace { return r.workspace }

func (r *Runner) Hub() *Hub { return r.hub }

func (r *Runner) Surface() capability.Surface { return r.surface }

func (r *Runner) Status(kind capability.Kind) Status {
	f, ok := r.flows[kind]
	if !ok {
		return Status{Kind: kind, State: StateIdle}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return Status{Kind: kind, State: f.state, Progress: f.progress, Busy: f.busy}
}

func (r *Runner) Statuses() []Status {
	out := make([]Status, 0, len(r.flows))
	for _, kind := range capability.Kinds() {
		out = append(out, r.Status(kind))
	}
	return out
}

// Run dispatches one operation request to its workflow.
func (r *Runner) Run(ctx context.Context, req capability.OperationRequest) (capability.OperationResult, error) {
	switch v := req.(type) {
	case capability.TranslateRequest:
		return r.Translate(ctx, v)
	case capability.DetectRequest:
		return r.Detect(ctx, v)
	case capability.SummarizeRequest:
		return r.Summarize(ctx, v)
	default:
		return capability.OperationResult{}, fmt.Errorf("unsupported operation request %T", req)
	}
}

func (r *Runner) Translate(ctx context.Context, req capability.TranslateRequest) (capability.OperationResult, error) {
	kind := capability.KindTranslation
	var session capability.TranslatorSession

	return r.execute(ctx, kind, req.Text, stages{
		present: r.surface.Translator != nil,
		availability: func(ctx context.Context) (capability.Availability, error) {
			return r.surface.Translator.Availability(ctx, req.Pair)
		},
		create: func(ctx context.Context) (capability.Session, error) {
			s, err := r.surface.Translator.Create(ctx, req.Pair)
			session = s
			return s, err
		},
		invoke: func(ctx context.Context) (capability.OperationResult, error) {
			out, err := session.Translate(ctx, req.Text)
			if err != nil {
				return capability.OperationResult{}, err
			}
			return capability.OperationResult{Kind: kind, Output: out}, nil
		},
		commit: func(result capability.OperationResult) Notice {
			r.workspace.setTranslation(TranslationRecord{
				Input:      req.Text,
				Output:     result.Output,
				SourceLang: req.Pair.Source,
				TargetLang: req.Pair.Target,
			})
			return ResultNotice(result)
		},
		fields: func(ev *zerolog.Event) {
			ev.Str("source_lang", req.Pair.Source).Str("target_lang", req.Pair.Target)
		},
	})
}

func (r *Runner) Detect(ctx context.Context, req capability.DetectRequest) (capability.OperationResult, error) {
	kind := capability.KindDetection
	var session capability.DetectorSession

	return r.execute(ctx, kind, req.Text, stages{
		present: r.surface.Detector != nil,
		availability: func(ctx context.Context) (capability.Availability, error) {
			return r.surface.Detector.Availability(ctx)
		},
		create: func(ctx context.Context) (capability.Session, error) {
			s, err := r.surface.Detector.Create(ctx)
			session = s
			return s, err
		},
		invoke: func(ctx context.Context) (capability.OperationResult, error) {
			detections, err := session.Detect(ctx, req.Text)
			if err != nil {
				return capability.OperationResult{}, err
			}
			return capability.OperationResult{
				Kind:       kind,
				Output:     DetectionMessage(detections),
				Detections: detections,
			}, nil
		},
		commit: func(result capability.OperationResult) Notice {
			r.workspace.setDetection(DetectionRecord{
				Input:      req.Text,
				Output:     result.Output,
				Detections: result.Detections,
			})
			return ResultNotice(result)
		},
	})
}

func (r *Runner) Summarize(ctx context.Context, req capability.SummarizeRequest) (capability.OperationResult, error) {
	kind := capability.KindSummarization
	opts := withSummaryDefaults(req.Options)
	var session capability.SummarizerSession

	return r.execute(ctx, kind, req.Text, stages{
		present: r.surface.Summarizer != nil,
		availability: func(ctx context.Context) (capability.Availability, error) {
			return r.surface.Summarizer.Availability(ctx)
		},
		create: func(ctx context.Context) (capability.Session, error) {
			s, err := r.surface.Summarizer.Create(ctx, opts)
			session = s
			return s, err
		},
		invoke: func(ctx context.Context) (capability.OperationResult, error) {
			out, err := session.Summarize(ctx, req.Text)
			if err != nil {
				return capability.OperationResult{}, err
			}
			return capability.OperationResult{Kind: kind, Output: out}, nil
		},
		commit: func(result capability.OperationResult) Notice {
			r.workspace.setSummary(SummaryRecord{
				Input:       req.Text,
				Output:      result.Output,
				SummaryType: string(opts.Type),
			})
			return ResultNotice(result)
		},
		fields: func(ev *zerolog.Event) {
			ev.Str("summary_type", string(opts.Type))
		},
	})
}

// ResultNotice is the notice published for a successful execution. A detection
// without any guess is still a success but warns.
func ResultNotice(result capability.OperationResult) Notice {
	switch result.Kind {
	case capability.KindTranslation:
		return Notice{Level: NoticeSuccess, Message: "Translation completed successfully!"}
	case capability.KindDetection:
		if _, ok := result.Top(); !ok {
			return Notice{Level: NoticeWarning, Message: "Could not detect language"}
		}
		return Notice{Level: NoticeSuccess, Message: "Language detected successfully!"}
	case capability.KindSummarization:
		return Notice{Level: NoticeSuccess, Message: "Summarization completed successfully!"}
	default:
		return Notice{Level: NoticeSuccess, Message: result.Kind.Label() + " completed successfully!"}
	}
}

// DetectionMessage renders the authoritative detection for display.
func DetectionMessage(detections []capability.Detection) string {
	if len(detections) == 0 {
		return "Unable to detect language"
	}
	top := detections[0]
	return fmt.Sprintf("Language: %s (Confidence: %.1f%%)", top.Language, top.Confidence*100)
}

func withSummaryDefaults(opts capability.SummaryOptions) capability.SummaryOptions {
	defaults := capability.DefaultSummaryOptions(opts.Type)
	if opts.Format == "" {
		opts.Format = defaults.Format
	}
	if opts.Length == "" {
		opts.Length = defaults.Length
	}
	opts.Type = defaults.Type
	return opts
}

type stages struct {
	present      bool
	availability func(context.Context) (capability.Availability, error)
	create       func(context.Context) (capability.Session, error)
	invoke       func(context.Context) (capability.OperationResult, error)
	commit       func(capability.OperationResult) Notice
	fields       func(*zerolog.Event)
}

func (r *Runner) execute(ctx context.Context, kind capability.Kind, input string, st stages) (capability.OperationResult, error) {
	if strings.TrimSpace(input) == "" {
		return r.reject(kind, capability.EmptyInput(kind))
	}

	exec, err := r.begin(kind)
	if err != nil {
		return r.reject(kind, err)
	}

	if !st.present {
		return exec.failResult(capability.Absent(kind))
	}

	availability, err := st.availability(ctx)
	if err != nil {
		return exec.failResult(capability.Failed(kind, fmt.Errorf("check availability: %w", err)))
	}
	if !availability.Usable() {
		return exec.failResult(capability.NotAvailable(kind))
	}
	exec.advance(EventAvailable, exec.f.marks.creating)

	session, err := st.create(ctx)
	if err != nil {
		return exec.failResult(capability.Failed(kind, fmt.Errorf("create session: %w", err)))
	}
	if session == nil {
		return exec.failResult(capability.Failed(kind, errors.New("create session: no session returned")))
	}
	exec.advance(EventCreated, exec.f.marks.awaiting)

	if err := session.Ready(ctx); err != nil {
		return exec.failResult(capability.Failed(kind, fmt.Errorf("await session ready: %w", err)))
	}
	exec.advance(EventReady, exec.f.marks.invoking)

	result, err := st.invoke(ctx)
	if err != nil {
		return exec.failResult(capability.Failed(kind, fmt.Errorf("invoke %s: %w", kind, err)))
	}
	result.Kind = kind

	notice := st.commit(result)
	exec.advance(EventInvoked, 100)
	r.notify(kind, notice)

	logEvent := r.logger.Info().
		Str("kind", string(kind)).
		Str("availability", string(availability)).
		Dur("elapsed", time.Since(exec.started))
	if st.fields != nil {
		st.fields(logEvent)
	}
	logEvent.Msg("workflow succeeded")

	exec.release("succeeded")
	return result, nil
}

// reject reports a failure that happens before an execution starts. Progress does not move.
func (r *Runner) reject(kind capability.Kind, err error) (capability.OperationResult, error) {
	capErr := asCapabilityError(kind, err)
	level := NoticeError
	if capErr.Kind == capability.ErrorBusy {
		level = NoticeWarning
	}
	r.notify(kind, Notice{Level: level, Message: capErr.Message})
	r.logger.Debug().Str("kind", string(kind)).Str("error_kind", string(capErr.Kind)).Msg("workflow rejected")
	return capability.OperationResult{Kind: kind, Failure: capErr.Kind}, capErr
}

func (r *Runner) notify(kind capability.Kind, notice Notice) {
	n := notice
	r.hub.Publish(Event{Type: EventTypeNotice, Kind: kind, Notice: &n})
}

func (r *Runner) publishProgress(kind capability.Kind, state State, progress int) {
	r.hub.Publish(Event{Type: EventTypeProgress, Kind: kind, State: state, Progress: progress})
}

// begin takes the in-flight guard. A busy workflow rejects the trigger; nothing is queued.
func (r *Runner) begin(kind capability.Kind) (*execution, error) {
	f, ok := r.flows[kind]
	if !ok {
		return nil, fmt.Errorf("unknown workflow %q", kind)
	}

	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return nil, capability.Busy(kind)
	}
	next, err := Transition(f.state, EventStart)
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.busy = true
	f.state = next
	f.progress = 0
	f.generation++
	gen := f.generation
	f.mu.Unlock()

	r.metrics.SetInFlight(kind, true)
	r.publishProgress(kind, next, 0)
	return &execution{r: r, f: f, gen: gen, started: time.Now()}, nil
}

type execution struct {
	r       *Runner
	f       *flow
	gen     uint64
	started time.Time
}

// advance applies event and raises progress to at least value.
func (e *execution) advance(event Event, value int) {
	f := e.f
	f.mu.Lock()
	next, err := Transition(f.state, event)
	if err != nil {
		f.mu.Unlock()
		e.r.logger.Error().Err(err).Str("kind", string(f.kind)).Msg("workflow transition rejected")
		return
	}
	f.state = next
	if value > f.progress {
		f.progress = value
	}
	progress := f.progress
	f.mu.Unlock()

	e.r.publishProgress(f.kind, next, progress)
}

// setProgress raises progress without changing state.
func (e *execution) setProgress(value int) {
	f := e.f
	f.mu.Lock()
	if value > f.progress {
		f.progress = value
	}
	progress, state := f.progress, f.state
	f.mu.Unlock()

	e.r.publishProgress(f.kind, state, progress)
}

// fail moves to failed, leaving progress where it stopped.
func (e *execution) fail(err *capability.Error) *capability.Error {
	kind := e.f.kind
	stage := e.r.Status(kind).State
	e.advance(EventFail, 0)

	logEvent := e.r.logger.Warn()
	if err.Kind == capability.ErrorInvocationFailure {
		logEvent = e.r.logger.Error().Err(err.Cause)
	}
	logEvent.
		Str("kind", string(kind)).
		Str("stage", string(stage)).
		Str("error_kind", string(err.Kind)).
		Dur("elapsed", time.Since(e.started)).
		Msg("workflow failed")

	e.r.notify(kind, Notice{Level: NoticeError, Message: err.Message})
	e.release(string(err.Kind))
	return err
}

func (e *execution) failResult(err *capability.Error) (capability.OperationResult, error) {
	failed := e.fail(err)
	return capability.OperationResult{Kind: e.f.kind, Failure: failed.Kind}, failed
}

// release clears the in-flight guard at once and schedules the display reset.
func (e *execution) release(outcome string) {
	f := e.f
	f.mu.Lock()
	f.busy = false
	f.mu.Unlock()

	e.r.metrics.SetInFlight(f.kind, false)
	e.r.metrics.ObserveExecution(f.kind, outcome, time.Since(e.started))

	gen := e.gen
	e.r.afterFunc(e.r.resetDelay, func() {
		f.mu.Lock()
		if f.generation != gen {
			f.mu.Unlock()
			return
		}
		if next, err := Transition(f.state, EventReset); err == nil {
			f.state = next
		}
		f.progress = 0
		state := f.state
		f.mu.Unlock()

		e.r.publishProgress(f.kind, state, 0)
	})
}

func asCapabilityError(kind capability.Kind, err error) *capability.Error {
	var capErr *capability.Error
	if errors.As(err, &capErr) {
		return capErr
	}
	return capability.Failed(kind, err)
}
