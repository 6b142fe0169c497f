package workflow

import (
	"context"
	"strings"
	"sync"
	"time"

	"horse.fit/aidesk/internal/capability"
)

type fakeTranslator struct {
	mu                sync.Mutex
	availability      capability.Availability
	availabilityCalls int
	createCalls       int
	createErr         error
	readyGate         chan struct{}
	failOn            string
	translated        []string
}

func newFakeTranslator() *fakeTranslator {
	return &fakeTranslator{availability: capability.Available}
}

func (f *fakeTranslator) Availability(_ context.Context, _ capability.LanguagePair) (capability.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.availabilityCalls++
	return f.availability, nil
}

func (f *fakeTranslator) Create(_ context.Context, pair capability.LanguagePair) (capability.TranslatorSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &fakeTranslatorSession{parent: f, pair: pair}, nil
}

func (f *fakeTranslator) counts() (availability, create int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.availabilityCalls, f.createCalls
}

type fakeTranslatorSession struct {
	parent *fakeTranslator
	pair   capability.LanguagePair
}

func (s *fakeTranslatorSession) Ready(ctx context.Context) error {
	if s.parent.readyGate == nil {
		return nil
	}
	select {
	case <-s.parent.readyGate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var dictionary = map[string]string{
	"Hello": "Hola",
	"a":     "A",
	"b":     "B",
	"c":     "C",
}

func (s *fakeTranslatorSession) Translate(_ context.Context, text string) (string, error) {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	if s.parent.failOn != "" && text == s.parent.failOn {
		return "", errFakeBackend
	}
	s.parent.translated = append(s.parent.translated, text)
	if out, ok := dictionary[text]; ok {
		return out, nil
	}
	return strings.ToUpper(text), nil
}

type fakeError string

func (e fakeError) Error() string { return string(e) }

const errFakeBackend = fakeError("backend exploded: secret stack trace")

type fakeDetector struct {
	availability capability.Availability
	results      []capability.Detection
	createCalls  int
}

func (f *fakeDetector) Availability(context.Context) (capability.Availability, error) {
	return f.availability, nil
}

func (f *fakeDetector) Create(context.Context) (capability.DetectorSession, error) {
	f.createCalls++
	return fakeDetectorSession{results: f.results}, nil
}

type fakeDetectorSession struct {
	results []capability.Detection
}

func (fakeDetectorSession) Ready(context.Context) error { return nil }

func (s fakeDetectorSession) Detect(context.Context, string) ([]capability.Detection, error) {
	return s.results, nil
}

type fakeSummarizer struct {
	availabilityCalls int
	createCalls       int
	lastOptions       capability.SummaryOptions
}

func (f *fakeSummarizer) Availability(context.Context) (capability.Availability, error) {
	f.availabilityCalls++
	return capability.Downloadable, nil
}

func (f *fakeSummarizer) Create(_ context.Context, opts capability.SummaryOptions) (capability.SummarizerSession, error) {
	f.createCalls++
	f.lastOptions = opts
	return fakeSummarizerSession{}, nil
}

type fakeSummarizerSession struct{}

func (fakeSummarizerSession) Ready(context.Context) error { return nil }

func (fakeSummarizerSession) Summarize(_ context.Context, text string) (string, error) {
	return "TL;DR: " + strings.Fields(text)[0], nil
}

// manualClock captures scheduled resets so tests decide when they fire.
type manualClock struct {
	mu      sync.Mutex
	pending []func()
	delays  []time.Duration
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, f)
	c.delays = append(c.delays, d)
}

func (c *manualClock) fireAll() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, f := range pending {
		f()
	}
}

func drain(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func progressValues(events []Event, kind capability.Kind) []int {
	var out []int
	for _, ev := range events {
		if ev.Type != EventTypeProgress || ev.Kind != kind {
			continue
		}
		if len(out) > 0 && out[len(out)-1] == ev.Progress {
			continue
		}
		out = append(out, ev.Progress)
	}
	return out
}

func notices(events []Event) []Notice {
	var out []Notice
	for _, ev := range events {
		if ev.Type == EventTypeNotice && ev.Notice != nil {
			out = append(out, *ev.Notice)
		}
	}
	return out
}
