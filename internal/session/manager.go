package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"certguard/internal/credential/models"
	"certguard/internal/extraction"
	"certguard/internal/ledger"
	"certguard/internal/session/metrics"
	"certguard/internal/verification"
	dErrors "certguard/pkg/domain-errors"
	"certguard/pkg/requestcontext"
)

// Extractor reads a submitted document.
type Extractor interface {
	Extract(doc extraction.Document, view models.RecordView) extraction.Result
}

// Recorder commits outcomes to the ledger.
type Recorder interface {
	Record(out verification.Outcome) ledger.Entry
}

// RecordSource hands out a stable view of the credential store.
type RecordSource interface {
	View() models.RecordView
}

// Manager owns at most one in-flight verification session. The current run
// is the fencing cell: only the run it points to may deliver progress or
// commit an outcome.
type Manager struct {
	cfg       Config
	scope     string
	extractor Extractor
	recorder  Recorder
	records   RecordSource
	sinks     []Sink
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	clock     func() time.Time
	jitter    func(n int64) int64

	mu      sync.Mutex
	current *run
	closed  bool
	wg      sync.WaitGroup
}

type run struct {
	session Session
	doc     extraction.Document
	view    models.RecordView
	cancel  context.CancelFunc
	// closing is set when Close, not a newer session, cancelled the run.
	closing atomic.Bool
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithSink adds a lifecycle sink. Sinks are notified in registration order.
func WithSink(s Sink) Option {
	return func(m *Manager) {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithScope labels the manager's sessions with a client scope.
func WithScope(scope string) Option {
	return func(m *Manager) { m.scope = scope }
}

func NewManager(cfg Config, extractor Extractor, recorder Recorder, records RecordSource, opts ...Option) *Manager {
	m := &Manager{
		cfg:       cfg,
		scope:     requestcontext.DefaultClientScope,
		extractor: extractor,
		recorder:  recorder,
		records:   records,
		logger:    slog.Default(),
		tracer:    otel.Tracer("certguard/session"),
		clock:     time.Now,
		jitter:    rand.Int64N,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Submit validates the first file and starts a session for it. While another
// session is in flight it either fails with SessionBusy or supersedes it,
// depending on the policy.
func (m *Manager) Submit(ctx context.Context, files ...File) (Session, error) {
	if len(files) == 0 {
		return m.reject(ctx, errNoActiveSubmission())
	}
	file := files[0]
	if file.Size == 0 {
		file.Size = int64(len(file.Bytes))
	}
	mimeType := canonicalMIME(file.MIMEType)
	if !slices.Contains(m.cfg.AllowedMIMETypes, mimeType) {
		return m.reject(ctx, errInvalidFileType(file.MIMEType))
	}
	if m.cfg.MaxFileBytes > 0 && file.Size > m.cfg.MaxFileBytes {
		return m.reject(ctx, errFileTooLarge(file.Size, m.cfg.MaxFileBytes))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Session{}, dErrors.Wrap(ErrClosed, dErrors.CodeInternal, "verification service is shutting down")
	}
	if m.current != nil {
		if m.cfg.Policy != PolicySupersede {
			m.metrics.IncrementRejected(string(dErrors.CodeSessionBusy))
			return Session{}, errSessionBusy()
		}
		m.supersedeLocked(ctx, "superseded by new submission")
	}

	// The run outlives the submitting request but keeps its values.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ProcessingTimeout)
	r := &run{
		session: Session{
			Token:     uuid.New(),
			Scope:     m.scope,
			State:     StateCreated,
			FileName:  file.Name,
			FileSize:  file.Size,
			FileMIME:  mimeType,
			CreatedAt: m.clock(),
		},
		doc:    extraction.Document{Name: file.Name, MIMEType: mimeType, Size: file.Size},
		view:   m.records.View(),
		cancel: cancel,
	}
	m.current = r
	for _, s := range m.sinks {
		s.Started(ctx, r.session)
	}

	m.logger.InfoContext(ctx, "verification session started",
		"session_token", r.session.Token,
		"client_scope", m.scope,
		"file_name", file.Name,
		"file_size", file.Size,
		"file_mime", mimeType,
	)

	m.wg.Add(1)
	go m.process(runCtx, r)
	return r.session, nil
}

// Reset abandons the in-flight session, if any, so its output is discarded
// and the next submission proceeds.
func (m *Manager) Reset(ctx context.Context) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Session{}, false
	}
	s := m.supersedeLocked(ctx, "reset by client")
	return s, true
}

// Current returns a copy of the in-flight session, if any.
func (m *Manager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Session{}, false
	}
	return m.current.session, true
}

// Busy reports whether a session is in flight.
func (m *Manager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Close cancels the in-flight session and waits for every worker to exit.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	if m.current != nil {
		m.current.closing.Store(true)
		m.current.cancel()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for session workers: %w", ctx.Err())
	}
}

func (m *Manager) reject(ctx context.Context, err error) (Session, error) {
	m.metrics.IncrementRejected(string(dErrors.CodeOf(err)))
	m.logger.InfoContext(ctx, "submission rejected",
		"client_scope", m.scope,
		"code", dErrors.CodeOf(err),
		"error", err,
	)
	return Session{}, err
}

// supersedeLocked clears the fencing cell. Caller holds m.mu.
func (m *Manager) supersedeLocked(ctx context.Context, reason string) Session {
	r := m.current
	m.current = nil
	r.cancel()
	r.session.State = StateSuperseded
	for _, s := range m.sinks {
		s.Superseded(ctx, r.session)
	}
	m.metrics.IncrementSuperseded()
	m.logger.InfoContext(ctx, "verification session superseded",
		"session_token", r.session.Token,
		"client_scope", m.scope,
		"reason", reason,
	)
	return r.session
}

func (m *Manager) process(ctx context.Context, r *run) {
	defer m.wg.Done()
	defer r.cancel()

	ctx, span := m.tracer.Start(ctx, "session.process", trace.WithAttributes(
		attribute.String("session.token", r.session.Token.String()),
		attribute.String("session.scope", m.scope),
		attribute.String("file.mime", r.doc.MIMEType),
	))
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			err := dErrors.New(dErrors.CodeInternal, fmt.Sprintf("verification pipeline fault: %v", p))
			span.SetStatus(codes.Error, "panic")
			m.fail(ctx, r, err)
		}
	}()

	if err := m.run(ctx, r, span); err != nil {
		if errors.Is(err, ErrSuperseded) {
			span.SetAttributes(attribute.Bool("session.superseded", true))
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		m.fail(ctx, r, err)
	}
}

func (m *Manager) run(ctx context.Context, r *run, span trace.Span) error {
	if err := m.advance(ctx, r, StateStaging); err != nil {
		return err
	}
	for _, stage := range Stages {
		if err := m.emit(ctx, r, stage); err != nil {
			return err
		}
		if err := m.pause(ctx); err != nil {
			return contextErr(r, err)
		}
	}

	if err := m.advance(ctx, r, StateExtracting); err != nil {
		return err
	}
	_, extractSpan := m.tracer.Start(ctx, "session.extract")
	ext := m.extractor.Extract(r.doc, r.view)
	extractSpan.SetAttributes(
		attribute.String("extraction.rule", ext.Rule),
		attribute.Bool("extraction.degraded", ext.Degraded),
	)
	extractSpan.End()

	if err := m.advance(ctx, r, StateResolving); err != nil {
		return err
	}
	out := verification.Verify(ext, r.view, m.clock())
	span.SetAttributes(
		attribute.String("verification.status", out.Status.String()),
		attribute.Float64("verification.confidence", out.Confidence),
	)

	return m.commit(ctx, r, out)
}

// advance moves r forward if it is still current.
func (m *Manager) advance(ctx context.Context, r *run, next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != r {
		return ErrSuperseded
	}
	if err := ctx.Err(); err != nil {
		return contextErr(r, err)
	}
	r.session.State = next
	return nil
}

func (m *Manager) emit(ctx context.Context, r *run, p Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != r {
		return ErrSuperseded
	}
	for _, s := range m.sinks {
		s.Progress(ctx, r.session, p)
	}
	return nil
}

// commit records the outcome exactly once, and only for the current run.
func (m *Manager) commit(ctx context.Context, r *run, out verification.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != r {
		return ErrSuperseded
	}
	if err := ctx.Err(); err != nil {
		return contextErr(r, err)
	}

	m.recorder.Record(out)
	r.session.State = StateCompleted
	m.current = nil
	for _, s := range m.sinks {
		s.Completed(ctx, r.session, out)
	}

	elapsed := m.clock().Sub(r.session.CreatedAt)
	m.metrics.IncrementOutcome(out.Status.String())
	m.metrics.ObserveDuration(elapsed)
	m.logger.InfoContext(ctx, "verification session completed",
		"session_token", r.session.Token,
		"client_scope", m.scope,
		"status", out.Status,
		"confidence", out.Confidence,
		"rule", out.Extraction.Rule,
		"duration_ms", elapsed.Milliseconds(),
	)
	return nil
}

// fail terminates r if it is still current. Stale runs fail silently.
func (m *Manager) fail(ctx context.Context, r *run, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != r {
		return
	}
	m.current = nil
	r.session.State = StateFailed
	// ctx may already be expired; sinks still need a usable one.
	sinkCtx := context.WithoutCancel(ctx)
	for _, s := range m.sinks {
		s.Failed(sinkCtx, r.session, err)
	}
	m.metrics.IncrementFailed(string(dErrors.CodeOf(err)))
	m.logger.ErrorContext(ctx, "verification session failed",
		"session_token", r.session.Token,
		"client_scope", m.scope,
		"error", err,
	)
}

func contextErr(r *run, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errProcessingTimeout(err)
	}
	if r.closing.Load() {
		return dErrors.Wrap(ErrClosed, dErrors.CodeInternal, "verification service is shutting down")
	}
	return ErrSuperseded
}

// pause sleeps a random duration in [StageDelayMin, StageDelayMax].
func (m *Manager) pause(ctx context.Context) error {
	d := m.cfg.StageDelayMin
	if spread := m.cfg.StageDelayMax - m.cfg.StageDelayMin; spread > 0 {
		d += time.Duration(m.jitter(int64(spread) + 1))
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func canonicalMIME(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// retireIfIdle closes the manager when nothing is in flight.
func (m *Manager) retireIfIdle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return false
	}
	m.closed = true
	return true
}
