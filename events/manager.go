package events

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vitwit/walletkit/catalog"
	"github.com/vitwit/walletkit/logger"
	"github.com/vitwit/walletkit/metrics"
	"github.com/vitwit/walletkit/namespaces"
	"github.com/vitwit/walletkit/router"
	"github.com/vitwit/walletkit/types"
)

// Manager handles the five inbound session event kinds.
type Manager struct {
	catalog   atomic.Pointer[catalog.Catalog]
	router    *router.Router
	responder Responder
	runner    WorkflowRunner
	sessions  SessionStore
	limiter   *TopicLimiter
	pending   *pendingSet

	verifySignatures bool
	sweepInterval    time.Duration
	now              func() time.Time

	logger  logger.Logger
	metrics metrics.Recorder

	initialized atomic.Bool
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(m *Manager) {
		m.metrics = r
	}
}

// WithRouter replaces the default router.
func WithRouter(r *router.Router) Option {
	return func(m *Manager) {
		m.router = r
	}
}

// WithSessionStore sets the store refreshed on init and on session delete.
func WithSessionStore(s SessionStore) Option {
	return func(m *Manager) {
		m.sessions = s
	}
}

// WithRateLimit limits requests per session topic.
func WithRateLimit(rps float64, burst int, idleTTL time.Duration) Option {
	return func(m *Manager) {
		m.limiter = NewTopicLimiter(rps, burst, idleTTL)
	}
}

// WithSignatureVerification checks eip155 signatures returned by signing
// workflows against the requested account before responding.
func WithSignatureVerification() Option {
	return func(m *Manager) {
		m.verifySignatures = true
	}
}

// WithSweepInterval sets how often Serve cancels expired workflows.
func WithSweepInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.sweepInterval = d
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a manager over c. responder and runner are required.
func NewManager(c *catalog.Catalog, responder Responder, runner WorkflowRunner, opts ...Option) (*Manager, error) {
	if c == nil {
		return nil, types.NewConfigurationError("event manager needs a capability catalog")
	}
	if responder == nil || runner == nil {
		return nil, types.NewConfigurationError("event manager needs a responder and a workflow runner")
	}

	m := &Manager{
		responder:     responder,
		runner:        runner,
		pending:       newPendingSet(),
		sweepInterval: time.Second,
		now:           time.Now,
		logger:        logger.NoopLogger{},
		metrics:       metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logger.OrNoop(m.logger)
	m.metrics = metrics.OrNoop(m.metrics)
	if m.router == nil {
		m.router = router.New(router.WithLogger(m.logger), router.WithMetrics(m.metrics))
	}
	m.catalog.Store(c)

	return m, nil
}

// Catalog returns the catalog events are currently handled against.
func (m *Manager) Catalog() *catalog.Catalog {
	return m.catalog.Load()
}

// SetCatalog swaps the catalog. Workflows already pending keep the
// negotiation computed when they were opened.
func (m *Manager) SetCatalog(c *catalog.Catalog) {
	if c != nil {
		m.catalog.Store(c)
	}
}

// Pending returns the ids of open workflows, oldest first.
func (m *Manager) Pending() []string {
	return m.pending.ids()
}

// Workflow returns an open workflow.
func (m *Manager) Workflow(id string) (Workflow, bool) {
	return m.pending.get(id)
}

// Init registers one handler per event kind on source. Calls after the
// first are no-ops. The session list is refreshed once registration is
// done.
func (m *Manager) Init(ctx context.Context, source EventSource) error {
	if !m.initialized.CompareAndSwap(false, true) {
		return nil
	}

	handlers := map[types.EventKind]Handler{
		types.EventProposal:     m.onProposal,
		types.EventRequest:      m.onRequest,
		types.EventAuthenticate: m.onAuthenticate,
		types.EventDelete:       m.onDelete,
		types.EventPing:         m.onPing,
	}
	for _, kind := range types.EventKinds {
		source.On(kind, handlers[kind])
	}
	m.logger.Info("event handlers registered", map[string]any{"kinds": len(handlers)})

	return m.refreshSessions(ctx)
}

func (m *Manager) onProposal(ctx context.Context, ev types.Event) {
	proposal := ev.Proposal
	if proposal == nil {
		m.logger.Warn("proposal event without payload", nil)
		return
	}

	start := m.now()
	c := m.catalog.Load()
	support := namespaces.Resolve(proposal, c)
	result, negErr := namespaces.Reconcile(proposal, c)
	m.metrics.ObserveLatency(metrics.OpNegotiate, m.now().Sub(start), nil)
	m.metrics.IncCounter(metrics.ProposalReceived, nil)

	fields := map[string]any{
		"id":          proposal.ID,
		"proposer":    proposal.Params.Proposer.Metadata.Name,
		"supported":   support.Supported,
		"unsupported": support.Unsupported,
	}
	if negErr != nil {
		fields["error"] = negErr
	} else {
		for _, d := range result.Dropped {
			m.metrics.IncCounter(metrics.OptionalDropped, map[string]string{"namespace": d.Namespace})
			m.logger.Info("optional namespace dropped", map[string]any{
				"id":        proposal.ID,
				"key":       d.Key,
				"namespace": d.Namespace,
				"reason":    string(d.Reason),
				"detail":    d.Detail,
			})
		}
		if support.CanApprove() {
			m.metrics.IncCounter(metrics.ProposalApprovable, nil)
		}
	}
	m.logger.Info("session proposal received", fields)

	m.open(ctx, Workflow{
		Kind:           router.WorkflowSessionProposal,
		Topic:          proposal.Params.PairingTopic,
		Proposal:       proposal,
		VerifyContext:  proposal.VerifyContext,
		Support:        &support,
		Negotiation:    result,
		NegotiationErr: negErr,
		ExpiresAt:      unixTime(proposal.Params.ExpiryTimestamp),
	})
}

func (m *Manager) onRequest(ctx context.Context, ev types.Event) {
	req := ev.Request
	if req == nil {
		m.logger.Warn("request event without payload", nil)
		return
	}
	labels := map[string]string{"namespace": req.Namespace()}

	if !m.limiter.Allow(req.Topic, m.now()) {
		m.metrics.IncCounter(metrics.RequestRateLimited, labels)
		m.logger.Warn("request rate limited", map[string]any{"topic": req.Topic, "id": req.ID})
		_ = m.send(ctx, req.Topic, types.FormatJSONRPCError(req.ID, types.CodeLimitExceeded, "rate limit exceeded"))
		return
	}

	rc := &router.RequestContext{
		Request: req,
		Session: m.lookupSession(ctx, req.Topic),
		Catalog: m.catalog.Load(),
	}
	d := m.router.Dispatch(ctx, rc)

	wf := Workflow{
		Topic:         req.Topic,
		Request:       req,
		Session:       rc.Session,
		VerifyContext: req.VerifyContext,
		ExpiresAt:     unixTime(req.Params.Request.ExpiryTimestamp),
	}

	switch {
	case d.Outcome.Kind == router.Unsupported:
		wf.Kind = router.WorkflowUnsupportedMethod
		m.open(ctx, wf)
	case d.Response != nil:
		_ = m.send(ctx, req.Topic, *d.Response)
	default:
		wf.Kind = d.Outcome.Workflow
		m.open(ctx, wf)
	}
}

func (m *Manager) onAuthenticate(ctx context.Context, ev types.Event) {
	auth := ev.Authenticate
	if auth == nil {
		m.logger.Warn("authenticate event without payload", nil)
		return
	}
	m.metrics.IncCounter(metrics.AuthReceived, nil)
	m.logger.Info("session authenticate received", map[string]any{
		"id":     auth.ID,
		"domain": auth.Params.AuthPayload.Domain,
		"chains": auth.Params.AuthPayload.Chains,
	})

	m.open(ctx, Workflow{
		Kind:          router.WorkflowSessionAuthenticate,
		Topic:         auth.Topic,
		Auth:          auth,
		VerifyContext: auth.VerifyContext,
		ExpiresAt:     unixTime(auth.Params.ExpiryTimestamp),
	})
}

func (m *Manager) onDelete(ctx context.Context, ev types.Event) {
	if ev.Delete == nil {
		m.logger.Warn("delete event without payload", nil)
		return
	}
	topic := ev.Delete.Topic
	m.metrics.IncCounter(metrics.SessionDeleted, nil)

	dropped := m.pending.dropTopic(topic)
	m.limiter.Forget(topic)
	m.logger.Info("session deleted", map[string]any{
		"topic":             topic,
		"dropped_workflows": len(dropped),
	})
	if len(dropped) > 0 {
		m.logger.Warn("workflows dropped with deleted session", map[string]any{
			"topic":     topic,
			"workflows": dropped,
		})
	}

	if err := m.refreshSessions(ctx); err != nil {
		m.logger.Error("session refresh failed", map[string]any{"error": err})
	}
}

func (m *Manager) onPing(_ context.Context, ev types.Event) {
	m.metrics.IncCounter(metrics.SessionPing, nil)
	if ev.Ping != nil {
		m.logger.Debug("session ping", map[string]any{"topic": ev.Ping.Topic, "id": ev.Ping.ID})
	}
}

// open tracks wf and submits it. A failed submission cancels the workflow
// at once.
func (m *Manager) open(ctx context.Context, wf Workflow) {
	wf.ID = uuid.NewString()
	wf.CreatedAt = m.now()
	m.pending.add(wf)

	if err := m.runner.Submit(ctx, wf); err != nil {
		m.logger.Error("workflow submission failed", map[string]any{
			"workflow": wf.ID,
			"kind":     string(wf.Kind),
			"error":    err,
		})
		_ = m.Cancel(ctx, wf.ID)
		return
	}

	m.metrics.IncCounter(metrics.WorkflowSubmitted, map[string]string{"namespace": wf.namespace()})
	m.logger.Debug("workflow submitted", map[string]any{"workflow": wf.ID, "kind": string(wf.Kind)})
}

// Complete answers a workflow with the user's decision. Each workflow is
// answered once; later calls return ErrWorkflowNotFound.
func (m *Manager) Complete(ctx context.Context, id string, d Decision) error {
	wf, ok := m.pending.take(id)
	if !ok {
		return ErrWorkflowNotFound
	}
	m.metrics.IncCounter(metrics.WorkflowCompleted, map[string]string{"namespace": wf.namespace()})
	return m.answer(ctx, wf, d)
}

// Cancel rejects an abandoned workflow.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	wf, ok := m.pending.take(id)
	if !ok {
		return ErrWorkflowNotFound
	}
	m.metrics.IncCounter(metrics.WorkflowCancelled, map[string]string{"namespace": wf.namespace()})
	m.logger.Info("workflow cancelled", map[string]any{"workflow": id, "kind": string(wf.Kind)})
	return m.answer(ctx, wf, Reject())
}

// CancelAll rejects every open workflow.
func (m *Manager) CancelAll(ctx context.Context) error {
	var errs []error
	for _, id := range m.pending.ids() {
		if err := m.Cancel(ctx, id); err != nil && !errors.Is(err, ErrWorkflowNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Sweep cancels workflows whose protocol expiry has passed.
func (m *Manager) Sweep(ctx context.Context) int {
	n := 0
	for _, id := range m.pending.expired(m.now()) {
		if err := m.Cancel(ctx, id); err == nil {
			n++
		}
	}
	return n
}

func (m *Manager) answer(ctx context.Context, wf Workflow, d Decision) error {
	var err error
	switch wf.Kind {
	case router.WorkflowSessionProposal:
		err = m.answerProposal(ctx, wf, d)
	case router.WorkflowSessionAuthenticate:
		if d.Approve {
			err = m.responder.ApproveSessionAuthenticate(ctx, wf.Auth.ID, d.Result)
		} else {
			err = m.responder.RejectSessionAuthenticate(ctx, wf.Auth.ID, d.reason())
		}
	case router.WorkflowUnsupportedMethod:
		err = m.send(ctx, wf.Topic, router.UnsupportedResponse(wf.Request))
	default:
		err = m.send(ctx, wf.Topic, m.requestResponse(wf, d))
	}

	if err != nil {
		m.metrics.IncCounter(metrics.HandlerError, map[string]string{"namespace": wf.namespace()})
		m.logger.Error("failed to answer workflow", map[string]any{
			"workflow": wf.ID,
			"kind":     string(wf.Kind),
			"error":    err,
		})
	}
	return err
}

func (m *Manager) answerProposal(ctx context.Context, wf Workflow, d Decision) error {
	id := wf.Proposal.ID
	if !d.Approve {
		m.metrics.IncCounter(metrics.ProposalRejected, nil)
		return m.responder.RejectSession(ctx, id, d.reason())
	}

	if wf.NegotiationErr != nil {
		return m.rejectProposal(ctx, id, wf.NegotiationErr)
	}

	approved := wf.Negotiation.Approved
	if d.Namespaces != nil {
		if err := namespaces.CheckApproval(d.Namespaces, approved); err != nil {
			m.logger.Warn("approval outside negotiated namespaces", map[string]any{
				"id":    id,
				"error": err,
			})
			return m.rejectProposal(ctx, id, err)
		}
		approved = d.Namespaces
	}
	approved = approved.Clone()

	props, err := m.catalog.Load().SessionProperties(approved)
	if err != nil {
		return fmt.Errorf("failed to build session properties: %w", err)
	}
	if err := m.responder.ApproveSession(ctx, id, approved, props); err != nil {
		return err
	}
	return m.refreshSessions(ctx)
}

// rejectProposal sends the rejection mapped from cause and returns cause.
func (m *Manager) rejectProposal(ctx context.Context, id int64, cause error) error {
	m.metrics.IncCounter(metrics.ProposalRejected, nil)
	if err := m.responder.RejectSession(ctx, id, types.RejectionReason(cause)); err != nil {
		return err
	}
	return cause
}

func (m *Manager) requestResponse(wf Workflow, d Decision) types.JSONRPCResponse {
	req := wf.Request
	if !d.Approve {
		reason := d.reason()
		return types.FormatJSONRPCError(req.ID, reason.Code, reason.Message)
	}

	if m.verifySignatures {
		if err := router.VerifySignature(req, d.Result); err != nil {
			m.logger.Warn("signature verification failed", map[string]any{
				"id":     req.ID,
				"method": req.Method(),
				"error":  err,
			})
			rpcErr := router.ToRPCError(err)
			return types.FormatJSONRPCError(req.ID, rpcErr.Code, rpcErr.Message)
		}
	}
	return types.FormatJSONRPCResult(req.ID, d.Result)
}

func (m *Manager) send(ctx context.Context, topic string, resp types.JSONRPCResponse) error {
	if err := m.responder.RespondSessionRequest(ctx, topic, resp); err != nil {
		m.logger.Error("failed to respond", map[string]any{"topic": topic, "id": resp.ID, "error": err})
		return fmt.Errorf("failed to respond on %s: %w", topic, err)
	}
	return nil
}

func (m *Manager) lookupSession(ctx context.Context, topic string) *types.Session {
	if m.sessions == nil {
		return nil
	}
	s, ok := m.sessions.Get(ctx, topic)
	if !ok {
		return nil
	}
	return s
}

func (m *Manager) refreshSessions(ctx context.Context) error {
	if m.sessions == nil {
		return nil
	}
	if err := m.sessions.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to refresh sessions: %w", err)
	}
	return nil
}

func (wf Workflow) namespace() string {
	if wf.Request != nil {
		return wf.Request.Namespace()
	}
	return ""
}

func unixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
