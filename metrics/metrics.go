package metrics

import "time"

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// Counter and latency names emitted by the module.
const (
	ProposalReceived     = "proposal_received"
	ProposalApprovable   = "proposal_approvable"
	ProposalRejected     = "proposal_rejected"
	OptionalDropped      = "optional_namespace_dropped"
	RequestRouted        = "request_routed"
	RequestUnsupported   = "request_unsupported"
	RequestAutoResponded = "request_auto_responded"
	RequestRateLimited   = "request_rate_limited"
	HandlerError         = "handler_error"
	WorkflowSubmitted    = "workflow_submitted"
	WorkflowCompleted    = "workflow_completed"
	WorkflowCancelled    = "workflow_cancelled"
	AuthReceived         = "authenticate_received"
	SessionDeleted       = "session_deleted"
	SessionPing          = "session_ping"

	OpNegotiate = "negotiate"
	OpRespond   = "respond"
)

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
