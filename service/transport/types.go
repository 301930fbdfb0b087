package transport

// Wire types for the workflow API under /api/v1.  Field names follow the
// server's snake_case JSON contract.

// ResearchFindings is the structured output of the research stage.
type ResearchFindings struct {
	Facts             []string `json:"facts,omitempty"`
	LegalProvisions   []string `json:"legal_provisions,omitempty"`
	MeritsScore       float64  `json:"merits_score,omitempty"`
	Reasoning         string   `json:"reasoning,omitempty"`
	JurisdictionNotes string   `json:"jurisdiction_notes,omitempty"`
}

// AgentTrace is one reasoning-trace entry emitted by a server-side agent.
type AgentTrace struct {
	Agent     string `json:"agent"`
	Action    string `json:"action"`
	Details   string `json:"details"`
	Timestamp string `json:"timestamp,omitempty"`
}

// StartRequest creates a new workflow session from raw grievance text.
// IsApproved is false on a restart after research rejection, signalling the
// server to regenerate research from scratch.
type StartRequest struct {
	Grievance  string `json:"grievance"`
	Domain     string `json:"domain,omitempty"`
	IsApproved *bool  `json:"is_approved,omitempty"`
}

// StartResponse carries the research-stage output awaiting human review.
type StartResponse struct {
	SessionID        string            `json:"session_id"`
	Stage            string            `json:"stage"`
	ResearchFindings *ResearchFindings `json:"research_findings"`
	AgentTraces      []AgentTrace      `json:"agent_traces,omitempty"`
	Message          string            `json:"message,omitempty"`
}

// AdvanceRequest submits human-approved (possibly edited) research and moves
// the session to the drafting stage.
type AdvanceRequest struct {
	SessionID        string            `json:"session_id"`
	ApprovedResearch *ResearchFindings `json:"approved_research"`
	IsApproved       bool              `json:"is_approved"`
}

// RefineRequest asks the server to revise the current draft using the
// supplied human feedback, within the session's iteration budget.
type RefineRequest struct {
	SessionID string `json:"session_id"`
	Feedback  string `json:"feedback"`
}

// DraftResponse carries a draft (initial or refined) together with the
// server-tracked iteration counter.  remaining_iterations is always
// max_iterations - iteration and never increases within a session.
type DraftResponse struct {
	SessionID           string       `json:"session_id"`
	Stage               string       `json:"stage"`
	Draft               string       `json:"draft"`
	Iteration           int          `json:"iteration"`
	MaxIterations       int          `json:"max_iterations"`
	RemainingIterations int          `json:"remaining_iterations"`
	AgentTraces         []AgentTrace `json:"agent_traces,omitempty"`
	Message             string       `json:"message,omitempty"`
}

// FinalizeRequest closes the session with human approval.
type FinalizeRequest struct {
	SessionID string `json:"session_id"`
}

// FinalizeResponse carries the finished artifact.
type FinalizeResponse struct {
	SessionID     string `json:"session_id"`
	FinalDocument string `json:"final_document"`
	Iterations    int    `json:"iterations"`
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp,omitempty"`
}

// StatusResponse reports the server-side view of a session.
type StatusResponse struct {
	SessionID string     `json:"session_id"`
	Stage     string     `json:"stage"`
	Data      StatusData `json:"data"`
}

// StatusData carries session timestamps.
type StatusData struct {
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status  string   `json:"status"`
	Service string   `json:"service"`
	Version string   `json:"version"`
	Agents  []string `json:"agents,omitempty"`
}

// errorBody is the server's failure convention.
type errorBody struct {
	Detail string `json:"detail"`
}
