package policy

import (
	"context"
	"strings"
)

// Approval modes recognised by the orchestrator.
const (
	ModeAsk  = "ask"  // ask a human at every gated stage (default)
	ModeAuto = "auto" // approve gated stages automatically
	ModeDeny = "deny" // reject gated stages, halting the run
)

// AskFunc is invoked for a gated stage when Mode==ask.  Returning true
// approves the stage output, false rejects it; the second return value
// carries reviewer feedback attached to a rejection.  Implementations MAY
// mutate the policy (for example switching to ModeAuto after the first
// approval).
type AskFunc func(
	ctx context.Context,
	stageID string,
	output string, // stage output presented for review – may be empty
	p *Policy,
) (bool, string)

// Policy represents the approval settings for the current workflow run.
//
//   - Mode controls the high-level behaviour (ask / auto / deny).
//   - AllowList, BlockList allow coarse stage filtering regardless of Mode.
//   - Ask is only used when Mode==ask.
//
// A nil *Policy means "ask a human at every gated stage" and is therefore
// the interactive default.
type Policy struct {
	Mode      string   // ask / auto / deny      (default = ask)
	AllowList []string // whitelist (empty => all stages)
	BlockList []string // blacklist
	Ask       AskFunc  // used only when Mode==ask
}

// Auto returns a policy that approves every gated stage without asking.
func Auto() *Policy {
	return &Policy{Mode: ModeAuto}
}

// Config represents the declarative, serialisable part of a Policy (a Policy
// with an AskFunc cannot be persisted).
type Config struct {
	Mode      string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	AllowList []string `json:"allow,omitempty" yaml:"allow,omitempty"`
	BlockList []string `json:"block,omitempty" yaml:"block,omitempty"`
}

// ToConfig converts a runtime Policy into a persistable Config.
func ToConfig(p *Policy) *Config {
	if p == nil {
		return nil
	}
	return &Config{
		Mode:      p.Mode,
		AllowList: append([]string(nil), p.AllowList...),
		BlockList: append([]string(nil), p.BlockList...),
	}
}

// FromConfig converts a stored Config back to a runtime Policy (without
// AskFunc).
func FromConfig(c *Config) *Policy {
	if c == nil {
		return nil
	}
	return &Policy{
		Mode:      c.Mode,
		AllowList: append([]string(nil), c.AllowList...),
		BlockList: append([]string(nil), c.BlockList...),
	}
}

// IsAllowed evaluates AllowList / BlockList.  Both lists match by exact,
// case-insensitive comparison of the stage identifier.
func (p *Policy) IsAllowed(stageID string) bool {
	if p == nil {
		return true
	}

	normalized := strings.ToLower(stageID)

	// BlockList has priority.
	for _, b := range p.BlockList {
		if normalized == strings.ToLower(b) {
			return false
		}
	}

	// AllowList – if empty everything is allowed, otherwise only the listed
	// entries.
	if len(p.AllowList) == 0 {
		return true
	}

	for _, a := range p.AllowList {
		if normalized == strings.ToLower(a) {
			return true
		}
	}

	return false
}

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds policy in ctx.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts the policy from ctx, or nil when none is attached.
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}
