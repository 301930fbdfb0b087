package approval

import (
	"context"
)

// DecisionFunc decides what to do with a pending review.
// Return (true,  "") to approve
//
//	(false, "…") to reject with feedback.
type DecisionFunc func(stageID string) (approved bool, feedback string)

// AutoDecider starts a goroutine that consumes gate events and applies fn to
// every pending review.  It returns stop() – call it (or cancel ctx) to exit.
func AutoDecider(ctx context.Context, gate *Gate, fn DecisionFunc) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		for {
			msg, err := gate.Queue().Consume(ctx)
			if err != nil {
				return
			}
			event := msg.T()
			_ = msg.Ack()
			if event.Topic != TopicAwaitCreated {
				continue
			}
			approved, feedback := fn(event.StageID)
			gate.Resolve(event.StageID, approved, feedback)
		}
	}()
	return cancel
}

// AutoApprove automatically approves every pending review.
func AutoApprove(ctx context.Context, gate *Gate) func() {
	return AutoDecider(ctx, gate, func(string) (bool, string) { return true, "" })
}

// AutoReject automatically rejects every pending review with the given
// feedback.
func AutoReject(ctx context.Context, gate *Gate, feedback string) func() {
	return AutoDecider(ctx, gate, func(string) (bool, string) { return false, feedback })
}
