// Package lexflow provides a client-side engine for multi-stage,
// human-in-the-loop AI document-generation workflows.
//
// The engine walks a fixed pipeline of server-backed stages (research,
// drafting, finalisation), pausing at designated checkpoints until a human
// approves or rejects the stage output, and keeps a UI-facing projection of
// per-stage state consistent throughout.
//
// End-users typically interact with the engine via the high-level Service
// façade exposed by the root package:
//
//	srv, _ := lexflow.New(lexflow.WithBaseURL("http://localhost:8000"))
//	flow := srv.NewRun()
//	go func() {
//		decision, _ := flow.Gate().Await(ctx, "research")
//		_ = decision
//	}()
//	document, _ := flow.Run(ctx, "water supply disrupted for three weeks")
//
// For more details see the README and individual sub-packages.
package lexflow
