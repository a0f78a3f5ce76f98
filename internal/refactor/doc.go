// Package refactor drives a refactoring from validation to applied
// edits, enforcing the consent and staleness rules between.
//
// # Flow
//
// One invocation walks a fixed sequence:
//
//   - Validate: request the refactoring with validateOnly=true. Any
//     FATAL problem stops the flow; the first one (in initial, options,
//     final order) is shown.
//   - Collect options: the kind's registered Resolver turns the
//     server's feedback plus user prompts into an options payload. A
//     missing resolver or a cancelled prompt aborts silently.
//   - Request the edit: validateOnly=false with the options attached.
//   - Consent: edit-stage FATALs abort with every deduplicated message
//     shown at once; ERROR and WARNING problems are shown with a single
//     "Refactor Anyway" choice the user must pick to continue.
//   - Staleness gate: the document version captured before the first
//     request is compared exactly once, here. A mismatch aborts with a
//     fixed message even after consent.
//   - Apply: the edit-set goes to the Applier exactly once.
//
// # Silence Is Deliberate
//
// Several aborts show nothing: no resolver, cancelled prompt, missing
// or empty edit-set. Callers distinguish them by Outcome; the user sees
// a message only when the server reported problems or the document went
// stale.
//
// # Quick Start
//
//	reg := refactor.DefaultRegistry(interactor)
//	o := refactor.NewOrchestrator(edits, reg, applier, interactor)
//
//	outcome, err := o.Perform(ctx, refactor.Request{
//	    Document: doc,
//	    Range:    refactor.Range{Offset: 120, Length: 45},
//	    Kind:     analysis.KindExtractMethod,
//	})
//
// # Thread Safety
//
// Registry is safe for concurrent use. Orchestrator holds no
// per-invocation state, so concurrent Perform calls are independent;
// whether the injected collaborators allow concurrency is theirs to
// decide.
package refactor
