// Package analysis provides the client for the language-analysis server
// that backs refract's refactorings.
//
// The analysis server is a separate process speaking line-delimited JSON
// over stdio: every message is a single JSON object terminated by a
// newline. Client requests carry string IDs and a clientRequestTime
// stamp; server notifications carry an "event" key instead of an ID.
//
// # Architecture
//
// The package is organized around these core components:
//
//   - Transport: line-delimited JSON protocol with request correlation
//   - Server: single server process lifecycle and handshake
//   - Supervisor: crash recovery with exponential backoff
//   - EditService: the edit.* request domain (refactorings)
//
// # Quick Start
//
// Start a server and request a refactoring validation:
//
//	cfg := analysis.DefaultServerConfig()
//	cfg.Command = "dart_analysis_server"
//	srv := analysis.NewServer(cfg)
//
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Shutdown(ctx)
//
//	edits := analysis.NewEditService(srv)
//	resp, err := edits.GetRefactoring(ctx, analysis.KindExtractMethod,
//	    "/src/lib/main.dart", 120, 45, true, nil)
//
// # Handshake
//
// The server speaks first: nothing may be sent until its
// server.connected event arrives. Start blocks on that event (bounded by
// StartTimeout) before subscribing to status updates and reporting
// Ready.
//
// # Problems Are Data
//
// Refactoring problems (INFO/WARNING/ERROR/FATAL) are returned inside a
// successful RefactorResponse, not as errors. Only transport, lifecycle,
// and server-reported request failures surface as Go errors.
//
// # Thread Safety
//
// Transport, Server, and Supervisor are safe for concurrent use.
package analysis
