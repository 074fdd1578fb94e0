// Package shutdown runs cleanup hooks when the hosting process exits.
//
// Drivers depend on the Registrar interface only, so tests can inject a
// recorder instead of touching real process-exit machinery. Hooks is the
// implementation used by the CLI: it runs each hook once, synchronously and
// in reverse registration order.
//
//	hooks := shutdown.NewHooks(logger)
//	defer hooks.Run()
//
//	go func() {
//	    hooks.RunOnSignal(ctx, os.Interrupt, syscall.SIGTERM)
//	}()
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package shutdown
