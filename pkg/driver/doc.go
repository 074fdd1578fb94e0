// Package driver controls the lifecycle of a locally run background service.
//
// A Driver wraps a Service (a mock HTTP server, an embedded database, ...)
// and enforces three rules:
//
//   - only one instance of the service runs at a time; Start on a running
//     driver returns an *AlreadyRunningError and changes nothing;
//   - a running service is stopped automatically once its time-to-stop
//     (TTS) window elapses, unless RenewTTS is called first; the expiry is
//     reported as a *TTSExceededError through the handler installed with
//     WithExpiryHandler, because nobody is waiting on a call at that point;
//   - the first successful Start registers a teardown hook with the
//     injected shutdown.Registrar, so the service is stopped when the
//     process exits.
//
// Stop distinguishes a real stop from a call on an already stopped driver
// through its StopResult; the latter is not an error.
//
// # Usage
//
//	d := driver.New(svc,
//	    driver.WithPort(8878),
//	    driver.WithTTS(10*time.Minute),
//	    driver.WithRegistrar(hooks),
//	    driver.WithExpiryHandler(func(err error) { logger.Warn("expired", log.Err(err)) }),
//	)
//	if err := d.Start(ctx); err != nil {
//	    return err
//	}
//	defer d.Stop(context.Background())
//
// All operations on a Driver are serialized by the driver itself.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package driver
