// Package localdriver runs local services (mock servers, embedded databases)
// under a lifecycle controller that enforces a single running instance,
// stops idle services after a time-to-stop window and cleans up at exit.
//
// Example usage:
//
//	hooks := shutdown.NewHooks(nil)
//	defer hooks.Run()
//
//	d, err := localdriver.New(svc,
//	    localdriver.WithPort(8878),
//	    localdriver.WithRegistrar(hooks),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := d.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
package localdriver

import (
	"fmt"

	"github.com/bft-labs/localdriver/pkg/collection"
	"github.com/bft-labs/localdriver/pkg/driver"
	"github.com/bft-labs/localdriver/pkg/lifecycle"
	"github.com/bft-labs/localdriver/pkg/log"
	"github.com/bft-labs/localdriver/pkg/shutdown"
)

type (
	// Driver controls one Service.
	Driver = driver.Driver

	// Service is implemented by the concrete local service.
	Service = driver.Service

	// Option configures a Driver.
	Option = driver.Option

	// Snapshot is a point-in-time view of a Driver.
	Snapshot = driver.Snapshot

	// StopResult tells a real stop apart from a stop on a stopped driver.
	StopResult = driver.StopResult

	// AlreadyRunningError is returned by Start on a running driver.
	AlreadyRunningError = driver.AlreadyRunningError

	// TTSExceededError is delivered when the TTS timer stops a driver.
	TTSExceededError = driver.TTSExceededError

	// State is a driver lifecycle state.
	State = lifecycle.State
)

// Defaults re-exported from pkg/driver.
const (
	DefaultPort = driver.DefaultPort
	DefaultTTS  = driver.DefaultTTS
)

// Option constructors re-exported from pkg/driver.
var (
	WithPort          = driver.WithPort
	WithTTS           = driver.WithTTS
	WithLogger        = driver.WithLogger
	WithRegistrar     = driver.WithRegistrar
	WithEventEmitter  = driver.WithEventEmitter
	WithExpiryHandler = driver.WithExpiryHandler
)

// New creates a stopped Driver for svc after checking that the bundled
// modules are compatible with each other.
func New(svc Service, opts ...Option) (*Driver, error) {
	if svc == nil {
		return nil, fmt.Errorf("localdriver: service is required")
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}
	return driver.New(svc, opts...), nil
}

// validateModuleVersions checks that all module versions are compatible.
// Returns an error if any module version is below its minimum compatible version.
func validateModuleVersions() error {
	modules := map[string]struct {
		version    string
		minVersion string
	}{
		"driver":     {driver.Version, driver.MinCompatibleVersion},
		"lifecycle":  {lifecycle.Version, lifecycle.MinCompatibleVersion},
		"shutdown":   {shutdown.Version, shutdown.MinCompatibleVersion},
		"collection": {collection.Version, collection.MinCompatibleVersion},
		"log":        {log.Version, log.MinCompatibleVersion},
	}

	for name, m := range modules {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}

	return nil
}

// isVersionCompatible checks if version >= minVersion.
// Assumes versions are in format "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
