package main

import (
	"context"

	"github.com/bft-labs/localdriver/internal/cliconfig"
	"github.com/bft-labs/localdriver/pkg/driver"
	"github.com/bft-labs/localdriver/pkg/log"
)

// reloader applies config file changes to a running driver. Each reload
// starts again from base, the defaults with command line flags applied, so
// keys removed from the file fall back to their defaults and flags keep
// precedence over the file.
type reloader struct {
	driver  *driver.Driver
	base    cliconfig.Config
	cfg     cliconfig.Config
	path    string
	changed map[string]bool
	// abort ends the process when the driver is left without a service.
	abort  func()
	logger log.Logger
}

func (r *reloader) reload(ctx context.Context) {
	next := r.base
	if err := loadConfig(&next, r.path, r.changed); err != nil {
		r.logger.Error("config reload failed", log.Err(err))
		return
	}

	if next.TTS != r.cfg.TTS {
		if err := r.driver.SetTTS(next.TTS); err != nil {
			r.logger.Error("apply tts", log.Err(err))
			return
		}
		r.cfg.TTS = next.TTS
	}

	if next.Port != r.cfg.Port {
		if err := r.movePort(ctx, r.cfg.Port, next.Port); err != nil {
			r.logger.Error("apply port", log.Err(err))
			return
		}
	} else if r.driver.Running() {
		if err := r.driver.RenewTTS(); err != nil {
			r.logger.Warn("renew tts", log.Err(err))
		}
	}

	r.cfg = next
	r.logger.Info("config reloaded",
		log.Int("port", next.Port),
		log.Duration("tts", next.TTS),
	)
}

// movePort restarts the driver on port; the port cannot change while
// running. If the service cannot start there, the driver goes back to old;
// if that fails too, the process is aborted.
func (r *reloader) movePort(ctx context.Context, old, port int) error {
	wasRunning := r.driver.Running()
	if _, err := r.driver.Stop(ctx); err != nil {
		r.fail(err)
		return err
	}
	if err := r.driver.SetPort(port); err != nil {
		return err
	}
	if !wasRunning {
		return nil
	}

	err := r.driver.Start(ctx)
	if err == nil {
		return nil
	}
	r.logger.Error("start on new port failed, reverting",
		log.Int("port", port),
		log.Int("previous", old),
		log.Err(err),
	)
	if serr := r.driver.SetPort(old); serr == nil {
		if serr = r.driver.Start(ctx); serr == nil {
			return err
		}
		err = serr
	}
	r.fail(err)
	return err
}

func (r *reloader) fail(err error) {
	r.logger.Error("driver has no running service, exiting", log.Err(err))
	if r.abort != nil {
		r.abort()
	}
}
