// Package app wires the stores and services used by CLI commands.
package app

import (
	"errors"
	"fmt"

	"nathanbeddoewebdev/promptsync/internal/cloud"
	"nathanbeddoewebdev/promptsync/internal/config"
	"nathanbeddoewebdev/promptsync/internal/history"
	"nathanbeddoewebdev/promptsync/internal/logging"
	"nathanbeddoewebdev/promptsync/internal/services/auth"
	"nathanbeddoewebdev/promptsync/internal/services/recorder"
	"nathanbeddoewebdev/promptsync/internal/services/syncer"
	"nathanbeddoewebdev/promptsync/internal/synclog"
	"nathanbeddoewebdev/promptsync/internal/syncstate"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Options tune how the container is built.
type Options struct {
	// LogLevel overrides the configured level when non-empty.
	LogLevel string

	// AuthStore defaults to the OS keychain.
	AuthStore auth.Store

	// Registerer receives sync metrics when non-nil.
	Registerer prometheus.Registerer
}

// Container holds the dependency graph for one CLI invocation.
type Container struct {
	Config   *config.Config
	DeviceID string
	Log      *zap.Logger
	Auth     auth.Store

	History   *history.SQLiteRepository
	SyncLog   *synclog.SQLiteRepository
	SyncState *syncstate.SQLiteRepository

	Cloud    cloud.Store
	Syncer   *syncer.Service
	Recorder *recorder.Service
}

// Build constructs the container. Callers must Close it.
func Build(opts Options) (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	log, err := logging.New(level)
	if err != nil {
		return nil, err
	}

	deviceID, err := config.EnsureDeviceID()
	if err != nil {
		return nil, err
	}

	authStore := opts.AuthStore
	if authStore == nil {
		authStore = auth.DefaultStore()
	}

	c := &Container{
		Config:   cfg,
		DeviceID: deviceID,
		Log:      log,
		Auth:     authStore,
	}

	if c.History, err = history.Open(); err != nil {
		return nil, c.closeOnError(err)
	}
	if c.SyncLog, err = synclog.Open(); err != nil {
		return nil, c.closeOnError(err)
	}
	if c.SyncState, err = syncstate.Open(); err != nil {
		return nil, c.closeOnError(err)
	}

	c.Cloud = cloud.NewLazy(func() (cloud.Store, error) {
		current := c.currentConfig()
		return cloud.Open(current.CloudProvider, current.CloudEndpoint, authStore)
	})

	syncOpts := []syncer.Option{
		syncer.WithAuthenticated(func() bool { return auth.IsAuthenticated(authStore, auth.CloudTokenKey) }),
		syncer.WithSyncEnabled(func() bool {
			current := c.currentConfig()
			return current.CloudSync && cloud.Configured(current.CloudProvider)
		}),
		syncer.WithLogger(log.Named("sync")),
		syncer.WithAttemptLog(c.SyncLog),
		syncer.WithCursorStore(c.SyncState),
	}
	if opts.Registerer != nil {
		syncOpts = append(syncOpts, syncer.WithMetrics(syncer.NewMetrics(opts.Registerer)))
	}
	c.Syncer = syncer.New(c.History, c.Cloud, syncOpts...)
	c.Recorder = recorder.New(c.History, c.Syncer, deviceID, recorder.WithLogger(log.Named("recorder")))

	return c, nil
}

// currentConfig re-reads the config so long-running commands observe
// changes made by other invocations. It falls back to the startup config.
func (c *Container) currentConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		c.Log.Debug("config reload failed", zap.Error(err))
		return c.Config
	}
	return cfg
}

// Close releases every store.
func (c *Container) Close() error {
	var errs []error
	if c.History != nil {
		errs = append(errs, c.History.Close())
	}
	if c.SyncLog != nil {
		errs = append(errs, c.SyncLog.Close())
	}
	if c.SyncState != nil {
		errs = append(errs, c.SyncState.Close())
	}
	if c.Log != nil {
		_ = c.Log.Sync()
	}
	return errors.Join(errs...)
}

func (c *Container) closeOnError(err error) error {
	if closeErr := c.Close(); closeErr != nil {
		return fmt.Errorf("%w (cleanup: %v)", err, closeErr)
	}
	return err
}
