package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"ocigenai-gateway/internal/config"
	"ocigenai-gateway/internal/constants"
	"ocigenai-gateway/internal/credential"
	"ocigenai-gateway/internal/gateway"
	"ocigenai-gateway/internal/logging"
	"ocigenai-gateway/internal/monitoring/tracing"
	srv "ocigenai-gateway/internal/server"
	"ocigenai-gateway/internal/stats"
	"ocigenai-gateway/internal/tasks"
	"ocigenai-gateway/internal/upstream"
	"ocigenai-gateway/internal/upstream/mock"
	"ocigenai-gateway/internal/upstream/oci"
)

func versionString() string {
	return constants.ServiceName + " " + constants.GetFullVersion()
}

func loadConfig(opts *rootOptions) (*config.Config, string, error) {
	cfg, path, err := config.Load(opts.configPath)
	if err != nil {
		return nil, path, fmt.Errorf("load config: %w", err)
	}
	if opts.debug {
		cfg.Logging.Debug = true
	}
	return cfg, path, nil
}

func runServe(parent context.Context, opts *rootOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, path, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if err := logging.Setup(cfg.Logging); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	log.WithFields(log.Fields{"version": versionString(), "config": path}).Info("starting gateway")

	traceShutdown, err := tracing.Init(parent)
	if err != nil {
		log.WithError(err).Warn("failed to initialize tracing")
	}
	if traceShutdown != nil {
		defer func() {
			if err := traceShutdown(context.Background()); err != nil {
				log.WithError(err).Warn("failed to shutdown tracing")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := buildCredentialProvider(cfg.Credential)
	if err != nil {
		return err
	}
	client := buildUpstreamClient(cfg)

	usage, err := stats.New(ctx, cfg.Stats)
	if err != nil {
		// Usage counters are operational data; run without them rather than refuse to start.
		log.WithError(err).Warn("usage stats backend unavailable, falling back to memory")
		usage = stats.NewRecorder(stats.NewMemoryBackend())
	}
	defer func() { _ = usage.Close() }()

	dispatcher := gateway.New(cfg, client, provider, usage)

	manager := config.NewManager(cfg, path)
	manager.OnChange(func(_, updated *config.Config) {
		dispatcher.Reconfigure(updated)
	})
	manager.Watch()
	defer manager.Close()

	jobs := tasks.NewManager(ctx)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := jobs.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("background tasks did not stop in time")
		}
	}()
	startBackgroundTasks(jobs, cfg, provider)

	engine := srv.BuildEngine(srv.Dependencies{
		Config:      manager,
		Dispatcher:  dispatcher,
		Credentials: provider,
		Usage:       usage,
		Tasks:       jobs,
	})
	httpSrv := srv.NewHTTPServer(cfg.Server, engine)
	return srv.Run(ctx, httpSrv, time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
}

// startBackgroundTasks refreshes the credential ahead of expiry so requests rarely
// wait on the identity provider. Acquire is a no-op while the cached token is usable.
func startBackgroundTasks(jobs *tasks.Manager, cfg *config.Config, provider *credential.Provider) {
	interval := cfg.Credential.KeepWarm()
	if interval <= 0 || cfg.Upstream.Mode == config.UpstreamModeMock {
		return
	}
	err := jobs.StartPeriodic("credential-keepwarm", "refresh the upstream credential ahead of expiry", interval,
		func(ctx context.Context) error {
			_, err := provider.Acquire(ctx)
			return err
		})
	if err != nil {
		log.WithError(err).Warn("failed to start credential keep-warm task")
	}
}

func buildCredentialProvider(cfg config.CredentialConfig) (*credential.Provider, error) {
	var src credential.Source
	switch cfg.Mode {
	case config.CredentialModeStatic:
		if cfg.StaticToken == "" {
			return nil, fmt.Errorf("credential.static_token is required in static mode")
		}
		src = credential.NewStaticSource(cfg.StaticToken)
	case config.CredentialModeWorkloadIdentity, "":
		src = credential.NewWorkloadIdentitySource(credential.WorkloadIdentityConfig{
			TokenEndpoint:    cfg.TokenEndpoint,
			SubjectTokenFile: cfg.SubjectTokenFile,
			FallbackTTL:      cfg.FallbackTTL(),
		})
	default:
		return nil, fmt.Errorf("unsupported credential mode %q", cfg.Mode)
	}
	log.WithField("source", src.Name()).Info("credential source configured")
	return credential.NewProvider(src, credential.Options{
		SafetyMargin:   cfg.SafetyMargin(),
		AcquireTimeout: cfg.AcquireTimeout(),
	}), nil
}

func buildUpstreamClient(cfg *config.Config) upstream.Client {
	if cfg.Upstream.Mode == config.UpstreamModeMock {
		log.Warn("upstream mode is mock: requests are answered locally")
		return mock.New()
	}
	endpoint := cfg.OCI.ChatEndpoint()
	log.WithField("endpoint", endpoint).Info("oci upstream configured")
	return oci.New(endpoint, cfg.Upstream)
}
