// Command openshelfd runs the openshelf access core as a standalone dev
// daemon: it resolves an identity from a token file, loads memberships from a
// seed file, and exposes the session and tenant state plus metrics. It is also
// the composition root: every component is constructed here, once, and handed
// to its consumers explicitly.
package main

import (
	"context"
	nethttp "net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/openshelf/openshelf"
	"github.com/openshelf/openshelf/bolt"
	"github.com/openshelf/openshelf/identity"
	"github.com/openshelf/openshelf/inmem"
	"github.com/openshelf/openshelf/kv"
	"github.com/openshelf/openshelf/local"
	"github.com/openshelf/openshelf/logger"
	"github.com/openshelf/openshelf/pubsub"
	"github.com/openshelf/openshelf/session"
	"github.com/openshelf/openshelf/tenant"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	boltPath            string
	tokenPath           string
	signingKey          string
	membershipsPath     string
	metricsBindAddress  string
	logLevel            string
	inactivityThreshold time.Duration
	monitorInterval     time.Duration
)

func init() {
	viper.SetEnvPrefix("OPENSHELF")

	rootCmd.Flags().StringVar(&boltPath, "bolt-path", "openshelf.bolt", "path to the local state boltdb file")
	viper.BindEnv("BOLT_PATH")
	if v := viper.GetString("BOLT_PATH"); v != "" {
		boltPath = v
	}

	rootCmd.Flags().StringVar(&tokenPath, "token-path", "", "path to the identity token file")
	viper.BindEnv("TOKEN_PATH")
	if v := viper.GetString("TOKEN_PATH"); v != "" {
		tokenPath = v
	}

	rootCmd.Flags().StringVar(&signingKey, "signing-key", "", "shared secret for verifying identity tokens")
	viper.BindEnv("SIGNING_KEY")
	if v := viper.GetString("SIGNING_KEY"); v != "" {
		signingKey = v
	}

	rootCmd.Flags().StringVar(&membershipsPath, "memberships-path", "memberships.toml", "path to the membership seed file")
	viper.BindEnv("MEMBERSHIPS_PATH")
	if v := viper.GetString("MEMBERSHIPS_PATH"); v != "" {
		membershipsPath = v
	}

	rootCmd.Flags().StringVar(&metricsBindAddress, "metrics-bind-address", ":9090", "bind address for the metrics endpoint")
	viper.BindEnv("METRICS_BIND_ADDRESS")
	if v := viper.GetString("METRICS_BIND_ADDRESS"); v != "" {
		metricsBindAddress = v
	}

	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	viper.BindEnv("LOG_LEVEL")
	if v := viper.GetString("LOG_LEVEL"); v != "" {
		logLevel = v
	}

	rootCmd.Flags().DurationVar(&inactivityThreshold, "inactivity-threshold", session.DefaultInactivityThreshold, "idle time before the session is forced out")
	rootCmd.Flags().DurationVar(&monitorInterval, "monitor-interval", session.DefaultMonitorInterval, "how often the inactivity monitor checks")
}

var rootCmd = &cobra.Command{
	Use:   "openshelfd",
	Short: "openshelf multi-tenant access core",
	RunE:  run,
}

func run(cmd *cobra.Command, args []string) error {
	logConf := logger.NewConfig()
	if err := logConf.Level.Set(strings.ToLower(logLevel)); err != nil {
		logConf.Level = zapcore.InfoLevel
	}
	log := logConf.New(os.Stdout)
	defer log.Sync()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	// local persistence
	var store kv.Store
	closeStore := func() error { return nil }
	boltStore := bolt.NewKVStore(log.With(zap.String("service", "bolt")), boltPath)
	if err := boltStore.Open(); err != nil {
		log.Error("failed to open local state store, continuing in memory", zap.Error(err))
		store = inmem.NewKVStore()
	} else {
		closeStore = boltStore.Close
		store = boltStore
	}
	localStore := local.NewStore(log.With(zap.String("service", "local")), store)

	bus := pubsub.NewBus()
	defer bus.Close()
	logEvents(log, bus)

	// identity
	parser := identity.NewTokenParser(identity.KeyStoreFunc(func(string) ([]byte, error) {
		if signingKey == "" {
			return nil, identity.ErrKeyNotFound
		}
		return []byte(signingKey), nil
	}))
	var provider openshelf.IdentityProvider = identity.NewTokenProvider(parser, fileTokenSource(tokenPath))
	provider = identity.NewProviderMetrics(reg, provider)

	cfg := session.NewConfig()
	cfg.InactivityThreshold = inactivityThreshold
	cfg.MonitorInterval = monitorInterval
	sessions := session.NewService(log.With(zap.String("service", "session")), provider, localStore, bus, cfg)
	defer sessions.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// phase one: resolve identity
	if err := sessions.Initialize(ctx); err != nil {
		log.Error("identity could not be resolved", zap.Error(err))
		return err
	}

	// phase two: fetch memberships and restore the tenant selection
	if sess := sessions.CurrentSession(); sess != nil {
		directory, err := loadDirectory(membershipsPath)
		if err != nil {
			return err
		}
		var dir openshelf.TenantDirectory = directory
		dir = tenant.NewDirectoryLogger(log.With(zap.String("service", "directory")), dir)
		dir = tenant.NewDirectoryMetrics(reg, dir)

		contexts := tenant.NewContextStore(
			log.With(zap.String("service", "tenant")),
			dir,
			tenant.NewValidator(dir),
			localStore,
			bus,
			sess.UserID,
		)
		if err := contexts.RefreshAvailableTenants(ctx); err != nil {
			log.Error("membership fetch failed", zap.Error(err))
		}

		for _, m := range contexts.Available() {
			log.Info("library available",
				zap.String("tenant", m.TenantID.String()),
				zap.String("name", m.TenantName),
				zap.String("role", string(m.Role)))
		}
		if tc := contexts.Current(); tc != nil {
			log.Info("acting as",
				zap.String("tenant", tc.TenantID.String()),
				zap.String("role", string(tc.Role)))
		}
	}

	srv := &nethttp.Server{
		Addr:    metricsBindAddress,
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	go func() {
		log.Info("metrics listening", zap.String("addr", metricsBindAddress))
		if err := srv.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("shutting down")

	// quiesce the monitor before the store goes away
	sessions.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return multierr.Combine(srv.Shutdown(shutdownCtx), closeStore())
}

// fileTokenSource reads the identity token from a file on every call, so
// rotating the file refreshes the session. An absent path means signed out.
func fileTokenSource(path string) identity.TokenSource {
	return func(ctx context.Context) (string, error) {
		if path == "" {
			return "", nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return "", nil
			}
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}
}

// logEvents subscribes a logger to every bus channel so state transitions are
// visible in the daemon output.
func logEvents(log *zap.Logger, bus *pubsub.Bus) {
	bus.Subscribe(openshelf.EventSessionEnded, func(e openshelf.Event) {
		log.Info("event", zap.String("type", string(e.Type())))
	})
	bus.Subscribe(openshelf.EventSessionRefreshed, func(e openshelf.Event) {
		log.Info("event", zap.String("type", string(e.Type())))
	})
	bus.Subscribe(openshelf.EventSessionTimeout, func(e openshelf.Event) {
		log.Info("event", zap.String("type", string(e.Type())))
	})
	bus.Subscribe(openshelf.EventTenantChanged, func(e openshelf.Event) {
		log.Info("event", zap.String("type", string(e.Type())))
	})
	bus.Subscribe(openshelf.EventPreferencesChanged, func(e openshelf.Event) {
		log.Info("event", zap.String("type", string(e.Type())))
	})
}
