package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/sajjad-MoBe/NumAPI/internal/api"
	"github.com/sajjad-MoBe/NumAPI/internal/app"
	"github.com/sajjad-MoBe/NumAPI/internal/compute"
	"github.com/sajjad-MoBe/NumAPI/internal/config"
	"github.com/sajjad-MoBe/NumAPI/internal/grpcPack"
	"github.com/sajjad-MoBe/NumAPI/internal/shared"
)

func newServeCmd() *cobra.Command {
	v := config.NewViper()
	var configPath string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the NumAPI server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configPath)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), v, cfg, configPath != "")
		},
	}

	d := config.DefaultConfig()
	flags := serveCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to a yaml, toml or json config file")
	flags.StringP("address", "a", d.Address, "Address for the HTTP server to listen on")
	flags.String("grpc-address", d.GRPCAddress, "Address for the gRPC server; empty disables it")
	flags.String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")
	flags.String("log-format", d.LogFormat, "Log format (json, text)")
	flags.Int64("max-factorial-n", d.MaxFactorialN, "Largest n accepted by /factorial; 0 disables the cap")
	flags.Int64("max-fibonacci-n", d.MaxFibonacciN, "Largest n accepted by /fibonacci; 0 disables the cap")
	flags.Int("chunk-size", d.ChunkSize, "Request body chunk size in bytes")
	flags.String("tracing-endpoint", d.TracingEndpoint, "Jaeger collector endpoint; empty disables export")
	flags.String("service-name", d.ServiceName, "Service name reported in traces")
	flags.Duration("shutdown-timeout", d.ShutdownTimeout, "Grace period for in-flight requests on shutdown")

	bindings := map[string]string{
		config.KeyAddress:         "address",
		config.KeyGRPCAddress:     "grpc-address",
		config.KeyLogLevel:        "log-level",
		config.KeyLogFormat:       "log-format",
		config.KeyMaxFactorialN:   "max-factorial-n",
		config.KeyMaxFibonacciN:   "max-fibonacci-n",
		config.KeyChunkSize:       "chunk-size",
		config.KeyTracingEndpoint: "tracing-endpoint",
		config.KeyServiceName:     "service-name",
		config.KeyShutdownTimeout: "shutdown-timeout",
	}
	for key, name := range bindings {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}

	return serveCmd
}

func runServe(ctx context.Context, v *viper.Viper, cfg *config.Config, watch bool) error {
	level, err := shared.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := shared.NewLogger(os.Stdout, shared.LogFormat(cfg.LogFormat), level)
	if watch {
		config.WatchLogLevel(v, logger)
	}

	tracer, err := api.NewTracer(cfg.ServiceName, cfg.TracingEndpoint)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	cache := compute.DefaultFibonacciCache
	handler := app.NewHandler(
		app.WithLimits(app.Limits{MaxFactorialN: cfg.MaxFactorialN, MaxFibonacciN: cfg.MaxFibonacciN}),
		app.WithCache(cache),
		app.WithLogger(logger),
		app.WithTracer(tracer.Tracer()),
	)

	health := api.NewHealthManager()
	health.RegisterChecker("fibonacci_cache", api.NewCacheHealthChecker(cache))
	health.RegisterChecker("handler", api.NewHandlerHealthChecker(handler))

	router := api.Router(api.RouterConfig{
		App:       handler,
		ChunkSize: cfg.ChunkSize,
		Logger:    logger,
		Metrics:   api.NewMetrics(registry, cache),
		Gatherer:  registry,
		Tracer:    tracer,
		Health:    health,
	})
	httpServer := api.NewServer(cfg.Address, router, logger)

	var (
		grpcServer *grpc.Server
		grpcLis    net.Listener
	)
	if cfg.GRPCAddress != "" {
		grpcLis, err = net.Listen("tcp", cfg.GRPCAddress)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddress, err)
		}
		grpcServer = grpcPack.NewGRPCServer(grpcPack.NewServer(handler, cfg.ChunkSize, logger), logger)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httpServer.Start)
	if grpcServer != nil {
		g.Go(func() error {
			logger.Info("gRPC server starting", "address", grpcLis.Addr().String())
			return grpcServer.Serve(grpcLis)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		err := httpServer.Shutdown(shutdownCtx)
		if terr := tracer.Shutdown(shutdownCtx); terr != nil {
			logger.Warn("tracer shutdown failed", "error", terr)
		}
		return err
	})

	return g.Wait()
}
