package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diwise/parse-adapter/internal/pkg/application/relay"
	"github.com/diwise/parse-adapter/internal/pkg/infrastructure/router"
	"github.com/diwise/parse-adapter/internal/pkg/presentation/api"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

const serviceName string = "parse-relay"

func main() {
	serviceVersion := buildinfo.SourceVersion()

	flags, err := parseFlags(os.Args[1:], serviceVersion, defaultFlags(context.Background()))
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	ctx, logger, cleanup := o11y.Init(context.Background(), serviceName, serviceVersion, flags[logFormat])
	defer cleanup()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	configFile, err := os.Open(flags[configPath])
	if err != nil {
		logger.Error("failed to open relay configuration", "path", flags[configPath], "err", err.Error())
		os.Exit(1)
	}
	defer configFile.Close()

	policies, err := os.Open(flags[opaPath])
	if err != nil {
		logger.Error("failed to open authorization policies", "path", flags[opaPath], "err", err.Error())
		os.Exit(1)
	}
	defer policies.Close()

	handler, app, err := initialize(ctx, configFile, policies)
	if err != nil {
		logger.Error("failed to initialize service", "err", err.Error())
		os.Exit(1)
	}

	err = run(ctx, net.JoinHostPort(flags[listenAddress], flags[servicePort]), handler, app)
	if err != nil {
		logger.Error("service failed", "err", err.Error())
		os.Exit(1)
	}
}

func initialize(ctx context.Context, config, policies io.Reader) (http.Handler, relay.RelationshipRelay, error) {
	cfg, err := relay.LoadConfiguration(config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	app, err := relay.New(ctx, *cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create relay: %w", err)
	}

	r := router.New(serviceName)

	err = api.RegisterHandlers(ctx, r, policies, app)
	if err != nil {
		return nil, nil, err
	}

	return r, app, nil
}

func run(ctx context.Context, address string, handler http.Handler, app relay.RelationshipRelay) error {
	logger := logging.GetFromContext(ctx)

	if err := app.Start(); err != nil {
		return fmt.Errorf("failed to start relay: %w", err)
	}
	defer app.Stop()

	srv := &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errs := make(chan error, 1)

	go func() {
		logger.Info("starting to listen for connections", "address", address)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
