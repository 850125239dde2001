package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/mna/mainer"
	"github.com/sirupsen/logrus"

	"github.com/slashless/slashless/internal/config"
	"github.com/slashless/slashless/internal/healthcheck"
	"github.com/slashless/slashless/internal/pool"
	"github.com/slashless/slashless/internal/restserver"
	"github.com/slashless/slashless/internal/status"
)

// serveCmd runs the HTTP server. It keeps the teacher's testable
// Main(args, stdio) mainer.ExitCode shape so it can be exercised from
// tests without touching the process's real stdio or exiting it.
type serveCmd struct {
	RedisAddrOverride string // "memory" starts an in-process miniredis, as in upstash-redis-rest-server
}

func (c *serveCmd) Main(_ []string, stdio mainer.Stdio) mainer.ExitCode {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return mainer.InvalidArgs
	}

	logger := logrus.New()
	logger.SetOutput(stdio.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	redisAddr := cfg.RedisAddr()
	if c.RedisAddrOverride == "memory" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "failed to start miniredis: %s\n", err)
			return mainer.Failure
		}
		defer mr.Close()
		redisAddr = mr.Addr()
	} else if c.RedisAddrOverride != "" {
		redisAddr = c.RedisAddrOverride
	}

	var sink status.Sink
	var rich *status.RichConsole
	if cfg.Mode() == config.ModeRich {
		sink, rich = status.NewRichSink(stdio.Stdout, logger, cfg.ServerAddr(), redisAddr, cfg.MaxConnections, cfg.MaxRetry, version)
	} else {
		sink = status.NewStandardSink(logger)
	}
	// rich's terminal panel must be torn down before any return path logs
	// its final message, otherwise the panel's full-screen repaint erases
	// it (original_source/src/main.rs: cleanup runs before the shutdown
	// message is printed, never after). A trailing defer would instead run
	// after every such log line, so every return below calls this first.
	cleanup := func() {
		if rich != nil {
			rich.Cleanup()
		}
	}

	sink.Emit(status.Server, status.Starting)
	sink.Emit(status.Redis, status.Establishing)

	p := pool.New(redisAddr, cfg.MaxConnections, cfg.MaxRetry, sink)
	defer p.Close()

	if _, err := p.PingWithRetry(context.Background()); err != nil {
		cleanup()
		logger.WithError(err).Error("initial redis connection failed")
		sink.Emit(status.Redis, status.ConnectionError)
		return mainer.Failure
	}
	sink.Emit(status.Redis, status.Connected)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go healthcheck.Run(ctx, p)

	handler := restserver.New(p, cfg.Token, logger)
	httpsrv := &http.Server{Addr: cfg.ServerAddr(), Handler: handler}

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- httpsrv.ListenAndServe()
	}()
	sink.Emit(status.Server, status.Ready)
	logger.WithFields(logrus.Fields{"addr": cfg.ServerAddr(), "redis": redisAddr}).Info("server ready")

	select {
	case <-ctx.Done():
		cleanup()
		logger.Info("shutting down")
		sink.Emit(status.Server, status.Disconnected)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer shutdownCancel()
		if err := httpsrv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("graceful shutdown failed")
			return mainer.Failure
		}
		return mainer.Success
	case err := <-serveErrCh:
		cleanup()
		if err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("server error")
			sink.Emit(status.Server, status.BindError)
			return mainer.Failure
		}
		return mainer.Success
	}
}
