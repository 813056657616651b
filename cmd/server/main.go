package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/faisal-mohamed/rfdb-new/internal/api"
	"github.com/faisal-mohamed/rfdb-new/internal/app"
	"github.com/faisal-mohamed/rfdb-new/internal/auth"
	"github.com/faisal-mohamed/rfdb-new/internal/config"
	"github.com/faisal-mohamed/rfdb-new/internal/logging"
	"github.com/faisal-mohamed/rfdb-new/internal/mcp"
	"github.com/faisal-mohamed/rfdb-new/internal/tls"
)

var version = "dev"

func main() {
	ctx := context.Background()

	envFile := flag.String("env", "", "Path to .env file")
	flag.Parse()

	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		log.Fatalf("Configuration loading failed: %v", err)
	}

	logger := logging.NewLogger(cfg.Log.Level, cfg.Log.Format).With("service", cfg.Telemetry.ServiceName)
	logger.Info("Configuration loaded",
		"environment", cfg.Environment,
		"config_file", viper.ConfigFileUsed(),
		"db_driver", cfg.DB.Driver,
		"extraction_mode", cfg.Extraction.Mode,
		"render_format", cfg.Render.Format,
		"auth_mode", cfg.Auth.Mode,
	)
	if cfg.Auth.Mode == "dev" {
		logger.Warn("dev auth mode trusts the X-User-Id and X-User-Role headers; do not expose this server")
	}

	deps, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize dependencies", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	authz, err := auth.New(ctx, cfg.Auth, logger)
	if err != nil {
		logger.Error("Failed to initialize auth", "error", err)
		os.Exit(1)
	}

	mcpServer := mcp.NewServer(deps.Workflow, version)
	e := api.NewRouter(api.RouterConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Auth:        authz,
		Server:      api.NewServer(deps.Workflow, deps.Objects, logger),
		Health:      api.NewHandler(version, deps.Checks),
		MCP:         mcp.Handler(mcpServer.GetMCPServer()),
		CORSOrigins: cfg.Server.CORSOrigins,
		Issuer:      cfg.Auth.Issuer,
		ClientID:    cfg.Auth.ClientID,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      e,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", cfg.Server.Addr, "tls", cfg.TLS.Enable, "version", version)
		if !cfg.TLS.Enable {
			serverErrors <- server.ListenAndServe()
			return
		}
		created, err := tls.EnsureCert(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames)
		if err != nil {
			serverErrors <- err
			return
		}
		if created {
			logger.Warn("generated self-signed certificate", "cert_file", cfg.TLS.CertFile, "hostnames", cfg.TLS.Hostnames)
		}
		serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			deps.Close()
			os.Exit(1)
		}
	case sig := <-shutdown:
		logger.Info("Shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("Server close error", "error", err)
			}
		}

		logger.Info("Server stopped gracefully")
	}
}
