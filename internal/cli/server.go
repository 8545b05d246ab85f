package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"quizgen-service/internal/config"
	"quizgen-service/internal/logger"
	"quizgen-service/internal/metrics"
	transport "quizgen-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	m := metrics.New()
	built, err := buildComponents(ctx, cfg, log, m)
	if err != nil {
		log.Error("failed to build components", "error", err.Error())
		return err
	}
	defer built.close()

	router := transport.NewRouter(transport.RouterConfig{
		Service:        built.service,
		Metrics:        m,
		Log:            log.With("component", "http"),
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
	})

	// Generation calls can take as long as the model timeout, so the write
	// timeout leaves room for it.
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      config.Duration(cfg.Model.Timeout, 90*time.Second) + 30*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting quiz service", "port", finalPort, "store", cfg.Store.Driver, "model", cfg.Model.Provider)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	case err := <-errCh:
		log.Error("server failed", "error", err.Error())
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
