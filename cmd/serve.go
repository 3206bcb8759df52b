package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/market-advisor/internal/server"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 10 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the advisor HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		rules, err := loadRules(cfg.Market)
		if err != nil {
			return err
		}

		handler := server.New(server.Options{
			Config:    cfg.Server,
			DataCSV:   cfg.Market.DataCSV,
			Rules:     rules,
			Generator: newGenerator(cfg.Anthropic),
		})

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           handler,
			ReadTimeout:       cfg.Server.ReadTimeout(),
			ReadHeaderTimeout: cfg.Server.ReadTimeout(),
			WriteTimeout:      cfg.Server.WriteTimeout(),
		}
		return runServer(ctx, srv)
	},
}

// runServer serves until ctx is canceled, then drains in-flight requests.
func runServer(ctx context.Context, srv *http.Server) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return eris.Wrap(err, "server shutdown")
		}
		return nil
	})

	return g.Wait()
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
