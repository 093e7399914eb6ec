package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flashtrade-sim/internal/api"
	"flashtrade-sim/internal/session"
	"flashtrade-sim/internal/trading"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the market ticker and the HTTP/websocket API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.log

	detachMirror := a.mirror.Attach(a.store)
	defer detachMirror()

	sessions := session.NewManager(a.kv, session.DemoProfiles{}, session.Config{
		MaxAge:         a.cfg.SessionMaxAge(),
		InitialBalance: decimal.NewFromFloat(a.cfg.Trading.InitialBalance),
	}, log)
	if ok, err := sessions.Restore(ctx); err != nil {
		log.Warn("Failed to restore session", zap.Error(err))
	} else if ok {
		sessions.UpdateStats(ctx, a.store.State().User)
	}
	unsubSession := a.store.Subscribe(func(prev, next *trading.State) {
		if prev.User != next.User {
			sessions.UpdateStats(context.Background(), next.User)
		}
	})
	defer unsubSession()

	hub := api.NewHub(log)
	detachHub := hub.Watch(a.store, sessions)
	defer detachHub()
	go hub.Run(ctx)

	engine := a.engine()
	go engine.Run(ctx)

	port := a.cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}
	server := api.NewServer(port, a.store, engine, sessions, hub, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received, gracefully shutting down...")
	case err := <-errCh:
		if err != nil {
			log.Error("Web server failed", zap.Error(err))
			cancel()
			return err
		}
	}

	if err := server.Shutdown(context.Background()); err != nil {
		log.Warn("Web server shutdown failed", zap.Error(err))
	}
	log.Info("Simulator has been shut down.")
	return nil
}
