package main

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"flashdeck/internal/account"
	"flashdeck/internal/auth"
	"flashdeck/internal/config"
	"flashdeck/internal/db"
	"flashdeck/internal/deck"
	httpx "flashdeck/internal/http"
	"flashdeck/internal/jobs"
	"flashdeck/internal/logging"
	"flashdeck/internal/notify"
	"flashdeck/internal/tracing"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web app, the JSON API and the purge worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd, config.ServeFields)
			if err != nil {
				return err
			}
			defer func() { _ = a.log.Sync() }()
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	endpoint := ""
	if a.cfg.TraceEnabled {
		endpoint = a.cfg.TraceEndpoint
	}
	shutdownTracing, err := tracing.Setup(ctx, endpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			a.log.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	gdb, err := db.Connect(a.cfg.DatabaseURL, a.log)
	if err != nil {
		return err
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		return err
	}

	provider := auth.NewProvider(a.cfg.BackendURL, a.cfg.BackendKey, a.cfg.ServiceRoleKey)
	var verifier *auth.JWT
	if a.cfg.JWTSecret != "" {
		verifier = auth.NewJWT(a.cfg.JWTSecret)
	}

	decks := &deck.Service{DB: gdb}
	accounts := &account.Service{DB: gdb}
	queue := &jobs.Repo{DB: gdb}
	center := notify.NewCenter(a.cfg.DismissTimeout())
	sessions := auth.NewResolver(provider, verifier, a.cfg.SessionCacheTTL)

	router, err := httpx.NewRouter(httpx.Deps{
		Config:   a.cfg,
		Log:      a.log,
		Decks:    decks,
		Accounts: accounts,
		Purges:   queue,
		Auth:     provider,
		Sessions: sessions,
		Notify:   center,
	})
	if err != nil {
		return err
	}

	worker := &jobs.Worker{
		ID:    "worker-1",
		Queue: queue,
		Purger: &account.Purger{
			Decks:    decks,
			Accounts: accounts,
			Users:    provider,
			Sessions: sessions,
			Log:      a.log.Named("purge"),
		},
		Log: a.log.Named("jobs"),
	}

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          logging.Std(a.log, "http.server"),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("listening", zap.String("addr", a.cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		return worker.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	err = g.Wait()
	a.log.Info("stopped")
	return err
}
