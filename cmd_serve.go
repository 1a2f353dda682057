package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/maastricht-university/companion/orchestrator"
	"github.com/maastricht-university/companion/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the fusion engine and the HTTP API",
	Long: `Starts the audio/video recognizers and the fusion engine (when fusion.enabled)
and serves the chat, emotion, routine and metrics endpoints until interrupted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	bind(serveCmd, "server.addr", "addr")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := orchestrator.NewPipeline(conf, log, orchestrator.Options{})
	if err := p.Start(ctx); err != nil {
		return errors.Wrap(err, "start pipeline")
	}
	defer func() {
		if err := p.Stop(); err != nil {
			log.WithError(err).Warn("pipeline stop")
		}
	}()

	var emotions server.Emotions
	if conf.Fusion.Enabled {
		emotions = p.Engine()
	}
	api := server.New(server.Config{CORSOrigins: conf.Server.CORSOrigins}, p, emotions, p.Store(), p.Registry(), log)
	srv := &http.Server{
		Addr:              conf.Server.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{"addr": srv.Addr, "session_id": p.SessionID()}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
