package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/maastricht-university/companion/orchestrator"
)

var monitorDuration time.Duration

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Record emotions for a while and print a session report",
	Long: `Runs the recognizers and the fusion engine for --duration (or until interrupted),
then writes a JSON report with windowed aggregates and overall stats to stdout.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().DurationVarP(&monitorDuration, "duration", "d", time.Minute, "how long to monitor")
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := orchestrator.NewPipeline(conf, log, orchestrator.Options{})
	if err := p.Start(ctx); err != nil {
		return errors.Wrap(err, "start pipeline")
	}
	log.WithField("duration", monitorDuration).Info("monitoring")

	t := time.NewTimer(monitorDuration)
	select {
	case <-ctx.Done():
		t.Stop()
	case <-t.C:
	}
	if err := p.Stop(); err != nil {
		log.WithError(err).Warn("pipeline stop")
	}
	return p.WriteReport(cmd.OutOrStdout())
}
