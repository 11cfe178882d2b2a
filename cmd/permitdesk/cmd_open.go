package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"permitdesk/internal/ui"
)

// e2eEnv makes the terminal panel print a marker terminal tests wait for
const e2eEnv = "PERMITDESK_E2E_TEST"

// openCmd opens the terminal panel
var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Start the backend and open the terminal search panel",
	Args:  cobra.NoArgs,
	RunE:  runOpen,
}

func runOpen(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp()
	defer a.close()

	factory := ui.NewFactory(ctx, ui.Options{
		Bus:    a.bus,
		Logger: logger,
		Radius: cfg.Search.Radius,
		BackendStatus: func() string {
			if pid := a.supervisor.PID(); pid > 0 {
				return fmt.Sprintf("backend %s · pid %d", a.supervisor.State(), pid)
			}
			return "backend " + a.supervisor.State().String()
		},
		BackendLog:  a.supervisor.Output,
		ReadyMarker: os.Getenv(e2eEnv) == "1",
	})
	host := a.host(factory)

	fmt.Fprintln(os.Stderr, dimStyle.Render("Starting backend..."))
	if err := host.Open(ctx); err != nil {
		logger.Error("failed to open panel", zap.Error(err))
		return fmt.Errorf("%w: %v", errReported, err)
	}

	err := factory.Run()
	host.Close()
	host.Wait()
	return err
}
