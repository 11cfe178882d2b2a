package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"permitdesk/internal/backend"
	"permitdesk/internal/eventbus"
	"permitdesk/internal/panel"
	"permitdesk/internal/proxy"
)

var (
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
)

// app holds the long-lived pieces shared by the commands
type app struct {
	bus        eventbus.EventBus
	supervisor *backend.Supervisor
	client     *proxy.Client
}

func newApp() *app {
	bus := eventbus.New(logger)
	return &app{
		bus:        bus,
		supervisor: backend.NewSupervisor(backend.OptionsFromConfig(cfg), bus, logger),
		client: proxy.NewClient(cfg.API.Origin, proxy.Options{
			Timeout: cfg.RequestTimeout(),
			Logger:  logger,
		}),
	}
}

// host builds a panel host that creates surfaces with factory
func (a *app) host(factory panel.SurfaceFactory) *panel.Host {
	return panel.NewHost(panel.HostOptions{
		Supervisor: a.supervisor,
		Forwarder:  a.client,
		Notifier:   stderrNotifier(),
		Factory:    factory,
		Bus:        a.bus,
		Logger:     logger,
		AssetDir:   cfg.Panel.AssetDir,
	})
}

// close stops the backend this process started and drains the bus
func (a *app) close() {
	if err := a.supervisor.Stop(); err != nil && !errors.Is(err, backend.ErrNotRunning) {
		logger.Warn("failed to stop backend", zap.Error(err))
	}
	a.bus.Close()
}

// stderrNotifier prints user-facing errors outside the panel
func stderrNotifier() panel.Notifier {
	return panel.NotifierFunc(func(msg string) {
		logger.Error("notify", zap.String("message", msg))
		fmt.Fprintln(os.Stderr, errorStyle.Render(msg))
	})
}
