package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"permitdesk/internal/panel"
)

var (
	serveListen    string
	serveNoBrowser bool
)

// serveCmd opens the browser panel
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the backend and serve the search panel to a browser",
	Long: `Serves webview/dist on a local address and opens it in the system
browser. The page talks to permitdesk, which forwards its searches to the
backend API. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default: panel.listen)")
	serveCmd.Flags().BoolVar(&serveNoBrowser, "no-browser", false, "Do not launch the system browser")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp()
	defer a.close()

	listen := cfg.Panel.Listen
	if serveListen != "" {
		listen = serveListen
	}
	web := panel.NewWebServer(panel.WebOptions{
		Listen:      listen,
		OpenBrowser: cfg.Panel.OpenBrowser && !serveNoBrowser,
		Logger:      logger,
	})
	if err := web.Listen(); err != nil {
		return err
	}
	host := a.host(web)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return web.Serve(gctx)
	})
	g.Go(func() error {
		if err := host.Open(gctx); err != nil {
			return fmt.Errorf("%w: %v", errReported, err)
		}
		fmt.Fprintf(os.Stdout, "%s %s\n", labelStyle.Render(panel.Title+":"), web.URL())

		<-gctx.Done()
		host.Close()
		host.Wait()
		return nil
	})

	err := g.Wait()
	logger.Info("panel server stopped", zap.Error(err))
	return err
}
