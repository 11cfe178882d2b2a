package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"permitdesk/internal/domain"
	"permitdesk/internal/search"
)

var (
	queryMode    string
	queryStatus  string
	queryLat     string
	queryLon     string
	queryRadius  string
	queryJSON    bool
	queryNoStart bool
)

// queryCmd runs one search without a panel
var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Run a single permit search and print the results",
	Long: `Runs one search against the backend API, starting the backend first
unless --no-start is given.

Examples:
  permitdesk query tacos
  permitdesk query --mode address --status APPROVED "market st"
  permitdesk query --mode nearby --lat 37.7793 --lon -122.4193`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryMode, "mode", "m", "name", "Search mode: name, address or nearby")
	queryCmd.Flags().StringVarP(&queryStatus, "status", "s", string(search.StatusAll), "Status filter: ALL, APPROVED or EXPIRED")
	queryCmd.Flags().StringVar(&queryLat, "lat", "", "Latitude for nearby searches")
	queryCmd.Flags().StringVar(&queryLon, "lon", "", "Longitude for nearby searches")
	queryCmd.Flags().StringVar(&queryRadius, "radius", "", "Radius for nearby searches (default: search.radius)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Print the raw JSON response")
	queryCmd.Flags().BoolVar(&queryNoStart, "no-start", false, "Assume the backend is already running")
}

func runQuery(cmd *cobra.Command, args []string) error {
	mode, err := search.ParseMode(queryMode)
	if err != nil {
		return err
	}
	status, err := search.ParseStatus(queryStatus)
	if err != nil {
		return err
	}
	radius := cfg.Search.Radius
	if queryRadius != "" {
		radius = queryRadius
	}

	req, err := search.Derive(search.Request{
		Mode:   mode,
		Query:  strings.Join(args, " "),
		Lat:    queryLat,
		Lon:    queryLon,
		Status: status,
	}, radius)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp()
	defer a.close()

	if !queryNoStart {
		if err := a.supervisor.EnsureRunning(ctx); err != nil {
			return fmt.Errorf("failed to start backend: %w", err)
		}
	}

	logger.Debug("running query", zap.String("endpoint", req.Endpoint), zap.Any("params", req.Params))
	data, err := a.client.Forward(ctx, req.Endpoint, req.Params)
	if err != nil {
		return err
	}

	if queryJSON {
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	permits, err := domain.DecodePermits(data)
	if err != nil {
		return fmt.Errorf("unexpected response: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderPermits(permits))
	return nil
}

// renderPermits formats permits as a bordered table
func renderPermits(permits []domain.Permit) string {
	if len(permits) == 0 {
		return dimStyle.Render("No permits found")
	}

	rows := make([][]string, 0, len(permits))
	for _, p := range permits {
		rows = append(rows, []string{p.Applicant, p.Address, p.Status})
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("Applicant", "Address", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 2 && row >= 0 && row < len(rows) {
				return cellStyle.Foreground(statusColor(rows[row][2]))
			}
			return cellStyle
		})

	return t.Render() + "\n" + dimStyle.Render(fmt.Sprintf("%d permits", len(permits)))
}

func statusColor(status string) lipgloss.Color {
	switch status {
	case string(search.StatusApproved):
		return lipgloss.Color("42")
	case string(search.StatusExpired):
		return lipgloss.Color("196")
	default:
		return lipgloss.Color("250")
	}
}
