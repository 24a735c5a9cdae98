package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/liftwatch/liftwatch/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored reports over HTTP",
	Long: `Start a local JSON API over the saved reports.

Examples:
  liftwatch serve              # Start on default port 8080
  liftwatch serve --port 3000  # Start on port 3000`,
	RunE: runServe,
}

var servePort int

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	if app.Reports == nil {
		return fmt.Errorf("no database configured, set TURSO_DATABASE_URL to serve reports")
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	server := web.NewServer(servePort, app.Reports)
	return server.Start(ctx)
}
