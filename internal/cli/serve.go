package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mnemo-ai/mnemod/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	st, err := buildStack()
	if err != nil {
		return err
	}
	defer st.close()

	// Periodic dry-run maintenance scans per namespace; live pruning is manual.
	interval := time.Duration(st.cfg.Maintenance.ScanIntervalHours) * time.Hour
	if interval > 0 {
		for _, eng := range st.engines {
			eng.StartMaintenanceTimer(interval)
		}
	}

	srv := server.New(st.db, st.engines, st.cfg.Namespaces.User, st.mem, VersionString())
	addr := st.cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "mnemod serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", st.db.Path)
		fmt.Fprintf(os.Stderr, "  memstore: %s\n", st.cfg.Memstore.Mode)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
