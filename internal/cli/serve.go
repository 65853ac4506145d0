package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hupe1980/toolmesh/apiserver"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the toolmesh API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			if cmd.Flags().Changed("port") {
				rt.cfg.Server.Port = port
			}
			if cmd.Flags().Changed("host") {
				rt.cfg.Server.Host = host
			}

			o, err := rt.newOrchestrator()
			if err != nil {
				return err
			}

			addr := rt.cfg.ServerAddress()
			srv := apiserver.NewServer(addr, o, func(opts *apiserver.Options) {
				opts.Registry = rt.registry
				opts.MaxSteps = rt.cfg.Orchestrator.MaxSteps
				opts.Logger = rt.zap
			})

			banner := color.New(color.FgCyan, color.Bold)
			banner.Fprintln(cmd.OutOrStdout(), "toolmesh")
			fmt.Fprintf(cmd.OutOrStdout(), "   API Server: http://%s\n", addr)
			fmt.Fprintf(cmd.OutOrStdout(), "   Model:      %s\n", rt.cfg.Model.Provider)
			fmt.Fprintf(cmd.OutOrStdout(), "   Catalog:    %s\n", rt.cfg.Catalog.Type)
			fmt.Fprintln(cmd.OutOrStdout())

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case sig := <-sigCh:
				rt.zap.Info("received shutdown signal", zap.String("signal", sig.String()))
			case err := <-errCh:
				rt.zap.Error("API server error", zap.Error(err))
				return err
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				rt.zap.Error("API server shutdown error", zap.Error(err))
			}
			rt.zap.Info("toolmesh stopped")
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 7433, "API server port")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "API server host")

	return cmd
}
