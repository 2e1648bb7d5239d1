package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-harmony/server"
)

var (
	serveAddr    string
	serveOrigins []string
	serveMaxBody int64
)

func init() {
	rootCmd.AddCommand(serveCmd)
	defaults := server.DefaultParams()
	serveCmd.Flags().StringVar(&serveAddr, "addr", defaults.Addr, "listen address")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "origins", defaults.AllowedOrigins, "allowed CORS origins")
	serveCmd.Flags().Int64Var(&serveMaxBody, "max-body", defaults.MaxBodyBytes, "largest accepted upload in bytes")
	addAnalysisFlags(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the analyzer over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadAnalyzer(cmd)
		if err != nil {
			return err
		}
		params := server.DefaultParams()
		params.Addr = serveAddr
		params.AllowedOrigins = serveOrigins
		params.MaxBodyBytes = serveMaxBody

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.NewServerWithParams(a, params).ListenAndServe(ctx)
	},
}
