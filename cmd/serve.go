package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"reelcrew/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the topic form in a browser",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch, service, err := buildRunner(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	srv, err := server.New(orch, service.Workspace())
	if err != nil {
		return err
	}

	addr := service.Config().Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	return srv.ListenAndServe(ctx, addr)
}
