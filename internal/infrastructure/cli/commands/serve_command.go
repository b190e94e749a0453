package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/doeshing/pdqa/internal/app"
)

// NewServeCommand creates the serve command
func NewServeCommand(container *app.Container) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the citation viewer that source links open in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				container.Config.Viewer.ListenAddr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := container.NewViewerServer()
			fmt.Fprintf(cmd.OutOrStdout(), "Viewer listening on %s (Ctrl+C to stop)\n", container.Config.Viewer.ListenAddr)
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default viewer.listen_addr)")
	return cmd
}
