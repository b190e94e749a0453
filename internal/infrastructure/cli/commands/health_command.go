package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/pdqa/internal/app"
	"github.com/doeshing/pdqa/internal/domain"
)

// errUnhealthy makes the process exit non-zero.
var errUnhealthy = errors.New("backend is unhealthy")

// NewHealthCommand creates the health command
func NewHealthCommand(container *app.Container) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the query backend is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.QueryService == nil {
				return errors.New(ErrQueryServiceUnavailable)
			}
			out := cmd.OutOrStdout()
			if !container.QueryService.Health(cmd.Context(), timeout) {
				fmt.Fprintf(out, "%s: unhealthy\n", container.Config.API.BaseURL)
				return errUnhealthy
			}
			fmt.Fprintf(out, "%s: healthy\n", container.Config.API.BaseURL)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", domain.DefaultHealthTimeout, "Probe timeout")
	return cmd
}
