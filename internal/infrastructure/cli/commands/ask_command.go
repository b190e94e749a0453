package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/pdqa/internal/app"
	"github.com/doeshing/pdqa/internal/application/query"
	"github.com/doeshing/pdqa/internal/domain"
	"github.com/doeshing/pdqa/internal/infrastructure/cli/helpers"
)

// AskOptions are the flags shared by ask and the root command.
type AskOptions struct {
	NoWait  bool
	Timeout time.Duration
}

// BindAskFlags registers ask flags on cmd.
func BindAskFlags(cmd *cobra.Command, opts *AskOptions) {
	cmd.Flags().BoolVar(&opts.NoWait, "no-wait", false, "Submit and exit without waiting for the answer")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", DefaultAskTimeout, "Give up waiting after this long (0 waits forever)")
}

// NewAskCommand creates the ask command
func NewAskCommand(container *app.Container) *cobra.Command {
	opts := &AskOptions{}
	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask a question about Parkinson's disease research",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunAsk(cmd, container, strings.Join(args, " "), *opts)
		},
	}
	BindAskFlags(cmd, opts)
	return cmd
}

// RunAsk submits question and renders the outcome.
func RunAsk(cmd *cobra.Command, container *app.Container, question string, opts AskOptions) error {
	if container.QueryService == nil {
		return errors.New(ErrQueryServiceUnavailable)
	}
	ctx, cancel := withTimeout(cmd.Context(), opts.Timeout)
	defer cancel()

	progress := helpers.NewProgress(cmd.ErrOrStderr())
	defer progress.Stop()

	state, err := container.QueryService.Ask(ctx, query.Request{
		Question: question,
		Wait:     !opts.NoWait,
		OnChange: progress.Update,
	})
	progress.Stop()
	return renderSession(cmd, container, state, err)
}

// NewStatusCommand creates the status command, which resumes a query by id
func NewStatusCommand(container *app.Container) *cobra.Command {
	var (
		watch   bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "status <query_id>",
		Short: "Show or follow an existing query, e.g. from a shared link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.QueryService == nil {
				return errors.New(ErrQueryServiceUnavailable)
			}
			ctx, cancel := withTimeout(cmd.Context(), timeout)
			defer cancel()

			progress := helpers.NewProgress(cmd.ErrOrStderr())
			defer progress.Stop()

			state, err := container.QueryService.Resume(ctx, query.Request{
				QueryID:  args[0],
				Wait:     watch,
				OnChange: progress.Update,
			})
			progress.Stop()
			return renderSession(cmd, container, state, err)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", true, "Keep polling until the answer is complete")
	cmd.Flags().DurationVar(&timeout, "timeout", DefaultAskTimeout, "Give up waiting after this long (0 waits forever)")
	return cmd
}

// renderSession prints whatever the session produced, then maps err to a
// message that tells the user how to resume.
func renderSession(cmd *cobra.Command, container *app.Container, state domain.SessionState, err error) error {
	out := cmd.OutOrStdout()
	if state.Result != nil {
		helpers.RenderQuery(out, *state.Result, container.Links)
		helpers.RenderShareHint(out, state.QueryID(), container.Links)
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded) && state.QueryID() != "":
		return fmt.Errorf("timed out waiting for the answer; resume with: pdqa status %s", state.QueryID())
	case errors.Is(err, query.ErrQueryFailed):
		// The logged transport details stay out of the user-facing message.
		return errors.New(state.Error)
	default:
		return err
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}
