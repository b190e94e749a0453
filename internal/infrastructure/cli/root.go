// Package cli wires the pdqa command tree.
package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/pdqa/internal/app"
	"github.com/doeshing/pdqa/internal/infrastructure/cli/commands"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

// NewRootCmd wires the cobra root command. The returned container must be
// closed by the caller once the command has run.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, *app.Container, error) {
	container, err := app.BuildContainer(ctx, opts.Verbose)
	if err != nil {
		return nil, nil, err
	}
	return newRootCmd(container), container, nil
}

func newRootCmd(container *app.Container) *cobra.Command {
	askOpts := &commands.AskOptions{}

	root := &cobra.Command{
		Use:   "pdqa [question]",
		Short: "pdqa - Parkinson's research question answering",
		Long: "pdqa asks the research backend a question, follows the answer while it is\n" +
			"generated and prints it with links to the cited papers.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return commands.RunAsk(cmd, container, strings.Join(args, " "), *askOpts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	commands.BindAskFlags(root, askOpts)
	// Read by main before parsing; declared so cobra accepts it.
	root.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging (also PDQA_DEBUG=1)")

	root.AddCommand(
		commands.NewAskCommand(container),
		commands.NewStatusCommand(container),
		commands.NewHealthCommand(container),
		commands.NewSourcesCommand(container),
		commands.NewServeCommand(container),
		commands.NewHistoryCommand(container),
		commands.NewConfigCommand(container),
		commands.NewDoctorCommand(container),
		commands.NewVersionCommand(),
	)
	return root
}
