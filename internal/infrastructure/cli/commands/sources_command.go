package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/doeshing/pdqa/internal/app"
	"github.com/doeshing/pdqa/internal/domain"
	"github.com/doeshing/pdqa/internal/infrastructure/cli/helpers"
)

// NewSourcesCommand creates the sources command
func NewSourcesCommand(container *app.Container) *cobra.Command {
	var resolve bool
	cmd := &cobra.Command{
		Use:   "sources <citation...>",
		Short: "Render citations such as papers/foo.pdf:3:1 as viewer links",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			helpers.RenderSources(out, args, container.Links)
			if !resolve {
				return nil
			}
			return resolveSources(cmd, out, container, args)
		},
	}
	cmd.Flags().BoolVar(&resolve, "resolve", false, "Ask the chunk service where each citation sits on its page")
	return cmd
}

// resolveSources prints the region of every parseable citation. Without a
// chunk service it falls back to the page-level highlight link.
func resolveSources(cmd *cobra.Command, out io.Writer, container *app.Container, sources []string) error {
	if container.Resolver == nil || container.Highlighter == nil {
		return errors.New("citation resolver unavailable")
	}
	ctx := cmd.Context()

	fmt.Fprintln(out, "\nResolved regions:")
	for i, entry := range domain.ParseCitations(sources) {
		if entry.Citation == nil {
			continue
		}
		c := *entry.Citation
		fmt.Fprintf(out, "  %d. %s (Page %d)\n", i+1, c.DisplayName, c.Page)

		loc, err := container.Resolver.Resolve(ctx, c)
		text := ""
		page := c.Page
		switch {
		case err == nil:
			helpers.RenderLocation(out, loc)
			text, page = loc.Text, loc.Page
		case errors.Is(err, domain.ErrResolverUnavailable):
			fmt.Fprintln(out, "     Region: unavailable, showing the whole page")
		default:
			fmt.Fprintf(out, "     Region: %v\n", err)
		}

		link, err := container.Highlighter.LocateAndHighlight(ctx, container.Links.Document(c.Filename), page, text)
		if err != nil {
			return fmt.Errorf("highlight %s: %w", c.Raw, err)
		}
		fmt.Fprintf(out, "     Open: %s\n", link)
	}
	return nil
}
