package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lawmcp/internal/llm"
	"lawmcp/internal/mcp"
	"lawmcp/internal/search"
)

func (a *app) newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List published tools with their parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Listing needs no provider or network.
			srv, err := mcp.NewServer(mcp.ServerOptions{
				Config:     a.cfg,
				Resolver:   llm.Mock{},
				Searcher:   search.Disabled{},
				SearchName: "disabled",
				Version:    version,
				Logger:     a.logger,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			st := newStyles(w, false)
			fmt.Fprintln(w, st.sectionHeader("Tools"))
			fmt.Fprintln(w, st.separator(40))
			for _, tool := range srv.Tools() {
				fmt.Fprintf(w, "%s(%s)\n", st.Bold.Render(tool.Name), strings.Join(tool.InputSchema.Required, ", "))
				fmt.Fprintln(w, "    "+st.dim(tool.Description))
			}
			return nil
		},
	}
}
