package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (a *app) newCallCmd() *cobra.Command {
	var rawArgs []string
	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke one tool in-process and print its text result",
		Example: "  lawmcp call draft_letter --arg case_type='RTI request' --arg facts='want copy of file X'\n" +
			"  lawmcp call web_search --arg query='consumer forum fees'",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs, err := parseToolArgs(rawArgs)
			if err != nil {
				return err
			}
			srv, _, _, err := a.buildServer(cmd.Context())
			if err != nil {
				return err
			}
			text, err := srv.CallTool(cmd.Context(), args[0], toolArgs)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&rawArgs, "arg", nil, "tool argument as key=value (repeatable)")
	addLLMFlags(cmd)
	return cmd
}

// parseToolArgs splits key=value pairs on the first '='. Values may be
// empty or contain further '=' characters.
func parseToolArgs(raw []string) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --arg %q: want key=value", kv)
		}
		if _, dup := out[key]; dup {
			return nil, errors.New("duplicate --arg " + key)
		}
		out[key] = value
	}
	return out, nil
}
