package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lawmcp/internal/config"
)

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	printCmd := &cobra.Command{
		Use:         "print",
		Short:       "Print effective config as TOML (API key redacted)",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationSkipValidate: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := config.Encode(*a.cfg)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if envVar := config.APIKeyEnvVar(a.cfg.LLM.Provider); envVar != "" {
				state := "unset"
				if a.cfg.LLM.APIKey != "" {
					state = "set (redacted)"
				}
				fmt.Fprintf(w, "# %s: %s\n", envVar, state)
			}
			_, err = w.Write(raw)
			return err
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a default config file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.flags.ConfigPath
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.SaveFile(path, config.Default()); err != nil {
				return err
			}
			st := newStyles(cmd.OutOrStdout(), false)
			fmt.Fprintln(cmd.OutOrStdout(), st.Success.Render("Wrote "+path))
			fmt.Fprintln(cmd.OutOrStdout(), "Set GROQ_API_KEY (or the key for your provider) in the environment or .env.")
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(printCmd, initCmd)
	return cmd
}
