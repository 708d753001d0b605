package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lawmcp/internal/config"
)

// Exit codes.
const (
	ExitSuccess       = 0
	ExitGenericError  = 1
	ExitConfigInvalid = 2
	ExitBindFailure   = 4
)

// Command annotations read by setup.
const (
	annotationNoConfig     = "lawmcp/no-config"
	annotationSkipValidate = "lawmcp/skip-validate"
)

// GlobalFlags holds flags shared across all commands.
type GlobalFlags struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

// app carries the state one command invocation builds in setup.
type app struct {
	flags  GlobalFlags
	cfg    *config.Config
	logger *zap.Logger
	stdin  io.Reader
}

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, config.ErrInvalid) {
		return ExitConfigInvalid
	}
	return ExitGenericError
}

func newRootCmd(stdin io.Reader) *cobra.Command {
	a := &app{logger: zap.NewNop(), stdin: stdin}

	root := &cobra.Command{
		Use:   "lawmcp",
		Short: "MCP tool server for Indian legal assistance",
		Long: "lawmcp publishes legal-information tools (RTI, divorce, consumer, property,\n" +
			"workplace, family law, cybercrime, procedure guides, letter drafts and web\n" +
			"search) over the Model Context Protocol.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.ConfigPath, "config", config.DefaultConfigPath, "config file path (TOML)")
	pf.StringVar(&a.flags.LogLevel, "log-level", "", "log level: debug|info|warn|error")
	pf.StringVar(&a.flags.LogFormat, "log-format", "", "log format: console|json")

	root.AddCommand(
		a.newServeCmd(),
		a.newCallCmd(),
		a.newToolsCmd(),
		a.newFreePortCmd(),
		a.newConfigCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	return run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd(stdin)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		st := newStyles(stderr, false)
		fmt.Fprintln(stderr, st.errPrefix(), err.Error())
		return exitCode(err)
	}
	return ExitSuccess
}

// setup loads the config once and builds the logger for the command.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[annotationNoConfig] == "true" {
		return nil
	}

	cfg, err := config.Load(config.Options{
		ConfigPath:   a.flags.ConfigPath,
		Overrides:    overridesFromFlags(cmd),
		SkipValidate: cmd.Annotations[annotationSkipValidate] == "true",
	})
	if err != nil {
		return withExitCode(ExitConfigInvalid, err)
	}
	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return withExitCode(ExitConfigInvalid, err)
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// overridesFromFlags turns explicitly set flags into config overrides. A
// flag left at its default never overrides the file or environment.
func overridesFromFlags(cmd *cobra.Command) *config.Overrides {
	flags := cmd.Flags()
	str := func(name string) *string {
		if !flags.Changed(name) {
			return nil
		}
		v, err := flags.GetString(name)
		if err != nil {
			return nil
		}
		return &v
	}

	o := &config.Overrides{
		Host:        str("host"),
		MCPPath:     str("mcp-path"),
		Transport:   str("transport"),
		LLMProvider: str("provider"),
		LLMModel:    str("model"),
		LogLevel:    str("log-level"),
		LogFormat:   str("log-format"),
	}
	if flags.Changed("port") {
		if v, err := flags.GetInt("port"); err == nil {
			o.Port = &v
		}
	}
	return o
}

func addLLMFlags(cmd *cobra.Command) {
	cmd.Flags().String("provider", "", "llm provider: groq|openai|gemini|mock")
	cmd.Flags().String("model", "", "llm model (provider default when empty)")
}
