package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aqt/aqt-connector/pkg/aqtctl/app"
	"github.com/aqt/aqt-connector/pkg/aqtctl/config"
	"github.com/aqt/aqt-connector/pkg/aqtctl/output"
	"github.com/aqt/aqt-connector/pkg/metrics"
	"github.com/aqt/aqt-connector/pkg/system"
)

// AppFactory builds the application from a resolved configuration.
type AppFactory func(cfg config.Config, opts ...app.Option) (*app.App, error)

type Config struct {
	ConfigPath   string
	OutputWriter io.Writer
	ErrWriter    io.Writer
	NewApp       AppFactory
}

type runtimeState struct {
	configPath           string
	cfg                  *config.Config
	outputFormat         string
	serverOverride       string
	apiToken             string
	tokenStorageOverride string
	metricsFile          string
	verbose              bool
	writer               io.Writer
	errWriter            io.Writer
	newApp               AppFactory

	app    *app.App
	log    *zap.Logger
	closed bool
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		ConfigPath:   config.DefaultConfigPath(),
		OutputWriter: os.Stdout,
		ErrWriter:    os.Stderr,
		NewApp:       app.New,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	root, _ := newRootCommand(cfg)
	return root
}

// Execute runs the command tree with args and releases runtime resources
// afterwards, including when the command fails.
func Execute(ctx context.Context, cfg Config, args []string) error {
	root, rt := newRootCommand(cfg)
	defer rt.Close()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCommand(cfg Config) (*cobra.Command, *runtimeState) {
	rt := &runtimeState{
		configPath: cfg.ConfigPath,
		writer:     cfg.OutputWriter,
		errWriter:  cfg.ErrWriter,
		newApp:     cfg.NewApp,
	}

	root := &cobra.Command{
		Use:           "aqtctl",
		Short:         "AQT ARNICA CLI",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// ExecuteContext replaces the root context.
			if _, err := getRuntime(cmd); err != nil {
				cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey{}, rt))
			}
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.errWriter == nil {
				rt.errWriter = os.Stderr
			}
			if rt.newApp == nil {
				rt.newApp = app.New
			}
			if rt.configPath == "" {
				rt.configPath = config.DefaultConfigPath()
			}
			if rt.outputFormat == "" {
				rt.outputFormat = os.Getenv("AQTCTL_OUTPUT")
			}
			if rt.serverOverride == "" {
				rt.serverOverride = os.Getenv("AQTCTL_SERVER")
			}
			if rt.apiToken == "" {
				rt.apiToken = os.Getenv("AQTCTL_API_TOKEN")
			}
			if rt.tokenStorageOverride == "" {
				rt.tokenStorageOverride = os.Getenv("AQTCTL_TOKEN_STORAGE")
			}
			if rt.metricsFile == "" {
				rt.metricsFile = os.Getenv("AQTCTL_METRICS_FILE")
			}
			if !rt.verbose {
				rt.verbose = strings.EqualFold(os.Getenv("AQTCTL_VERBOSE"), "true")
			}

			// Skip config loading for commands that don't need it
			if cmd.Name() == "init" && cmd.Parent() != nil && cmd.Parent().Name() == "config" {
				return nil
			}
			if cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}
			return rt.EnsureConfigLoaded()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			rt.Close()
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath, "Path to config file")
	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: table, json, yaml")
	root.PersistentFlags().StringVar(&rt.serverOverride, "server", "", "ARNICA API URL override")
	root.PersistentFlags().StringVar(&rt.apiToken, "token", "", "API token to use instead of the stored access token")
	root.PersistentFlags().StringVar(&rt.tokenStorageOverride, "token-storage", "", "Token storage backend: keychain or file")
	root.PersistentFlags().StringVar(&rt.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "Enable debug logging on stderr")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewConfigCommand(),
		NewAuthCommand(),
		NewJobCommand(),
		NewWorkspaceCommand(),
		NewResourceCommand(),
		NewCompletionCommand(),
		NewVersionCommand(),
	)

	return root, rt
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) OutputFormat() (output.Format, error) {
	if rt.outputFormat != "" {
		return output.ParseFormat(rt.outputFormat)
	}
	if rt.cfg != nil && rt.cfg.Settings.OutputFormat != "" {
		return output.ParseFormat(rt.cfg.Settings.OutputFormat)
	}
	return output.FormatTable, nil
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

// ErrWriter receives progress messages that must not mix with command output.
func (rt *runtimeState) ErrWriter() io.Writer {
	if rt.errWriter != nil {
		return rt.errWriter
	}
	return os.Stderr
}

// EnsureConfigLoaded reads the config file, falling back to defaults when it
// does not exist, and applies environment and flag overrides.
func (rt *runtimeState) EnsureConfigLoaded() error {
	if rt.cfg != nil {
		return nil
	}
	cfg, err := config.LoadOrDefault(rt.configPathValue())
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return err
	}
	if rt.serverOverride != "" {
		cfg.ArnicaURL = rt.serverOverride
	}
	if rt.tokenStorageOverride != "" {
		cfg.TokenStorage = rt.tokenStorageOverride
	}
	rt.cfg = cfg
	return nil
}

// App builds the application on first use.
func (rt *runtimeState) App() (*app.App, error) {
	if rt.app != nil {
		return rt.app, nil
	}
	if err := rt.EnsureConfigLoaded(); err != nil {
		return nil, err
	}
	if rt.log == nil {
		log, err := system.NewLogger(rt.verbose)
		if err != nil {
			return nil, err
		}
		rt.log = log
	}
	newApp := rt.newApp
	if newApp == nil {
		newApp = app.New
	}
	a, err := newApp(*rt.cfg,
		app.WithLogger(rt.log.Sugar()),
		app.WithOutput(rt.ErrWriter()),
	)
	if err != nil {
		return nil, err
	}
	rt.app = a
	return a, nil
}

// Close stops background work of the app, writes the metrics file if one
// was requested and flushes the logger. Only the first call has an effect.
func (rt *runtimeState) Close() {
	if rt.closed {
		return
	}
	rt.closed = true
	if rt.app != nil {
		rt.app.Close()
		rt.app = nil
	}
	if rt.metricsFile != "" {
		if err := metrics.WriteTextfile(rt.metricsFile); err != nil {
			_, _ = fmt.Fprintf(rt.ErrWriter(), "failed to write metrics file: %v\n", err)
		}
	}
	if rt.log != nil {
		_ = rt.log.Sync()
	}
}

func (rt *runtimeState) configPathValue() string {
	if rt.configPath == "" {
		return config.DefaultConfigPath()
	}
	return rt.configPath
}

// writeResult renders obj in the selected format, calling table for the
// table format.
func (rt *runtimeState) writeResult(obj any, table func(io.Writer)) error {
	format, err := rt.OutputFormat()
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		table(rt.Writer())
		return nil
	}
	return output.WriteObject(rt.Writer(), format, obj)
}
