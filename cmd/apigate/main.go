// Package main is the entry point for apigate.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/apigate/internal/config"
	"github.com/vyrodovalexey/apigate/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// exitFunc terminates the process. Replaced in tests.
var exitFunc = os.Exit

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	envFile     string
	showVersion bool

	issueToken bool
	tokenID    string
	tokenEmail string
	tokenRole  string
	tokenName  string
}

func main() {
	flags, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		exitFunc(2)
		return
	}

	if flags.showVersion {
		printVersion(os.Stdout)
		return
	}

	cfg, warnings, err := loadConfig(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		exitFunc(1)
		return
	}

	logger := initLogger(cfg)
	defer func() { _ = logger.Sync() }()

	for _, w := range warnings {
		logger.Warn("configuration warning", observability.String("message", w))
	}

	if flags.issueToken {
		if err := issueToken(context.Background(), cfg, flags, os.Stdout, logger); err != nil {
			fatalWithSync(logger, "failed to issue token", observability.Error(err))
		}
		return
	}

	logger.Info("starting apigate",
		observability.String("version", version),
		observability.String("config", flags.configPath),
	)

	app, err := newApplication(cfg, logger)
	if err != nil {
		fatalWithSync(logger, "failed to initialize application", observability.Error(err))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.run(ctx); err != nil {
		fatalWithSync(logger, "apigate stopped with error", observability.Error(err))
	}
}

// parseFlags parses command line flags. Defaults come from the environment.
func parseFlags(args []string) (cliFlags, error) {
	var f cliFlags

	fs := flag.NewFlagSet("apigate", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", getEnvOrDefault("APIGATE_CONFIG_PATH", ""),
		"Path to YAML configuration file (optional)")
	fs.StringVar(&f.envFile, "env-file", getEnvOrDefault("APIGATE_ENV_FILE", ".env"),
		"Path to dotenv file loaded before environment overrides")
	fs.BoolVar(&f.showVersion, "version", false, "Show version information")
	fs.BoolVar(&f.issueToken, "issue-token", false, "Print a signed token for the given principal and exit")
	fs.StringVar(&f.tokenID, "id", "", "Principal id for -issue-token")
	fs.StringVar(&f.tokenEmail, "email", "", "Principal email for -issue-token")
	fs.StringVar(&f.tokenRole, "role", "user", "Principal role for -issue-token")
	fs.StringVar(&f.tokenName, "name", "", "Principal name for -issue-token")

	if err := fs.Parse(args); err != nil {
		return cliFlags{}, err
	}
	return f, nil
}

// printVersion prints version information.
func printVersion(w io.Writer) {
	_, _ = fmt.Fprintf(w, "apigate version %s\n", version)
	_, _ = fmt.Fprintf(w, "  Build time: %s\n", buildTime)
	_, _ = fmt.Fprintf(w, "  Git commit: %s\n", gitCommit)
}

// loadConfig loads and validates the configuration.
func loadConfig(flags cliFlags) (*config.Config, []string, error) {
	var opts []config.LoaderOption
	if flags.envFile != "" {
		opts = append(opts, config.WithEnvFiles(flags.envFile))
	}

	cfg, err := config.Load(flags.configPath, opts...)
	if err != nil {
		return nil, nil, err
	}

	warnings, err := config.ValidateConfig(cfg)
	if err != nil {
		return nil, warnings, err
	}
	return cfg, warnings, nil
}

// initLogger initializes the process logger and installs it globally.
func initLogger(cfg *config.Config) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
		App:    cfg.App.Name,
		Env:    cfg.App.Env,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		exitFunc(1)
		return observability.NopLogger()
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// fatalWithSync logs at error level, flushes the logger and exits.
func fatalWithSync(logger observability.Logger, msg string, fields ...observability.Field) {
	logger.Error(msg, fields...)
	_ = logger.Sync()
	exitFunc(1)
}
