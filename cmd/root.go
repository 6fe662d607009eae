// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe/internal/config"
	"github.com/xkilldash9x/uiprobe/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

var cfgFile string

// flagBindings maps persistent flags to the configuration keys they override.
var flagBindings = map[string]string{
	"base-url":      "target.base_url",
	"headless":      "browser.headless",
	"evidence-dir":  "evidence.dir",
	"report":        "run.report",
	"report-format": "run.report_format",
	"fail-fast":     "run.fail_fast",
	"log-level":     "logger.level",
}

// NewRootCommand builds the uiprobe command tree. Without a subcommand it runs
// every scenario.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uiprobe",
		Short: "uiprobe drives a browser through UI scenarios and captures evidence.",
		Long: `uiprobe signs in to a web application with a real Chromium browser, walks
through a fixed set of scenarios, waits for expected elements to appear and
saves a screenshot at each checkpoint.`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			// 1. Initialize configuration loading
			if err := initializeConfig(cmd, v); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			// 2. Create the validated configuration object.
			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "uiprobe"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			// 3. Initialize the logger with the loaded config.
			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Debug("Starting uiprobe", zap.String("version", Version))

			// 4. Store the config in the command's context for subcommands.
			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd, nil)
		},
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./uiprobe.yaml)")
	cmd.PersistentFlags().String("base-url", "", "base URL of the application under test")
	cmd.PersistentFlags().Bool("headless", false, "run the browser without a window")
	cmd.PersistentFlags().String("evidence-dir", "", "directory screenshots are written to")
	cmd.PersistentFlags().String("report", "", "write a run report to this path ('stdout' for standard output)")
	cmd.PersistentFlags().String("report-format", "json", "run report format: json or text")
	cmd.PersistentFlags().Bool("fail-fast", true, "stop after the first scenario that does not pass")
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	cmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the command tree with args under ctx.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		observability.GetLogger().Debug("Command execution failed", zap.Error(err))
		root.PrintErrln("Error:", err)
	}
	return err
}

// initializeConfig reads the config file and environment into v and binds
// the flags that were set on the command line.
func initializeConfig(cmd *cobra.Command, v *viper.Viper) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("uiprobe")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("UIPROBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults/env vars
	}

	for flagName, key := range flagBindings {
		flag := cmd.Flags().Lookup(flagName)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding --%s: %w", flagName, err)
		}
	}
	return nil
}

// configFromContext returns the configuration stored by PersistentPreRunE.
func configFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}
