package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/riskloggr/internal/config"
)

type configureFlags struct {
	apiKey   string
	model    string
	actor    string
	database string
}

func newConfigureCmd(g *globalFlags) *cobra.Command {
	var flags configureFlags
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Write settings to the config file",
		Long:  "configure updates the config file (" + config.EnvConfig + " or ~/.riskloggr/config.yaml). With no flags it prints the current settings.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure(g, flags)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.apiKey, "api-key", "", "API key for the configured model's provider")
	f.StringVar(&flags.model, "model", "", "Default provider:model, e.g. openai:gpt-4o")
	f.StringVar(&flags.actor, "actor", "", "Identity recorded in the download log")
	f.StringVar(&flags.database, "database", "", "Database directory")
	return cmd
}

func runConfigure(g *globalFlags, flags configureFlags) error {
	path, err := config.Path()
	if err != nil {
		return codeError(exitInput, "%s", err)
	}
	// Read, not Load: environment credentials must not end up in the file.
	cfg, err := config.Read(path)
	if err != nil {
		return codeError(exitInput, "%s", err)
	}

	if flags == (configureFlags{}) {
		keyState := "not set"
		if cfg.APIKey() != "" {
			keyState = "set"
		}
		fmt.Fprintf(os.Stdout, "config:   %s\nmodel:    %s\napi key:  %s\nactor:    %s\ndatabase: %s\n",
			path, cfg.Model, keyState, cfg.Actor, orDash(cfg.Database))
		return nil
	}

	if flags.model != "" {
		cfg.Model = flags.model
	}
	if err := cfg.Validate(); err != nil {
		return codeError(exitInput, "invalid flags: %s", err)
	}
	if flags.apiKey != "" {
		cfg.SetAPIKey(cfg.ProviderName(), flags.apiKey)
	}
	if flags.actor != "" {
		cfg.Actor = flags.actor
	}
	if flags.database != "" {
		cfg.Database = flags.database
	}

	if err := config.Save(cfg, path); err != nil {
		return codeError(exitInput, "saving config: %s", err)
	}
	newLogger(g.verbose).Info("configuration saved", "path", path)
	fmt.Fprintf(os.Stdout, "Configuration saved to %s\n", path)
	return nil
}
