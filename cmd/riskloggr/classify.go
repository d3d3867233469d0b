package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/riskloggr/internal/classify"
	"github.com/dshills/riskloggr/internal/framework"
	"github.com/dshills/riskloggr/internal/incident"
	"github.com/dshills/riskloggr/internal/llm"
	"github.com/dshills/riskloggr/internal/render"
)

// classifyFlags holds the parsed flags for the classify command.
type classifyFlags struct {
	file           string
	format         string
	out            string
	model          string
	noSave         bool
	temperature    float64
	temperatureSet bool
	maxTokens      int
}

func newClassifyCmd(g *globalFlags) *cobra.Command {
	var flags classifyFlags
	cmd := &cobra.Command{
		Use:   "classify [incident text...]",
		Short: "Classify an incident description and store the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.temperatureSet = cmd.Flags().Changed("temperature")
			return runClassify(cmd.Context(), g, flags, args)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&flags.file, "file", "f", "", "Read the incident from a file (\"-\" for stdin)")
	f.StringVar(&flags.format, "format", "json", "Output format: json or md")
	f.StringVar(&flags.out, "out", "", "Write output to file instead of stdout")
	f.StringVar(&flags.model, "model", "", "Override the configured provider:model")
	f.BoolVar(&flags.noSave, "no-save", false, "Print the classification without storing it")
	f.Float64Var(&flags.temperature, "temperature", 0.2, "Sampling temperature (defaults to the configured value)")
	f.IntVar(&flags.maxTokens, "max-tokens", 0, "Maximum response tokens (0 uses the configured value)")
	return cmd
}

func runClassify(ctx context.Context, g *globalFlags, flags classifyFlags, args []string) error {
	logger := newLogger(g.verbose)

	// --- Step 1: Validate flags ---
	if err := validateClassifyFlags(flags, args); err != nil {
		return codeError(exitInput, "invalid flags: %s", err)
	}

	// --- Step 2: Load config ---
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if flags.model != "" {
		if _, _, err := llm.SplitModel(flags.model); err != nil {
			return codeError(exitInput, "invalid flags: %s", err)
		}
		cfg.Model = flags.model
	}
	if flags.temperatureSet {
		cfg.Temperature = flags.temperature
	}
	if flags.maxTokens > 0 {
		cfg.MaxTokens = flags.maxTokens
	}

	// --- Step 3: Load incident ---
	var inc *incident.Incident
	if flags.file != "" {
		inc, err = incident.Load(flags.file)
	} else {
		inc, err = incident.FromText(strings.Join(args, " "))
	}
	if err != nil {
		return codeError(exitInput, "loading incident: %s", err)
	}
	logger.Debug("loaded incident", "source", inc.Source, "hash", inc.Hash, "lines", inc.LineCount)

	// --- Step 4: Create provider ---
	var provider llm.Provider
	apiKey := cfg.APIKey()
	if apiKey != "" {
		provider, err = llm.NewProvider(cfg.Model, apiKey)
		if err != nil {
			return codeError(exitProvider, "creating provider: %s", err)
		}
	}

	// --- Step 5: Classify ---
	classifier := classify.New(classify.Config{
		Model:        cfg.Model,
		APIKey:       apiKey,
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
		Timeout:      cfg.Timeout,
		RetryBackoff: cfg.RetryBackoff,
	}, provider, framework.DefaultRouter(logger), logger)

	logger.Debug("calling text-generation service", "model", cfg.Model)
	result, err := classifier.Classify(ctx, inc.Text)
	if err != nil {
		if errors.Is(err, classify.ErrConfiguration) {
			return codeError(exitProvider, "no API key configured for provider %q; run riskloggr configure --api-key", cfg.ProviderName())
		}
		return codeError(exitNoResult, "classification produced no result: %s", err)
	}

	// --- Step 6: Store ---
	doc := &render.Document{Classification: result}
	if !flags.noSave {
		st, err := openStore(cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()
		id, err := st.Save(ctx, inc.Text, result)
		if err != nil {
			return codeError(exitStorage, "saving classification: %s", err)
		}
		doc.ID = id
		logger.Info("classification saved", "id", id)
	}

	// --- Step 7: Render output ---
	renderer, err := render.NewRenderer(flags.format)
	if err != nil {
		return codeError(exitInput, "invalid format: %s", err)
	}
	data, err := renderer.Render(doc)
	if err != nil {
		return codeError(exitInput, "rendering output: %s", err)
	}
	return writeOutput(flags.out, data)
}

// validateClassifyFlags returns an error if any flag value is invalid.
func validateClassifyFlags(flags classifyFlags, args []string) error {
	switch flags.format {
	case "json", "md":
	default:
		return fmt.Errorf("--format must be json or md, got %q", flags.format)
	}

	switch {
	case flags.file != "" && len(args) > 0:
		return errors.New("pass the incident as arguments or with --file, not both")
	case flags.file == "" && len(args) == 0:
		return errors.New("an incident description is required (arguments or --file)")
	}

	if flags.temperatureSet && (flags.temperature < 0 || flags.temperature > 2) {
		return fmt.Errorf("--temperature must be between 0.0 and 2.0, got %g", flags.temperature)
	}
	if flags.maxTokens < 0 {
		return fmt.Errorf("--max-tokens must not be negative, got %d", flags.maxTokens)
	}
	return nil
}
