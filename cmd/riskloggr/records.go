package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/riskloggr/internal/diff"
	"github.com/dshills/riskloggr/internal/framework"
	"github.com/dshills/riskloggr/internal/render"
	"github.com/dshills/riskloggr/internal/review"
	"github.com/dshills/riskloggr/internal/schema"
	"github.com/dshills/riskloggr/internal/schema/validate"
	"github.com/dshills/riskloggr/internal/store"
)

type listFlags struct {
	format      string
	out         string
	minSeverity int
}

func newListCmd(g *globalFlags) *cobra.Command {
	var flags listFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored classifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), g, flags)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.format, "format", "table", "Output format: table or json")
	f.StringVar(&flags.out, "out", "", "Write output to file instead of stdout")
	f.IntVar(&flags.minSeverity, "min-severity", 1, "Only list classifications scored at or above this (1-5)")
	return cmd
}

func runList(ctx context.Context, g *globalFlags, flags listFlags) error {
	switch flags.format {
	case "table", "json":
	default:
		return codeError(exitInput, "invalid flags: --format must be table or json, got %q", flags.format)
	}
	if err := validateMinSeverity(flags.minSeverity); err != nil {
		return err
	}

	records, err := loadRecords(ctx, g)
	if err != nil {
		return err
	}
	records = filterRecords(records, flags.minSeverity)

	var buf bytes.Buffer
	if flags.format == "json" {
		if err := render.WriteJSON(&buf, records); err != nil {
			return codeError(exitInput, "rendering output: %s", err)
		}
		return writeOutput(flags.out, buf.Bytes())
	}

	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIMESTAMP\tSEVERITY\tCATEGORY\tLIKELIHOOD\tRESIDUAL")
	for _, rec := range records {
		c := rec.Classification
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			rec.ID,
			rec.Timestamp.Local().Format("2006-01-02 15:04"),
			c.SeverityScore,
			c.BaselCategory,
			orDash(string(c.Likelihood)),
			orDash(string(c.ResidualRisk)),
		)
	}
	if err := tw.Flush(); err != nil {
		return codeError(exitInput, "rendering output: %s", err)
	}
	return writeOutput(flags.out, buf.Bytes())
}

type showFlags struct {
	format string
	out    string
}

func newShowCmd(g *globalFlags) *cobra.Command {
	var flags showFlags
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one stored classification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), g, args[0], flags)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.format, "format", "md", "Output format: json or md")
	f.StringVar(&flags.out, "out", "", "Write output to file instead of stdout")
	return cmd
}

func runShow(ctx context.Context, g *globalFlags, id string, flags showFlags) error {
	renderer, err := render.NewRenderer(flags.format)
	if err != nil {
		return codeError(exitInput, "invalid format: %s", err)
	}
	rec, err := getRecord(ctx, g, id)
	if err != nil {
		return err
	}
	data, err := renderer.Render(&render.Document{ID: rec.ID, Classification: rec.Classification})
	if err != nil {
		return codeError(exitInput, "rendering output: %s", err)
	}
	return writeOutput(flags.out, data)
}

// updateFlags holds the analyst edits for one record. Empty scalars and nil
// lists leave the stored value unchanged.
type updateFlags struct {
	inherentRisk string
	residualRisk string
	likelihood   string
	impacts      []string
	tags         []string
	retag        bool
	dryRun       bool
}

func newUpdateCmd(g *globalFlags) *cobra.Command {
	var flags updateFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit the risk assessment of a stored classification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd.Context(), g, args[0], flags)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.inherentRisk, "inherent-risk", "", "Inherent risk: Low, Medium, High or Very High")
	f.StringVar(&flags.residualRisk, "residual-risk", "", "Residual risk: Low, Medium, High or Very High")
	f.StringVar(&flags.likelihood, "likelihood", "", "Likelihood: Rare, Unlikely, Possible, Likely or Certain")
	f.StringArrayVar(&flags.impacts, "impact", nil, "Impact type (may be repeated; replaces the stored list)")
	f.StringArrayVar(&flags.tags, "tag", nil, "Framework tag as \"Framework: tag, tag\" (may be repeated; replaces the stored list)")
	f.BoolVar(&flags.retag, "retag", false, "Recompute framework tags from the stored fields")
	f.BoolVar(&flags.dryRun, "dry-run", false, "Print the changes without saving them")
	return cmd
}

func runUpdate(ctx context.Context, g *globalFlags, id string, flags updateFlags) error {
	if flags.retag && flags.tags != nil {
		return codeError(exitInput, "invalid flags: --retag and --tag cannot be combined")
	}
	if err := validateUpdateFlags(flags); err != nil {
		return codeError(exitInput, "invalid flags: %s", err)
	}

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	logger := newLogger(g.verbose)
	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return codeError(exitNoResult, "no classification with id %s", id)
	}
	if err != nil {
		return codeError(exitStorage, "reading classification: %s", err)
	}

	before := rec.Classification
	after := before.Clone()
	if flags.inherentRisk != "" {
		after.InherentRisk = schema.RiskLevel(flags.inherentRisk)
	}
	if flags.residualRisk != "" {
		after.ResidualRisk = schema.RiskLevel(flags.residualRisk)
	}
	if flags.likelihood != "" {
		after.Likelihood = schema.Likelihood(flags.likelihood)
	}
	if flags.impacts != nil {
		after.ImpactType = make([]schema.ImpactType, len(flags.impacts))
		for i, it := range flags.impacts {
			after.ImpactType[i] = schema.ImpactType(it)
		}
	}
	switch {
	case flags.tags != nil:
		after.FrameworkTags = append([]string(nil), flags.tags...)
	case flags.retag:
		after.FrameworkTags = framework.DefaultRouter(logger).Route(after).Rendered()
	}
	after.Normalize()
	if err := validate.Classification(after); err != nil {
		return codeError(exitInput, "updated classification is invalid: %s", err)
	}

	changes := diff.Classifications(before, after)
	if changes == "" {
		fmt.Fprintln(os.Stdout, "No changes.")
		return nil
	}
	fmt.Fprint(os.Stdout, changes)
	if flags.dryRun {
		return nil
	}
	if err := st.Update(ctx, id, after); err != nil {
		return codeError(exitStorage, "saving classification: %s", err)
	}
	return nil
}

// validateUpdateFlags checks every edited value against its enumeration.
func validateUpdateFlags(flags updateFlags) error {
	if flags.inherentRisk != "" && !schema.IsValidRiskLevel(schema.RiskLevel(flags.inherentRisk)) {
		return fmt.Errorf("--inherent-risk %q is not one of %s", flags.inherentRisk, joinValues(schema.RiskLevels))
	}
	if flags.residualRisk != "" && !schema.IsValidRiskLevel(schema.RiskLevel(flags.residualRisk)) {
		return fmt.Errorf("--residual-risk %q is not one of %s", flags.residualRisk, joinValues(schema.RiskLevels))
	}
	if flags.likelihood != "" && !schema.IsValidLikelihood(schema.Likelihood(flags.likelihood)) {
		return fmt.Errorf("--likelihood %q is not one of %s", flags.likelihood, joinValues(schema.Likelihoods))
	}
	for _, it := range flags.impacts {
		if !schema.IsValidImpactType(schema.ImpactType(it)) {
			return fmt.Errorf("--impact %q is not one of %s", it, joinValues(schema.ImpactTypes))
		}
	}
	for _, tag := range flags.tags {
		if _, _, err := framework.ParseTag(tag); err != nil {
			return err
		}
	}
	return nil
}

type exportFlags struct {
	format string
	out    string
	actor  string
}

func newExportCmd(g *globalFlags) *cobra.Command {
	var flags exportFlags
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every stored classification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), g, flags)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.format, "format", "csv", "Output format: csv or json")
	f.StringVar(&flags.out, "out", "", "Write output to file instead of stdout")
	f.StringVar(&flags.actor, "actor", "", "Identity recorded in the download log (defaults to the configured actor)")
	return cmd
}

func runExport(ctx context.Context, g *globalFlags, flags exportFlags) error {
	switch flags.format {
	case "csv", "json":
	default:
		return codeError(exitInput, "invalid flags: --format must be csv or json, got %q", flags.format)
	}

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	logger := newLogger(g.verbose)
	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.All(ctx)
	if err != nil {
		return codeError(exitStorage, "reading classifications: %s", err)
	}

	var buf bytes.Buffer
	if flags.format == "csv" {
		err = render.WriteCSV(&buf, records)
	} else {
		err = render.WriteJSON(&buf, records)
	}
	if err != nil {
		return codeError(exitInput, "rendering export: %s", err)
	}
	if err := writeOutput(flags.out, buf.Bytes()); err != nil {
		return err
	}

	// The download log is advisory; a failed write never fails the export.
	actor := flags.actor
	if actor == "" {
		actor = cfg.Actor
	}
	if err := st.LogDownload(ctx, flags.format, actor); err != nil {
		logger.Warn("recording download failed", "error", err)
	}
	return nil
}

type importFlags struct {
	dryRun bool
}

func newImportCmd(g *globalFlags) *cobra.Command {
	var flags importFlags
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import classifications from a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), g, args[0], flags)
		},
	}
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Validate the file without storing anything")
	return cmd
}

func runImport(ctx context.Context, g *globalFlags, path string, flags importFlags) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	logger := newLogger(g.verbose)

	f, err := os.Open(path)
	if err != nil {
		return codeError(exitInput, "opening import file: %s", err)
	}
	defer f.Close()
	rows, err := render.ReadCSV(f)
	if err != nil {
		return codeError(exitInput, "reading %s: %s", path, err)
	}

	var st *store.Store
	if !flags.dryRun {
		st, err = openStore(cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	router := framework.DefaultRouter(logger)
	imported := 0
	for _, r := range rows {
		if r.Err != nil {
			logger.Warn("skipping row", "line", r.Line, "error", r.Err)
			continue
		}
		c := r.Classification
		c.FrameworkTags = router.Route(c).Rendered()
		if st != nil {
			if _, err := st.Save(ctx, c.IncidentDescription, c); err != nil {
				return codeError(exitStorage, "saving row at line %d: %s", r.Line, err)
			}
		}
		imported++
	}

	fmt.Fprintf(os.Stdout, "Imported %d of %d row(s) from %s\n", imported, len(rows), path)
	if imported == 0 && len(rows) > 0 {
		return codeError(exitNoResult, "no rows in %s could be imported", path)
	}
	return nil
}

type heatmapFlags struct {
	out         string
	minSeverity int
}

func newHeatmapCmd(g *globalFlags) *cobra.Command {
	var flags heatmapFlags
	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Render a likelihood by impact heatmap of stored classifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeatmap(cmd.Context(), g, flags)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.out, "out", "", "Write output to file instead of stdout")
	f.IntVar(&flags.minSeverity, "min-severity", 1, "Only count classifications scored at or above this (1-5)")
	return cmd
}

func runHeatmap(ctx context.Context, g *globalFlags, flags heatmapFlags) error {
	if err := validateMinSeverity(flags.minSeverity); err != nil {
		return err
	}
	records, err := loadRecords(ctx, g)
	if err != nil {
		return err
	}

	cs := make([]*schema.Classification, len(records))
	for i, rec := range records {
		cs[i] = rec.Classification
	}
	cs = review.FilterBySeverity(cs, flags.minSeverity)

	var buf bytes.Buffer
	buf.Write(render.Heatmap(review.BuildHeatmap(cs)))
	if len(cs) > 0 {
		counts := review.SeverityCounts(cs)
		buf.WriteString("\nSeverity:")
		for score := 1; score <= 5; score++ {
			fmt.Fprintf(&buf, " %d=%d", score, counts[score])
		}
		buf.WriteString("\n")
	}
	return writeOutput(flags.out, buf.Bytes())
}

func loadRecords(ctx context.Context, g *globalFlags) ([]store.Record, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	st, err := openStore(cfg, newLogger(g.verbose))
	if err != nil {
		return nil, err
	}
	defer st.Close()
	records, err := st.All(ctx)
	if err != nil {
		return nil, codeError(exitStorage, "reading classifications: %s", err)
	}
	return records, nil
}

func getRecord(ctx context.Context, g *globalFlags, id string) (*store.Record, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	st, err := openStore(cfg, newLogger(g.verbose))
	if err != nil {
		return nil, err
	}
	defer st.Close()
	rec, err := st.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, codeError(exitNoResult, "no classification with id %s", id)
	}
	if err != nil {
		return nil, codeError(exitStorage, "reading classification: %s", err)
	}
	return rec, nil
}

func filterRecords(records []store.Record, minSeverity int) []store.Record {
	out := records[:0:0]
	for _, rec := range records {
		if rec.Classification.SeverityScore >= minSeverity {
			out = append(out, rec)
		}
	}
	return out
}

func validateMinSeverity(n int) error {
	if n < 1 || n > 5 {
		return codeError(exitInput, "invalid flags: --min-severity must be between 1 and 5, got %d", n)
	}
	return nil
}

func joinValues[T ~string](vs []T) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
