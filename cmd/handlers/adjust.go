package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"carbonlens/internal/basescore"
	"carbonlens/internal/config"
	"carbonlens/internal/logger"
	"carbonlens/internal/pipeline"

	"github.com/spf13/cobra"
)

type adjustOptions struct {
	manufacturer string
	baseScore    float64
	hasBaseScore bool
	year         int
	pdfPath      string
	limit        int
	refresh      bool
	jsonOutput   bool
}

// NewAdjustCmd creates the adjust command
func NewAdjustCmd() *cobra.Command {
	var opts adjustOptions

	cmd := &cobra.Command{
		Use:   "adjust",
		Short: "Adjust a manufacturer's sustainability score",
		Long: `Adjust a manufacturer's base sustainability score using its sustainability
report and public social discussion.

The base score is taken from --base-score, or looked up in the configured
score table for --year. When --pdf is omitted the default report location
is used if a report exists there.

Examples:
  # Adjust with an explicit base score and report
  carbonlens adjust --manufacturer Toyota --base-score 72.5 --pdf toyota.pdf

  # Look up the 2023 base score and ignore cached evidence
  carbonlens adjust --manufacturer Honda --year 2023 --refresh`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.hasBaseScore = cmd.Flags().Changed("base-score")
			return runAdjust(cmd.Context(), cmd.OutOrStdout(), config.Get(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.manufacturer, "manufacturer", "m", "", "Manufacturer name (required)")
	cmd.Flags().Float64VarP(&opts.baseScore, "base-score", "s", 0, "Base sustainability score (0-100)")
	cmd.Flags().IntVarP(&opts.year, "year", "y", 0, "Model year used to look up the base score (default from config)")
	cmd.Flags().StringVarP(&opts.pdfPath, "pdf", "p", "", "Sustainability report path or URL")
	cmd.Flags().IntVarP(&opts.limit, "limit", "l", 0, "Maximum social posts to fetch (default from config)")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "Invalidate cached evidence before running")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("manufacturer")
	cmd.MarkFlagsMutuallyExclusive("base-score", "year")

	return cmd
}

func runAdjust(ctx context.Context, out io.Writer, cfg *config.Config, opts adjustOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := resolveRequest(cfg, opts, loadScoreTable)
	if err != nil {
		return err
	}

	p, err := pipeline.NewBuilder(cfg).Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Error("Failed to close evidence cache", err)
		}
	}()

	if opts.refresh {
		if caches := p.Caches(); caches != nil {
			if err := caches.BumpVersion(); err != nil {
				return fmt.Errorf("failed to invalidate cache: %w", err)
			}
		}
	}

	res, err := p.Run(ctx, req)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	_, err = fmt.Fprintln(out, renderResult(res))
	return err
}

// resolveRequest fills the base score and report path the flags left out.
func resolveRequest(cfg *config.Config, opts adjustOptions, loadTable func(string) (*basescore.Table, error)) (pipeline.Request, error) {
	req := pipeline.Request{
		Manufacturer: strings.TrimSpace(opts.manufacturer),
		BaseScore:    opts.baseScore,
		PDFPath:      opts.pdfPath,
		Limit:        opts.limit,
	}
	if err := pipeline.ValidateManufacturer(req.Manufacturer); err != nil {
		return pipeline.Request{}, err
	}

	if !opts.hasBaseScore {
		table, err := loadTable(cfg.Scores.Path)
		if err != nil {
			return pipeline.Request{}, fmt.Errorf("no --base-score given and the score table could not be loaded: %w", err)
		}
		year := opts.year
		if year == 0 {
			year = cfg.Scores.DefaultYear
		}
		score, err := table.Lookup(req.Manufacturer, year)
		if err != nil {
			return pipeline.Request{}, err
		}
		req.BaseScore = score
	}

	if req.PDFPath == "" {
		if path := cfg.Document.ReportPath(req.Manufacturer); path != "" {
			if _, err := os.Stat(path); err == nil {
				logger.Debug("Using default sustainability report", "path", path)
				req.PDFPath = path
			}
		}
	}

	return req, nil
}

func loadScoreTable(path string) (*basescore.Table, error) {
	if path == "" {
		return nil, fmt.Errorf("scores.path is not configured")
	}
	return basescore.Load(path)
}
