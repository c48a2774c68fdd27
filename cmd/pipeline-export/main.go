package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"go-elhub-stats/internal/config"
	"go-elhub-stats/internal/model"
	"go-elhub-stats/internal/pipeline"
	"go-elhub-stats/internal/store"
	"go-elhub-stats/pkg/utils"
)

type options struct {
	configPath   string
	outputDir    string
	format       string
	strict       bool
	countDropped bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "pipeline-export",
		Short: "Load the Elhub extracts once and write every view to files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, true, true)
		},
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&opts.outputDir, "out", "", "output directory (overrides output_dir)")
	flags.StringVar(&opts.format, "format", "csv", "csv, xlsx or json")
	flags.BoolVar(&opts.strict, "strict", false, "abort on the first unparsable row")
	flags.BoolVar(&opts.countDropped, "count-dropped", false, "report rows dropped by each join")

	root.AddCommand(&cobra.Command{
		Use:   "market",
		Short: "Export the joined market-process log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, true, false)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "installations",
		Short: "Export installation running totals and the months x years table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, false, true)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "runs",
		Short: "List recorded load runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRuns(cmd.OutOrStdout(), opts)
		},
	})
	return root
}

func loadConfig(opts *options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if opts.outputDir != "" {
		cfg.OutputDir = opts.outputDir
	}
	cfg.Strict = cfg.Strict || opts.strict
	cfg.CountDropped = cfg.CountDropped || opts.countDropped
	return cfg, nil
}

func run(ctx context.Context, opts *options, market, installations bool) error {
	format := strings.ToLower(opts.format)
	if format != "csv" && format != "xlsx" && format != "json" {
		return fmt.Errorf("unknown format %q", opts.format)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if cfg.DBPath != "" {
		if err := store.InitDB(cfg.DBPath); err != nil {
			return err
		}
		defer store.Close()
	}

	if ctx == nil {
		ctx = context.Background()
	}
	dashboard := pipeline.NewDashboard(cfg, nil)
	outputs := utils.NewOutputManager(cfg.OutputDir)
	now := time.Now()
	var results []pipeline.ExportResult
	var loadErrs []error

	// each page loads on its own; a broken page does not block the other export
	if market {
		if err := dashboard.RefreshPage(ctx, pipeline.PageMarketProcesses); err != nil {
			loadErrs = append(loadErrs, err)
		} else {
			results = append(results, exportMarket(dashboard, outputs, format, now))
		}
	}

	if installations {
		if err := dashboard.RefreshPage(ctx, pipeline.PageInstallations); err != nil {
			loadErrs = append(loadErrs, err)
		} else {
			result, err := exportInstallations(dashboard, outputs, format, now)
			if err != nil {
				return err
			}
			results = append(results, result)
		}
	}

	failed := len(loadErrs)
	for _, err := range loadErrs {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
	}
	for _, r := range results {
		if !r.Success {
			failed++
			fmt.Fprintf(os.Stderr, "❌ %s: %s\n", r.Path, r.Error)
			continue
		}
		fmt.Printf("💾 %s (%d records)\n", r.Path, r.RecordCount)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d exports failed", failed, len(results)+len(loadErrs))
	}
	return nil
}

func exportMarket(dashboard *pipeline.Dashboard, outputs *utils.OutputManager, format string, now time.Time) pipeline.ExportResult {
	jt, loadRun := dashboard.MarketProcesses()
	name := pipeline.ExportFileName("elhub-"+pipeline.PageMarketProcesses, format, now)
	return pipeline.SaveExport(outputs, loadRun.ID, name, func(w io.Writer) (int, error) {
		switch format {
		case "xlsx":
			return pipeline.WriteXLSX(w, pipeline.TableSheet(pipeline.PageMarketProcesses, jt.Table))
		case "json":
			return jt.Len(), pipeline.WriteJSON(w, pipeline.PageMarketProcesses, jt.Len(), jt.Records)
		default:
			return pipeline.WriteDelimited(w, jt.Table, ',')
		}
	})
}

func exportInstallations(dashboard *pipeline.Dashboard, outputs *utils.OutputManager, format string, now time.Time) (pipeline.ExportResult, error) {
	overview, err := dashboard.InstallationOverview()
	if err != nil {
		return pipeline.ExportResult{}, err
	}
	_, loadRun := dashboard.Installations()
	name := pipeline.ExportFileName("elhub-"+pipeline.PageInstallations, format, now)
	return pipeline.SaveExport(outputs, loadRun.ID, name, func(w io.Writer) (int, error) {
		switch format {
		case "xlsx":
			return pipeline.WriteXLSX(w,
				runningTotalsSheet("antall", overview.Units),
				runningTotalsSheet("effekt", overview.Capacity),
				pipeline.WideSheet("per-maaned", overview.UnitsByMonth))
		case "json":
			return len(overview.Units.Periods), pipeline.WriteJSON(w, pipeline.PageInstallations, len(overview.Units.Periods), overview)
		default:
			return pipeline.WriteWideDelimited(w, overview.UnitsByMonth, ',')
		}
	}), nil
}

func runningTotalsSheet(name string, rt *model.RunningTotals) pipeline.Sheet {
	s := pipeline.Sheet{Name: name, Header: []string{"period", "opened", "closed", "sum", "cumulative"}}
	for _, p := range rt.Periods {
		s.Rows = append(s.Rows, []interface{}{p.Period.String(), p.Opened, p.Closed, p.Sum, p.Cumulative})
	}
	return s
}

func listRuns(out io.Writer, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if cfg.DBPath == "" {
		return fmt.Errorf("no db_path configured")
	}
	if err := store.InitDB(cfg.DBPath); err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListLoadRuns()
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Fprintf(out, "%s  %-16s  %s  fact=%d joined=%d quarantined=%d\n",
			r.ID, r.Page, r.CreatedAt.Format(time.RFC3339), r.FactRows, r.JoinedRows, r.Quarantined)
	}
	return nil
}
