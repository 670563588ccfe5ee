package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"FactorPulse/internal/board"
	"FactorPulse/internal/model"
	"FactorPulse/internal/notifier"
	"FactorPulse/internal/ranking"
	"FactorPulse/internal/rotation"
)

func newRankingsCmd(opts *rootOptions) *cobra.Command {
	var horizon string
	var n int
	var format string

	cmd := &cobra.Command{
		Use:   "rankings",
		Short: "Print the best and worst factors at one horizon",
		Example: `  factorpulse rankings
  factorpulse rankings --horizon 3M --n 10
  factorpulse rankings --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := horizonFlag(horizon, opts.cfg.Report.Horizon)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("n") {
				n = opts.cfg.Report.TopN
			}
			a := newApp(cmd.Context(), opts.cfg, opts.log)
			defer a.Close()

			r, err := a.board.Rankings(cmd.Context(), h, n)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == "json" {
				return writeJSON(out, r)
			}
			return writeRankings(out, r)
		},
	}
	cmd.Flags().StringVar(&horizon, "horizon", "", "Horizon: 1D, 5D, 1M, 3M, 6M, 12M")
	cmd.Flags().IntVar(&n, "n", 5, "Number of factors per list")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json")
	return cmd
}

func newRotationCmd(opts *rootOptions) *cobra.Command {
	var x, y string
	var format string

	cmd := &cobra.Command{
		Use:   "rotation",
		Short: "Print the factor rotation quadrants",
		Example: `  factorpulse rotation
  factorpulse rotation --x 1D --y 6M`,
		RunE: func(cmd *cobra.Command, args []string) error {
			xh, err := horizonFlag(x, opts.cfg.Report.XHorizon)
			if err != nil {
				return err
			}
			yh, err := horizonFlag(y, opts.cfg.Report.YHorizon)
			if err != nil {
				return err
			}
			a := newApp(cmd.Context(), opts.cfg, opts.log)
			defer a.Close()

			view, err := a.board.Rotation(cmd.Context(), xh, yh)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == "json" {
				return writeJSON(out, view)
			}
			return writeRotation(out, view)
		},
	}
	cmd.Flags().StringVar(&x, "x", "", "Short-term horizon: 1D, 5D, 1M")
	cmd.Flags().StringVar(&y, "y", "", "Medium-term horizon: 1M, 3M, 6M, 12M")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json")
	return cmd
}

func newSummaryCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print cross-section statistics per horizon",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp(cmd.Context(), opts.cfg, opts.log)
			defer a.Close()

			sum, err := a.board.Summary(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == "json" {
				return writeJSON(out, sum)
			}
			return writeSummary(out, sum)
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json")
	return cmd
}

func newFactorCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "factor NAME",
		Short: "Print one factor's returns",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp(cmd.Context(), opts.cfg, opts.log)
			defer a.Close()

			rec, err := a.board.FactorByName(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == "json" {
				return writeJSON(out, rec)
			}
			return writeFactor(out, rec)
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json")
	return cmd
}

func horizonFlag(raw string, def model.Horizon) (model.Horizon, error) {
	if raw == "" {
		return def, nil
	}
	return model.ParseHorizon(raw)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeRankings(w io.Writer, r *board.Rankings) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	section := func(title string, list []ranking.RankedFactor) {
		fmt.Fprintf(tw, "%s (%s)\n", title, r.Horizon)
		fmt.Fprintln(tw, "#\tNAME\tTYPE\tRETURN")
		for i, rf := range list {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, rf.Record.Name, rf.Record.Type, notifier.FormatPercent(rf.Value))
		}
	}
	section("TOP", r.Top)
	fmt.Fprintln(tw)
	section("BOTTOM", r.Bottom)
	return tw.Flush()
}

func writeRotation(w io.Writer, view *rotation.View) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "QUADRANT\tNAME\tX (%s)\tY (%s)\n", view.X, view.Y)
	for _, g := range view.Groups {
		for _, p := range g.Points {
			x, y := p.X, p.Y
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", g.Quadrant, p.Name, notifier.FormatPercent(&x), notifier.FormatPercent(&y))
		}
	}
	if len(view.Skipped) > 0 {
		fmt.Fprintf(tw, "\nskipped (no data): %s\n", strings.Join(view.Skipped, ", "))
	}
	return tw.Flush()
}

func writeSummary(w io.Writer, sum *board.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%d factors (%d thematic, %d statistical) from %s at %s\n\n",
		sum.Factors, sum.Thematic, sum.Statistical, sum.Source, sum.AsOf.Format("2006-01-02 15:04"))
	fmt.Fprintln(tw, "HORIZON\tCOUNT\tMEAN\tMEDIAN\tSTDDEV\tBREADTH\tBEST\tWORST")
	for _, s := range sum.Horizons {
		if s.Count == 0 {
			fmt.Fprintf(tw, "%s\t0\t-\t-\t-\t-\t-\t-\n", s.Horizon)
			continue
		}
		mean, median, sd := s.Mean, s.Median, s.StdDev
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%.0f%%\t%s\t%s\n",
			s.Horizon, s.Count, notifier.FormatPercent(&mean), notifier.FormatPercent(&median),
			notifier.FormatPercent(&sd), s.Breadth*100, s.Best, s.Worst)
	}
	return tw.Flush()
}

func writeFactor(w io.Writer, rec *model.FactorRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t#%d %s\n", rec.Name, rec.ID, rec.Type)
	if rec.Description != "" {
		fmt.Fprintf(tw, "%s\n", rec.Description)
	}
	if rec.NumHoldings != nil {
		fmt.Fprintf(tw, "holdings\t%d\n", *rec.NumHoldings)
	}
	for i, v := range rec.Series() {
		fmt.Fprintf(tw, "%s\t%s\n", model.AllHorizons[i], notifier.FormatPercent(v))
	}
	return tw.Flush()
}
