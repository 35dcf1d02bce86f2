package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/report"
	"github.com/ignite/offer-diagnostics/internal/service/diagnostics"
	"github.com/ignite/offer-diagnostics/internal/storage"
	"github.com/ignite/offer-diagnostics/internal/workbook"
)

var (
	runInput   string
	runToday   string
	runOutput  string
	runJSON    string
	runTimeout time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate one report",
	Long: `Generate one report from an input workbook and write the nine-sheet
result workbook.

With report.source set to everflow, snowflake or postgres the flow rows come
from that source and only the reference sheets of --input are read.

Example usage:
  offerdiag run --input flow.xlsx --out diagnostics.xlsx
  offerdiag run --input flow.xlsx --today 2026-10-14 --json report.json`,
	RunE: runReport,
}

func init() {
	runCmd.Flags().StringVarP(&runInput, "input", "i", "", "Input workbook (.xlsx)")
	runCmd.Flags().StringVar(&runToday, "today", "", "Run date YYYY-MM-DD (default: today)")
	runCmd.Flags().StringVarP(&runOutput, "out", "o", "", "Output workbook path (default: offer-diagnostics-<today>.xlsx)")
	runCmd.Flags().StringVar(&runJSON, "json", "", "Also write the report as JSON to this path, - for stdout")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 10*time.Minute, "Overall run timeout")
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("initialising storage: %w", err)
	}
	rt, err := buildRuntime(ctx, cfg, store)
	if err != nil {
		return err
	}
	defer rt.close()

	req := diagnostics.Request{}
	if runToday != "" {
		req.Today, err = time.Parse(domain.DateLayout, runToday)
		if err != nil {
			return fmt.Errorf("--today must be YYYY-MM-DD: %w", err)
		}
	}
	if runInput != "" {
		f, err := os.Open(runInput)
		if err != nil {
			return err
		}
		defer f.Close()
		req.Workbook = f
	}

	rep, err := rt.svc.Generate(ctx, req)
	if err != nil {
		return err
	}

	out := runOutput
	if out == "" {
		out = "offer-diagnostics-" + rep.Today.Format(domain.DateLayout) + ".xlsx"
	}
	if err := writeFile(out, func(w io.Writer) error { return workbook.Write(w, rep) }); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	if runJSON != "" {
		if err := writeJSON(cmd.OutOrStdout(), runJSON, rep); err != nil {
			return fmt.Errorf("writing json: %w", err)
		}
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "report %s: %s vs %s, %d actions (%d tier1, %d tier2) -> %s\n",
		rep.ID, rep.DayNew.Format(domain.DateLayout), rep.DayOld.Format(domain.DateLayout),
		len(rep.Actions), len(rep.TierActions(domain.Tier1)), len(rep.TierActions(domain.Tier2)), out)
	for _, w := range rep.Warnings {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(stdout io.Writer, path string, rep *report.Report) error {
	encode := func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	if path == "-" {
		return encode(stdout)
	}
	return writeFile(path, encode)
}
