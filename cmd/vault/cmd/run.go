package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/vault/asset"
	"github.com/rustyeddy/vault/config"
	"github.com/rustyeddy/vault/journal"
	"github.com/rustyeddy/vault/scenario"
	"github.com/rustyeddy/vault/vault"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a vault scenario from a config file",
	Long: `Run a scripted vault scenario using settings from a configuration file.

The config file sets up the asset ledger (fees, failure modes, balances),
the vault (custody account, accrual rate, allowlist) and the steps to run.
Failed vault operations are reported per step and do not stop the run.

Example:
  vault run -f scenario.yaml --metrics`,
	RunE: runRun,
}

var (
	runConfigPath string
	runMetrics    bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "file", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().BoolVar(&runMetrics, "metrics", false, "print vault metrics in Prometheus text format after the run")
	runCmd.MarkFlagRequired("file")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	reg := prometheus.NewRegistry()
	sim, err := scenario.Build(cfg, time.Now().UTC(), j,
		vault.WithLogger(logger),
		vault.WithMetrics(vault.NewMetrics(reg)),
	)
	if err != nil {
		return fmt.Errorf("build vault: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Running scenario: %s\n", runConfigPath)
	fmt.Fprintf(out, "  Ledger: %s (fee %d bps)\n", cfg.Ledger.Name, cfg.Ledger.FeeBps)
	fmt.Fprintf(out, "  Custody: %s\n\n", cfg.Vault.Custody)

	results, err := sim.Run(context.Background(), cfg.Steps, logger)
	if err := printResults(out, results); err != nil {
		return err
	}
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	fmt.Fprintln(out)
	if err := printHolders(out, sim); err != nil {
		return err
	}

	if err := sim.Vault.CheckInvariants(); err != nil {
		fmt.Fprintf(out, "\n✗ Invariants: %v\n", err)
	} else {
		fmt.Fprintln(out, "\n✓ Invariants hold")
	}
	if cfg.Journal.Type != "" && cfg.Journal.Type != "none" {
		fmt.Fprintf(out, "Journal saved to: %s\n", cfg.Journal.Path)
	}

	if runMetrics {
		fmt.Fprintln(out)
		return writeMetrics(out, reg)
	}
	return nil
}

func openJournal(c config.JournalConfig) (journal.Journal, error) {
	switch c.Type {
	case "csv":
		return journal.NewCSV(c.Path)
	case "sqlite":
		return journal.NewSQLite(c.Path)
	default:
		return journal.Discard{}, nil
	}
}

func printResults(w io.Writer, results []scenario.Result) error {
	table := tablewriter.NewWriter(w)
	table.Header("#", "Op", "Account", "Input", "Shares", "Amount", "Result")
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		table.Append([]string{
			fmt.Sprint(r.Index),
			r.Step.Op,
			r.Step.Account,
			asset.Format(r.Step.Amount),
			asset.Format(r.Shares),
			asset.Format(r.Amount),
			status,
		})
	}
	return table.Render()
}

func printHolders(w io.Writer, sim *scenario.Sim) error {
	custody, err := sim.Ledger.BalanceOf(context.Background(), sim.Vault.Custody())
	if err != nil {
		return fmt.Errorf("custody balance: %w", err)
	}

	table := tablewriter.NewWriter(w)
	table.Header("Holder", "Shares")
	for _, h := range sim.Vault.Holders() {
		table.Append([]string{h.Holder.String(), asset.Format(h.Shares)})
	}
	table.Footer("Total", asset.Format(sim.Vault.TotalShares()))
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(w, "Custody balance: %s\n", asset.Format(custody))
	return nil
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	_, err = w.Write(buf.Bytes())
	return err
}
