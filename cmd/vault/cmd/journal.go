package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/vault/asset"
	"github.com/rustyeddy/vault/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the operation journal",
	Long: `Query and display vault operations recorded in a SQLite journal.

Subcommands:
  list   - List operations, optionally for one account
  op     - Show one operation by ID
  day    - List operations recorded on a specific day

Examples:
  vault journal list --account alice
  vault journal op 01J9Z3K8Q4...
  vault journal day 2025-01-15`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journaled operations",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalOpCmd = &cobra.Command{
	Use:   "op <op-id>",
	Short: "Show details of one operation",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalOp,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List operations recorded on a specific day (UTC)",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var (
	journalDBPath  string
	journalAccount string
	journalOrg     bool
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalOpCmd)
	journalCmd.AddCommand(journalDayCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./vault.sqlite", "path to SQLite journal DB")
	journalCmd.PersistentFlags().BoolVar(&journalOrg, "org", false, "print entries as Org-mode blocks")
	journalListCmd.Flags().StringVarP(&journalAccount, "account", "a", "", "only list operations by this account")
}

func runJournalList(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	var entries []journal.Entry
	if journalAccount != "" {
		entries, err = j.ListByAccount(asset.Address(journalAccount))
	} else {
		entries, err = j.List()
	}
	if err != nil {
		return fmt.Errorf("query operations: %w", err)
	}
	return printEntries(cmd.OutOrStdout(), entries)
}

func runJournalOp(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	e, err := j.Get(args[0])
	if err != nil {
		return fmt.Errorf("get operation: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatEntryOrg(e))
	return nil
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	start, end, err := dayBounds(time.UTC, args[0])
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	entries, err := j.ListBetween(start, end)
	if err != nil {
		return fmt.Errorf("query operations: %w", err)
	}
	return printEntries(cmd.OutOrStdout(), entries)
}

func printEntries(w io.Writer, entries []journal.Entry) error {
	if journalOrg {
		fmt.Fprintln(w, journal.FormatEntriesOrg(entries))
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("Op ID", "Time", "Kind", "Account", "Requested", "Amount", "Shares", "Total", "Status")
	for _, e := range entries {
		status := string(e.Status)
		if e.Error != "" {
			status += ": " + e.Error
		}
		table.Append([]string{
			e.OpID,
			e.Time.Format(time.RFC3339),
			string(e.Kind),
			e.Account.String(),
			asset.Format(e.Requested),
			asset.Format(e.Amount),
			asset.Format(e.Shares),
			asset.Format(e.TotalShares),
			status,
		})
	}
	return table.Render()
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)
	return start, end, nil
}
