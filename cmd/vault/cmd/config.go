package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/vault/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage scenario configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  vault config init -o scenario.yaml
  vault config validate -f scenario.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	RunE:  runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "scenario.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nEdit the file and run with:")
	fmt.Fprintf(out, "  vault run -f %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Vault: custody %s (rate %d bps)\n", cfg.Vault.Custody, cfg.Vault.AnnualRateBps)
	fmt.Fprintf(out, "  Ledger: %s (fee %d bps, %d funded accounts)\n", cfg.Ledger.Name, cfg.Ledger.FeeBps, len(cfg.Ledger.Balances))
	fmt.Fprintf(out, "  Journal: %s\n", journalLabel(cfg.Journal))
	fmt.Fprintf(out, "  Steps: %d\n", len(cfg.Steps))
	return nil
}

func journalLabel(j config.JournalConfig) string {
	if j.Type == "" || j.Type == "none" {
		return "none"
	}
	return fmt.Sprintf("%s (%s)", j.Type, j.Path)
}
