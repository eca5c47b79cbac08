package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"hiredalways/internal/config"
	"hiredalways/internal/database"
	"hiredalways/internal/licensekey"
	"hiredalways/internal/model"
	"hiredalways/internal/service"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var errNoSecret = errors.New("LICENSE_SECRET must be set to manage licenses from the command line")

var (
	ledgerPath string
	issuePlan  string
)

var licenseCmd = &cobra.Command{
	Use:   "license",
	Short: "Manage licenses in the ledger file",
	Long:  `Issue, validate, revoke and list licenses directly against the JSON ledger. Stop the server first or changes may be overwritten.`,
}

var licenseIssueCmd = &cobra.Command{
	Use:   "issue <email>",
	Short: "Issue a manual license",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		licenses, _, err := openLicenses(cmd, true)
		if err != nil {
			return err
		}
		license, err := licenses.Issue(args[0], model.PaymentMeta{PaymentMethod: "manual", Plan: issuePlan}, "cli")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), license.Key)
		return nil
	},
}

var licenseValidateCmd = &cobra.Command{
	Use:   "validate <license-key>",
	Short: "Check a license key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		licenses, _, err := openLicenses(cmd, true)
		if err != nil {
			return err
		}
		result, err := licenses.Validate(args[0])
		if err != nil {
			return fmt.Errorf("%s (%s)", service.Message(err), service.Reason(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "valid user=%s expires=%s\n", result.UserID, result.ExpiresAt.UTC().Format(time.RFC3339))
		return nil
	},
}

var licenseRevokeCmd = &cobra.Command{
	Use:   "revoke <license-key>",
	Short: "Deactivate a license",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		licenses, _, err := openLicenses(cmd, false)
		if err != nil {
			return err
		}
		if _, err := licenses.Revoke(args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "revoked")
		return nil
	},
}

var licenseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every license in the ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		licenses, window, err := openLicenses(cmd, false)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tUSER\tACTIVE\tEXPIRES\tMETHOD")
		for _, license := range licenses.List() {
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n",
				license.Key, license.UserID, license.Active,
				license.ExpiresAt(window).UTC().Format("2006-01-02"), license.PaymentMethod)
		}
		return w.Flush()
	},
}

func init() {
	licenseCmd.PersistentFlags().StringVar(&ledgerPath, "db", "", "ledger file (defaults to DB_FILE)")
	licenseIssueCmd.Flags().StringVar(&issuePlan, "plan", "", "plan name stored on the license")

	licenseCmd.AddCommand(licenseIssueCmd)
	licenseCmd.AddCommand(licenseValidateCmd)
	licenseCmd.AddCommand(licenseRevokeCmd)
	licenseCmd.AddCommand(licenseListCmd)
}

// openLicenses builds a license service over the ledger file. Commands that
// sign or verify keys need the real LICENSE_SECRET.
func openLicenses(cmd *cobra.Command, needSecret bool) (*service.LicenseService, time.Duration, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, 0, err
	}
	if needSecret && cfg.EphemeralSecret {
		return nil, 0, errNoSecret
	}
	path := cfg.DBFile
	if ledgerPath != "" {
		path = ledgerPath
	}

	logger := zerolog.New(cmd.ErrOrStderr()).Level(zerolog.WarnLevel).With().Timestamp().Logger()
	ledger := database.OpenLedger(path, logger)
	licenses := service.NewLicenseService(ledger, licensekey.NewCodec(cfg.License.Prefix, cfg.License.Secret),
		service.LicenseOptions{
			Window:          cfg.License.Validity,
			VerifySignature: cfg.License.VerifySignature,
		}, logger)
	return licenses, cfg.License.Validity, nil
}
