package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dtroode/studyvault-server/internal/model"
)

var bootstrapEmail string

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative maintenance commands",
}

var adminBootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Grant the administrator role to a registered account when no administrator exists",
	Long: `Grant the administrator role to a registered account when no administrator exists.
The promotion is recorded in the activity ledger under the system actor.

	studyvault admin bootstrap --email alice@example.com
`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		email := strings.TrimSpace(bootstrapEmail)
		if email == "" {
			return errors.New("--email is required")
		}

		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if err := requirePostgres(cfg, "admin bootstrap"); err != nil {
			return err
		}

		st, err := openStores(cmd.Context(), cfg, log)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer st.close()

		// bootstrap touches neither blobs nor notifications
		svc := newServices(cfg, st, nil, nil, log)

		admin, err := svc.access.Bootstrap(cmd.Context(), email)
		switch model.OutcomeOf(err) {
		case model.OutcomeSuccess:
			fmt.Fprintf(cmd.OutOrStdout(), "%s - %s is now an administrator\n", admin.Name, admin.Email)
			return nil
		case model.OutcomeNotFound:
			return fmt.Errorf("no account is registered under %s", email)
		case model.OutcomeUnauthorized:
			return errors.New("an administrator already exists, use the admin API instead")
		default:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminBootstrapCmd)
	adminBootstrapCmd.Flags().StringVar(&bootstrapEmail, "email", "", "email of the registered account to promote")
}
