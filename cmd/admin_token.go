/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tutrabajo/apiserver/config"
	"github.com/tutrabajo/apiserver/internal/handlers"
)

var (
	adminTokenSubject string
	adminTokenTTL     time.Duration
)

// adminTokenCmd mints a bearer token for the admin routes.
var adminTokenCmd = &cobra.Command{
	Use:   "admin-token",
	Short: "Issue an admin bearer token signed with ADMIN_JWT_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if cfg.Admin.JWTSecret == "" {
			return errors.New("ADMIN_JWT_SECRET is not set")
		}

		token, err := handlers.IssueAdminToken(cfg.Admin.JWTSecret, adminTokenSubject, adminTokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(adminTokenCmd)

	adminTokenCmd.Flags().StringVar(&adminTokenSubject, "subject", "admin", "Subject recorded in the token")
	adminTokenCmd.Flags().DurationVar(&adminTokenTTL, "ttl", 24*time.Hour, "Token lifetime")
}
