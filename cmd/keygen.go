/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tutrabajo/apiserver/internal/crypto"
)

// keygenCmd prints a new random CRYPTO_KEY.
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a random 256-bit CRYPTO_KEY",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := crypto.GenerateKey()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
