package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KevinKickass/FlasherCore/internal/auth"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Read a password from stdin and print its argon2id hash",
	Long: `Print an argon2id hash for the auth.operators[].password_hash setting.

Examples:
  echo -n 's3cret' | flasherctl hash-password`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading password: %w", err)
		}
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return fmt.Errorf("empty password")
		}

		hash, err := auth.NewPasswordHasher().HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

var genTokenCmd = &cobra.Command{
	Use:   "gen-token",
	Short: "Generate a machine token and the hash for auth.machine_tokens",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, hash, err := auth.GenerateMachineToken()
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, map[string]string{
			"token":      token,
			"token_hash": hash,
		})
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd, genTokenCmd)
}
