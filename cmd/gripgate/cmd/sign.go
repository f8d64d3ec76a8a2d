package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/grip-gate/gripgate/internal/config"
	"github.com/grip-gate/gripgate/pkg/grip"
)

var signTTL time.Duration

var signCmd = &cobra.Command{
	Use:   "sign <iss> <key>",
	Short: "Mint a Grip-Sig token for a configured key",
	Long: `Mint a Grip-Sig token signed with a shared key, for testing
signature-checking configurations with curl:

  curl -H "Grip-Sig: $(gripgate sign realm changeme)" http://localhost:8080/long-poll

The key accepts the same forms as the config file: plain text or
"base64:<data>".`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := config.ProxyConfig{Key: args[1]}.DecodeKey()
		if err != nil {
			return err
		}
		token, err := grip.SignToken(args[0], key, signTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	signCmd.Flags().DurationVar(&signTTL, "ttl", time.Hour, "token validity duration")
	rootCmd.AddCommand(signCmd)
}
