package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/besra/killfeed/internal/config"
	"github.com/besra/killfeed/internal/esi"
)

func newAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Obtain an SSO refresh token",
		Long: `Runs the one-time SSO authorization flow with PKCE. Opens a local
callback server, prints the authorize URL, and prints the resulting refresh
token to add to the environment as EVE_REFRESH_TOKEN.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.EVEClientID == "" {
				return fmt.Errorf("EVE_CLIENT_ID is required")
			}

			interactive := term.IsTerminal(int(os.Stdout.Fd()))
			token, err := esi.RunPKCE(cmd.Context(), "", cfg.EVEClientID, cfg.CallbackPort, func(authorizeURL string) {
				if interactive {
					fmt.Println("\nOpen this URL in a browser (port-forward if headless):")
				}
				fmt.Println(authorizeURL)
			})
			if err != nil {
				return err
			}

			fmt.Println("\nRefresh token:")
			fmt.Println(token)
			if interactive {
				fmt.Println("\nAdd it to your environment as EVE_REFRESH_TOKEN.")
			}
			return nil
		},
	}
}
