package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/raphaelgruber/tablemap-go/internal/client"
	"github.com/raphaelgruber/tablemap-go/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginServerURL string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the backend session credential",
	Long: `Store the backend URL and bearer credential used by every call.

The token is read from stdin without echo and kept in the user config
directory. A 401 from any later call means the session expired; run
login again.

Examples:
  tablemap login
  tablemap login --server https://tablemap.example.com/api`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session credential",
	RunE:  runLogout,
}

func init() {
	loginCmd.Flags().StringVar(&loginServerURL, "server", "", "backend base URL")
	rootCmd.AddCommand(logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	endpoint := loginServerURL
	if endpoint == "" {
		endpoint = creds.ServerURL
	}
	if endpoint == "" {
		endpoint = cfg.ServerURL
	}

	fmt.Print("Token: ")
	tokenBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(string(tokenBytes))
	if token == "" {
		return fmt.Errorf("empty token")
	}

	// Verify the credential with a cheap read before persisting it.
	probe := client.New(endpoint, token)
	if _, err := probe.ListInstructions(context.Background()); err != nil {
		if client.IsAuthError(err) {
			return fmt.Errorf("backend rejected the token: %w", err)
		}
		return fmt.Errorf("verify session: %w", err)
	}

	if err := config.SaveCredentials(cfg, config.Credentials{ServerURL: endpoint, Token: token}); err != nil {
		return err
	}

	fmt.Printf("Logged in to %s\n", endpoint)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	if err := config.ClearCredentials(cfg); err != nil {
		return err
	}
	fmt.Println("Session cleared.")
	return nil
}
