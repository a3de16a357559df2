package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ellery/rxcare/internal/config"
	"github.com/ellery/rxcare/internal/gateway"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/term"
)

func newAuthCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with the calendar service",
		Long:  "Runs the OAuth2 authorization flow and saves the token file used for creating reminder events.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runAuth(cmd, cfg.Calendar)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "rxcare.yaml", "path to rxcare config file")
	return cmd
}

func runAuth(cmd *cobra.Command, cfg config.CalendarConfig) error {
	if cfg.ClientID == "" || cfg.AuthURL == "" || cfg.TokenURL == "" {
		return fmt.Errorf("calendar.client_id, calendar.auth_url and calendar.token_url must be configured")
	}

	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.AuthURL,
			TokenURL: cfg.TokenURL,
		},
		RedirectURL: "urn:ietf:wg:oauth:2.0:oob",
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Open this URL in your browser and authorize rxcare:")
	fmt.Fprintf(out, "\n  %s\n\n", conf.AuthCodeURL("state", oauth2.AccessTypeOffline))

	code, err := readAuthCode(out)
	if err != nil {
		return err
	}
	if code == "" {
		return fmt.Errorf("no authorization code entered")
	}

	tok, err := conf.Exchange(cmd.Context(), code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	if err := gateway.SaveToken(cfg.TokenPath, tok); err != nil {
		return err
	}
	fmt.Fprintf(out, "Token saved to %s\n", cfg.TokenPath)
	return nil
}

// readAuthCode reads the pasted authorization code, without echo when
// stdin is a terminal.
func readAuthCode(out io.Writer) (string, error) {
	fmt.Fprint(out, "Authorization code: ")

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read authorization code: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read authorization code: %w", err)
	}
	return strings.TrimSpace(line), nil
}
