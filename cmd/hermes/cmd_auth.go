package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vignesh-goutham/hermes/pkg/app"
	"github.com/vignesh-goutham/hermes/pkg/schwab"
)

// loginCmd runs the manual OAuth flow from a terminal
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with Charles Schwab",
	Long: `Authenticate with Charles Schwab from the terminal.

This command:
1. Prints the authorization URL to open in a browser
2. Reads the URL the browser was redirected to
3. Exchanges the code for tokens and stores them`,
	RunE: runLogin,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the access token if it is about to expire",
	RunE:  runRefresh,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored token state",
	RunE:  runStatus,
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := app.New(cmd.Context(), cfg, app.ModeDetect)
	if err != nil {
		return err
	}

	fmt.Println("Go to the following URL to authenticate:")
	fmt.Println(a.Schwab.AuthURL(""))
	fmt.Print("\nPaste the full returned URL here: ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return fmt.Errorf("error reading returned URL: %w", err)
	}
	code, err := schwab.CodeFromURL(strings.TrimSpace(line))
	if err != nil {
		return err
	}

	t, err := a.Schwab.Exchange(cmd.Context(), code)
	if err != nil {
		return err
	}
	fmt.Printf("Authenticated. Access token expires at %s\n", t.ExpiresAt)
	return nil
}

func runRefresh(cmd *cobra.Command, args []string) error {
	a, err := app.New(cmd.Context(), cfg, app.ModeDetect)
	if err != nil {
		return err
	}
	t, err := a.Schwab.EnsureValid(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("Access token valid until %s\n", t.ExpiresAt)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := app.New(cmd.Context(), cfg, app.ModeDetect)
	if err != nil {
		return err
	}
	st, err := a.Schwab.Status(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, st)
}
