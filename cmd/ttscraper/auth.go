package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"ttscraper/pkg/auth"
	"ttscraper/pkg/ui"
)

var (
	loginCookie    string
	loginUserAgent string
	quickGuide     bool
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage TikTok session cookies",
	Long: `Manage stored TikTok session cookies.

Cookies are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (TTSCRAPER_COOKIE)

Never share your cookies or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store a session cookie securely",
	Long: `Store a TikTok session cookie in the system keychain or encrypted file.

You will be prompted for:
  - A name for the account (if not provided)
  - The cookie header copied from the browser
  - User Agent (optional, press Enter for default)

Run 'ttscraper auth guide' for how to copy the cookie.`,
	Example: `  # Interactive login
  ttscraper auth login

  # Non-interactive
  ttscraper auth login work --cookie "msToken=...; sessionid=..."`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [name]",
	Short: "Remove stored cookies",
	Long: `Remove a stored account. Without a name you choose from a list,
which also offers to remove every account.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored accounts with their cookie values masked.`,
	RunE:  runList,
}

// guideCmd represents the auth guide command
var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Explain how to copy the session cookie from a browser",
	Run: func(cmd *cobra.Command, args []string) {
		if quickGuide {
			auth.ShowQuickExtractGuide(os.Stdout)
			return
		}
		auth.ShowCookieExtractionGuide(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
	authCmd.AddCommand(guideCmd)

	loginCmd.Flags().StringVar(&loginCookie, "cookie", "", "cookie header (prompted for when omitted)")
	loginCmd.Flags().StringVar(&loginUserAgent, "user-agent", "", "user agent of the browser the cookie came from")
	guideCmd.Flags().BoolVar(&quickGuide, "quick", false, "show the short version")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialise credential manager: %w", err)
	}
	prompt := auth.NewPrompter()

	var name string
	if len(args) > 0 {
		name = args[0]
	}
	if name == "" {
		name, err = prompt.Ask("Account name: ")
		if err != nil {
			return err
		}
	}
	if name == "" {
		return fmt.Errorf("account name is required")
	}

	if existing, _ := manager.Retrieve(name); existing != nil && loginCookie == "" {
		answer, _ := prompt.Ask(fmt.Sprintf("Account '%s' already exists. Replace its cookie? (y/N): ", name))
		if !strings.HasPrefix(strings.ToLower(answer), "y") {
			return nil
		}
	}

	cookie := loginCookie
	if cookie == "" {
		auth.ShowQuickExtractGuide(os.Stderr)
		cookie, err = prompt.AskSecret("Cookie header (hidden): ")
		if err != nil {
			return err
		}
	}

	userAgent := loginUserAgent
	if userAgent == "" && loginCookie == "" {
		userAgent, _ = prompt.Ask("User Agent (press Enter for default): ")
	}

	account := &auth.Account{
		Username:     name,
		Cookie:       cookie,
		UserAgent:    userAgent,
		LastModified: time.Now(),
	}
	if err := account.Validate(); err != nil {
		return err
	}
	if _, ok := auth.ParseCookie(cookie)["msToken"]; !ok {
		ui.PrintWarning("The cookie has no msToken, the listing endpoint may return empty pages")
	}

	if err := manager.Store(account); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	ui.PrintSuccess("Account saved: " + name)
	ui.PrintInfo("Cookie", auth.SanitizeAccount(account).Cookie)
	fmt.Println("\nThe newest stored account is used by default. Pick another with:")
	fmt.Printf("  ttscraper crawl <username> --account %s\n", name)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialise credential manager: %w", err)
	}

	if len(args) > 0 {
		if err := manager.Delete(args[0]); err != nil {
			return fmt.Errorf("failed to remove account: %w", err)
		}
		ui.PrintSuccess("Account removed: " + args[0])
		return nil
	}

	accounts, err := manager.List()
	if err != nil || len(accounts) == 0 {
		ui.PrintWarning("No stored accounts found")
		return nil
	}

	prompt := auth.NewPrompter()
	fmt.Println("Select account to remove:")
	for i, account := range accounts {
		fmt.Printf("  %d. %s\n", i+1, account.Username)
	}
	fmt.Printf("  %d. Remove all accounts\n", len(accounts)+1)
	fmt.Printf("  0. Cancel\n\n")

	answer, err := prompt.Ask("Choice: ")
	if err != nil {
		return err
	}
	choice, err := strconv.Atoi(answer)
	if err != nil || choice < 0 || choice > len(accounts)+1 {
		return fmt.Errorf("invalid choice %q", answer)
	}

	switch choice {
	case 0:
		return nil
	case len(accounts) + 1:
		confirm, _ := prompt.Ask("Remove ALL accounts? This cannot be undone! (yes/N): ")
		if confirm != "yes" {
			return nil
		}
		if err := manager.DeleteAll(); err != nil {
			return fmt.Errorf("failed to remove accounts: %w", err)
		}
		ui.PrintSuccess("All accounts removed")
	default:
		name := accounts[choice-1].Username
		if err := manager.Delete(name); err != nil {
			return fmt.Errorf("failed to remove account: %w", err)
		}
		ui.PrintSuccess("Account removed: " + name)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialise credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		ui.PrintWarning("No stored accounts found")
		fmt.Println("\nStore one with: ttscraper auth login")
		return nil
	}

	ui.PrintHighlight(fmt.Sprintf("Stored accounts (%d)", len(accounts)))
	for i, account := range accounts {
		safe := auth.SanitizeAccount(account)
		marker := " "
		if i == 0 {
			marker = "*"
		}
		fmt.Printf("\n%s %s\n", marker, ui.Cyan(safe.Username))
		fmt.Printf("    Cookie: %s\n", safe.Cookie)
		if safe.UserAgent != "" {
			fmt.Printf("    User Agent: %s\n", safe.UserAgent)
		}
		fmt.Printf("    Updated: %s\n", safe.LastModified.Format(time.RFC3339))
	}
	fmt.Println("\n* default account")
	return nil
}
