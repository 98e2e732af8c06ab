package cmd

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/theirongolddev/budget/internal/cli"
	"github.com/theirongolddev/budget/internal/model"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var flagUsername string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store credentials",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	Args:  cobra.NoArgs,
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget stored credentials",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Short:   "Show the signed-in user and financial profile",
	Args:    cobra.NoArgs,
	PreRunE: requireSession,
	RunE:    runWhoami,
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored credentials",
}

var authRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the refresh token for a new credential pair",
	Args:  cobra.NoArgs,
	RunE:  runAuthRefresh,
}

func init() {
	loginCmd.Flags().StringVarP(&flagUsername, "username", "u", "", "Username (prompted if empty)")
	authCmd.AddCommand(authRefreshCmd)
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd, authCmd)
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	s, err := getServices()
	if err != nil {
		return err
	}

	username := flagUsername
	var password string

	var fields []huh.Field
	if username == "" {
		fields = append(fields, huh.NewInput().Title("Username").Value(&username).Validate(required("username")))
	}
	fields = append(fields, huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&password).Validate(required("password")))
	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return err
	}

	progress("Signing in...")
	snap, err := s.session.Login(cmd.Context(), strings.TrimSpace(username), password)
	if err != nil {
		return err
	}
	if snap.Identity != nil {
		fmt.Printf("  Signed in as %s\n", cli.Header(snap.Identity.Username))
	}
	return nil
}

func runRegister(cmd *cobra.Command, _ []string) error {
	s, err := getServices()
	if err != nil {
		return err
	}

	var reg model.Registration
	var confirm string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Username").Value(&reg.Username).Validate(required("username")),
			huh.NewInput().Title("Full name").Value(&reg.FullName).Validate(required("full name")),
			huh.NewInput().Title("Email").Value(&reg.Email).Validate(func(s string) error {
				if _, err := mail.ParseAddress(s); err != nil {
					return errors.New("not a valid email address")
				}
				return nil
			}),
			huh.NewInput().Title("Phone").Description("Optional").Value(&reg.Phone),
		),
		huh.NewGroup(
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&reg.Password).Validate(func(s string) error {
				if len(s) < 8 {
					return errors.New("must be at least 8 characters")
				}
				return nil
			}),
			huh.NewInput().Title("Confirm password").EchoMode(huh.EchoModePassword).Value(&confirm).Validate(func(s string) error {
				if s != reg.Password {
					return errors.New("passwords do not match")
				}
				return nil
			}),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)

	progress("Creating account...")
	snap, err := s.session.Register(cmd.Context(), reg)
	if err != nil {
		return err
	}
	if snap.Identity != nil {
		fmt.Printf("  Welcome, %s\n", cli.Header(snap.Identity.Username))
	}
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	s, err := getServices()
	if err != nil {
		return err
	}
	if err := s.session.Logout(cmd.Context()); err != nil {
		return err
	}
	fmt.Println("  Signed out.")
	return nil
}

func runWhoami(_ *cobra.Command, _ []string) error {
	snap := svc.session.View().Snapshot()
	u := snap.Identity

	fmt.Println()
	fmt.Println(cli.RenderTitle("ACCOUNT"))
	fmt.Println()
	printField("Username", u.Username)
	if u.FullName != "" {
		printField("Name", u.FullName)
	}
	printField("Email", u.Email)
	if !u.CreatedAt.IsZero() {
		printField("Member since", cli.FormatDate(u.CreatedAt.Time))
	}
	printField("Server", svc.client.BaseURL())
	if at, ok, err := svc.db.UpdatedAt(); err == nil && ok {
		printField("Token issued", cli.FormatAge(at, time.Now()))
	}

	fmt.Println()
	printProfile(snap.FinancialProfile)
	return nil
}

func runAuthRefresh(cmd *cobra.Command, _ []string) error {
	s, err := getServices()
	if err != nil {
		return err
	}
	progress("Refreshing credentials...")
	snap, err := s.session.Refresh(cmd.Context())
	if err != nil {
		return err
	}
	if snap.Identity != nil {
		fmt.Printf("  Credentials refreshed for %s\n", snap.Identity.Username)
	} else {
		fmt.Println("  Credentials refreshed.")
	}
	return nil
}

func printField(label, value string) {
	fmt.Printf("  %s %s\n", cli.Muted(fmt.Sprintf("%-16s", label)), value)
}
