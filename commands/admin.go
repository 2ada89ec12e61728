package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pithakchhorn/portfolio-api/services"
	"github.com/pithakchhorn/portfolio-api/utils"
)

// readPassword is swapped out in tests.
var readPassword = term.ReadPassword

var (
	adminUsername      string
	adminPasswordStdin bool
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Provision the admin account",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the admin account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withAuthService(cmd, func(ctx context.Context, auth *services.AuthService) error {
			password, err := promptPassword(cmd, true)
			if err != nil {
				return err
			}
			if _, err := auth.CreateUser(ctx, adminUsername, password); err != nil {
				if errors.Is(err, services.ErrConflict) {
					return fmt.Errorf("user %q already exists", adminUsername)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %q\n", adminUsername)
			return nil
		})
	},
}

var adminPasswdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Set a new password for an existing account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withAuthService(cmd, func(ctx context.Context, auth *services.AuthService) error {
			password, err := promptPassword(cmd, true)
			if err != nil {
				return err
			}
			if err := auth.SetPassword(ctx, adminUsername, password); err != nil {
				if errors.Is(err, services.ErrNotFound) {
					return fmt.Errorf("user %q does not exist", adminUsername)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password updated for %q\n", adminUsername)
			return nil
		})
	},
}

func init() {
	adminCmd.PersistentFlags().StringVarP(&adminUsername, "username", "u", "admin", "account username")
	adminCmd.PersistentFlags().BoolVar(&adminPasswordStdin, "password-stdin", false, "read the password from stdin instead of prompting")
	adminCmd.AddCommand(adminCreateCmd, adminPasswdCmd)
}

func withAuthService(cmd *cobra.Command, fn func(context.Context, *services.AuthService) error) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	tokens := utils.NewTokenService(cfg.JWTSecret, time.Duration(cfg.TokenTTLMinutes)*time.Minute)
	return fn(cmd.Context(), services.NewAuthService(db, tokens))
}

// promptPassword reads a password from stdin (--password-stdin) or the terminal
// without echo, asking twice when confirm is set.
func promptPassword(cmd *cobra.Command, confirm bool) (string, error) {
	if adminPasswordStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("read password: %w", err)
		}
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return "", errors.New("empty password")
		}
		return password, nil
	}

	out := cmd.ErrOrStderr()
	fmt.Fprint(out, "Password: ")
	first, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(first) == 0 {
		return "", errors.New("empty password")
	}
	if confirm {
		fmt.Fprint(out, "Repeat password: ")
		second, err := readPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		if string(first) != string(second) {
			return "", errors.New("passwords do not match")
		}
	}
	return string(first), nil
}
