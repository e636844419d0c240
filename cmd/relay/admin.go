package main

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/relayops/relay/internal/adapter/postgres"
	"github.com/relayops/relay/internal/config"
)

// runAdmin dispatches admin subcommands (token, migrate, migrate-status).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "token":
		return runAdminToken()
	case "migrate":
		return runAdminMigrate()
	case "migrate-status":
		return runAdminMigrateStatus()
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: relay admin <command>

Commands:
  token           Hash an API token for the auth.token_hash config field
  migrate         Apply pending database migrations
  migrate-status  Print the current migration version
  help            Show this help message
`)
}

// runAdminToken prompts for a token and prints its bcrypt hash, suitable for
// the auth.token_hash config field.
func runAdminToken() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	token, err := promptSecret("API token: ")
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	confirm, err := promptSecret("Confirm token: ")
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if token != confirm {
		return fmt.Errorf("tokens do not match")
	}
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(token), cfg.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash token: %w", err)
	}

	fmt.Println(string(hash))
	return nil
}

func runAdminMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is not configured")
	}

	if err := postgres.RunMigrations(context.Background(), cfg.Postgres.DSN); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "migrations applied")
	return nil
}

func runAdminMigrateStatus() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is not configured")
	}

	version, err := postgres.MigrationVersion(context.Background(), cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	fmt.Printf("migration version: %d\n", version)
	return nil
}

// promptSecret reads a line from the terminal without echoing.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
