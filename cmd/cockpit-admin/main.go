// Package main is the entrypoint for the Cockpit Archive admin CLI.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/historia/cockpit-archive/internal/auth"
	"github.com/historia/cockpit-archive/internal/db"
	"github.com/historia/cockpit-archive/internal/models"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "cockpit-admin",
		Short:        "Cockpit Archive administration CLI",
		Long:         "Administrative tasks for a Cockpit Archive installation: user management, migrations and seeding.",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newCreateUserCmd(),
		newListUsersCmd(),
		newMigrateCmd(),
		newSeedCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Cockpit Admin %s\n", Version)
			fmt.Printf("  Commit:     %s\n", Commit)
			fmt.Printf("  Built:      %s\n", BuildDate)
			fmt.Printf("  Go version: %s\n", runtime.Version())
		},
	}
}

// connect opens a small connection pool against DATABASE_URL or the -db flag.
func connect(ctx context.Context, dbURL string) (*db.DB, error) {
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return nil, fmt.Errorf("database URL required: use --db or set DATABASE_URL")
	}

	cfg := db.DefaultConfig(dbURL)
	cfg.MaxConns = 5
	cfg.MinConns = 1

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	return db.New(ctx, cfg, logger)
}

func newCreateUserCmd() *cobra.Command {
	var (
		dbURL    string
		email    string
		name     string
		role     string
		password string
	)

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a console user",
		RunE: func(cmd *cobra.Command, args []string) error {
			userRole := models.UserRole(role)
			if userRole != models.UserRoleAdmin && userRole != models.UserRoleEditor && userRole != models.UserRoleViewer {
				return fmt.Errorf("role must be admin, editor or viewer")
			}

			if password == "" {
				fmt.Print("Password: ")
				scanner := bufio.NewScanner(os.Stdin)
				if !scanner.Scan() {
					return fmt.Errorf("read password: %w", scanner.Err())
				}
				password = strings.TrimSpace(scanner.Text())
			}

			if result := auth.DefaultPasswordPolicy().ValidatePassword(password); !result.Valid {
				return fmt.Errorf("weak password: %v", result.Errors)
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			database, err := connect(ctx, dbURL)
			if err != nil {
				return err
			}
			defer database.Close()

			user := models.NewUser(email, name, userRole)
			user.PasswordHash = hash
			if err := database.CreateUser(ctx, user); err != nil {
				return fmt.Errorf("create user: %w", err)
			}

			fmt.Printf("Created user %s (%s) with role %s\n", user.Email, user.ID, user.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbURL, "db", "", "database URL (or set DATABASE_URL)")
	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", "viewer", "role: admin, editor or viewer")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted if omitted)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newListUsersCmd() *cobra.Command {
	var dbURL string

	cmd := &cobra.Command{
		Use:   "list-users",
		Short: "List console users",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			database, err := connect(ctx, dbURL)
			if err != nil {
				return err
			}
			defer database.Close()

			users, err := database.ListUsers(ctx, db.UserFilter{Limit: 500})
			if err != nil {
				return fmt.Errorf("list users: %w", err)
			}

			if len(users) == 0 {
				fmt.Println("No users found")
				return nil
			}
			for _, u := range users {
				active := "active"
				if !u.IsActive {
					active = "inactive"
				}
				fmt.Printf("%s  %-30s %-8s %s\n", u.ID, u.Email, u.Role, active)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbURL, "db", "", "database URL (or set DATABASE_URL)")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	var dbURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			database, err := connect(ctx, dbURL)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			version, err := database.CurrentVersion(ctx)
			if err != nil {
				return fmt.Errorf("read schema version: %w", err)
			}
			fmt.Printf("Migrations complete, schema version %d\n", version)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbURL, "db", "", "database URL (or set DATABASE_URL)")
	return cmd
}

func newSeedCmd() *cobra.Command {
	var dbURL string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed default master data and menus",
		Long:  "Inserts a starter set of categories, materials, storage locations and navigation menus. Existing entries with the same names are duplicated, not merged; run only on a fresh installation.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			database, err := connect(ctx, dbURL)
			if err != nil {
				return err
			}
			defer database.Close()

			return seed(ctx, database)
		},
	}

	cmd.Flags().StringVar(&dbURL, "db", "", "database URL (or set DATABASE_URL)")
	return cmd
}

func seed(ctx context.Context, database *db.DB) error {
	for _, name := range []string{"Document", "Photograph", "Artifact", "Map"} {
		if err := database.CreateCategory(ctx, models.NewCategory(name, "")); err != nil {
			return fmt.Errorf("seed category %s: %w", name, err)
		}
	}
	for _, name := range []string{"Paper", "Wood", "Metal", "Ceramic", "Textile"} {
		if err := database.CreateMaterial(ctx, models.NewMaterial(name, "")); err != nil {
			return fmt.Errorf("seed material %s: %w", name, err)
		}
	}
	for _, name := range []string{"Main depot", "Exhibition hall", "Off-site storage"} {
		if err := database.CreateStorageLocation(ctx, models.NewStorageLocation(name, "")); err != nil {
			return fmt.Errorf("seed storage location %s: %w", name, err)
		}
	}

	menus := []struct {
		label string
		path  string
	}{
		{"Dashboard", "/"},
		{"Archive", "/archive"},
		{"Change Requests", "/change-requests"},
		{"Logs", "/logs"},
		{"Settings", "/settings"},
	}
	for i, m := range menus {
		if err := database.CreateMenu(ctx, models.NewMenu(m.label, m.path, i)); err != nil {
			return fmt.Errorf("seed menu %s: %w", m.label, err)
		}
	}

	fmt.Println("Seed data created")
	return nil
}
