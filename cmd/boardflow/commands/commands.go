package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/boardflow/core/internal/adapters/rest"
	"github.com/boardflow/core/internal/devserver"
	"github.com/boardflow/core/internal/devserver/storage"
	"github.com/boardflow/core/internal/infrastructure/config"
	"github.com/boardflow/core/internal/infrastructure/logger"
	"github.com/boardflow/core/internal/infrastructure/state"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the development server",
		Long:  "Start the development server with the full REST resource surface",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage database migrations (up, down, version)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Run: func(cmd *cobra.Command, args []string) {
			withDB(func(db *storage.DB) {
				if err := db.MigrateUp(); err != nil {
					log.Fatalf("Migration failed: %v", err)
				}
				fmt.Println("Migrations applied")
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		Run: func(cmd *cobra.Command, args []string) {
			withDB(func(db *storage.DB) {
				if err := db.MigrateDown(); err != nil {
					log.Fatalf("Migration failed: %v", err)
				}
				fmt.Println("Migration rolled back")
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		Run: func(cmd *cobra.Command, args []string) {
			withDB(func(db *storage.DB) {
				version, dirty, err := db.MigrateVersion()
				if err != nil {
					log.Fatalf("Failed to get migration version: %v", err)
				}
				fmt.Printf("Current migration version: %d\n", version)
				fmt.Printf("Dirty: %t\n", dirty)
			})
		},
	})

	return migrateCmd
}

// NewClientCommand creates the client inspection commands
func NewClientCommand() *cobra.Command {
	clientCmd := &cobra.Command{
		Use:   "client",
		Short: "Client commands against the configured backend",
		Long:  "Inspect the backend using the persisted session",
	}

	clientCmd.AddCommand(&cobra.Command{
		Use:   "whoami",
		Short: "Print the authenticated user",
		Run: func(cmd *cobra.Command, args []string) {
			withClient(func(ctx context.Context, c *rest.Client) {
				user, err := c.Me(ctx)
				if err != nil {
					log.Fatalf("Failed to fetch user: %v", err)
				}
				fmt.Printf("ID: %d\n", user.ID)
				fmt.Printf("Username: %s\n", user.Username)
				if user.FirstName != "" {
					fmt.Printf("Name: %s %s\n", user.FirstName, user.LastName)
				}
			})
		},
	})

	clientCmd.AddCommand(&cobra.Command{
		Use:   "folders",
		Short: "List the folders of the authenticated user",
		Run: func(cmd *cobra.Command, args []string) {
			withClient(func(ctx context.Context, c *rest.Client) {
				folders, err := c.ListFolders(ctx)
				if err != nil {
					log.Fatalf("Failed to list folders: %v", err)
				}
				for _, f := range folders {
					fmt.Printf("%s  %s\n", f.ID, f.Name)
				}
			})
		},
	})

	boardsCmd := &cobra.Command{
		Use:   "boards <folder-id>",
		Short: "List the boards of one folder",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withClient(func(ctx context.Context, c *rest.Client) {
				folders, err := c.ListFolders(ctx)
				if err != nil {
					log.Fatalf("Failed to list folders: %v", err)
				}
				for _, f := range folders {
					if f.ID.String() != args[0] {
						continue
					}
					boards, err := c.ListBoards(ctx, f.ID)
					if err != nil {
						log.Fatalf("Failed to list boards: %v", err)
					}
					for _, b := range boards {
						fmt.Printf("%s  %-10s  %s\n", b.ID, b.Type, b.Name)
					}
					return
				}
				log.Fatalf("Folder %s not found", args[0])
			})
		},
	}
	clientCmd.AddCommand(boardsCmd)

	return clientCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print BoardFlow version",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			if err != nil {
				log.Fatalf("Failed to load configuration: %v", err)
			}
			fmt.Printf("%s %s\n", cfg.App.Name, cfg.App.Version)
		},
	}
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	db, err := storage.New(cfg.Database)
	if err != nil {
		appLogger.Fatalw("Failed to connect to database", "error", err.Error())
	}
	defer db.Close()

	if err := db.MigrateUp(); err != nil {
		appLogger.Fatalw("Failed to apply migrations", "error", err.Error())
	}

	srv, err := devserver.New(cfg, db, appLogger)
	if err != nil {
		appLogger.Fatalw("Failed to initialize server", "error", err.Error())
	}

	appLogger.Infow("Starting development server",
		"port", cfg.Server.Port,
		"driver", cfg.Database.Driver,
		"environment", cfg.App.Environment,
	)

	go func() {
		if err := srv.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)); err != nil {
			appLogger.Infow("Server stopped", "error", err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Errorw("Forced shutdown", "error", err.Error())
	}
}

func withDB(fn func(*storage.DB)) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := storage.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	fn(db)
}

func withClient(fn func(context.Context, *rest.Client)) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	localState, err := state.Open(cfg.State.Dir)
	if err != nil {
		log.Fatalf("Failed to open local state: %v", err)
	}
	defer localState.Close()

	client := rest.New(cfg.API.BaseURL, cfg.API.Timeout, localState, logger.NewNop())
	if client.Token() == "" {
		log.Fatal("No persisted session; authenticate through the app first")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	fn(ctx, client)
}
