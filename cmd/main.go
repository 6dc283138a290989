package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/satoshifaucet/faucetd/config"
	"github.com/satoshifaucet/faucetd/database"
	"github.com/satoshifaucet/faucetd/logging"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	_ "github.com/lib/pq"
)

func validatePort(port int64) (uint32, error) {
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("port number %d is invalid: must be between 0 and 65535", port)
	}

	return uint32(port), nil
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigChan
		log.Info("Received signal, shutting down")
		cancel()
	}()

	app := &cli.Command{
		Name:  "faucetd",
		Usage: "Lightning faucet payout daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db-host",
				Usage: "Database host, \"embedded\" or \"sqlite\" for local databases",
				Value: database.EmbeddedHost,
			},
			&cli.StringFlag{
				Name:  "db-user",
				Usage: "Database username",
				Value: "faucet",
			},
			&cli.StringFlag{
				Name:  "db-password",
				Usage: "Database password",
				Value: "faucet",
			},
			&cli.StringFlag{
				Name:  "db-name",
				Usage: "Database name",
				Value: "faucet",
			},
			&cli.IntFlag{
				Name:  "db-port",
				Usage: "Database port",
				Value: 5433,
			},
			&cli.StringFlag{
				Name:  "db-data-path",
				Usage: "Database path",
				Value: "./.data",
			},
			&cli.BoolFlag{
				Name:  "db-keep-alive",
				Usage: "Keep the database running after the daemon stops for embedded databases",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Optional config file (yaml, toml or json)",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Env file with FAUCET_ variables",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (trace, debug, info, warn, error)",
				Value: "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format (text or json)",
				Value: "text",
			},
		},
		Commands: []*cli.Command{
			startCommand(),
			runCommand(),
			serveCommand(),
			claimsCommand(),
			balanceCommand(),
			databaseCommand(),
			lnurlCommand(),
			{
				Name:  "help",
				Usage: "Show help",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := cli.ShowAppHelp(cmd); err != nil {
						return err
					}

					return nil
				},
			},
		},
	}

	appErr := app.Run(ctx, os.Args)
	if appErr != nil {
		log.Fatal(appErr)
	}
}

func setupLogging(cmd *cli.Command) error {
	if err := logging.Configure(cmd.String("log-level"), cmd.String("log-format")); err != nil {
		return fmt.Errorf("❌ Invalid logging flags: %w", err)
	}

	return nil
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("env-file"), cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("❌ Could not load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("❌ Invalid config: %w", err)
	}

	return cfg, nil
}

func StartDatabase(cmd *cli.Command) (*database.Database, func() error, error) {
	port, err := validatePort(cmd.Int("db-port"))
	if err != nil {
		return nil, nil, err
	}

	db, closeDb, err := database.NewDatabase(
		cmd.String("db-user"),
		cmd.String("db-password"),
		cmd.String("db-name"),
		port,
		cmd.String("db-data-path"),
		cmd.String("db-host"),
		cmd.Bool("db-keep-alive"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("❌ Could not connect to database: %w", err)
	}

	return db, closeDb, nil
}

// withDatabase opens the ledger for the duration of fn.
func withDatabase(cmd *cli.Command, fn func(db *database.Database) error) error {
	if err := setupLogging(cmd); err != nil {
		return err
	}

	db, closeDb, err := StartDatabase(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeDb(); err != nil {
			log.Errorf("❌ Could not close database: %v", err)
		}
	}()

	return fn(db)
}

// isLocalDatabase tells if the ledger is owned by this process, in which
// case migrations run on start.
func isLocalDatabase(cmd *cli.Command) bool {
	host := cmd.String("db-host")

	return host == database.EmbeddedHost || host == database.SQLiteHost
}
