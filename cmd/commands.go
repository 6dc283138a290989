package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/satoshifaucet/faucetd/api"
	"github.com/satoshifaucet/faucetd/config"
	"github.com/satoshifaucet/faucetd/daemon"
	"github.com/satoshifaucet/faucetd/database"
	"github.com/satoshifaucet/faucetd/intake"
	"github.com/satoshifaucet/faucetd/lnurl"
	"github.com/satoshifaucet/faucetd/lnurlpay"
	"github.com/satoshifaucet/faucetd/settlement"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

// newScheduler wires the payout pipeline. The returned func releases the
// settlement backend.
func newScheduler(ctx context.Context, db *database.Database, cfg *config.Config) (*daemon.PayoutScheduler, func(), error) {
	settler, closeSettler, err := settlement.New(ctx, cfg.Settlement)
	if err != nil {
		return nil, nil, fmt.Errorf("❌ Could not set up settlement: %w", err)
	}

	client := lnurlpay.NewClient(
		lnurlpay.WithTimeout(cfg.LNURLTimeout),
		lnurlpay.WithUserAgent(cfg.LNURLUserAgent),
	)

	scheduler := daemon.NewPayoutScheduler(db, client, settler, daemon.Config{
		RewardSats:           cfg.RewardSats,
		BatchSize:            cfg.BatchSize,
		RefundOnFailure:      cfg.RefundOnFailure,
		StaleProcessingAfter: cfg.StaleProcessingAfter,
		VerifyInvoiceAmount:  cfg.VerifyInvoiceAmount,
		Network:              cfg.Network,
	})

	return scheduler, closeSettler, nil
}

func migrateIfLocal(cmd *cli.Command, db *database.Database) error {
	if !isLocalDatabase(cmd) {
		log.Info("🔍 Skipping database migration")

		return nil
	}

	return db.MigrateDatabase()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func parseClaimID(cmd *cli.Command) (uint64, error) {
	raw := cmd.Args().First()
	if raw == "" {
		return 0, errors.New("❌ A claim id is required")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("❌ Invalid claim id %q", raw)
	}

	return id, nil
}

func startCommand() *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "Start the payout daemon and the status API",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-api",
				Usage: "Do not serve the status API",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withDatabase(cmd, func(db *database.Database) error {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				if err := migrateIfLocal(cmd, db); err != nil {
					return err
				}

				scheduler, closeSettler, err := newScheduler(ctx, db, cfg)
				if err != nil {
					return err
				}
				defer closeSettler()

				var server daemon.Server
				if !cmd.Bool("no-api") && cfg.APIListen != "" {
					log.Infof("📡 Serving status API on %s", cfg.APIListen)
					server = api.NewHTTPServer(cfg.APIListen, db)
				}

				return daemon.Start(ctx, scheduler, cfg.Interval, server)
			})
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Process a single batch of pending claims and exit",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withDatabase(cmd, func(db *database.Database) error {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}

				scheduler, closeSettler, err := newScheduler(ctx, db, cfg)
				if err != nil {
					return err
				}
				defer closeSettler()

				result, err := scheduler.RunBatch(ctx)
				if err != nil {
					return fmt.Errorf("❌ Payout run aborted: %w", err)
				}

				return printJSON(result)
			})
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the status API without paying claims",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withDatabase(cmd, func(db *database.Database) error {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}

				server := api.NewHTTPServer(cfg.APIListen, db)
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
					defer cancel()
					if err := server.Shutdown(shutdownCtx); err != nil {
						log.WithError(err).Error("error shutting down server")
					}
				}()

				log.Infof("📡 Serving status API on %s", cfg.APIListen)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("❌ Could not serve status API: %w", err)
				}

				return nil
			})
		},
	}
}

func claimsCommand() *cli.Command {
	return &cli.Command{
		Name:  "claims",
		Usage: "Claim operations",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Queue a claim for an LNURL",
				ArgsUsage: "<lnurl>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "ip",
						Usage: "IP address the claim came from",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withDatabase(cmd, func(db *database.Database) error {
						cfg, err := loadConfig(cmd)
						if err != nil {
							return err
						}

						claim, err := intake.NewService(db, cfg.ClaimAmountSats).Submit(ctx, intake.Request{
							Destination: cmd.Args().First(),
							IPAddress:   cmd.String("ip"),
						})
						if err != nil {
							return fmt.Errorf("❌ Claim rejected: %w", err)
						}
						log.Infof("✅ Claim %d queued", claim.ID)

						return printJSON(claim)
					})
				},
			},
			{
				Name:      "show",
				Usage:     "Show a claim",
				ArgsUsage: "<id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := parseClaimID(cmd)
					if err != nil {
						return err
					}

					return withDatabase(cmd, func(db *database.Database) error {
						claim, err := db.GetClaim(ctx, id)
						if err != nil {
							return err
						}

						return printJSON(claim)
					})
				},
			},
			{
				Name:  "recent",
				Usage: "List the most recent claims",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of claims to list",
						Value: api.DefaultRecentLimit,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withDatabase(cmd, func(db *database.Database) error {
						claims, err := db.RecentClaims(ctx, int(cmd.Int("limit")))
						if err != nil {
							return err
						}

						return printJSON(claims)
					})
				},
			},
			{
				Name:      "block",
				Usage:     "Block a claim so it is never paid",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "refund",
						Usage: "Return the reserved sats to the balance if the claim was not settled",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := parseClaimID(cmd)
					if err != nil {
						return err
					}

					return withDatabase(cmd, func(db *database.Database) error {
						previous, err := db.BlockClaim(ctx, id, cmd.Bool("refund"))
						if err != nil {
							return fmt.Errorf("❌ Could not block claim %d: %w", id, err)
						}
						log.Infof("🚫 Claim %d blocked (was %s)", id, previous)

						return nil
					})
				},
			},
			{
				Name:  "requeue-stale",
				Usage: "Move claims stuck in processing back to pending",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:     "older-than",
						Usage:    "Only claims untouched for longer than this",
						Required: true,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withDatabase(cmd, func(db *database.Database) error {
						n, err := db.RequeueStaleClaims(ctx, cmd.Duration("older-than"))
						if err != nil {
							return err
						}
						log.Infof("🔁 Requeued %d claims", n)

						return nil
					})
				},
			},
		},
	}
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "balance",
		Usage: "Faucet balance operations",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the balance and claim totals",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withDatabase(cmd, func(db *database.Database) error {
						summary, err := db.Summary(ctx)
						if err != nil {
							return err
						}

						return printJSON(summary)
					})
				},
			},
			{
				Name:  "fund",
				Usage: "Add (or with a negative amount, remove) sats from the balance",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "sats",
						Usage:    "Amount to add",
						Required: true,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withDatabase(cmd, func(db *database.Database) error {
						balance, err := db.FundBalance(ctx, cmd.Int("sats"))
						if err != nil {
							return fmt.Errorf("❌ Could not fund balance: %w", err)
						}
						log.Infof("💰 Balance is now %s", balance)

						return nil
					})
				},
			},
		},
	}
}

func databaseCommand() *cli.Command {
	return &cli.Command{
		Name:  "database",
		Usage: "Database operations",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Migrate the database",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withDatabase(cmd, func(db *database.Database) error {
						return db.MigrateDatabase()
					})
				},
			},
			{
				Name:  "reset",
				Usage: "Reset the database",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withDatabase(cmd, func(db *database.Database) error {
						if !isLocalDatabase(cmd) {
							return errors.New("❌ Refusing to reset a remote database")
						}

						return db.ResetDatabase()
					})
				},
			},
		},
	}
}

func lnurlCommand() *cli.Command {
	return &cli.Command{
		Name:  "lnurl",
		Usage: "LNURL helpers",
		Commands: []*cli.Command{
			{
				Name:      "decode",
				Usage:     "Print the URL an LNURL points to",
				ArgsUsage: "<lnurl>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					u, err := lnurl.Resolve(intake.Normalize(cmd.Args().First()))
					if err != nil {
						return fmt.Errorf("❌ Could not decode LNURL: %w", err)
					}
					fmt.Println(u.String())

					return nil
				},
			},
			{
				Name:      "encode",
				Usage:     "Encode a URL as an LNURL",
				ArgsUsage: "<url>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					encoded, err := lnurl.Encode(cmd.Args().First())
					if err != nil {
						return fmt.Errorf("❌ Could not encode URL: %w", err)
					}
					fmt.Println(encoded)

					return nil
				},
			},
		},
	}
}
