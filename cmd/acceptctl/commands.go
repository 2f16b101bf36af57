package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"acceptapi/internal/auth"
	"acceptapi/internal/config"
	"acceptapi/internal/database"
	"acceptapi/internal/database/migration"
	"acceptapi/internal/logging"
	"acceptapi/internal/repository"
	"acceptapi/internal/repository/postgres"
	"acceptapi/internal/repository/sqlite"
	"acceptapi/internal/token"
)

// overridable in tests
var (
	loadConfig = config.Load
	now        = time.Now
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "acceptctl",
		Short: "Operator tooling for the acceptance API",
		Long: `acceptctl talks to the same database and secrets as the API server.

Available subcommands:
  operator-token - Mint a bearer token for /api/documents
  migrate        - Apply pending schema migrations
  document       - Print a stored document and its deliveries
  verify-token   - Check an acceptance token without consuming it`,
		SilenceUsage: true,
	}
	root.AddCommand(newOperatorTokenCmd(), newMigrateCmd(), newDocumentCmd(), newVerifyTokenCmd())
	return root
}

func newOperatorTokenCmd() *cobra.Command {
	var (
		operator string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "operator-token",
		Short: "Mint a bearer token for /api/documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.OperatorSecret == "" {
				return errors.New("OPERATOR_JWT_SECRET is not set")
			}
			if ttl <= 0 {
				ttl = cfg.Auth.OperatorTTL
			}
			tok, err := auth.GenerateToken(operator, []byte(cfg.Auth.OperatorSecret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&operator, "operator", "", "operator name embedded as the token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token validity (defaults to OPERATOR_JWT_TTL)")
	_ = cmd.MarkFlagRequired("operator")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, cfg.Location())
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := database.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := migration.EnsureMigrated(cmd.Context(), db, driverOf(cfg), logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

type documentReport struct {
	ID         string           `yaml:"id"`
	ClientName string           `yaml:"client_name,omitempty"`
	Status     string           `yaml:"status"`
	IssuedAt   time.Time        `yaml:"issued_at"`
	ExpiresAt  time.Time        `yaml:"expires_at"`
	AcceptedAt *time.Time       `yaml:"accepted_at,omitempty"`
	Method     string           `yaml:"accept_method,omitempty"`
	ClientIP   string           `yaml:"client_ip,omitempty"`
	EnvelopeID string           `yaml:"envelope_id,omitempty"`
	Deliveries []deliveryReport `yaml:"deliveries,omitempty"`
}

type deliveryReport struct {
	Channel  string `yaml:"channel"`
	Status   string `yaml:"status"`
	Attempts int    `yaml:"attempts"`
	Error    string `yaml:"error,omitempty"`
}

func newDocumentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "document DOC_ID",
		Short: "Print a stored document and its deliveries as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepos(cmd.Context(), func(docs repository.DocumentRepository, deliveries repository.DeliveryRepository) error {
				doc, err := docs.FindByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				rows, err := deliveries.ListByDocument(cmd.Context(), doc.ID)
				if err != nil {
					return err
				}

				rep := documentReport{
					ID:         doc.ID,
					ClientName: doc.ClientName,
					Status:     doc.Status(now()),
					IssuedAt:   doc.IssuedAt,
					ExpiresAt:  doc.ExpiresAt,
					AcceptedAt: doc.AcceptedAt,
					Method:     doc.AcceptMethod,
					ClientIP:   doc.ClientIP,
					EnvelopeID: doc.EnvelopeID,
				}
				for _, r := range rows {
					rep.Deliveries = append(rep.Deliveries, deliveryReport{
						Channel:  r.Channel,
						Status:   r.Status,
						Attempts: r.Attempts,
						Error:    r.Error,
					})
				}

				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(rep)
			})
		},
	}
}

func newVerifyTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-token DOC_ID TOKEN",
		Short: "Check an acceptance token without consuming it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepos(cmd.Context(), func(docs repository.DocumentRepository, _ repository.DeliveryRepository) error {
				doc, err := docs.FindByID(cmd.Context(), args[0])
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("document %s: %w", args[0], token.ErrMismatch)
				}
				if err != nil {
					return err
				}
				if err := token.Verify(doc.TokenHash, args[1], doc.ExpiresAt, now()); err != nil {
					return fmt.Errorf("document %s: %w", doc.ID, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "token valid, document is %s\n", doc.Status(now()))
				return nil
			})
		},
	}
}

func withRepos(ctx context.Context, fn func(repository.DocumentRepository, repository.DeliveryRepository) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := migration.EnsureMigrated(ctx, db, driverOf(cfg), zap.NewNop()); err != nil {
		return err
	}
	docs, deliveries := repositories(driverOf(cfg), db)
	return fn(docs, deliveries)
}

func driverOf(cfg *config.AppConfig) string {
	if cfg.Database.Driver == "" {
		return database.DriverPostgres
	}
	return cfg.Database.Driver
}

func repositories(driver string, db *sql.DB) (repository.DocumentRepository, repository.DeliveryRepository) {
	if driver == database.DriverSQLite {
		return sqlite.NewDocumentRepository(db), sqlite.NewDeliveryRepository(db)
	}
	return postgres.NewDocumentPostgres(db), postgres.NewDeliveryPostgres(db)
}
