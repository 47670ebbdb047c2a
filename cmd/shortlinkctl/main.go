// Command shortlinkctl выпускает dev-токены и управляет миграциями БД.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Totarae/shortlinks/internal/auth"
	"github.com/Totarae/shortlinks/internal/database"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	cobra.CheckErr(newRootCmd().Execute())
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shortlinkctl",
		Short:         "Служебные команды сервиса коротких ссылок",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newTokenCmd(), newMigrateCmd())
	return root
}

func newTokenCmd() *cobra.Command {
	var (
		owner  string
		email  string
		secret string
		ttl    time.Duration
	)

	issue := &cobra.Command{
		Use:   "issue",
		Short: "Выпустить bearer-токен для владельца",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			if secret == "" {
				return fmt.Errorf("secret is required: pass --secret or set JWT_SECRET")
			}
			token, err := auth.New(secret).Issue(owner, email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issue.Flags().StringVar(&owner, "owner", "", "owner id (payload.id)")
	issue.Flags().StringVar(&email, "email", "", "owner email")
	issue.Flags().StringVar(&secret, "secret", "", "HS256 secret (default $JWT_SECRET)")
	issue.Flags().DurationVar(&ttl, "ttl", auth.DefaultTTL, "token lifetime")
	_ = issue.MarkFlagRequired("owner")

	token := &cobra.Command{Use: "token", Short: "Работа с токенами"}
	token.AddCommand(issue)
	return token
}

func newMigrateCmd() *cobra.Command {
	var dsn string

	withMigrator := func(fn func(m *database.Migrator, cmd *cobra.Command) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			if dsn == "" {
				dsn = os.Getenv("DATABASE_DSN")
			}
			if dsn == "" {
				return fmt.Errorf("dsn is required: pass --dsn or set DATABASE_DSN")
			}
			m, err := database.NewMigrator(dsn, zap.NewNop())
			if err != nil {
				return err
			}
			defer m.Close()
			return fn(m, cmd)
		}
	}

	migrate := &cobra.Command{Use: "migrate", Short: "Миграции PostgreSQL"}
	migrate.PersistentFlags().StringVar(&dsn, "dsn", "", "PostgreSQL DSN (default $DATABASE_DSN)")

	migrate.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Применить все миграции",
			RunE: withMigrator(func(m *database.Migrator, _ *cobra.Command) error {
				return m.Up()
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Откатить последнюю миграцию",
			RunE: withMigrator(func(m *database.Migrator, _ *cobra.Command) error {
				return m.Down()
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Показать текущую версию схемы",
			RunE: withMigrator(func(m *database.Migrator, cmd *cobra.Command) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
				return nil
			}),
		},
	)
	return migrate
}
