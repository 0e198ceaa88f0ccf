package commands

import (
	"github.com/spf13/cobra"

	"github.com/wonny/compounder/pkg/database"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "데이터베이스 스키마 마이그레이션",
	Long: `내장된 마이그레이션을 순서대로 적용합니다. 이미 적용된 버전은
건너뜁니다.

Example:
  go run ./cmd/compounder migrate
  go run ./cmd/compounder migrate --status`,
	RunE: runMigrate,
}

var migrateStatus bool

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "적용 현황만 출력")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := initConfig()
	if err != nil {
		return err
	}

	if migrateStatus {
		return database.MigrationStatus(cfg.Database.URL)
	}

	if err := database.Migrate(cfg.Database.URL); err != nil {
		return err
	}
	PrintSuccess("Migrations applied")
	return nil
}
