package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	criteriaFlag string
	envFlag      string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "compounder",
	Short: "Compounder - 복리 성장주 스크리닝 & 밸류에이션 파이프라인",
	Long: `Compounder Unified CLI

자본 복리 기업 선별 시스템.
하드 필터 → 퀄리티 점수 → 내재가치 평가의 3단계 깔때기.

Usage:
  go run ./cmd/compounder [command]

Examples:
  go run ./cmd/compounder pipeline run
  go run ./cmd/compounder screen AAPL
  go run ./cmd/compounder value MSFT
  go run ./cmd/compounder serve`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&criteriaFlag, "criteria", "", "criteria YAML file (default is built-in thresholds)")
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "console logging at debug level")
}
