package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "펀더멘털 캐시 관리",
	Long: `수집 게이트웨이 뒤의 영속 캐시를 들여다보고 관리합니다.

Example:
  go run ./cmd/compounder cache stats
  go run ./cmd/compounder cache stale
  go run ./cmd/compounder cache invalidate AAPL
  go run ./cmd/compounder cache clear --yes`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "캐시 통계 (티커/기간 수, 신선도, 적중률)",
	RunE:  runCacheStats,
}

var cacheStaleCmd = &cobra.Command{
	Use:   "stale",
	Short: "신선도 창을 넘긴 티커 목록",
	RunE:  runCacheStale,
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate [ticker]",
	Short: "티커 한 개의 캐시 삭제 (다음 조회는 공급자 호출)",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheInvalidate,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "캐시 전체 삭제",
	RunE:  runCacheClear,
}

var cacheClearYes bool

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheStaleCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	cacheClearCmd.Flags().BoolVar(&cacheClearYes, "yes", false, "확인 없이 삭제")
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	deps, err := initDeps()
	if err != nil {
		return err
	}
	defer deps.Close()

	cutoff := time.Now().UTC().Add(-deps.cfg.Cache.FundamentalsTTL)
	stats, err := deps.store.Stats(cmd.Context(), cutoff)
	if err != nil {
		return fmt.Errorf("load cache stats: %w", err)
	}

	fmt.Println()
	PrintDoubleSeparator()
	fmt.Println("  Fundamentals cache")
	PrintSeparator()
	PrintKeyValue("Tickers", fmt.Sprintf("%d", stats.Tickers), 12)
	PrintKeyValue("Periods", fmt.Sprintf("%d", stats.Periods), 12)
	PrintKeyValue("Stale", fmt.Sprintf("%d (older than %s)", stats.Stale, deps.cfg.Cache.FundamentalsTTL), 12)
	PrintSeparator()
	PrintKeyValue("Hits", fmt.Sprintf("%d", stats.Hits), 12)
	PrintKeyValue("Misses", fmt.Sprintf("%d", stats.Misses), 12)
	PrintKeyValue("Calls saved", fmt.Sprintf("%d", stats.CallsSaved), 12)
	PrintDoubleSeparator()
	return nil
}

func runCacheStale(cmd *cobra.Command, args []string) error {
	deps, err := initDeps()
	if err != nil {
		return err
	}
	defer deps.Close()

	cutoff := time.Now().UTC().Add(-deps.cfg.Cache.FundamentalsTTL)
	tickers, err := deps.store.StaleTickers(cmd.Context(), cutoff)
	if err != nil {
		return fmt.Errorf("list stale tickers: %w", err)
	}

	if len(tickers) == 0 {
		PrintSuccess("Cache is fresh; nothing older than " + deps.cfg.Cache.FundamentalsTTL.String())
		return nil
	}

	fmt.Printf("\n%d stale tickers (older than %s):\n", len(tickers), deps.cfg.Cache.FundamentalsTTL)
	for _, t := range tickers {
		fmt.Printf("  %s\n", t)
	}
	return nil
}

func runCacheInvalidate(cmd *cobra.Command, args []string) error {
	deps, err := initDeps()
	if err != nil {
		return err
	}
	defer deps.Close()

	if err := deps.gateway.Invalidate(cmd.Context(), args[0]); err != nil {
		return err
	}
	PrintSuccess(fmt.Sprintf("Invalidated %s; next fetch goes to the provider", args[0]))
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	if !cacheClearYes {
		PrintWarning("This deletes every cached fundamentals snapshot. Rerun with --yes to confirm")
		return nil
	}

	deps, err := initDeps()
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx := cmd.Context()

	// cutoff를 지금으로 잡으면 모든 스냅샷이 대상이 된다
	tickers, err := deps.store.StaleTickers(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("list cached tickers: %w", err)
	}
	if len(tickers) == 0 {
		PrintInfo("Cache is already empty")
		return nil
	}

	cleared := 0
	for _, t := range tickers {
		if err := deps.gateway.Invalidate(ctx, t); err != nil {
			PrintError(fmt.Sprintf("%s: %v", t, err))
			continue
		}
		cleared++
	}
	PrintSuccess(fmt.Sprintf("Cleared %d of %d cached tickers", cleared, len(tickers)))
	return nil
}
