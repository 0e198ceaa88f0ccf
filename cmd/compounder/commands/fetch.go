package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/compounder/internal/contracts"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch [ticker]",
	Short: "티커 한 개의 펀더멘털을 수집/조회",
	Long: `캐시 우선으로 펀더멘털 번들을 가져옵니다. 신선한 캐시가 있으면
공급자 호출 없이 바로 반환하고, 없으면 FMP에서 받아 캐시에 저장합니다.

Example:
  go run ./cmd/compounder fetch AAPL
  go run ./cmd/compounder fetch AAPL --refresh   # 캐시 무시하고 강제 갱신
  go run ./cmd/compounder fetch AAPL --quote     # 시세만 조회`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

var (
	fetchRefresh bool
	fetchQuote   bool
)

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().BoolVar(&fetchRefresh, "refresh", false, "캐시를 무시하고 공급자에서 강제 갱신")
	fetchCmd.Flags().BoolVar(&fetchQuote, "quote", false, "시세만 조회 (펀더멘털 생략)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	deps, err := initDeps()
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx := cmd.Context()
	ticker := args[0]

	if fetchQuote {
		quote, err := deps.gateway.FetchQuote(ctx, ticker)
		if err != nil {
			return err
		}
		printQuote(quote)
		return nil
	}

	var f *contracts.Fundamentals
	if fetchRefresh {
		fmt.Printf("🔄 Refreshing %s from provider...\n", ticker)
		f, err = deps.gateway.Refresh(ctx, ticker)
	} else {
		f, err = deps.gateway.Fetch(ctx, ticker)
	}
	if err != nil {
		return err
	}

	printFundamentals(f)
	return nil
}

func printFundamentals(f *contracts.Fundamentals) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s · %s\n", f.Ticker, f.Profile.Name)
	PrintSeparator()
	PrintKeyValue("Sector", f.Profile.Sector, 12)
	PrintKeyValue("Industry", f.Profile.Industry, 12)
	PrintKeyValue("Exchange", f.Profile.Exchange, 12)
	PrintKeyValue("Market Cap", formatMoney(f.Profile.MarketCap), 12)
	PrintKeyValue("Price", fmt.Sprintf("$%.2f", f.Quote.Price), 12)
	PrintKeyValue("Beta", fmt.Sprintf("%.2f", f.Profile.Beta), 12)

	PrintSeparator()
	if len(f.Periods) > 0 {
		oldest := f.Periods[len(f.Periods)-1].FiscalYear
		newest := f.Periods[0].FiscalYear
		PrintKeyValue("Periods", fmt.Sprintf("%d annual (FY%d–FY%d)", len(f.Periods), oldest, newest), 12)

		latest := f.Latest()
		PrintKeyValue("Revenue", formatMoney(latest.Revenue), 12)
		PrintKeyValue("FCF", formatMoney(latest.FreeCashFlow), 12)
		PrintKeyValue("Net Debt", formatMoney(latest.NetDebt()), 12)
	} else {
		PrintKeyValue("Periods", "none", 12)
	}

	PrintSeparator()
	PrintKeyValue("Fetched", formatTime(f.FetchedAt), 12)
	PrintDoubleSeparator()

	if f.Stale {
		PrintWarning("Snapshot is stale; provider refresh failed, serving last good data")
	}
}

func printQuote(q *contracts.Quote) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s quote\n", q.Ticker)
	PrintSeparator()
	PrintKeyValue("Price", fmt.Sprintf("$%.2f", q.Price), 12)
	PrintKeyValue("Market Cap", formatMoney(q.MarketCap), 12)
	PrintKeyValue("P/E", fmt.Sprintf("%.1f", q.PE), 12)
	PrintKeyValue("Source", q.Source, 12)
	PrintKeyValue("Fetched", formatTime(q.FetchedAt), 12)
	PrintDoubleSeparator()
}
