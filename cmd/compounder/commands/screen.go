package commands

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/internal/metrics"
	"github.com/wonny/compounder/internal/screen"
)

// screenCmd represents the screen command
var screenCmd = &cobra.Command{
	Use:   "screen [ticker]",
	Short: "티커 한 개를 하드 필터에 통과시켜 본다",
	Long: `파이프라인을 돌리지 않고 티커 하나를 Tier-1 하드 필터 + Tier-2
퀄리티 점수에 바로 넣어봅니다. 결과는 저장하지 않습니다.

Example:
  go run ./cmd/compounder screen AAPL
  go run ./cmd/compounder screen NVDA --criteria my-criteria.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runScreen,
}

func init() {
	rootCmd.AddCommand(screenCmd)
}

func runScreen(cmd *cobra.Command, args []string) error {
	deps, err := initDeps()
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx := cmd.Context()
	ticker := args[0]

	f, err := deps.gateway.Fetch(ctx, ticker)
	if err != nil {
		return err
	}

	calc := metrics.NewCalculator(deps.doc, deps.log)
	derived, err := calc.Compute(f)
	if err != nil {
		// 데이터 부족은 파이프라인과 똑같이 EXCLUDED 취급
		fmt.Println()
		PrintWarning(fmt.Sprintf("%s excluded: %v", f.Ticker, err))
		return nil
	}

	screener := screen.NewScreener(deps.doc, deps.log)
	result := screener.Screen(f, derived)
	printScreening(f, result)

	if !result.Passed {
		return nil
	}

	scorer := screen.NewScorer(deps.doc, deps.log)
	score := scorer.Score(f, derived, result)
	printQualityScore(score)
	return nil
}

func printScreening(f *contracts.Fundamentals, result *contracts.ScreeningResult) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s · %s  |  Tier-1 hard filter\n", f.Ticker, f.Profile.Name)
	PrintSeparator()

	widths := []int{26, 12, 12, 4}
	PrintTableHeader([]string{"CRITERION", "VALUE", "BAR", "OK"}, widths)
	for _, c := range result.Criteria {
		PrintTableRow([]string{
			c.Name,
			formatMetric(c.Value),
			formatMetric(c.Threshold),
			passMark(c.Passed),
		}, widths)
		if c.Override != "" && c.Passed {
			fmt.Printf("      ↳ override: %s\n", c.Override)
		}
		if c.Missing {
			fmt.Printf("      ↳ missing input: %s\n", c.Reason)
		}
	}

	if len(result.Flags) > 0 {
		PrintSeparator()
		PrintList("🚩 Flags", result.Flags)
	}
	if len(result.Reasons) > 0 {
		PrintList("Reasons", result.Reasons)
	}

	PrintSeparator()
	if result.Passed {
		PrintSuccess(fmt.Sprintf("%s passed the hard filter", f.Ticker))
	} else {
		PrintError(fmt.Sprintf("%s failed: %v", f.Ticker, result.FailedCriteria()))
	}
	PrintDoubleSeparator()
}

func printQualityScore(score *contracts.QualityScore) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  Tier-2 quality score: %.1f / 100  →  %s\n", score.Score, score.Tier)
	PrintSeparator()

	widths := []int{18, 14, 12, 40}
	PrintTableHeader([]string{"COMPONENT", "POINTS", "VALUE", "DETAIL"}, widths)
	for _, c := range score.Components {
		PrintTableRow([]string{
			c.Name,
			fmt.Sprintf("%.1f / %.0f", c.Points, c.Max),
			formatMetric(c.Value),
			c.Detail,
		}, widths)
	}

	PrintSeparator()
	if score.Advances {
		PrintSuccess("Advances to valuation")
	} else {
		PrintInfo(fmt.Sprintf("Does not advance (tier %s)", score.Tier))
	}
	PrintDoubleSeparator()
}

// formatMetric picks a readable rendering for mixed-scale criterion
// values: dollar amounts get money units, ratios stay plain.
func formatMetric(v float64) string {
	if math.Abs(v) >= 1e6 {
		return formatMoney(v)
	}
	return fmt.Sprintf("%.2f", v)
}
