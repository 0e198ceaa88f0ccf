package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/internal/metrics"
	"github.com/wonny/compounder/internal/screen"
	"github.com/wonny/compounder/internal/valuation"
)

// valueCmd represents the value command
var valueCmd = &cobra.Command{
	Use:   "value [ticker]",
	Short: "티커 한 개를 전체 체인으로 밸류에이션",
	Long: `수집 → 하드 필터 → 퀄리티 점수 → 밸류에이션을 티커 하나에 대해
순서대로 돌립니다. 기본값은 파이프라인과 같은 게이트를 지킵니다:
필터 탈락이나 점수 미달이면 밸류에이션 없이 멈춥니다.

Example:
  go run ./cmd/compounder value MSFT
  go run ./cmd/compounder value MSFT --force   # 게이트 무시하고 강제 평가`,
	Args: cobra.ExactArgs(1),
	RunE: runValue,
}

var valueForce bool

func init() {
	rootCmd.AddCommand(valueCmd)
	valueCmd.Flags().BoolVar(&valueForce, "force", false, "필터/점수 게이트를 무시하고 밸류에이션 실행")
}

func runValue(cmd *cobra.Command, args []string) error {
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
		fmt.Println()
		PrintWarning(fmt.Sprintf("%s excluded: %v", f.Ticker, err))
		return nil
	}

	screener := screen.NewScreener(deps.doc, deps.log)
	screening := screener.Screen(f, derived)
	if !screening.Passed && !valueForce {
		printScreening(f, screening)
		PrintInfo("Hard filter rejected the ticker; rerun with --force to value it anyway")
		return nil
	}

	scorer := screen.NewScorer(deps.doc, deps.log)
	score := scorer.Score(f, derived, screening)
	if !score.Advances && !valueForce {
		printQualityScore(score)
		PrintInfo("Quality tier below the valuation cutoff; rerun with --force to value it anyway")
		return nil
	}

	engine := valuation.NewEngine(deps.doc, deps.log)
	result, err := engine.Value(f, derived, score)
	if err != nil {
		return err
	}

	printValuation(f, score, result, deps.doc.Valuation.EntryTargets)
	return nil
}

func printValuation(f *contracts.Fundamentals, score *contracts.QualityScore, v *contracts.ValuationResult, targets []float64) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s · %s  |  Tier-3 valuation\n", f.Ticker, f.Profile.Name)
	PrintSeparator()
	PrintKeyValue("Quality", fmt.Sprintf("%.1f (%s)", score.Score, score.Tier), 14)

	if !v.Valuable {
		PrintKeyValue("Verdict", string(v.Verdict), 14)
		PrintSeparator()
		PrintWarning("Not valuable: " + v.Reason)
		PrintDoubleSeparator()
		return
	}

	// 할인율 입력값
	PrintSeparator()
	fmt.Println("  💰 Discount rate")
	PrintKeyValue("WACC", formatPct(v.WACC.Value), 14)
	PrintKeyValue("Cost of equity", formatPct(v.WACC.CostOfEquity), 14)
	PrintKeyValue("Cost of debt", formatPct(v.WACC.CostOfDebt)+" (after tax)", 14)
	PrintKeyValue("Weights", fmt.Sprintf("E %.0f%% / D %.0f%%", v.WACC.EquityWeight*100, v.WACC.DebtWeight*100), 14)
	beta := fmt.Sprintf("%.2f (raw %.2f)", v.WACC.BetaAdjusted, v.WACC.BetaRaw)
	if v.WACC.BetaDefaulted {
		beta += " [defaulted]"
	}
	PrintKeyValue("Beta", beta, 14)
	if v.WACC.Clamped {
		PrintInfo("WACC clamped into the configured band")
	}

	PrintSeparator()
	fmt.Println("  📈 Growth & intrinsic value")
	PrintKeyValue("Growth", fmt.Sprintf("%s (%s)", formatPct(v.GrowthRate), v.GrowthBasis), 14)
	PrintKeyValue("Intrinsic", fmt.Sprintf("$%.2f / share", v.IntrinsicValue), 14)
	PrintKeyValue("Price", fmt.Sprintf("$%.2f", v.CurrentPrice), 14)
	PrintKeyValue("Safety margin", formatPct(v.MarginOfSafety), 14)

	PrintSeparator()
	fmt.Println("  🎯 Model ensemble")
	widths := []int{8, 24, 10, 10}
	PrintTableHeader([]string{"TAG", "MODEL", "IRR", "STATUS"}, widths)
	for _, m := range v.Models {
		status := "ok"
		if !m.Converged {
			status = "diverged"
		}
		PrintTableRow([]string{m.Tag, m.Name, formatPct(m.IRR), status}, widths)
	}
	PrintKeyValue("Consensus IRR", formatPct(v.ConsensusIRR), 14)
	PrintKeyValue("Spread", formatPct(v.IRRSpread), 14)
	PrintKeyValue("Converged", fmt.Sprintf("%d / %d", v.ModelsConverged, v.ModelsTotal), 14)

	PrintSeparator()
	fmt.Println("  🛒 Entry prices")
	PrintKeyValue("Excellent", fmt.Sprintf("$%.2f (%s)", v.EntryPrices.Excellent, entryTargetLabel(targets, 0)), 14)
	PrintKeyValue("Good", fmt.Sprintf("$%.2f (%s)", v.EntryPrices.Good, entryTargetLabel(targets, 1)), 14)
	PrintKeyValue("Fair", fmt.Sprintf("$%.2f (%s)", v.EntryPrices.Fair, entryTargetLabel(targets, 2)), 14)

	PrintSeparator()
	switch v.Verdict {
	case contracts.VerdictBuy:
		PrintSuccess(fmt.Sprintf("Verdict: %s", v.Verdict))
	case contracts.VerdictExpensive:
		PrintError(fmt.Sprintf("Verdict: %s", v.Verdict))
	default:
		PrintInfo(fmt.Sprintf("Verdict: %s", v.Verdict))
	}
	PrintDoubleSeparator()
}
