package commands

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/compounder/internal/universe"
)

// universeCmd represents the universe command
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "스크리너 유니버스 미리보기",
	Long: `파이프라인이 돌게 될 유니버스를 공급자 스크리너에서 당겨와
제외 규칙(이름 토큰, 섹터, 산업, 시총 바닥)까지 적용해 보여줍니다.

Example:
  go run ./cmd/compounder universe
  go run ./cmd/compounder universe --limit 100 --excluded
  go run ./cmd/compounder universe --out universe.txt`,
	RunE: runUniverse,
}

var (
	universeLimit    int
	universeExcluded bool
	universeOut      string
)

func init() {
	rootCmd.AddCommand(universeCmd)
	universeCmd.Flags().IntVar(&universeLimit, "limit", 0, "스크리너 당김 개수 (기본: criteria)")
	universeCmd.Flags().BoolVar(&universeExcluded, "excluded", false, "제외된 티커와 사유 출력")
	universeCmd.Flags().StringVar(&universeOut, "out", "", "유니버스를 한 줄에 티커 하나로 저장 (pipeline run --file 입력용)")
}

func runUniverse(cmd *cobra.Command, args []string) error {
	deps, err := initDeps()
	if err != nil {
		return err
	}
	defer deps.Close()

	crit := deps.doc.Universe
	if universeLimit > 0 {
		crit.ScreenerLimit = universeLimit
	}
	builder := universe.NewBuilder(deps.provider, crit, deps.log)

	u, err := builder.Build(cmd.Context())
	if err != nil {
		return err
	}

	printUniverse(u)

	if universeOut != "" {
		if err := writeUniverseFile(universeOut, u); err != nil {
			return err
		}
		PrintSuccess(fmt.Sprintf("Wrote %d tickers to %s", len(u.Tickers), universeOut))
	}
	return nil
}

func printUniverse(u *universe.Universe) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  Universe: %d tickers (source: %s)\n", u.Size(), u.Source)
	PrintSeparator()
	PrintKeyValue("Built", formatTime(u.BuiltAt), 10)
	PrintKeyValue("Excluded", fmt.Sprintf("%d", len(u.Excluded)), 10)
	PrintSeparator()

	// 8개씩 한 줄에
	for i := 0; i < len(u.Tickers); i += 8 {
		end := i + 8
		if end > len(u.Tickers) {
			end = len(u.Tickers)
		}
		fmt.Printf("  %s\n", strings.Join(u.Tickers[i:end], "  "))
	}

	if universeExcluded && len(u.Excluded) > 0 {
		fmt.Println()
		tickers := make([]string, 0, len(u.Excluded))
		for t := range u.Excluded {
			tickers = append(tickers, t)
		}
		sort.Strings(tickers)

		widths := []int{10, 60}
		PrintTableHeader([]string{"TICKER", "EXCLUDED BECAUSE"}, widths)
		for _, t := range tickers {
			PrintTableRow([]string{t, u.Excluded[t]}, widths)
		}
	}
	PrintDoubleSeparator()
}

func writeUniverseFile(path string, u *universe.Universe) error {
	var sb strings.Builder
	sb.WriteString("# compounder universe, built " + formatTime(u.BuiltAt) + "\n")
	for _, t := range u.Tickers {
		sb.WriteString(t + "\n")
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write universe file: %w", err)
	}
	return nil
}
