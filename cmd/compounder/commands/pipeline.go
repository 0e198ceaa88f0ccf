package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/internal/pipeline"
)

// pipelineCmd represents the pipeline command
var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "스크리닝 파이프라인 실행/재개/조회",
	Long: `유니버스 전체를 하드 필터 → 퀄리티 점수 → 밸류에이션으로 돌립니다.

진행 상황은 티커 단위로 체크포인트에 남습니다:
- Ctrl+C로 중단해도 배치 경계에서 안전하게 멈춤
- resume으로 남은 티커만 이어서 처리
- 기준(criteria)이 바뀐 런은 재개 대신 새 런을 요구

Example:
  go run ./cmd/compounder pipeline run
  go run ./cmd/compounder pipeline run --tickers AAPL,MSFT,GOOGL
  go run ./cmd/compounder pipeline resume run_20260825_063000
  go run ./cmd/compounder pipeline status`,
}

var pipelineRunCmd = &cobra.Command{
	Use:   "run",
	Short: "새 파이프라인 런 시작",
	Long: `스크리너 유니버스(또는 명시한 티커 목록)로 새 런을 시작합니다.

Example:
  go run ./cmd/compounder pipeline run
  go run ./cmd/compounder pipeline run --tickers AAPL,MSFT
  go run ./cmd/compounder pipeline run --file watchlist.txt --workers 4`,
	RunE: runPipelineRun,
}

var pipelineResumeCmd = &cobra.Command{
	Use:   "resume [run_id]",
	Short: "중단된 런 재개",
	Args:  cobra.ExactArgs(1),
	RunE:  runPipelineResume,
}

var pipelineStatusCmd = &cobra.Command{
	Use:   "status [run_id]",
	Short: "런 요약 조회 (기본: 최근 런)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPipelineStatus,
}

var (
	// Pipeline flags
	pipelineTickers   string
	pipelineFile      string
	pipelineRunID     string
	pipelineWorkers   int
	pipelineBatchSize int
	statusFailures    bool
	statusList        int
)

func init() {
	rootCmd.AddCommand(pipelineCmd)
	pipelineCmd.AddCommand(pipelineRunCmd)
	pipelineCmd.AddCommand(pipelineResumeCmd)
	pipelineCmd.AddCommand(pipelineStatusCmd)

	// run flags
	pipelineRunCmd.Flags().StringVar(&pipelineTickers, "tickers", "", "쉼표로 구분한 티커 목록 (스크리너 대신 사용)")
	pipelineRunCmd.Flags().StringVar(&pipelineFile, "file", "", "한 줄에 티커 하나인 파일 (스크리너 대신 사용)")
	pipelineRunCmd.Flags().StringVar(&pipelineRunID, "run-id", "", "런 ID 지정 (기본: run_YYYYMMDD_HHMMSS)")
	pipelineRunCmd.Flags().IntVar(&pipelineWorkers, "workers", 0, "동시 처리 워커 수 (기본: config)")
	pipelineRunCmd.Flags().IntVar(&pipelineBatchSize, "batch-size", 0, "취소 확인 간격이 되는 배치 크기 (기본: config)")

	// status flags
	pipelineStatusCmd.Flags().BoolVar(&statusFailures, "failures", false, "실패/제외 티커와 사유 출력")
	pipelineStatusCmd.Flags().IntVar(&statusList, "list", 0, "최근 N개 런 목록 출력")
}

func runPipelineRun(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Compounder Pipeline ===")

	if pipelineTickers != "" && pipelineFile != "" {
		return fmt.Errorf("--tickers and --file are mutually exclusive")
	}

	deps, err := initDeps()
	if err != nil {
		return err
	}
	defer deps.Close()

	if pipelineWorkers > 0 {
		deps.cfg.Pipeline.Workers = pipelineWorkers
	}
	if pipelineBatchSize > 0 {
		deps.cfg.Pipeline.BatchSize = pipelineBatchSize
	}

	orch, err := deps.orchestrator()
	if err != nil {
		return err
	}

	var tickers []string
	switch {
	case pipelineTickers != "":
		tickers = strings.Split(pipelineTickers, ",")
	case pipelineFile != "":
		u, err := deps.universeBuilder().FromFile(pipelineFile)
		if err != nil {
			return err
		}
		tickers = u.Tickers
	}

	fmt.Printf("Criteria: %s\n", shortSHA(deps.criteriaSHA))
	if len(tickers) > 0 {
		fmt.Printf("Universe: %d explicit tickers\n", len(tickers))
	} else {
		fmt.Println("Universe: provider screener")
	}
	fmt.Println("\nPress Ctrl+C to checkpoint and stop at the next batch boundary")

	// 시그널은 배치 경계에서 체크포인트 후 멈추게 한다
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := orch.Run(ctx, pipeline.RunConfig{RunID: pipelineRunID, Tickers: tickers})
	if err != nil {
		return err
	}

	printRunResult(result)
	return nil
}

func runPipelineResume(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Compounder Pipeline (resume) ===")

	deps, err := initDeps()
	if err != nil {
		return err
	}
	defer deps.Close()

	orch, err := deps.orchestrator()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := orch.Resume(ctx, args[0])
	if err != nil {
		return err
	}

	printRunResult(result)
	return nil
}

func runPipelineStatus(cmd *cobra.Command, args []string) error {
	deps, err := initDeps()
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx := cmd.Context()

	if statusList > 0 {
		return printRunList(ctx, deps, statusList)
	}

	var runID string
	if len(args) == 1 {
		runID = args[0]
	} else {
		latest, err := deps.checkpoint.LatestRun(ctx)
		if err != nil {
			return fmt.Errorf("load latest run: %w", err)
		}
		if latest == nil {
			PrintInfo("No runs recorded yet. Start one with: compounder pipeline run")
			return nil
		}
		runID = latest.RunID
	}

	sum, err := deps.checkpoint.Summary(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run summary: %w", err)
	}
	printRunSummary(sum)

	if statusFailures {
		return printRunFailures(ctx, deps, runID)
	}
	return nil
}

func printRunResult(result *pipeline.RunResult) {
	if result.Summary != nil {
		printRunSummary(result.Summary)
	}
	fmt.Printf("\n⏱  Duration: %s\n", result.Duration.Round(time.Millisecond))

	if result.Interrupted {
		PrintWarning("Run interrupted; resume with: compounder pipeline resume " + result.RunID)
		return
	}
	PrintSuccess("Pipeline run " + result.RunID + " finished")
}

func printRunSummary(sum *contracts.RunSummary) {
	m := sum.Manifest

	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  Run %s\n", m.RunID)
	PrintSeparator()
	PrintKeyValue("Status", string(m.Status), 10)
	PrintKeyValue("Criteria", shortSHA(m.CriteriaSHA), 10)
	PrintKeyValue("Universe", fmt.Sprintf("%d tickers", m.UniverseSize), 10)
	PrintKeyValue("Started", formatTime(m.StartedAt), 10)
	if m.FinishedAt != nil {
		PrintKeyValue("Finished", formatTime(*m.FinishedAt), 10)
	}

	PrintSeparator()
	fmt.Println("  📊 Funnel")
	PrintKeyValue("Acquired", fmt.Sprintf("%d", sum.Acquired), 10)
	PrintKeyValue("Screened", fmt.Sprintf("%d (passed %d)", sum.Screened, sum.Passed), 10)
	PrintKeyValue("Scored", fmt.Sprintf("%d (advanced %d)", sum.Scored, sum.Advanced), 10)
	PrintKeyValue("Valued", fmt.Sprintf("%d", sum.Valued), 10)
	PrintKeyValue("Buys", fmt.Sprintf("%d", sum.Buys), 10)

	PrintSeparator()
	PrintKeyValue("Excluded", fmt.Sprintf("%d", sum.Excluded), 10)
	PrintKeyValue("Failed", fmt.Sprintf("%d", sum.Failed), 10)
	PrintKeyValue("Remaining", fmt.Sprintf("%d", sum.Remaining), 10)
	PrintDoubleSeparator()
}

func printRunList(ctx context.Context, deps *appDeps, limit int) error {
	runs, err := deps.checkpoint.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		PrintInfo("No runs recorded yet")
		return nil
	}

	widths := []int{22, 12, 8, 19, 19}
	PrintTableHeader([]string{"RUN", "STATUS", "SIZE", "STARTED", "FINISHED"}, widths)
	for _, m := range runs {
		finished := "-"
		if m.FinishedAt != nil {
			finished = formatTime(*m.FinishedAt)
		}
		PrintTableRow([]string{
			m.RunID,
			string(m.Status),
			fmt.Sprintf("%d", m.UniverseSize),
			formatTime(m.StartedAt),
			finished,
		}, widths)
	}
	return nil
}

func printRunFailures(ctx context.Context, deps *appDeps, runID string) error {
	progress, err := deps.checkpoint.Progress(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run progress: %w", err)
	}

	var rows []*contracts.TickerProgress
	for _, p := range progress {
		if p.Status == contracts.ProgressFailed || p.Status == contracts.ProgressExcluded {
			rows = append(rows, p)
		}
	}
	if len(rows) == 0 {
		PrintSuccess("No failed or excluded tickers")
		return nil
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Ticker < rows[j].Ticker })

	fmt.Println()
	widths := []int{8, 10, 14, 50}
	PrintTableHeader([]string{"TICKER", "STATUS", "STAGE", "REASON"}, widths)
	for _, p := range rows {
		PrintTableRow([]string{p.Ticker, string(p.Status), p.Stage.ShortName(), p.Reason}, widths)
	}
	return nil
}

// shortSHA truncates a criteria fingerprint for display.
func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
