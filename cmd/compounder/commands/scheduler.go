package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/compounder/internal/scheduler"
	"github.com/wonny/compounder/internal/scheduler/jobs"
	"github.com/wonny/compounder/internal/valuation"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "주기 작업 스케줄러 (워치리스트 재평가, 캐시 갱신)",
	Long: `cron 스케줄로 도는 두 가지 주기 작업을 관리합니다:

- watchlist_revaluation: 최근 완료 런의 BUY/WATCH 티커를 새 런으로 재평가
- fundamentals_refresh:  신선도 창을 넘긴 캐시를 공급자에서 갱신

Example:
  go run ./cmd/compounder scheduler start
  go run ./cmd/compounder scheduler list
  go run ./cmd/compounder scheduler run watchlist_revaluation
  go run ./cmd/compounder scheduler status`,
}

var schedulerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "스케줄러 실행 (포그라운드, Ctrl+C로 종료)",
	RunE:  runSchedulerStart,
}

var schedulerListCmd = &cobra.Command{
	Use:   "list",
	Short: "등록된 작업과 스케줄 목록",
	RunE:  runSchedulerList,
}

var schedulerRunCmd = &cobra.Command{
	Use:   "run [job_name]",
	Short: "작업 한 개를 즉시 실행",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchedulerRun,
}

var schedulerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "작업별 최근 실행 이력",
	RunE:  runSchedulerStatus,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

// initScheduler wires the two periodic jobs onto a fresh scheduler.
func initScheduler() (*scheduler.Scheduler, []scheduler.Job, *appDeps, error) {
	deps, err := initDeps()
	if err != nil {
		return nil, nil, nil, err
	}

	orch, err := deps.orchestrator()
	if err != nil {
		deps.Close()
		return nil, nil, nil, err
	}
	valRepo := valuation.NewResultRepository(deps.db.Pool)

	jobList := []scheduler.Job{
		jobs.NewWatchlistRevaluationJob(deps.checkpoint, valRepo, orch, deps.cfg.Schedule.QuoteRefresh, deps.log),
		jobs.NewFundamentalsRefreshJob(deps.store, deps.gateway, deps.cfg.Pipeline.Workers, deps.cfg.Cache.FundamentalsTTL, deps.cfg.Schedule.FullRefresh, deps.log),
	}

	sched := scheduler.New(deps.log)
	for _, job := range jobList {
		if err := sched.AddJob(job); err != nil {
			deps.Close()
			return nil, nil, nil, fmt.Errorf("register job %s: %w", job.Name(), err)
		}
	}
	return sched, jobList, deps, nil
}

func runSchedulerStart(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Compounder Scheduler ===")

	sched, jobList, deps, err := initScheduler()
	if err != nil {
		return err
	}
	defer deps.Close()

	if !deps.cfg.Schedule.Enabled {
		PrintWarning("Scheduling is disabled (SCHEDULE_ENABLED=false); nothing to do")
		return nil
	}

	for _, job := range jobList {
		fmt.Printf("  📅 %s · %s\n", job.Name(), job.Schedule())
	}
	fmt.Println("\nScheduler running. Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched.Start(ctx)
	<-ctx.Done()

	sched.Stop()
	PrintSuccess("Scheduler stopped")
	return nil
}

func runSchedulerList(cmd *cobra.Command, args []string) error {
	_, jobList, deps, err := initScheduler()
	if err != nil {
		return err
	}
	defer deps.Close()

	fmt.Println()
	widths := []int{26, 20, 40}
	PrintTableHeader([]string{"JOB", "SCHEDULE", "ENABLED"}, widths)
	for _, job := range jobList {
		PrintTableRow([]string{
			job.Name(),
			job.Schedule(),
			fmt.Sprintf("%v", deps.cfg.Schedule.Enabled),
		}, widths)
	}
	return nil
}

func runSchedulerRun(cmd *cobra.Command, args []string) error {
	sched, _, deps, err := initScheduler()
	if err != nil {
		return err
	}
	defer deps.Close()

	jobName := args[0]
	fmt.Printf("▶ Running %s...\n", jobName)

	if err := sched.RunJobNow(jobName); err != nil {
		return err
	}
	PrintSuccess(jobName + " finished")
	return nil
}

func runSchedulerStatus(cmd *cobra.Command, args []string) error {
	sched, _, deps, err := initScheduler()
	if err != nil {
		return err
	}
	defer deps.Close()

	fmt.Println()
	for _, name := range sched.GetAllJobs() {
		history, err := sched.GetJobHistory(name)
		if err != nil {
			continue
		}

		PrintDoubleSeparator()
		fmt.Printf("  %s\n", name)
		PrintSeparator()

		last := history.LastResult()
		if last == nil {
			PrintInfo("Never ran in this process")
			continue
		}
		PrintKeyValue("Last run", formatTime(last.StartTime), 12)
		PrintKeyValue("Outcome", passMark(last.Success), 12)
		if last.Error != "" {
			PrintKeyValue("Error", last.Error, 12)
		}
		PrintKeyValue("Duration", last.Duration.String(), 12)
		PrintKeyValue("Success", formatPct(history.GetSuccessRate()), 12)

		recent := history.GetLatestResults(5)
		if len(recent) > 1 {
			fmt.Println("  Recent:")
			for _, r := range recent {
				fmt.Printf("    %s %s (%s)\n", passMark(r.Success), formatTime(r.StartTime), r.Duration)
			}
		}
	}
	PrintDoubleSeparator()
	return nil
}
