package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
	runs     atomic.Int64
	err      func(attempt int64) error
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }

func (j *stubJob) Run(ctx context.Context) error {
	n := j.runs.Add(1)
	if j.err == nil {
		return nil
	}
	return j.err(n)
}

func newTestScheduler() *Scheduler {
	s := New(logger.NewNop())
	s.retryDelay = 0
	return s
}

func TestAddJobRejectsDuplicates(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "sweep", schedule: "@hourly"}

	if err := s.AddJob(job); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	if err := s.AddJob(job); err == nil {
		t.Fatal("duplicate job name must be rejected")
	}
	if got := s.GetAllJobs(); len(got) != 1 || got[0] != "sweep" {
		t.Errorf("GetAllJobs = %v", got)
	}
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := newTestScheduler()
	if err := s.AddJob(&stubJob{name: "bad", schedule: "not cron"}); err == nil {
		t.Fatal("unparsable schedule must be rejected")
	}
}

func TestRunJobUnknown(t *testing.T) {
	s := newTestScheduler()
	if err := s.RunJob("ghost"); err == nil {
		t.Fatal("running an unregistered job must fail")
	}
}

func TestRunJobRecordsHistory(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "sweep", schedule: "@hourly"}
	if err := s.AddJob(job); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}

	s.runJob(job)

	history, err := s.GetJobHistory("sweep")
	if err != nil {
		t.Fatalf("GetJobHistory failed: %v", err)
	}
	last := history.LastResult()
	if last == nil || !last.Success {
		t.Fatalf("last result = %+v, want success", last)
	}
	if rate := history.GetSuccessRate(); rate != 1.0 {
		t.Errorf("success rate = %v", rate)
	}
}

// 일시 오류는 재시도하고, 성공하면 이력은 성공으로 남는다
func TestRunJobRetriesTransientFailures(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{
		name: "flaky", schedule: "@hourly",
		err: func(attempt int64) error {
			if attempt < 3 {
				return errors.New("socket timeout")
			}
			return nil
		},
	}
	if err := s.AddJob(job); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}

	s.runJob(job)

	if got := job.runs.Load(); got != 3 {
		t.Errorf("job ran %d times, want 3", got)
	}
	history, _ := s.GetJobHistory("flaky")
	if last := history.LastResult(); last == nil || !last.Success {
		t.Errorf("last result = %+v, want success after retries", last)
	}
}

// 영구 오류는 한 번이면 충분하다
func TestRunJobStopsOnPermanentError(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{
		name: "doomed", schedule: "@hourly",
		err: func(int64) error {
			return contracts.NewPermanentError("AAPL", "profile", errors.New("unknown symbol"))
		},
	}
	if err := s.AddJob(job); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}

	s.runJob(job)

	if got := job.runs.Load(); got != 1 {
		t.Errorf("job ran %d times, want 1", got)
	}
	history, _ := s.GetJobHistory("doomed")
	last := history.LastResult()
	if last == nil || last.Success || last.Error == "" {
		t.Errorf("last result = %+v, want recorded failure", last)
	}
}

// 수동 실행은 결과를 종료 코드로 돌려줘야 한다
func TestRunJobNowReportsOutcome(t *testing.T) {
	s := newTestScheduler()
	ok := &stubJob{name: "sweep", schedule: "@hourly"}
	doomed := &stubJob{
		name: "doomed", schedule: "@hourly",
		err: func(int64) error {
			return contracts.NewPermanentError("AAPL", "profile", errors.New("unknown symbol"))
		},
	}
	for _, job := range []*stubJob{ok, doomed} {
		if err := s.AddJob(job); err != nil {
			t.Fatalf("AddJob failed: %v", err)
		}
	}

	if err := s.RunJobNow("sweep"); err != nil {
		t.Errorf("RunJobNow(sweep) = %v, want nil", err)
	}
	if err := s.RunJobNow("doomed"); err == nil {
		t.Error("RunJobNow(doomed) must surface the recorded failure")
	}
	if err := s.RunJobNow("ghost"); err == nil {
		t.Error("RunJobNow must reject unknown jobs")
	}
}

func TestJobHistoryKeepsLastHundred(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 130; i++ {
		h.AddResult(JobResult{JobName: "sweep", Success: i%2 == 0})
	}
	if len(h.Results) != 100 {
		t.Errorf("history length = %d, want 100", len(h.Results))
	}
	if got := h.GetLatestResults(5); len(got) != 5 {
		t.Errorf("latest results = %d, want 5", len(got))
	}
}
