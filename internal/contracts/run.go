package contracts

import "time"

// Stage identifies a pipeline stage. The empty Stage means no stage has
// completed for a ticker yet.
// ⭐ SSOT: 파이프라인 단계 정의는 여기서만
type Stage string

const (
	StageAcquire Stage = "ACQUIRE"
	StageScreen  Stage = "TIER1_SCREEN"
	StageScore   Stage = "TIER2_SCORE"
	StageValue   Stage = "TIER3_VALUE"
)

// AllStages returns the stages in execution order.
func AllStages() []Stage {
	return []Stage{StageAcquire, StageScreen, StageScore, StageValue}
}

// Index orders stages for checkpoint comparison: 0 for "none completed",
// then 1..4 in execution order.
func (s Stage) Index() int {
	switch s {
	case StageAcquire:
		return 1
	case StageScreen:
		return 2
	case StageScore:
		return 3
	case StageValue:
		return 4
	default:
		return 0
	}
}

// StageFromIndex inverts Index. Unknown indices map to the empty Stage.
func StageFromIndex(i int) Stage {
	switch i {
	case 1:
		return StageAcquire
	case 2:
		return StageScreen
	case 3:
		return StageScore
	case 4:
		return StageValue
	default:
		return ""
	}
}

// ShortName returns the compact label used in log lines.
func (s Stage) ShortName() string {
	switch s {
	case StageAcquire:
		return "T0"
	case StageScreen:
		return "T1"
	case StageScore:
		return "T2"
	case StageValue:
		return "T3"
	default:
		return "--"
	}
}

// Description explains what the stage does.
func (s Stage) Description() string {
	switch s {
	case StageAcquire:
		return "펀더멘털 수집 및 캐시 (fundamentals acquisition)"
	case StageScreen:
		return "하드 필터 (hard filter)"
	case StageScore:
		return "퀄리티 점수 (quality score)"
	case StageValue:
		return "내재가치 평가 (valuation)"
	default:
		return "unknown stage"
	}
}

// RunStatus is the lifecycle state of one pipeline run.
type RunStatus string

const (
	RunRunning     RunStatus = "RUNNING"
	RunCompleted   RunStatus = "COMPLETED"
	RunFailed      RunStatus = "FAILED"
	RunInterrupted RunStatus = "INTERRUPTED"
)

// RunManifest is the durable header for one pipeline run. CriteriaSHA
// pins the exact thresholds the run was evaluated under, so a resumed
// run can refuse to continue under different criteria.
type RunManifest struct {
	RunID        string     `json:"run_id"`
	CriteriaSHA  string     `json:"criteria_sha"`
	UniverseSize int        `json:"universe_size"`
	Status       RunStatus  `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// ProgressStatus is the terminal-or-pending state of one ticker within
// a run.
type ProgressStatus string

const (
	// ProgressPending: not all stages have run yet.
	ProgressPending ProgressStatus = "PENDING"
	// ProgressCompleted: the ticker went through every stage it
	// qualified for.
	ProgressCompleted ProgressStatus = "COMPLETED"
	// ProgressExcluded: a tier rejected the ticker or its data was
	// insufficient; the reason is recorded.
	ProgressExcluded ProgressStatus = "EXCLUDED"
	// ProgressFailed: acquisition failed permanently or exhausted its
	// retries.
	ProgressFailed ProgressStatus = "FAILED"
)

// Terminal reports whether the status needs no further work on resume.
func (s ProgressStatus) Terminal() bool {
	return s == ProgressCompleted || s == ProgressExcluded || s == ProgressFailed
}

// TickerProgress is the per-ticker checkpoint row: the last stage that
// fully committed and the ticker's disposition. Written atomically with
// the stage's output record.
type TickerProgress struct {
	RunID     string         `json:"run_id"`
	Ticker    string         `json:"ticker"`
	Stage     Stage          `json:"stage"`
	Status    ProgressStatus `json:"status"`
	Reason    string         `json:"reason,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Done reports whether the ticker can be skipped on resume.
func (p *TickerProgress) Done() bool {
	return p.Status.Terminal()
}

// RunSummary aggregates a finished (or in-flight) run for reporting.
type RunSummary struct {
	Manifest  RunManifest `json:"manifest"`
	Acquired  int         `json:"acquired"`
	Screened  int         `json:"screened"`
	Passed    int         `json:"passed"`
	Scored    int         `json:"scored"`
	Advanced  int         `json:"advanced"`
	Valued    int         `json:"valued"`
	Buys      int         `json:"buys"`
	Failed    int         `json:"failed"`
	Excluded  int         `json:"excluded"`
	Remaining int         `json:"remaining"`
}
