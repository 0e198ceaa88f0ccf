package contracts

import "testing"

func TestStageIndexRoundTrip(t *testing.T) {
	for _, s := range AllStages() {
		if got := StageFromIndex(s.Index()); got != s {
			t.Errorf("StageFromIndex(%d) = %q, want %q", s.Index(), got, s)
		}
	}

	if got := StageFromIndex(0); got != Stage("") {
		t.Errorf("StageFromIndex(0) = %q, want empty stage", got)
	}
	if got := Stage("").Index(); got != 0 {
		t.Errorf("empty stage Index() = %d, want 0", got)
	}
}

func TestStageOrdering(t *testing.T) {
	stages := AllStages()
	for i := 1; i < len(stages); i++ {
		if stages[i-1].Index() >= stages[i].Index() {
			t.Errorf("stage %q index %d not before %q index %d",
				stages[i-1], stages[i-1].Index(), stages[i], stages[i].Index())
		}
	}
}

func TestStageShortName(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageAcquire, "T0"},
		{StageScreen, "T1"},
		{StageScore, "T2"},
		{StageValue, "T3"},
		{Stage("bogus"), "--"},
	}

	for _, tt := range tests {
		if got := tt.stage.ShortName(); got != tt.want {
			t.Errorf("ShortName(%q) = %q, want %q", tt.stage, got, tt.want)
		}
	}
}

func TestProgressStatusTerminal(t *testing.T) {
	tests := []struct {
		status ProgressStatus
		want   bool
	}{
		{ProgressPending, false},
		{ProgressCompleted, true},
		{ProgressExcluded, true},
		{ProgressFailed, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("Terminal(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestTickerProgressDone(t *testing.T) {
	pending := &TickerProgress{Ticker: "AAPL", Stage: StageScreen, Status: ProgressPending}
	if pending.Done() {
		t.Error("pending ticker reported done")
	}

	excluded := &TickerProgress{Ticker: "PTON", Stage: StageScreen, Status: ProgressExcluded, Reason: "roiic 12.0% below 25.0%"}
	if !excluded.Done() {
		t.Error("excluded ticker should be done")
	}
}
