package pipeline

import (
	"fmt"
	"time"
)

// NewRunID returns a sortable timestamp run id, e.g.
// run_20260825_153000. Two runs started in the same second collide,
// which is acceptable for a batch pipeline a human launches.
func NewRunID(now time.Time) string {
	return fmt.Sprintf("run_%s", now.Format("20060102_150405"))
}
