package dfk

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// telemetry is a minimal, anonymized usage recorder: it tags a run with a
// random id and appends a couple of JSON lines to the run directory,
// rather than phoning anything home.
type telemetry struct {
	runID  uuid.UUID
	path   string
	logger *Logger
}

func newTelemetry(rundir string, logger *Logger) *telemetry {
	return &telemetry{
		runID:  uuid.New(),
		path:   filepath.Join(rundir, "usage.jsonl"),
		logger: logger,
	}
}

type usageEvent struct {
	RunID     string         `json:"run_id"`
	Event     string         `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	Counts    map[string]int `json:"status_counts,omitempty"`
}

func (t *telemetry) sendInit() {
	t.append(usageEvent{RunID: t.runID.String(), Event: "init", Timestamp: time.Now()})
}

func (t *telemetry) sendFinal(counts map[Status]int) {
	byName := make(map[string]int, len(counts))
	for s, n := range counts {
		byName[s.String()] = n
	}
	t.append(usageEvent{RunID: t.runID.String(), Event: "final", Timestamp: time.Now(), Counts: byName})
}

func (t *telemetry) append(ev usageEvent) {
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		if t.logger != nil {
			t.logger.Debug().Str("event", ev.Event).Err(err).Log("telemetry write failed")
		}
		return
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(ev); err != nil {
		if t.logger != nil {
			t.logger.Debug().Str("event", ev.Event).Err(err).Log("telemetry encode failed")
		}
		return
	}
	if t.logger != nil {
		t.logger.Debug().Str("event", ev.Event).Log("telemetry sent")
	}
}
