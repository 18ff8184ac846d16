package results

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"tenant-sim/internal/accounting"
	"tenant-sim/internal/allocator"
	"tenant-sim/internal/pool"
)

// TenantTick is one tenant's flattened outcome for one tick.
type TenantTick struct {
	Tick      int                        `json:"tick"`
	TenantID  string                     `json:"tenant_id"`
	Requested map[pool.Dimension]float64 `json:"requested"`
	Granted   map[pool.Dimension]float64 `json:"granted"`
	Unmet     map[pool.Dimension]float64 `json:"unmet,omitempty"`
	SLAMet    bool                       `json:"sla_met"`
	Cost      float64                    `json:"cost"`
}

// FairnessPoint is the per-dimension fairness and utilization of one tick.
type FairnessPoint struct {
	Tick        int            `json:"tick"`
	Dimension   pool.Dimension `json:"dimension"`
	Jain        float64        `json:"jain"`
	Utilization float64        `json:"utilization"`
}

// TickWarning ties an engine warning to the tick it occurred in.
type TickWarning struct {
	Tick    int               `json:"tick"`
	Warning allocator.Warning `json:"warning"`
}

// RunFrames collects everything a simulation run produced. Rows are appended
// once per tick and never modified afterwards.
type RunFrames struct {
	RunID      int                      `json:"run_id"`
	Name       string                   `json:"name"`
	Checksum   string                   `json:"checksum"`
	Ticks      int                      `json:"ticks"`
	Dimensions []pool.Dimension         `json:"dimensions"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	Rows       []TenantTick             `json:"rows"`
	Fairness   []FairnessPoint          `json:"fairness"`
	Records    []accounting.CostRecord  `json:"records"`
	Breaches   []accounting.BreachEvent `json:"breaches"`
	Warnings   []TickWarning            `json:"warnings,omitempty"`
	Summary    *accounting.RunSummary   `json:"summary,omitempty"`
}

// WriteCSV exports the run's tick rows as one CSV row per tenant per tick,
// with the per-tick fairness index repeated per row, matching the flat
// format downstream notebooks expect.
func (rf *RunFrames) WriteCSV(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"tick", "tenant"}
	for _, dim := range rf.Dimensions {
		header = append(header,
			string(dim)+"_requested",
			string(dim)+"_granted",
			string(dim)+"_unmet")
	}
	header = append(header, "sla_met", "cost")
	for _, dim := range rf.Dimensions {
		header = append(header, string(dim)+"_fairness")
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	fairness := make(map[int]map[pool.Dimension]float64, rf.Ticks)
	for _, fp := range rf.Fairness {
		if fairness[fp.Tick] == nil {
			fairness[fp.Tick] = make(map[pool.Dimension]float64, len(rf.Dimensions))
		}
		fairness[fp.Tick][fp.Dimension] = fp.Jain
	}

	for _, row := range rf.Rows {
		record := []string{strconv.Itoa(row.Tick), row.TenantID}
		for _, dim := range rf.Dimensions {
			record = append(record,
				formatFloat(row.Requested[dim]),
				formatFloat(row.Granted[dim]),
				formatFloat(row.Unmet[dim]))
		}
		slaMet := "0"
		if row.SLAMet {
			slaMet = "1"
		}
		record = append(record, slaMet, formatFloat(row.Cost))
		for _, dim := range rf.Dimensions {
			record = append(record, formatFloat(fairness[row.Tick][dim]))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	log.WithFields(log.Fields{
		"path": path,
		"rows": len(rf.Rows),
	}).Info("Wrote simulation results CSV")
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
