package database

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"tenant-sim/internal/results"
)

// SpoolArtifact is the self-contained on-disk record of one simulation run.
// It carries everything the plot generator needs, so charts can be produced
// without a reachable database.
type SpoolArtifact struct {
	Version int `json:"version"`

	CreatedAt time.Time `json:"created_at"`

	RunID         int    `json:"run_id"`
	RunName       string `json:"run_name"`
	TraceChecksum string `json:"trace_checksum"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	ConfigContent string `json:"config_content"`

	Frames   *results.RunFrames `json:"frames"`
	Metadata *RunMetadata       `json:"metadata"`
}

func DefaultSpoolDir() string {
	if v := strings.TrimSpace(os.Getenv("TENANT_SIM_SPOOL_DIR")); v != "" {
		return v
	}
	return "spool"
}

// BuildSpoolArtifact constructs a spool artifact from the in-memory run results.
func BuildSpoolArtifact(frames *results.RunFrames, metadata *RunMetadata, configContent string) *SpoolArtifact {
	name := ""
	checksum := ""
	runID := 0
	if frames != nil {
		name = frames.Name
		checksum = frames.Checksum
		runID = frames.RunID
	}

	return &SpoolArtifact{
		Version:       1,
		CreatedAt:     time.Now(),
		RunID:         runID,
		RunName:       name,
		TraceChecksum: checksum,
		StartTime:     frames.StartedAt,
		EndTime:       frames.FinishedAt,
		ConfigContent: configContent,
		Frames:        frames,
		Metadata:      metadata,
	}
}

// WriteSpoolArtifact writes a gzip-compressed JSON artifact to disk atomically.
// It returns the final file path.
func WriteSpoolArtifact(dir string, artifact *SpoolArtifact) (string, error) {
	if artifact == nil {
		return "", fmt.Errorf("spool artifact is nil")
	}
	if dir == "" {
		dir = DefaultSpoolDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	checksum := artifact.TraceChecksum
	if checksum == "" {
		checksum = "nocsum"
	}
	name := fmt.Sprintf(
		"run_%d_%s_%s.json.gz",
		artifact.RunID,
		artifact.CreatedAt.UTC().Format("20060102T150405Z"),
		checksum,
	)
	finalPath := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, name+".tmp.*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()

	ok := false
	defer func() {
		_ = tmp.Close()
		if !ok {
			_ = os.Remove(tmpPath)
		}
	}()

	gz := gzip.NewWriter(tmp)
	enc := json.NewEncoder(gz)
	enc.SetIndent("", "  ")
	if err := enc.Encode(artifact); err != nil {
		_ = gz.Close()
		return "", err
	}
	if err := gz.Close(); err != nil {
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", err
	}
	ok = true
	return finalPath, nil
}

// ReadSpoolArtifact loads one artifact from disk.
func ReadSpoolArtifact(path string) (*SpoolArtifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer gz.Close()

	var artifact SpoolArtifact
	if err := json.NewDecoder(gz).Decode(&artifact); err != nil {
		return nil, fmt.Errorf("failed to decode spool artifact: %w", err)
	}
	return &artifact, nil
}

// FindSpoolArtifact locates the newest artifact for a run ID in dir.
func FindSpoolArtifact(dir string, runID int) (string, error) {
	if dir == "" {
		dir = DefaultSpoolDir()
	}
	pattern := filepath.Join(dir, fmt.Sprintf("run_%d_*.json.gz", runID))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no spool artifact found for run %d in %s", runID, dir)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}
