package plot

import (
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"tenant-sim/internal/database"
	"tenant-sim/internal/plot/timeseries"
)

// Manager locates spool artifacts and drives plot generation.
type Manager struct {
	spoolDir string
	logger   *log.Entry
}

func NewManager(spoolDir string) *Manager {
	if spoolDir == "" {
		spoolDir = database.DefaultSpoolDir()
	}
	return &Manager{
		spoolDir: spoolDir,
		logger:   log.WithField("component", "plot"),
	}
}

// GenerateTimeseries renders the TikZ plot and its LaTeX wrapper for the
// given run. plotFile is the file name the wrapper will \input.
func (m *Manager) GenerateTimeseries(runID int, opts timeseries.Options, plotFile string) (string, string, error) {
	artifactPath, err := database.FindSpoolArtifact(m.spoolDir, runID)
	if err != nil {
		return "", "", fmt.Errorf("failed to locate spool artifact for run %d: %w", runID, err)
	}
	artifact, err := database.ReadSpoolArtifact(artifactPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to read spool artifact: %w", err)
	}
	m.logger.WithFields(log.Fields{
		"run_id":   runID,
		"artifact": filepath.Base(artifactPath),
	}).Debug("Loaded spool artifact")

	return timeseries.NewGenerator().Generate(artifact, opts, plotFile)
}
