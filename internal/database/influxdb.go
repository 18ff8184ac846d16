package database

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"

	"tenant-sim/internal/config"
	"tenant-sim/internal/logging"
	"tenant-sim/internal/results"
)

// RunMetadata contains all metadata about a simulation run.
type RunMetadata struct {
	RunID         int    `json:"run_id"`
	RunName       string `json:"run_name"`
	Description   string `json:"description"`
	Ticks         int    `json:"ticks"`
	Seed          int64  `json:"seed"`
	TraceChecksum string `json:"trace_checksum"`
	RunStarted    string `json:"run_started"`  // RFC3339 timestamp
	RunFinished   string `json:"run_finished"` // RFC3339 timestamp
	TotalTenants  int    `json:"total_tenants"`
	TotalRows     int    `json:"total_rows"`
	TotalBreaches int    `json:"total_breaches"`
	DriverVersion string `json:"driver_version"`
	Hostname      string `json:"hostname"`
	OSInfo        string `json:"os_info"`
	ConfigFile    string `json:"config_file"`
}

type InfluxDBClient struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	bucket   string
	org      string
}

func NewInfluxDBClient(cfg config.DatabaseConfig) (*InfluxDBClient, error) {
	logger := logging.GetLogger()

	client := influxdb2.NewClient(cfg.Host, cfg.Password)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		logger.WithField("host", cfg.Host).WithError(err).Error("Failed to connect to InfluxDB")
		return nil, err
	}

	if health.Status != "pass" {
		logger.WithFields(logrus.Fields{
			"host":    cfg.Host,
			"status":  health.Status,
			"message": health.Message,
		}).Error("InfluxDB health check failed")
		return nil, fmt.Errorf("InfluxDB health check failed: %s", health.Status)
	}

	writeAPI := client.WriteAPIBlocking(cfg.Org, cfg.Name)
	queryAPI := client.QueryAPI(cfg.Org)

	logger.WithFields(logrus.Fields{
		"host":   cfg.Host,
		"bucket": cfg.Name,
		"org":    cfg.Org,
	}).Info("Connected to InfluxDB")

	return &InfluxDBClient{
		client:   client,
		writeAPI: writeAPI,
		queryAPI: queryAPI,
		bucket:   cfg.Name,
		org:      cfg.Org,
	}, nil
}

func (idb *InfluxDBClient) GetLastRunID() (int, error) {
	ctx := context.Background()

	query := fmt.Sprintf(`
		from(bucket: "%s")
		|> range(start: -90d)
		|> filter(fn: (r) => r._measurement == "allocation_meta")
		|> distinct(column: "run_id")
		|> map(fn: (r) => ({_value: int(v: r.run_id)}))
		|> max()
		|> yield(name: "max_run_id")
	`, idb.bucket)

	result, err := idb.queryAPI.Query(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to query last run ID: %w", err)
	}
	defer result.Close()

	maxID := 0
	for result.Next() {
		if result.Record().Value() != nil {
			if id, ok := result.Record().Value().(int64); ok {
				maxID = int(id)
			}
		}
	}

	if result.Err() != nil {
		return 0, fmt.Errorf("error reading query results: %w", result.Err())
	}

	return maxID, nil
}

// WriteRunFrames writes all tick rows, fairness points and breach events of
// a run. Each simulated tick is one minute of wall time offset from the run
// start, so dashboards can treat the series as a regular timeseries.
func (idb *InfluxDBClient) WriteRunFrames(frames *results.RunFrames) error {
	ctx := context.Background()

	var points []*write.Point

	for _, row := range frames.Rows {
		ts := frames.StartedAt.Add(time.Duration(row.Tick) * time.Minute)
		fields := map[string]interface{}{
			"tick":    row.Tick,
			"sla_met": row.SLAMet,
			"cost":    row.Cost,
		}
		for dim, v := range row.Requested {
			fields[string(dim)+"_requested"] = v
		}
		for dim, v := range row.Granted {
			fields[string(dim)+"_granted"] = v
		}
		for dim, v := range row.Unmet {
			fields[string(dim)+"_unmet"] = v
		}
		points = append(points, influxdb2.NewPoint("allocation",
			map[string]string{
				"run_id": fmt.Sprintf("%d", frames.RunID),
				"tenant": row.TenantID,
			},
			fields,
			ts))
	}

	for _, fp := range frames.Fairness {
		ts := frames.StartedAt.Add(time.Duration(fp.Tick) * time.Minute)
		points = append(points, influxdb2.NewPoint("fairness",
			map[string]string{
				"run_id":    fmt.Sprintf("%d", frames.RunID),
				"dimension": string(fp.Dimension),
			},
			map[string]interface{}{
				"tick":        fp.Tick,
				"jain":        fp.Jain,
				"utilization": fp.Utilization,
			},
			ts))
	}

	for _, b := range frames.Breaches {
		ts := frames.StartedAt.Add(time.Duration(b.Tick) * time.Minute)
		points = append(points, influxdb2.NewPoint("sla_breach",
			map[string]string{
				"run_id":    fmt.Sprintf("%d", frames.RunID),
				"tenant":    b.TenantID,
				"dimension": string(b.Dimension),
			},
			map[string]interface{}{
				"tick":      b.Tick,
				"requested": b.Requested,
				"granted":   b.Granted,
				"shortfall": b.Shortfall,
			},
			ts))
	}

	if len(points) > 0 {
		if err := idb.writeAPI.WritePoint(ctx, points...); err != nil {
			return fmt.Errorf("failed to write data points: %w", err)
		}
	}

	return nil
}

func (idb *InfluxDBClient) WriteMetadata(metadata *RunMetadata) error {
	ctx := context.Background()

	point := influxdb2.NewPoint("allocation_meta",
		map[string]string{
			"run_id": fmt.Sprintf("%d", metadata.RunID),
		},
		map[string]interface{}{
			"run_name":       metadata.RunName,
			"description":    metadata.Description,
			"ticks":          metadata.Ticks,
			"seed":           metadata.Seed,
			"trace_checksum": metadata.TraceChecksum,
			"run_started":    metadata.RunStarted,
			"run_finished":   metadata.RunFinished,
			"total_tenants":  metadata.TotalTenants,
			"total_rows":     metadata.TotalRows,
			"total_breaches": metadata.TotalBreaches,
			"driver_version": metadata.DriverVersion,
			"hostname":       metadata.Hostname,
			"os_info":        metadata.OSInfo,
			"config_file":    metadata.ConfigFile,
		},
		time.Now())

	if err := idb.writeAPI.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

func (idb *InfluxDBClient) Close() {
	idb.client.Close()
}

// CollectRunMetadata assembles the metadata point for a finished run.
func CollectRunMetadata(cfg *config.SimulationConfig, frames *results.RunFrames, configFile, driverVersion string) *RunMetadata {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return &RunMetadata{
		RunID:         frames.RunID,
		RunName:       cfg.Simulation.Name,
		Description:   cfg.Simulation.Description,
		Ticks:         cfg.Simulation.Ticks,
		Seed:          cfg.Simulation.Seed,
		TraceChecksum: frames.Checksum,
		RunStarted:    frames.StartedAt.Format(time.RFC3339),
		RunFinished:   frames.FinishedAt.Format(time.RFC3339),
		TotalTenants:  len(cfg.Tenants),
		TotalRows:     len(frames.Rows),
		TotalBreaches: len(frames.Breaches),
		DriverVersion: driverVersion,
		Hostname:      hostname,
		OSInfo:        runtime.GOOS + "/" + runtime.GOARCH,
		ConfigFile:    configFile,
	}
}
