package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"tenant-sim/internal/config"
	"tenant-sim/internal/database"
	"tenant-sim/internal/logging"
	"tenant-sim/internal/plot"
	"tenant-sim/internal/plot/timeseries"
	"tenant-sim/internal/simulation"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const Version = "1.0.0"

func loadEnvironment() {
	logger := logging.GetLogger()

	// Try to load .env file from current directory
	envFile := ".env"
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.WithField("file", envFile).WithError(err).Warn("Error loading .env file")
		} else {
			logger.WithField("file", envFile).Debug("Loaded environment variables")
		}
	} else {
		// Try to load from the application directory
		if execPath, err := os.Executable(); err == nil {
			appDir := filepath.Dir(execPath)
			envFile = filepath.Join(appDir, ".env")
			if _, err := os.Stat(envFile); err == nil {
				if err := godotenv.Load(envFile); err != nil {
					logger.WithField("file", envFile).WithError(err).Warn("Error loading .env file")
				} else {
					logger.WithField("file", envFile).Debug("Loaded environment variables")
				}
			}
		}
	}
}

// Execute builds the command tree and runs the invoked command.
func Execute() error {
	loadEnvironment()

	var configFile string
	var runID int
	var yField string
	var tenants []string
	var interval int
	var minVal, maxVal float64
	var minSet, maxSet bool
	var spoolDir string
	var onlyPlot, onlyWrapper bool
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "tenant-sim",
		Short: "Multi-tenant resource allocation simulator",
		Long:  "A configurable simulator for reservation-aware weighted fair allocation of shared resource pools",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel != "" {
				if err := logging.SetLogLevel(logLevel); err != nil {
					return fmt.Errorf("invalid log level: %w", err)
				}
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (trace, debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(configFile)
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a simulation configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(configFile)
		},
	}

	plotCmd := &cobra.Command{
		Use:   "plot",
		Short: "Generate plots from simulation data",
		Long:  "Generate LaTeX/TikZ plots from spooled simulation runs",
	}

	timeseriesCmd := &cobra.Command{
		Use:   "timeseries",
		Short: "Generate a timeseries plot",
		Long:  "Generate a timeseries plot for a specific run and metric",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			minSet = cmd.Flags().Changed("min")
			maxSet = cmd.Flags().Changed("max")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var minPtr, maxPtr *float64
			if minSet {
				minPtr = &minVal
			}
			if maxSet {
				maxPtr = &maxVal
			}
			opts := timeseries.Options{
				YField:   yField,
				Tenants:  tenants,
				Interval: interval,
				YMin:     minPtr,
				YMax:     maxPtr,
			}
			return generateTimeseriesPlot(spoolDir, runID, opts, onlyPlot, onlyWrapper)
		},
	}

	runCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to simulation configuration file")
	runCmd.MarkFlagRequired("config")

	validateCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to simulation configuration file")
	validateCmd.MarkFlagRequired("config")

	timeseriesCmd.Flags().IntVar(&runID, "run-id", 0, "Run ID to plot")
	timeseriesCmd.Flags().StringVar(&yField, "y", "", "Y-axis field (e.g. cpu_granted, cost, memory_jain)")
	timeseriesCmd.Flags().StringSliceVar(&tenants, "tenant", nil, "Restrict the plot to these tenants")
	timeseriesCmd.Flags().IntVar(&interval, "interval", 0, "Aggregation interval in ticks (0 = no aggregation)")
	timeseriesCmd.Flags().Float64Var(&minVal, "min", 0, "Minimum Y-axis value")
	timeseriesCmd.Flags().Float64Var(&maxVal, "max", 0, "Maximum Y-axis value")
	timeseriesCmd.Flags().StringVar(&spoolDir, "spool-dir", "", "Spool directory to read artifacts from")
	timeseriesCmd.Flags().BoolVar(&onlyPlot, "plot", false, "Print only the plot file (TikZ)")
	timeseriesCmd.Flags().BoolVar(&onlyWrapper, "wrapper", false, "Print only the wrapper file (LaTeX)")
	timeseriesCmd.MarkFlagRequired("run-id")
	timeseriesCmd.MarkFlagRequired("y")

	plotCmd.AddCommand(timeseriesCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(plotCmd)

	return rootCmd.Execute()
}

func validateConfig(configFile string) error {
	logger := logging.GetLogger()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		logger.WithField("config_file", configFile).WithError(err).Error("Configuration validation failed")
		return err
	}

	checksum, err := config.TraceChecksum(cfg)
	if err != nil {
		return fmt.Errorf("failed to compute trace checksum: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"config_file":    configFile,
		"trace_checksum": checksum,
		"tenants":        len(cfg.Tenants),
		"ticks":          cfg.Simulation.Ticks,
	}).Info("Configuration is valid")
	return nil
}

func runSimulation(configFile string) error {
	logger := logging.GetLogger()

	cfg, configContent, err := config.LoadConfigWithContent(configFile)
	if err != nil {
		logger.WithField("config_file", configFile).WithError(err).Error("Failed to load configuration")
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set log level from configuration
	if cfg.Simulation.LogLevel != "" {
		if err := logging.SetLogLevel(cfg.Simulation.LogLevel); err != nil {
			logger.WithField("log_level", cfg.Simulation.LogLevel).WithError(err).Warn("Invalid log level in config, using INFO")
			logging.SetLogLevel("info")
		} else {
			logger.WithField("log_level", cfg.Simulation.LogLevel).Debug("Log level set from configuration")
		}
	}
	if cfg.Simulation.AllocatorLogLevel != "" {
		if err := logging.SetAllocatorLogLevel(cfg.Simulation.AllocatorLogLevel); err != nil {
			logger.WithField("allocator_log_level", cfg.Simulation.AllocatorLogLevel).WithError(err).Warn("Invalid allocator log level, using default")
		}
	}

	driver, err := simulation.NewDriver(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize simulation")
		return fmt.Errorf("failed to initialize simulation: %w", err)
	}

	// Connect to the database first so the run gets its ID before any
	// work happens.
	var dbClient *database.InfluxDBClient
	runID := 1
	if cfg.Simulation.Data.DB != nil {
		dbClient, err = database.NewInfluxDBClient(*cfg.Simulation.Data.DB)
		if err != nil {
			logger.WithError(err).Error("Failed to create database client")
			return fmt.Errorf("failed to create database client: %w", err)
		}
		defer dbClient.Close()

		lastID, err := dbClient.GetLastRunID()
		if err != nil {
			logger.WithError(err).Error("Failed to get last run ID")
			return fmt.Errorf("failed to get last run ID: %w", err)
		}
		runID = lastID + 1
	} else {
		logger.Debug("No database configured, using run ID 1")
	}

	logger.WithFields(logrus.Fields{
		"run_id":         runID,
		"name":           cfg.Simulation.Name,
		"ticks":          cfg.Simulation.Ticks,
		"trace_checksum": driver.Checksum(),
	}).Info("Starting simulation")

	// Interrupts stop the run between ticks; whatever was simulated so
	// far is still persisted.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		<-sigChan
		logger.Info("Received interrupt signal, shutting down")
		cancel()
	}()

	startTime := time.Now()
	frames, err := driver.Run(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("Simulation failed")
			return fmt.Errorf("simulation failed: %w", err)
		}
		logger.WithField("rows_collected", len(frames.Rows)).Warn("Simulation interrupted, persisting partial run")
	}
	frames.RunID = runID

	if dbClient != nil {
		logger.Info("Writing run data to database")
		if err := dbClient.WriteRunFrames(frames); err != nil {
			logger.WithError(err).Error("Failed to export run data")
			return fmt.Errorf("failed to export run data: %w", err)
		}
		metadata := database.CollectRunMetadata(cfg, frames, configFile, Version)
		if err := dbClient.WriteMetadata(metadata); err != nil {
			logger.WithError(err).Error("Failed to export metadata")
			return fmt.Errorf("failed to export metadata: %w", err)
		}
	}

	if cfg.Simulation.Data.CSV != "" {
		if err := frames.WriteCSV(cfg.Simulation.Data.CSV); err != nil {
			logger.WithField("path", cfg.Simulation.Data.CSV).WithError(err).Error("Failed to write CSV export")
			return fmt.Errorf("failed to write CSV export: %w", err)
		}
	}

	if cfg.Simulation.Data.Spool != "" {
		metadata := database.CollectRunMetadata(cfg, frames, configFile, Version)
		artifact := database.BuildSpoolArtifact(frames, metadata, configContent)
		path, err := database.WriteSpoolArtifact(cfg.Simulation.Data.Spool, artifact)
		if err != nil {
			logger.WithError(err).Error("Failed to write spool artifact")
			return fmt.Errorf("failed to write spool artifact: %w", err)
		}
		logger.WithField("artifact", path).Info("Spool artifact written")
	}

	summaryFields := logrus.Fields{
		"run_id":       runID,
		"duration":     time.Since(startTime).Round(time.Millisecond),
		"sla_breaches": len(frames.Breaches),
	}
	if frames.Summary != nil {
		summaryFields["total_cost"] = fmt.Sprintf("%.4f", frames.Summary.TotalCost)
	}
	logger.WithFields(summaryFields).Info("Simulation completed")
	return nil
}

func generateTimeseriesPlot(spoolDir string, runID int, opts timeseries.Options, onlyPlot, onlyWrapper bool) error {
	logger := logging.GetLogger()
	logger.WithFields(logrus.Fields{
		"run_id":   runID,
		"y_field":  opts.YField,
		"interval": opts.Interval,
	}).Debug("Generating timeseries plot")

	plotFile := fmt.Sprintf("run-%d-%s.tikz", runID, opts.YField)
	plotTikz, wrapperTex, err := plot.NewManager(spoolDir).GenerateTimeseries(runID, opts, plotFile)
	if err != nil {
		logger.WithError(err).Error("Failed to generate plot")
		return fmt.Errorf("failed to generate plot: %w", err)
	}

	showPlot := !onlyWrapper
	showWrapper := !onlyPlot

	if showPlot {
		fmt.Println(plotTikz)
		if showWrapper {
			fmt.Println()
		}
	}

	if showWrapper {
		fmt.Println(wrapperTex)
	}

	logger.Debug("Timeseries plot generated successfully")
	return nil
}
