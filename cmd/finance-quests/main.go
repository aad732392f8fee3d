package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/iwvelando/finance-quests/internal/config"
	"github.com/iwvelando/finance-quests/internal/quest/completion"
	"github.com/iwvelando/finance-quests/internal/quest/flow"
	"github.com/iwvelando/finance-quests/internal/server"
	"github.com/iwvelando/finance-quests/internal/store"
	"github.com/iwvelando/finance-quests/pkg/constants"
	"github.com/iwvelando/finance-quests/pkg/output"
	"github.com/iwvelando/finance-quests/pkg/validation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "dev"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var config zap.Config
	switch format {
	case "console":
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapLevel)
	case "json":
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapLevel)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		// Test if we can create/write to the file
		if file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		} else {
			_ = file.Close()
		}

		config.OutputPaths = []string{loggingConfig.OutputFile}
		config.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return config.Build()
}

// loadConfiguration reads the quest configuration, falling back to the
// built-in quests when the default file is absent.
func loadConfiguration(path string, explicit bool) (*config.Configuration, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !explicit {
		return config.DefaultConfiguration(), nil
	}
	return config.LoadConfiguration(path)
}

func main() {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, json")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	answersLocation := flag.String("answers", "", "path to a YAML answers file to play through one quest")
	showProgress := flag.Bool("progress", false, "print stored completion history and progress")
	serve := flag.Bool("serve", false, "serve the quest API over HTTP")
	serverConfigLocation := flag.String("server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	flag.Parse()

	explicitConfig := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicitConfig = true
		}
	})

	conf, err := loadConfiguration(*configLocation, explicitConfig)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	var serverConf *server.Config
	loggingConf := conf.Logging
	if *serve {
		serverConf, err = server.LoadConfig(*serverConfigLocation)
		if err != nil {
			fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load server configuration at %s\", \"error\": \"%v\"}\n", *serverConfigLocation, err)
			os.Exit(1)
		}
		if serverConf.Logging != (config.LoggingConfig{}) {
			loggingConf = serverConf.Logging
		}
	}

	logger, err := initializeLogger(loggingConf, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	st, err := store.New(conf.Persistence, logger)
	if err != nil {
		logger.Fatal("failed to open completion store",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("failed to close completion store",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}()

	engine, err := flow.NewEngine(logger, conf, flow.WithSaver(st))
	if err != nil {
		logger.Fatal("failed to build quest engine",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *serve:
		err = runServer(ctx, logger, serverConf, engine, st)
	case *answersLocation != "":
		err = runAnswers(ctx, logger, engine, *answersLocation, outputFormat)
	case *showProgress:
		err = printProgress(ctx, st, outputFormat)
	default:
		err = output.JSONFormat(os.Stdout, engine.QuestTypes())
	}
	if err != nil {
		logger.Error("command failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func runServer(ctx context.Context, logger *zap.Logger, conf *server.Config, engine *flow.Engine, st store.Store) error {
	handler := server.NewHandler(logger, engine, st, conf.HandlerOptions(version))
	sweeper, err := server.NewSweeper(logger, handler, conf.SweepSchedule, conf.IdleTimeoutDuration())
	if err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	srv := &http.Server{
		Addr:              conf.Address,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("quest API listening",
			zap.String("op", "main.runServer"),
			zap.String("address", conf.Address),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received, stopping quest API", zap.String("op", "main.runServer"))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runAnswers(ctx context.Context, logger *zap.Logger, engine *flow.Engine, path, outputFormat string) error {
	script, err := loadAnswers(path)
	if err != nil {
		return err
	}

	rec, err := playAnswers(ctx, engine, script)
	if errors.Is(err, flow.ErrPersistence) {
		logger.Warn("quest completed but the record was not stored",
			zap.String("op", "main.runAnswers"),
			zap.String("runId", rec.RunID),
			zap.Error(err),
		)
	} else if err != nil {
		return err
	}

	return writeRecords(os.Stdout, []completion.Record{rec}, outputFormat)
}

func printProgress(ctx context.Context, st store.Store, outputFormat string) error {
	history, err := st.History(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	progress, err := st.Progress(ctx)
	if err != nil {
		return fmt.Errorf("failed to load progress: %w", err)
	}

	switch outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyFormat(os.Stdout, history)
		if len(history) > 0 {
			fmt.Println()
		}
		output.PrettyProgress(os.Stdout, progress)
		return nil
	case constants.OutputFormatJSON:
		return output.JSONFormat(os.Stdout, struct {
			History  []completion.Record `json:"history"`
			Progress store.Progress      `json:"progress"`
		}{history, progress})
	}
	return output.CsvFormat(os.Stdout, history)
}
