package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aldrin-exchange/anchor/pkg/config"
	"github.com/aldrin-exchange/anchor/pkg/logger"
	"github.com/aldrin-exchange/anchor/pkg/shutdown"
	"github.com/aldrin-exchange/anchor/pkg/types"
	"github.com/aldrin-exchange/anchor/pkg/watcher"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the watcher",
	RunE: func(cmd *cobra.Command, args []string) error {
		initRunCmd(cmd)

		log, _ := logger.NewLogger(&logger.LoggerConfig{Debug: Config.Debug})
		sugar := log.Sugar()

		if err := Config.Validate(); err != nil {
			sugar.Errorw("Invalid configuration", "error", err)
			return err
		}

		sugar.Infow("Starting watcher...")

		w, err := watcher.NewWatcher(Config, log)
		if err != nil {
			sugar.Errorw("Failed to build watcher", "error", err)
			return err
		}

		// Every decoded event shows up in the log stream, regardless of
		// whether anything else subscribed to it.
		for _, program := range Config.Programs {
			registerEventLogging(w, program.Name, sugar)
		}

		return runWithShutdown(w, log)
	},
}

func initRunCmd(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := viper.BindPFlag(config.KebabToSnakeCase(f.Name), f); err != nil {
			fmt.Printf("Failed to bind flag '%s' - %+v\n", f.Name, err)
		}
		if err := viper.BindEnv(f.Name); err != nil {
			fmt.Printf("Failed to bind env '%s' - %+v\n", f.Name, err)
		}
	})
}

func registerEventLogging(w *watcher.Watcher, programName string, sugar *zap.SugaredLogger) {
	w.EventListener(programName).AddEventListener("", func(event *types.EventRecord) {
		sugar.Infow("Observed event",
			"program", programName,
			"event", event.Name,
			"signature", event.Signature,
			"slot", event.Slot,
			"logIndex", event.LogIndex,
		)
	})
}

func runWithShutdown(w *watcher.Watcher, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := w.Start(ctx); err != nil {
			logger.Sugar().Fatalw("Watcher start failed", zap.Error(err))
		}
	}()

	gracefulShutdownNotifier := shutdown.CreateGracefulShutdownChannel()
	done := make(chan bool)

	shutdown.ListenForShutdown(gracefulShutdownNotifier, done, func() {
		logger.Sugar().Info("Shutting down watcher...")
		cancel()
		w.Close()
	}, 5*time.Second, logger)

	return nil
}
