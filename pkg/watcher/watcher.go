package watcher

import (
	"context"
	"time"

	"github.com/aldrin-exchange/anchor/pkg/clients/solana"
	"github.com/aldrin-exchange/anchor/pkg/eventDecoder"
	"github.com/aldrin-exchange/anchor/pkg/eventListener"
	"github.com/aldrin-exchange/anchor/pkg/programLogParser"
	"github.com/aldrin-exchange/anchor/pkg/transactionPoller"
	"github.com/aldrin-exchange/anchor/pkg/types"
	"github.com/aldrin-exchange/anchor/pkg/watcher/lifecycle"
	"github.com/aldrin-exchange/anchor/pkg/watcher/storage"
	"github.com/aldrin-exchange/anchor/pkg/watcher/storage/badger"
	"github.com/aldrin-exchange/anchor/pkg/watcher/storage/memory"
	"github.com/aldrin-exchange/anchor/pkg/watcher/watcherConfig"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// notificationQueueSize bounds the per-program queue between the live
// subscription and its listener.
const notificationQueueSize = 64

// Watcher wires the event pipeline together for every configured program: a
// shared RPC client and store, and per program a log parser, a live
// subscription feeding an event listener, and optionally a backfill poller.
type Watcher struct {
	config    *watcherConfig.WatcherConfig
	logger    *zap.Logger
	store     storage.WatcherStore
	rpcClient solana.Client
	registry  *prometheus.Registry
	metrics   *Metrics

	eventListeners map[string]*eventListener.EventListener

	servers   []lifecycle.Lifecycle
	listeners []lifecycle.Lifecycle
	pollers   []lifecycle.Lifecycle
	bridges   []lifecycle.Lifecycle
}

func NewWatcher(config *watcherConfig.WatcherConfig, logger *zap.Logger) (*Watcher, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if config.RPC == nil {
		return nil, errors.New("rpc configuration is required")
	}

	httpURL, wsURL, err := config.RPC.Endpoints()
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve rpc endpoints")
	}

	store, err := buildStore(config.Storage, logger)
	if err != nil {
		return nil, err
	}

	clientConfig := solana.DefaultConfig()
	clientConfig.RPCURL = httpURL
	if config.RPC.Commitment != "" {
		clientConfig.Commitment = config.RPC.Commitment
	}
	rpcClient, err := solana.NewClient(clientConfig, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create rpc client")
	}

	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	var servers []lifecycle.Lifecycle
	if config.Metrics != nil && config.Metrics.Enabled {
		servers = append(servers, newMetricsServer(config.Metrics.Port, registry, logger))
	}

	w := &Watcher{
		config:         config,
		logger:         logger,
		store:          store,
		rpcClient:      rpcClient,
		registry:       registry,
		metrics:        metrics,
		eventListeners: make(map[string]*eventListener.EventListener),
		servers:        servers,
	}

	for _, program := range config.Programs {
		if _, exists := w.eventListeners[program.Name]; exists {
			return nil, errors.Errorf("duplicate program name %s", program.Name)
		}
		if err := w.addProgram(program, wsURL); err != nil {
			return nil, err
		}
	}

	return w, nil
}

// addProgram assembles one program's pipeline: parser, listener, live log
// bridge, and optionally the backfill poller.
func (w *Watcher) addProgram(program *watcherConfig.ProgramConfig, wsURL string) error {
	programName := program.Name

	decoder, err := buildProgramDecoder(program, w.logger)
	if err != nil {
		return err
	}
	parser := programLogParser.NewProgramLogParser(program.ProgramID, decoder, w.logger)

	queue := make(chan solana.LogNotification, notificationQueueSize)
	listener := eventListener.NewEventListener(program.ProgramID, parser, queue, w.logger)
	listener.AddEventListener("", func(event *types.EventRecord) {
		w.metrics.EventsDispatched.WithLabelValues(programName, event.Name).Inc()
	})
	w.eventListeners[programName] = listener
	w.listeners = append(w.listeners, listener)

	wsClient, err := solana.NewWebsocketClient(wsURL, w.logger)
	if err != nil {
		return errors.Wrapf(err, "failed to create websocket client for program %s", programName)
	}
	w.bridges = append(w.bridges, newLogBridge(wsClient, solana.LogsFilter{
		Mentions:   []string{program.ProgramID},
		Commitment: w.config.RPC.Commitment,
	}, queue, w.logger))

	if w.config.Poller != nil && w.config.Poller.Enabled {
		poller := transactionPoller.NewTransactionPoller(
			w.rpcClient,
			newInstrumentedStore(w.store, programName, w.metrics),
			parser,
			func(event *types.EventRecord) error {
				listener.Dispatch(event)
				return nil
			},
			buildPollerConfig(w.config.Poller, program.ProgramID),
			w.logger,
		)
		w.pollers = append(w.pollers, poller)
	}

	w.logger.Sugar().Infow("Watching program",
		"name", programName,
		"programId", program.ProgramID,
		"events", len(program.Events),
		"backfill", w.config.Poller != nil && w.config.Poller.Enabled,
	)
	return nil
}

func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Sugar().Infow("Starting watcher...")

	if err := lifecycle.StartAll(w.servers, ctx, w.logger, "server"); err != nil {
		return err
	}

	// Consumers come up before producers.
	if err := lifecycle.StartAll(w.listeners, ctx, w.logger, "listener"); err != nil {
		return err
	}

	if err := lifecycle.StartAll(w.pollers, ctx, w.logger, "poller"); err != nil {
		return err
	}

	if err := lifecycle.StartAll(w.bridges, ctx, w.logger, "bridge"); err != nil {
		return err
	}
	w.logger.Sugar().Infow("Watcher fully started")
	return nil
}

func (w *Watcher) Close() {
	lifecycle.StopAll(w.bridges, w.logger, "bridge")
	lifecycle.StopAll(w.pollers, w.logger, "poller")
	lifecycle.StopAll(w.listeners, w.logger, "listener")
	lifecycle.StopAll(w.servers, w.logger, "server")

	if err := w.store.Close(); err != nil {
		w.logger.Sugar().Warnw("Failed to close storage", "error", err)
	}

	w.logger.Sugar().Infow("Watcher stopped")
}

// EventListener returns the listener for a configured program name, or nil
// when the program is not configured. Callers subscribe to decoded events
// through it.
func (w *Watcher) EventListener(programName string) *eventListener.EventListener {
	return w.eventListeners[programName]
}

// Store exposes the underlying store for queries against processed history.
func (w *Watcher) Store() storage.WatcherStore {
	return w.store
}

func buildStore(cfg *watcherConfig.StorageConfig, logger *zap.Logger) (storage.WatcherStore, error) {
	if cfg == nil || cfg.Type == "" || cfg.Type == "memory" {
		logger.Sugar().Infow("Using in-memory storage")
		return memory.NewInMemoryWatcherStore(), nil
	}

	switch cfg.Type {
	case "badger":
		if cfg.BadgerConfig == nil {
			return nil, errors.New("badger storage requires badger configuration")
		}
		logger.Sugar().Infow("Using BadgerDB storage",
			"dir", cfg.BadgerConfig.Dir,
			"inMemory", cfg.BadgerConfig.InMemory,
		)
		badgerStore, err := badger.NewBadgerWatcherStore(cfg.BadgerConfig)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create badger store")
		}
		return badgerStore, nil
	default:
		return nil, errors.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// buildProgramDecoder picks the decoder for a program: events registered by
// name decode to raw bodies under those names, and a program with no
// configured events falls back to surfacing every event it emits.
func buildProgramDecoder(program *watcherConfig.ProgramConfig, logger *zap.Logger) (programLogParser.EventDecoder, error) {
	if len(program.Events) == 0 {
		return eventDecoder.NewRawDecoder().Named(), nil
	}

	decoder := eventDecoder.NewDecoder(logger)
	for _, name := range program.Events {
		if err := decoder.RegisterRawEvent(name); err != nil {
			return nil, errors.Wrapf(err, "failed to register event %s for program %s", name, program.Name)
		}
	}
	return decoder.Named(), nil
}

func buildPollerConfig(cfg *watcherConfig.PollerConfig, programID string) *transactionPoller.TransactionPollerConfig {
	pollerConfig := transactionPoller.NewTransactionPollerDefaultConfig(programID)
	if cfg.IntervalMs > 0 {
		pollerConfig.PollingInterval = time.Duration(cfg.IntervalMs) * time.Millisecond
	}
	if cfg.BatchSize > 0 {
		pollerConfig.BatchSize = cfg.BatchSize
	}
	if cfg.MaxErrorCount > 0 {
		pollerConfig.MaxErrorCount = cfg.MaxErrorCount
	}
	return pollerConfig
}
