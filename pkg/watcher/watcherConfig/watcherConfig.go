package watcherConfig

import (
	"encoding/json"

	"github.com/aldrin-exchange/anchor/pkg/config"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"sigs.k8s.io/yaml"
)

const (
	EnvPrefix = "WATCHER_"

	Debug      = "debug"
	Cluster    = "cluster"
	RpcUrl     = "rpc-url"
	WsUrl      = "ws-url"
	Commitment = "commitment"
)

// ProgramConfig names an on-chain program whose logs the watcher follows.
type ProgramConfig struct {
	Name      string   `json:"name" yaml:"name"`
	ProgramID string   `json:"programId" yaml:"programId"`
	Events    []string `json:"events" yaml:"events"`
}

func (pc *ProgramConfig) Validate() field.ErrorList {
	var allErrors field.ErrorList
	if pc.Name == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("name"), "name is required"))
	}
	if pc.ProgramID == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("programId"), "programId is required"))
	}
	for _, event := range pc.Events {
		if event == "" {
			allErrors = append(allErrors, field.Invalid(field.NewPath("events"), pc.Events, "event names must not be empty"))
		}
	}
	return allErrors
}

type RPCConfig struct {
	Cluster    config.Cluster    `json:"cluster" yaml:"cluster"`
	RpcUrl     string            `json:"rpcUrl" yaml:"rpcUrl"`
	WsUrl      string            `json:"wsUrl" yaml:"wsUrl"`
	Commitment config.Commitment `json:"commitment" yaml:"commitment"`
}

func (rc *RPCConfig) Validate() field.ErrorList {
	var allErrors field.ErrorList
	if rc.Cluster == "" && rc.RpcUrl == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("cluster"), "either cluster or rpcUrl is required"))
	}
	if rc.Cluster != "" && !config.IsSupportedCluster(rc.Cluster) {
		allErrors = append(allErrors, field.Invalid(field.NewPath("cluster"), rc.Cluster, "unsupported cluster"))
	}
	if rc.Commitment != "" && !config.IsValidCommitment(rc.Commitment) {
		allErrors = append(allErrors, field.Invalid(field.NewPath("commitment"), rc.Commitment, "unsupported commitment"))
	}
	return allErrors
}

// Endpoints resolves the HTTP and WebSocket URLs, falling back to the
// cluster's public endpoints when explicit URLs are not configured.
func (rc *RPCConfig) Endpoints() (string, string, error) {
	httpURL := rc.RpcUrl
	wsURL := rc.WsUrl
	if httpURL != "" && wsURL != "" {
		return httpURL, wsURL, nil
	}
	clusterHTTP, clusterWS, err := config.ClusterAPIURL(rc.Cluster)
	if err != nil {
		return "", "", err
	}
	if httpURL == "" {
		httpURL = clusterHTTP
	}
	if wsURL == "" {
		wsURL = clusterWS
	}
	return httpURL, wsURL, nil
}

// PollerConfig controls the signature backfill loop.
type PollerConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// IntervalMs is the delay between polling rounds in milliseconds
	IntervalMs int `json:"intervalMs,omitempty" yaml:"intervalMs,omitempty"`
	// BatchSize caps how many signatures are fetched per round
	BatchSize int `json:"batchSize,omitempty" yaml:"batchSize,omitempty"`
	// MaxErrorCount stops the poller after this many consecutive failures
	MaxErrorCount int `json:"maxErrorCount,omitempty" yaml:"maxErrorCount,omitempty"`
}

func (pc *PollerConfig) Validate() field.ErrorList {
	var allErrors field.ErrorList
	if pc.IntervalMs < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("intervalMs"), pc.IntervalMs, "intervalMs must not be negative"))
	}
	if pc.BatchSize < 0 || pc.BatchSize > 1000 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("batchSize"), pc.BatchSize, "batchSize must be between 0 and 1000"))
	}
	if pc.MaxErrorCount < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("maxErrorCount"), pc.MaxErrorCount, "maxErrorCount must not be negative"))
	}
	return allErrors
}

type MetricsConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Port    int  `json:"port" yaml:"port"`
}

func (mc *MetricsConfig) Validate() field.ErrorList {
	var allErrors field.ErrorList
	if mc.Enabled && (mc.Port <= 0 || mc.Port > 65535) {
		allErrors = append(allErrors, field.Invalid(field.NewPath("port"), mc.Port, "port must be between 1 and 65535"))
	}
	return allErrors
}

// StorageConfig contains configuration for the storage layer
type StorageConfig struct {
	Type         string        `json:"type" yaml:"type"` // "memory" or "badger"
	BadgerConfig *BadgerConfig `json:"badger,omitempty" yaml:"badger,omitempty"`
}

// BadgerConfig contains configuration for BadgerDB storage
type BadgerConfig struct {
	// Directory where BadgerDB will store its data
	Dir string `json:"dir" yaml:"dir"`
	// InMemory runs BadgerDB in memory-only mode (for testing)
	InMemory bool `json:"inMemory,omitempty" yaml:"inMemory,omitempty"`
	// ValueLogFileSize sets the maximum size of a single value log file
	ValueLogFileSize int64 `json:"valueLogFileSize,omitempty" yaml:"valueLogFileSize,omitempty"`
	// NumVersionsToKeep sets how many versions to keep for each key
	NumVersionsToKeep int `json:"numVersionsToKeep,omitempty" yaml:"numVersionsToKeep,omitempty"`
	// NumLevelZeroTables sets the maximum number of level zero tables before stalling
	NumLevelZeroTables int `json:"numLevelZeroTables,omitempty" yaml:"numLevelZeroTables,omitempty"`
	// NumLevelZeroTablesStall sets the number of level zero tables that will trigger a stall
	NumLevelZeroTablesStall int `json:"numLevelZeroTablesStall,omitempty" yaml:"numLevelZeroTablesStall,omitempty"`
}

// Validate validates the StorageConfig
func (sc *StorageConfig) Validate() error {
	var allErrors field.ErrorList

	if sc.Type == "" {
		sc.Type = "memory" // Default to memory if not specified
	}

	if sc.Type != "memory" && sc.Type != "badger" {
		allErrors = append(allErrors, field.Invalid(field.NewPath("type"), sc.Type, "type must be 'memory' or 'badger'"))
	}

	if sc.Type == "badger" {
		if sc.BadgerConfig == nil {
			allErrors = append(allErrors, field.Required(field.NewPath("badger"), "badger configuration is required when type is 'badger'"))
		} else if sc.BadgerConfig.Dir == "" && !sc.BadgerConfig.InMemory {
			allErrors = append(allErrors, field.Required(field.NewPath("badger.dir"), "badger directory is required"))
		}
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

type WatcherConfig struct {
	Debug    bool             `json:"debug" yaml:"debug"`
	RPC      *RPCConfig       `json:"rpc" yaml:"rpc"`
	Poller   *PollerConfig    `json:"poller,omitempty" yaml:"poller,omitempty"`
	Metrics  *MetricsConfig   `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Storage  *StorageConfig   `json:"storage,omitempty" yaml:"storage,omitempty"`
	Programs []*ProgramConfig `json:"programs" yaml:"programs"`
}

func (wc *WatcherConfig) Validate() error {
	var allErrors field.ErrorList
	if wc.RPC == nil {
		allErrors = append(allErrors, field.Required(field.NewPath("rpc"), "rpc configuration is required"))
	} else if rpcErrors := wc.RPC.Validate(); len(rpcErrors) > 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("rpc"), wc.RPC, "invalid rpc config"))
	}
	if len(wc.Programs) == 0 {
		allErrors = append(allErrors, field.Required(field.NewPath("programs"), "at least one program is required"))
	} else {
		for _, program := range wc.Programs {
			if programErrors := program.Validate(); len(programErrors) > 0 {
				allErrors = append(allErrors, field.Invalid(field.NewPath("programs"), program, "invalid program config"))
			}
		}
	}
	if wc.Poller != nil {
		if pollerErrors := wc.Poller.Validate(); len(pollerErrors) > 0 {
			allErrors = append(allErrors, field.Invalid(field.NewPath("poller"), wc.Poller, "invalid poller config"))
		}
	}
	if wc.Metrics != nil {
		if metricsErrors := wc.Metrics.Validate(); len(metricsErrors) > 0 {
			allErrors = append(allErrors, field.Invalid(field.NewPath("metrics"), wc.Metrics, "invalid metrics config"))
		}
	}
	if wc.Storage != nil {
		if err := wc.Storage.Validate(); err != nil {
			allErrors = append(allErrors, field.Invalid(field.NewPath("storage"), wc.Storage, err.Error()))
		}
	}
	return allErrors.ToAggregate()
}

func NewWatcherConfigFromJsonBytes(data []byte) (*WatcherConfig, error) {
	var c WatcherConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal WatcherConfig from JSON")
	}
	return &c, nil
}

func NewWatcherConfigFromYamlBytes(data []byte) (*WatcherConfig, error) {
	var c WatcherConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal WatcherConfig from YAML")
	}
	return &c, nil
}

func NewWatcherConfig() *WatcherConfig {
	return &WatcherConfig{
		Debug: viper.GetBool(config.NormalizeFlagName(Debug)),
		RPC: &RPCConfig{
			Cluster:    config.Cluster(viper.GetString(config.NormalizeFlagName(Cluster))),
			RpcUrl:     viper.GetString(config.NormalizeFlagName(RpcUrl)),
			WsUrl:      viper.GetString(config.NormalizeFlagName(WsUrl)),
			Commitment: config.Commitment(viper.GetString(config.NormalizeFlagName(Commitment))),
		},
	}
}
