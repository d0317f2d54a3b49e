package main

import (
	"os"
	"strings"

	"github.com/aldrin-exchange/anchor/pkg/watcher/watcherConfig"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "watcher",
	Short: "Follow on-chain programs and extract their events",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var configFile string
var Config *watcherConfig.WatcherConfig

func init() {
	cobra.OnInitialize(initConfigIfPresent)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	rootCmd.PersistentFlags().Bool(watcherConfig.Debug, false, `"true" or "false"`)
	rootCmd.PersistentFlags().String(watcherConfig.Cluster, "", "cluster to watch (mainnet-beta, testnet, devnet, localnet)")
	rootCmd.PersistentFlags().String(watcherConfig.RpcUrl, "", "explicit RPC endpoint, overrides the cluster's")
	rootCmd.PersistentFlags().String(watcherConfig.WsUrl, "", "explicit WebSocket endpoint, overrides the cluster's")
	rootCmd.PersistentFlags().String(watcherConfig.Commitment, "", "commitment level (processed, confirmed, finalized)")

	viper.SetEnvPrefix(watcherConfig.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(runCmd)
}

func initConfigIfPresent() {
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			panic(err)
		}
		config, err := watcherConfig.NewWatcherConfigFromYamlBytes(data)
		if err != nil {
			panic(err)
		}
		Config = config
	} else {
		Config = watcherConfig.NewWatcherConfig()
	}
}

func main() {
	Execute()
}
