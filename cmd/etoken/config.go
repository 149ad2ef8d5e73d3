package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/libetoken-go/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or write the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(cfg, func() {
			fmt.Printf("file:              %s\n", config.ConfigPath(cfg.DataDir))
			fmt.Printf("datadir:           %s\n", cfg.DataDir)
			fmt.Printf("network:           %s\n", cfg.Network)
			fmt.Printf("endpoints:         %s\n", strings.Join(cfg.Endpoints, ", "))
			fmt.Printf("dnsseed:           %s\n", cfg.DNSSeed)
			fmt.Printf("loglevel:          %s\n", cfg.LogLevel)
			fmt.Printf("logfile:           %s\n", cfg.LogFile)
			fmt.Printf("feerate:           %d sat/kB\n", cfg.FeeRate)
			fmt.Printf("requesttimeout:    %s\n", cfg.RequestTimeout)
			fmt.Printf("broadcasttimeout:  %s\n", cfg.BroadcastTimeout)
			fmt.Printf("cachestale:        %s\n", cfg.CacheStaleAfter)
			fmt.Printf("metrics:           %s\n", cfg.MetricsAddr)
		})
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Write the effective configuration, flags included, to the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(globalFlags.Endpoints) > 0 {
			cfg.Endpoints = globalFlags.Endpoints
		}
		if err := config.ValidateConfig(cfg); err != nil {
			return err
		}
		path := config.ConfigPath(cfg.DataDir)
		if err := config.SaveConfig(path, cfg); err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSaveCmd)
}
