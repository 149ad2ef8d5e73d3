// Command etoken is a command-line eToken wallet.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/bitfsorg/libetoken-go/config"
	"github.com/bitfsorg/libetoken-go/engine"
	"github.com/bitfsorg/libetoken-go/internal/log"
	"github.com/bitfsorg/libetoken-go/vault"
)

// GlobalFlags override the config file.
type GlobalFlags struct {
	DataDir   string
	Network   string
	Endpoints []string
	LogLevel  string
	JSON      bool
}

var (
	globalFlags GlobalFlags
	cfg         config.Config
	logCloser   io.Closer = io.NopCloser(nil)
	metricsReg  *prometheus.Registry
	metricsSrv  *http.Server
)

var rootCmd = &cobra.Command{
	Use:           "etoken",
	Short:         "eCash token wallet",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cmd)
		if err != nil {
			return err
		}
		logCloser = log.Init(cfg.LogLevel, cfg.LogJSON, cfg.LogFile)
		startMetrics(cfg.MetricsAddr)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		stopMetrics()
		return logCloser.Close()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globalFlags.DataDir, "datadir", "", "data directory (default ~/.etoken)")
	pf.StringVar(&globalFlags.Network, "network", "", "mainnet, testnet or regtest")
	pf.StringSliceVar(&globalFlags.Endpoints, "endpoint", nil, "indexer endpoint URL, repeatable, highest priority first")
	pf.StringVar(&globalFlags.LogLevel, "log-level", "", "debug, info, warn or error")
	pf.BoolVar(&globalFlags.JSON, "json", false, "machine-readable output")

	rootCmd.AddCommand(initCmd, addressCmd, balanceCmd, tokensCmd, supplyCmd, creatorCmd,
		sendCmd, sendManyCmd, mintCmd, burnCmd, airdropCmd, createTokenCmd,
		sendXecCmd, airdropXecCmd, messageCmd, tipCmd, watchCmd, configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file of the selected data directory and
// applies flag overrides. A missing file yields the defaults.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	dataDir := globalFlags.DataDir
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}
	c, err := config.LoadConfig(config.ConfigPath(dataDir))
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		c = config.DefaultConfig()
	case err != nil:
		return c, err
	}
	c.DataDir = dataDir

	flags := cmd.Flags()
	if flags.Changed("network") {
		c.Network = globalFlags.Network
	}
	if flags.Changed("log-level") {
		c.LogLevel = globalFlags.LogLevel
	}
	if flags.Changed("json") {
		c.LogJSON = globalFlags.JSON
	}
	return c, config.ValidateConfig(c)
}

// startMetrics serves /metrics on addr for the lifetime of the command.
func startMetrics(addr string) {
	metricsReg = prometheus.NewRegistry()
	metricsReg.MustRegister(collectors.NewGoCollector())
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metricsReg, promhttp.HandlerOpts{}))
	metricsSrv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Logger.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
}

func stopMetrics() {
	if metricsSrv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(ctx)
	metricsSrv = nil
}

func openVault() *vault.Vault {
	return vault.Open(cfg.DataDir, vault.WithLogger(log.Vault))
}

// openSession opens a locked session over the configured endpoints.
func openSession(ctx context.Context) (*engine.Session, error) {
	v := openVault()
	if !v.Exists() {
		return nil, fmt.Errorf("%w: run \"etoken init\" first", vault.ErrVaultNotFound)
	}
	return engine.Open(ctx, engine.Setup{
		Config:     cfg,
		Flags:      globalFlags.Endpoints,
		Vault:      v,
		Registerer: metricsReg,
	})
}

// unlockedSession opens a session and unlocks it with the wallet password.
func unlockedSession(ctx context.Context) (*engine.Session, error) {
	s, err := openSession(ctx)
	if err != nil {
		return nil, err
	}
	pw, err := readPassword("Wallet password")
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := s.Unlock(pw); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
