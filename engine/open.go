package engine

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bitfsorg/libetoken-go/authz"
	"github.com/bitfsorg/libetoken-go/config"
	"github.com/bitfsorg/libetoken-go/internal/log"
	"github.com/bitfsorg/libetoken-go/network"
	"github.com/bitfsorg/libetoken-go/registry"
	"github.com/bitfsorg/libetoken-go/tx"
	"github.com/bitfsorg/libetoken-go/wallet"
)

// RegistryFile is the supply cache database under the data directory.
const RegistryFile = "registry.db"

// Setup gathers what Open needs beyond the config file.
type Setup struct {
	Config config.Config

	// Flags are endpoint URLs given on the command line.
	Flags []string

	// Vault supplies the seed on Unlock.
	Vault wallet.SeedVault

	// Profiles backs fixed-supply creator claims; nil disables them.
	Profiles authz.ProfileDirectory

	// Registerer receives gateway and builder metrics; nil disables them.
	Registerer prometheus.Registerer

	// Resolver overrides DNS endpoint discovery.
	Resolver network.TXTResolver
}

// Open builds a locked session from configuration: it resolves endpoints,
// creates the failover gateway and opens the persistent supply cache.
func Open(ctx context.Context, setup Setup) (*Session, error) {
	cfg := setup.Config
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	net, err := wallet.GetNetwork(cfg.Network)
	if err != nil {
		return nil, err
	}

	resolver := setup.Resolver
	if resolver == nil && cfg.DNSSeed != "" {
		resolver = network.NewDNSResolver("", false)
	}
	urls, err := network.ResolveEndpoints(ctx, network.EndpointSources{
		Network:  cfg.Network,
		Config:   cfg.Endpoints,
		Flags:    setup.Flags,
		Env:      map[string]string{network.EnvEndpoints: os.Getenv(network.EnvEndpoints)},
		DNSSeed:  cfg.DNSSeed,
		Resolver: resolver,
	})
	if err != nil {
		return nil, err
	}

	var gwMetrics *network.Metrics
	var txMetrics *tx.Metrics
	if setup.Registerer != nil {
		gwMetrics = network.NewMetrics(setup.Registerer)
		txMetrics = tx.NewMetrics(setup.Registerer)
	}
	gw, err := network.NewGateway(network.HTTPEndpoints(urls, &http.Client{}),
		network.WithQueryTimeout(cfg.RequestTimeout),
		network.WithBroadcastTimeout(cfg.BroadcastTimeout),
		network.WithMetrics(gwMetrics),
		network.WithLogger(log.Gateway),
	)
	if err != nil {
		return nil, err
	}

	supply, err := registry.OpenBoltCache(filepath.Join(cfg.DataDir, RegistryFile))
	if err != nil {
		return nil, err
	}
	meta, err := registry.NewMetaCache(gw, registry.DefaultMetaLifetime)
	if err != nil {
		_ = supply.Close()
		return nil, fmt.Errorf("engine: meta cache: %w", err)
	}
	reg := registry.New(gw,
		registry.WithCache(supply),
		registry.WithMetaCache(meta),
		registry.WithLogger(log.Registry),
	)

	log.Gateway.Info().Strs("endpoints", urls).Str("network", net.Name).Msg("gateway ready")
	return New(gw, setup.Vault,
		WithNetwork(net),
		WithProfiles(setup.Profiles),
		WithRegistry(reg),
		WithStaleWindow(cfg.CacheStaleAfter),
		WithTxOptions(
			tx.WithFeeRate(cfg.FeeRate),
			tx.WithMetrics(txMetrics),
			tx.WithLogger(log.TxBuilder),
		),
		WithLogger(log.WithComponent("engine")),
		WithCloser(supply.Close),
		WithCloser(meta.Close),
	), nil
}
