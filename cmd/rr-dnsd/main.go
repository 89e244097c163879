package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nullwave/rr-dnsd/internal/dns/common/clock"
	"github.com/nullwave/rr-dnsd/internal/dns/common/log"
	"github.com/nullwave/rr-dnsd/internal/dns/config"
	"github.com/nullwave/rr-dnsd/internal/dns/domain"
	"github.com/nullwave/rr-dnsd/internal/dns/gateways/control"
	"github.com/nullwave/rr-dnsd/internal/dns/gateways/transport"
	"github.com/nullwave/rr-dnsd/internal/dns/gateways/wire"
	"github.com/nullwave/rr-dnsd/internal/dns/repos/blocklist"
	"github.com/nullwave/rr-dnsd/internal/dns/repos/blocklist/bloom"
	"github.com/nullwave/rr-dnsd/internal/dns/repos/blocklist/bolt"
	"github.com/nullwave/rr-dnsd/internal/dns/repos/blocklist/lru"
	"github.com/nullwave/rr-dnsd/internal/dns/repos/blocklist/parsers"
	"github.com/nullwave/rr-dnsd/internal/dns/repos/dnscache"
	"github.com/nullwave/rr-dnsd/internal/dns/repos/zone"
	"github.com/nullwave/rr-dnsd/internal/dns/repos/zonecache"
	"github.com/nullwave/rr-dnsd/internal/dns/services/resolver"
)

const (
	version = "0.1.0-dev"
	appName = "rr-dnsd"

	defaultShutdownTimeout = 10 * time.Second
	zoneFileTTL            = 300 * time.Second
	bloomFalsePositiveRate = 0.01
)

// Application holds every long-lived component of the DNS server.
type Application struct {
	config    *config.AppConfig
	transport *transport.UDPTransport
	control   *control.Server
	responder resolver.DNSResponder
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	if err := log.Configure(cfg.Env, cfg.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":   version,
		"env":       cfg.Env,
		"log_level": cfg.Log.Level,
		"port":      cfg.Resolver.Port,
		"zone_dir":  cfg.Resolver.ZoneDirectory,
	}, "Starting "+appName)

	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err}, "Server failed")
	}

	log.Info(nil, appName+" stopped gracefully")
}

// buildApplication wires config into the resolver core, the admin control
// plane, and the UDP transport.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	clk := clock.RealClock{}
	logger := log.GetLogger()

	zoneCache, err := buildZoneCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build zone cache: %w", err)
	}

	negativeCache, err := buildNegativeCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build negative cache: %w", err)
	}

	blocklistRepo, err := buildBlocklist(cfg, logger, clk)
	if err != nil {
		return nil, fmt.Errorf("failed to build blocklist: %w", err)
	}

	blockRCode, err := blockRCodeFor(cfg.Blocklist.Strategy)
	if err != nil {
		return nil, err
	}

	opts := resolver.ResolverOptions{
		ZoneCache:     zoneCache,
		DNSSEC:        buildDNSSEC(cfg),
		Events:        &logEventSink{logger: logger},
		NegativeCache: negativeCache,
		Logger:        logger,
		Clock:         clk,
		MaxAliasDepth: cfg.Resolver.MaxAliasDepth,
		RootHints:     cfg.Resolver.RootHints,
		BlockRCode:    blockRCode,
	}
	if cfg.Blocklist.Strategy != "sinkhole" {
		opts.Blocklist = blocklist.AsResolverBlocklist(blocklistRepo)
	}

	var responder resolver.DNSResponder = resolver.NewResolver(opts)
	if cfg.Blocklist.Strategy == "sinkhole" {
		responder = resolver.NewSinkholeResponder(responder, blocklist.AsResolverBlocklist(blocklistRepo), sinkholeTarget(cfg.Blocklist.Sinkhole), domain.NXDOMAIN, logger)
	}

	codec := wire.NewUDPCodec(logger)
	addr := fmt.Sprintf(":%d", cfg.Resolver.Port)
	udpTransport := transport.NewUDPTransport(addr, codec, logger)

	controlServer := control.New(cfg.Resolver.ControlAddr, zoneCache, cfg.Resolver.ZoneDirectory, logger, clk)

	return &Application{
		config:    cfg,
		transport: udpTransport,
		control:   controlServer,
		responder: responder,
	}, nil
}

func buildZoneCache(cfg *config.AppConfig) (*zonecache.ZoneCache, error) {
	zoneCache := zonecache.New()

	zones, err := zone.LoadZoneDirectory(cfg.Resolver.ZoneDirectory, zoneFileTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to load zone directory: %w", err)
	}

	version := uint64(time.Now().Unix())
	for zoneRoot, records := range zones {
		z, err := domain.NewZone(zoneRoot, version, records)
		if err != nil {
			return nil, fmt.Errorf("invalid zone %q: %w", zoneRoot, err)
		}
		if err := zoneCache.PutZone(zoneRoot, z); err != nil {
			return nil, fmt.Errorf("failed to publish zone %q: %w", zoneRoot, err)
		}
	}

	log.Info(map[string]any{
		"zone_dir": cfg.Resolver.ZoneDirectory,
		"zones":    len(zoneCache.Zones()),
	}, "Zone cache initialized")

	return zoneCache, nil
}

func buildNegativeCache(cfg *config.AppConfig) (resolver.Cache, error) {
	if cfg.Resolver.Cache.Size <= 0 {
		log.Info(map[string]any{"disabled": true}, "Negative-answer cache disabled")
		return nil, nil
	}
	c, err := dnscache.New(cfg.Resolver.Cache.Size)
	if err != nil {
		return nil, err
	}
	log.Info(map[string]any{"size": cfg.Resolver.Cache.Size}, "Negative-answer cache configured")
	return c, nil
}

func buildBlocklist(cfg *config.AppConfig, logger log.Logger, clk clock.Clock) (blocklist.Repository, error) {
	store, err := bolt.New(cfg.Blocklist.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open blocklist store: %w", err)
	}

	decisionCache, err := lru.New(cfg.Blocklist.Cache.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to build blocklist decision cache: %w", err)
	}

	factory := bloom.NewFactory()
	repo := blocklist.NewRepository(store, decisionCache, factory, bloomFalsePositiveRate)

	rules, err := loadBlocklistRules(cfg.Blocklist.Directory, logger, clk.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to load blocklist directory: %w", err)
	}
	if err := repo.UpdateAll(rules, uint64(clk.Now().Unix()), clk.Now().Unix()); err != nil {
		return nil, fmt.Errorf("failed to build blocklist snapshot: %w", err)
	}

	log.Info(map[string]any{
		"dir":      cfg.Blocklist.Directory,
		"rules":    len(rules),
		"strategy": cfg.Blocklist.Strategy,
	}, "Blocklist initialized")

	return repo, nil
}

// loadBlocklistRules walks dir, parsing ".hosts" files with ParseHostsFile
// and every other file as a plain newline-delimited list. A missing
// directory is not an error: it just means no rules load.
func loadBlocklistRules(dir string, logger log.Logger, now time.Time) ([]domain.BlockRule, error) {
	var all []domain.BlockRule

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return all, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}

		var rules []domain.BlockRule
		if strings.HasSuffix(entry.Name(), ".hosts") {
			rules, err = parsers.ParseHostsFile(f, entry.Name(), logger, now)
		} else {
			rules, err = parsers.ParsePlainList(f, entry.Name(), logger, now)
		}
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		all = append(all, rules...)
	}
	return all, nil
}

// buildDNSSEC returns the configured DNSSEC hook. Per-zone signing key
// loading from DNSSEC.KeyDirectory is tracked as future work; for now an
// enabled config still serves unsigned answers rather than failing startup.
func buildDNSSEC(cfg *config.AppConfig) resolver.DNSSECHook {
	if cfg.Resolver.DNSSEC.Enabled {
		log.Warn(map[string]any{"key_dir": cfg.Resolver.DNSSEC.KeyDirectory}, "DNSSEC enabled but signing is not yet implemented, serving unsigned answers")
	}
	return resolver.NoopDNSSECHook{}
}

func blockRCodeFor(strategy string) (domain.RCode, error) {
	switch strategy {
	case "refused":
		return domain.REFUSED, nil
	case "nxdomain", "sinkhole":
		return domain.NXDOMAIN, nil
	default:
		return 0, fmt.Errorf("unknown blocklist strategy %q", strategy)
	}
}

func sinkholeTarget(opts *config.SinkholeOptions) resolver.SinkholeTarget {
	if opts == nil {
		return resolver.SinkholeTarget{}
	}
	target := resolver.SinkholeTarget{TTL: uint32(opts.TTL)}
	for _, addr := range opts.Target {
		if strings.Contains(addr, ":") {
			target.IPv6 = append(target.IPv6, addr)
		} else {
			target.IPv4 = append(target.IPv4, addr)
		}
	}
	return target
}

// logEventSink logs resolver telemetry at debug level; it never blocks or
// fails a resolution regardless of logger state.
type logEventSink struct {
	logger log.Logger
}

func (s *logEventSink) Notify(event resolver.Event) {
	var client string
	if event.Client != nil {
		client = event.Client.String()
	}
	s.logger.Debug(map[string]any{
		"kind":   event.Kind,
		"qname":  event.Qname,
		"qtype":  event.Qtype,
		"rcode":  event.RCode,
		"client": client,
	}, "resolver event")
}

var _ resolver.EventSink = (*logEventSink)(nil)

// Run starts the UDP transport and the admin control server, blocking
// until ctx is cancelled.
func (app *Application) Run(ctx context.Context) error {
	if err := app.transport.Start(ctx, app.responder); err != nil {
		return fmt.Errorf("failed to start UDP transport: %w", err)
	}
	app.control.Start()

	log.Info(map[string]any{
		"address":      app.transport.Address(),
		"control_addr": app.control.Address(),
		"transport":    "UDP",
	}, appName+" started")

	<-ctx.Done()
	log.Info(nil, "Shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := app.transport.Stop(); err != nil {
		log.Warn(map[string]any{"error": err}, "Error during transport shutdown")
	}
	if err := app.control.Stop(); err != nil {
		log.Warn(map[string]any{"error": err}, "Error during control server shutdown")
	}

	select {
	case <-shutdownCtx.Done():
		log.Warn(map[string]any{"timeout": defaultShutdownTimeout}, "Shutdown timeout exceeded")
		return fmt.Errorf("shutdown timeout")
	default:
		log.Info(nil, "Graceful shutdown completed")
		return nil
	}
}
