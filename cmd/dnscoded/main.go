package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dnsscience/dnscodec/internal/config"
	"github.com/dnsscience/dnscodec/internal/metrics"
	"github.com/dnsscience/dnscodec/internal/ratelimit"
	"github.com/dnsscience/dnscodec/internal/resolverfw"
	"github.com/dnsscience/dnscodec/internal/rpz"
	"github.com/dnsscience/dnscodec/internal/wire"
	"github.com/dnsscience/dnscodec/internal/zonefmt"
	"github.com/dnsscience/dnscodec/internal/zonestore"
	"github.com/dnsscience/dnscodec/resolvers"
)

var (
	configFile = flag.String("config", "", "YAML config file (optional; built-in defaults otherwise)")
	udpAddr    = flag.String("udp", "", "UDP listen address (overrides config)")
	tcpAddr    = flag.String("tcp", "", "TCP listen address (overrides config)")
	resolver   = flag.String("resolver", "", "Resolver to run: fixed, zone, proxy, shell, intercept (overrides config)")
	zoneFile   = flag.String("zone", "", "Zone file to load for the zone resolver")
	upstream   = flag.String("upstream", "", "Upstream address for the proxy/intercept resolvers")
	stats      = flag.Bool("stats", true, "Print statistics periodically")
)

func main() {
	flag.Parse()

	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                   dnscoded - DNS resolver daemon              ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Println()

	cfg := config.Default()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *udpAddr != "" {
		cfg.Listen.UDP = *udpAddr
	}
	if *tcpAddr != "" {
		cfg.Listen.TCP = *tcpAddr
	}
	if *resolver != "" {
		cfg.Resolver = *resolver
	}
	if *upstream != "" {
		cfg.Proxy.Upstream = *upstream
	}

	fmt.Printf("Configuration:\n")
	fmt.Printf("  UDP Address:  %s\n", cfg.Listen.UDP)
	fmt.Printf("  TCP Address:  %s\n", cfg.Listen.TCP)
	fmt.Printf("  Resolver:     %s\n", cfg.Resolver)
	fmt.Printf("  DNS Cookies:  %v\n", cfg.Cookie.Enabled)
	fmt.Printf("  RRL:          %v\n", cfg.RateLimit.RRLEnabled)
	fmt.Println()

	reg := prometheus.NewRegistry()
	mtr := metrics.New(reg)
	if cfg.Metrics.Listen != "" {
		go serveMetrics(cfg.Metrics, reg)
	}

	resolve, err := buildResolver(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building resolver %q: %v\n", cfg.Resolver, err)
		os.Exit(1)
	}

	srvCfg := resolverfw.DefaultConfig()
	srvCfg.UDPAddr = cfg.Listen.UDP
	srvCfg.TCPAddr = cfg.Listen.TCP
	if cfg.Listen.TCPIdle > 0 {
		srvCfg.TCPIdleTimeout = cfg.Listen.TCPIdle
	}
	if cfg.Listen.MaxUDPSize > 0 {
		srvCfg.MaxUDPSize = cfg.Listen.MaxUDPSize
	}
	srvCfg.Metrics = mtr
	srvCfg.EnableCookies = cfg.Cookie.Enabled
	srvCfg.CookieConfig.Enabled = cfg.Cookie.Enabled
	srvCfg.CookieConfig.RequireValid = cfg.Cookie.RequireValid
	srvCfg.CookieConfig.ClusterSecret = []byte(cfg.Cookie.ClusterSecret)
	srvCfg.EnableRRL = cfg.RateLimit.RRLEnabled
	if cfg.RateLimit.RRLPerSecond > 0 {
		srvCfg.RRLConfig.ResponsesPerSecond = cfg.RateLimit.RRLPerSecond
	}
	if cfg.RateLimit.RRLWindow > 0 {
		srvCfg.RRLConfig.Window = cfg.RateLimit.RRLWindow
	}
	if cfg.RateLimit.RRLSlip > 0 {
		srvCfg.RRLConfig.Slip = cfg.RateLimit.RRLSlip
	}

	acl := ratelimit.NewACL(cfg.ACL.DefaultAllow)
	for _, cidr := range cfg.ACL.Allow {
		acl.AllowNet(cidr)
	}
	for _, cidr := range cfg.ACL.Deny {
		acl.DenyNet(cidr)
	}
	srvCfg.ACL = acl

	limCfg := ratelimit.DefaultConfig()
	if cfg.RateLimit.QueriesPerSecond > 0 {
		limCfg.QueriesPerSecond = cfg.RateLimit.QueriesPerSecond
	}
	if cfg.RateLimit.BurstSize > 0 {
		limCfg.BurstSize = cfg.RateLimit.BurstSize
	}
	srvCfg.Limiter = ratelimit.NewLimiter(limCfg)

	srv, err := resolverfw.New(srvCfg, resolve)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating server: %v\n", err)
		os.Exit(1)
	}
	if err := srv.ListenAndServe(); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting server: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("DNS server started successfully!")
	fmt.Println()

	if *stats {
		go printStats(srv)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	fmt.Println()

	if err := srv.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error stopping server: %v\n", err)
		os.Exit(1)
	}
}

func serveMetrics(cfg config.MetricsSection, reg *prometheus.Registry) {
	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(cfg.Listen, mux); err != nil {
		fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
	}
}

func buildResolver(cfg config.Config) (resolverfw.ResolveFunc, error) {
	switch cfg.Resolver {
	case "", "fixed":
		return resolvers.NewFixed().Resolve, nil

	case "zone":
		z, err := loadZone(cfg)
		if err != nil {
			return nil, err
		}
		return resolvers.NewZone(z).Resolve, nil

	case "proxy":
		if cfg.Proxy.Upstream == "" {
			return nil, fmt.Errorf("proxy resolver requires an upstream address")
		}
		p := resolvers.NewProxy(cfg.Proxy.Upstream)
		if cfg.Proxy.Timeout > 0 {
			p.Timeout = cfg.Proxy.Timeout
		}
		return p.Resolve, nil

	case "shell":
		return resolvers.NewShell("/bin/sh", "-c", "dnscoded-lookup").Resolve, nil

	case "intercept":
		if cfg.Proxy.Upstream == "" {
			return nil, fmt.Errorf("intercept resolver requires an upstream address")
		}
		p := resolvers.NewProxy(cfg.Proxy.Upstream)
		policy := rpz.NewAggregate()
		ic := resolvers.NewIntercept(p, policy)
		return ic.Resolve, nil

	default:
		return nil, fmt.Errorf("unknown resolver %q", cfg.Resolver)
	}
}

func loadZone(cfg config.Config) (*zonestore.Zone, error) {
	path := *zoneFile
	if path == "" && len(cfg.Zones) > 0 {
		path = cfg.Zones[0]
	}
	if path == "" {
		return nil, fmt.Errorf("zone resolver requires -zone or a configured zones entry")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open zone file: %v", wire.ErrDNS, err)
	}
	defer f.Close()

	rrs, err := zonefmt.ParseZone(f, wire.Root, 3600)
	if err != nil {
		return nil, err
	}

	var origin wire.Label
	for _, rr := range rrs {
		if rr.Type == wire.TypeSOA {
			origin = rr.Name
			break
		}
	}
	z := zonestore.New(origin)
	for _, rr := range rrs {
		if err := z.AddRecord(rr); err != nil {
			return nil, err
		}
	}
	if err := z.Validate(); err != nil {
		return nil, err
	}
	return z, nil
}

func printStats(srv *resolverfw.Server) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	lastQueries := uint64(0)
	lastTime := time.Now()

	for range ticker.C {
		st := srv.Stats()
		now := time.Now()
		elapsed := now.Sub(lastTime).Seconds()
		qps := float64(st.Queries-lastQueries) / elapsed

		fmt.Printf("═══════════════════════════════════════════════════════════\n")
		fmt.Printf("Statistics (%.1fs interval):\n", elapsed)
		fmt.Printf("  Queries:  %10d  (%.0f qps)\n", st.Queries, qps)
		fmt.Printf("  Answers:  %10d\n", st.Answers)
		fmt.Printf("  Errors:   %10d\n", st.Errors)
		fmt.Printf("  Dropped:  %10d\n", st.Dropped)
		if st.RRL != nil {
			fmt.Printf("\nRate Limiting:\n")
			fmt.Printf("  Allowed:  %10d\n", st.RRL.Allowed)
			fmt.Printf("  Dropped:  %10d\n", st.RRL.Dropped)
			fmt.Printf("  Slipped:  %10d\n", st.RRL.Slipped)
		}
		fmt.Printf("═══════════════════════════════════════════════════════════\n\n")

		lastQueries = st.Queries
		lastTime = now
	}
}
