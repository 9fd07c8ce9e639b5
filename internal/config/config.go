package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	ListenAddr     string
	Upstream       string
	Verbose        bool
	LogFormat      string
	Patterns       []string
	PatternsFile   string
	ControllerURL  string
	FetchInterval  time.Duration
	MetricsAddr    string
	APIAddr        string
	MaxConns       int
	BloomThreshold int
	CACertPath     string
	ClientCertPath string
	ClientKeyPath  string
	Insecure       bool
}

// Load parses command line flags. Every flag can be preset through a
// WEBMON_<NAME> environment variable, e.g. WEBMON_FETCH_INTERVAL=60.
func Load() *Config {
	cfg, err := LoadArgs(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid command line")
	}
	return cfg
}

func LoadArgs(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	fetchIntervalSec := 0
	patterns := ""

	fs.StringVar(&cfg.ListenAddr, "listen", env("LISTEN", ":8080"), "Address of the monitored HTTP server")
	fs.StringVar(&cfg.Upstream, "upstream", env("UPSTREAM", ""), "Upstream URL to proxy monitored requests to")
	fs.BoolVar(&cfg.Verbose, "verbose", envBool("VERBOSE", false), "Enable verbose logging")
	fs.StringVar(&cfg.LogFormat, "log-format", env("LOG_FORMAT", "console"), "Log format: console or json")
	fs.StringVar(&patterns, "patterns", env("PATTERNS", ""), "Comma separated URL patterns")
	fs.StringVar(&cfg.PatternsFile, "patterns-file", env("PATTERNS_FILE", ""), "YAML or text file with URL patterns, watched for changes")
	fs.StringVar(&cfg.ControllerURL, "controller", env("CONTROLLER", ""), "Controller URL to fetch URL patterns from")
	fs.IntVar(&fetchIntervalSec, "fetch-interval", envInt("FETCH_INTERVAL", 30), "Pattern fetch interval in seconds")
	fs.StringVar(&cfg.MetricsAddr, "metrics", env("METRICS", ":9090"), "Metrics HTTP server address")
	fs.StringVar(&cfg.APIAddr, "api", env("API", ""), "Admin API address, disabled when empty")
	fs.IntVar(&cfg.MaxConns, "max-conns", envInt("MAX_CONNS", 0), "Maximum concurrent connections on the monitored server, 0 for no limit")
	fs.IntVar(&cfg.BloomThreshold, "bloom-threshold", envInt("BLOOM_THRESHOLD", 10000), "Exact pattern count above which a bloom filter is used")
	fs.StringVar(&cfg.CACertPath, "controller-ca", env("CONTROLLER_CA", ""), "CA certificate for the controller")
	fs.StringVar(&cfg.ClientCertPath, "controller-cert", env("CONTROLLER_CERT", ""), "Client certificate for the controller")
	fs.StringVar(&cfg.ClientKeyPath, "controller-key", env("CONTROLLER_KEY", ""), "Client key for the controller")
	fs.BoolVar(&cfg.Insecure, "controller-insecure", envBool("CONTROLLER_INSECURE", false), "Skip controller TLS certificate verification")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.FetchInterval = time.Duration(fetchIntervalSec) * time.Second
	cfg.Patterns = splitList(patterns)

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func env(name, def string) string {
	if v, ok := os.LookupEnv("WEBMON_" + name); ok {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	if v, err := strconv.Atoi(env(name, "")); err == nil {
		return v
	}
	return def
}

func envBool(name string, def bool) bool {
	if v, err := strconv.ParseBool(env(name, "")); err == nil {
		return v
	}
	return def
}
