package source

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// TLSConfig holds the controller client certificate settings.
type TLSConfig struct {
	CACertPath         string
	ClientCertPath     string
	ClientKeyPath      string
	InsecureSkipVerify bool
}

func (c TLSConfig) empty() bool {
	return c.CACertPath == "" && c.ClientCertPath == "" && !c.InsecureSkipVerify
}

// clientTLS builds the controller client TLS settings. The client key pair
// is only loaded when both files are given.
func (c TLSConfig) clientTLS() (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: c.InsecureSkipVerify, //nolint:gosec // -controller-insecure
	}

	if c.CACertPath != "" {
		pem, err := os.ReadFile(c.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read controller CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates in controller CA %s", c.CACertPath)
		}
		cfg.RootCAs = pool
		log.Info().Str("path", c.CACertPath).Msg("Loaded controller CA")
	}

	if c.ClientCertPath != "" && c.ClientKeyPath != "" {
		cert, err := tls.LoadX509KeyPair(c.ClientCertPath, c.ClientKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load controller client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
		log.Info().Str("path", c.ClientCertPath).Msg("Loaded controller client certificate")
	}

	if c.InsecureSkipVerify {
		log.Warn().Msg("Controller TLS certificate verification is disabled")
	}

	return cfg, nil
}
