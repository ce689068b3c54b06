package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// newTLSConfig builds a client TLS config from a certificate/key pair and
// optional CA bundle injected at construction.
func newTLSConfig(creds Credentials) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(creds.CertFile, creds.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load client cert: %w", err)
	}
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}}

	if creds.CAFile != "" {
		pem, err := os.ReadFile(creds.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no valid certificates in %s", creds.CAFile)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}
