package telemetry

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
)

// TLS configuration errors.
var (
	ErrInvalidCACerts = errors.New("invalid base64 CA certificates")
	ErrNoCACerts      = errors.New("no PEM CA certificates found")
)

// tlsConfig builds the collector client TLS configuration from base64 encoded
// PEM CA certificates.
func tlsConfig(caCertsBase64 string) (*tls.Config, error) {
	pem, err := base64.StdEncoding.DecodeString(caCertsBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCACerts, err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, ErrNoCACerts
	}

	return &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}, nil
}
