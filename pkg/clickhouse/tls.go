package clickhouse

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/pkg/errors"
)

// TLSSettings are the certificate files for connecting over mutual TLS.
type TLSSettings struct {
	CAFile   string
	CertFile string
	KeyFile  string
}

func (s TLSSettings) enabled() bool {
	return s.CAFile != "" || s.CertFile != "" || s.KeyFile != ""
}

// GetTLSConfig creates a TLS config for connecting to ClickHouse over mTLS.
func GetTLSConfig(settings TLSSettings) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(settings.CertFile, settings.KeyFile)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load certfile/keyfile")
	}

	caCert, err := os.ReadFile(settings.CAFile)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load cafile")
	}

	caCertPool := x509.NewCertPool()
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      caCertPool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}
