package transport

import (
	"crypto/tls"
)

// deviceTLSConfig builds the *tls.Config used for a device host. Devices
// serve self-signed certificates with no stable CA, so verification is
// skipped for the server cert. A non-nil clientCert is attached for mutual
// TLS; this package embeds no client certificate of its own.
func deviceTLSConfig(clientCert *tls.Certificate) *tls.Config {
	cfg := &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // devices self-sign; no CA is available to pin against
	}
	if clientCert != nil {
		cfg.Certificates = []tls.Certificate{*clientCert}
	}
	return cfg
}
