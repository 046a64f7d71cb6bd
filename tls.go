package main

import (
	"crypto/tls"
	"fmt"

	"github.com/caddyserver/certmagic"
)

// TLSConfig obtains and renews a certificate for domain through ACME.
// An empty domain means plain HTTP and a nil config.
func TLSConfig(domain, email string) (*tls.Config, error) {
	if domain == "" {
		return nil, nil
	}

	certmagic.DefaultACME.Agreed = true
	if email != "" {
		certmagic.DefaultACME.Email = email
	}

	cfg, err := certmagic.TLS([]string{domain})
	if err != nil {
		return nil, fmt.Errorf("certificate for %s: %w", domain, err)
	}
	return cfg, nil
}
