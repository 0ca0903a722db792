// Package tls resolves server certificates: ACME autocert for real domains,
// operator-provided key pairs, and a self-signed fallback for development.
package tls

import (
	"crypto/tls"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"admin-auth-service/internal/config"
	"admin-auth-service/internal/util"
)

type Manager struct {
	config   *config.ServerConfig
	autoCert *autocert.Manager
}

func NewManager(cfg *config.ServerConfig) *Manager {
	m := &Manager{config: cfg}
	if cfg.EnableTLS && cfg.AutoCert {
		m.setupAutoCert()
	}
	return m
}

func (m *Manager) setupAutoCert() {
	if err := os.MkdirAll(m.config.AutoCertDir, 0700); err != nil {
		util.Warn("Could not create autocert directory", zap.Error(err))
		return
	}

	m.autoCert = &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(m.config.Domain),
		Cache:      autocert.DirCache(m.config.AutoCertDir),
		Email:      m.config.Email,
	}

	util.Info("AutoCert configured",
		zap.String("domain", m.config.Domain),
		zap.String("cache_dir", m.config.AutoCertDir))
}

// GetCertificate resolves a certificate in priority order: autocert, the
// configured key pair, then a generated self-signed certificate.
func (m *Manager) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	if m.autoCert != nil {
		if cert, err := m.autoCert.GetCertificate(hello); err == nil {
			return cert, nil
		}
	}

	if m.config.CertFile != "" && m.config.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(m.config.CertFile, m.config.KeyFile)
		if err == nil {
			return &cert, nil
		}
	}

	return m.selfSignedCert()
}

func (m *Manager) selfSignedCert() (*tls.Certificate, error) {
	generator := NewDevCertGenerator(m.config.AutoCertDir)
	hosts := []string{"localhost", "127.0.0.1", "::1"}
	if m.config.Domain != "" {
		hosts = append([]string{m.config.Domain}, hosts...)
	}

	cert, err := generator.GenerateCert(hosts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate self-signed certificate: %w", err)
	}

	util.Info("Generated self-signed certificate", zap.Strings("hosts", hosts))
	return &cert, nil
}

func (m *Manager) GetTLSConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: m.GetCertificate,
		NextProtos:     []string{"h2", "http/1.1"},
		MinVersion:     tls.VersionTLS12,
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
	}
}

// GetAutocertManager exposes the ACME manager so the HTTP listener can serve
// http-01 challenges.
func (m *Manager) GetAutocertManager() *autocert.Manager {
	return m.autoCert
}
