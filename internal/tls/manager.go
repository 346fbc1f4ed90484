// Package tls serves certificates from ACME, from files, or from a
// self-signed development certificate, in that order.
package tls

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"blog-service/internal/config"
	"blog-service/internal/util"
)

var ErrNoCertificate = errors.New("no certificate available")

type TLSManager struct {
	cfg        config.ServerConfig
	production bool
	autoCert   *autocert.Manager

	mu     sync.Mutex
	static *tls.Certificate
}

func NewTLSManager(cfg config.ServerConfig, production bool) *TLSManager {
	m := &TLSManager{cfg: cfg, production: production}
	if cfg.AutoCert && cfg.EnableTLS {
		m.setupAutoCert()
	}
	return m
}

func (m *TLSManager) setupAutoCert() {
	if err := os.MkdirAll(m.cfg.AutoCertDir, 0o700); err != nil {
		util.Warn("Could not create autocert directory", zap.Error(err))
		return
	}

	m.autoCert = &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(m.cfg.Domain),
		Cache:      autocert.DirCache(m.cfg.AutoCertDir),
		Email:      m.cfg.Email,
	}

	util.Info("AutoCert configured",
		zap.String("domain", m.cfg.Domain),
		zap.String("cache_dir", m.cfg.AutoCertDir))
}

// GetCertificate is used as tls.Config.GetCertificate. File and
// development certificates are loaded once and reused.
func (m *TLSManager) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	if m.autoCert != nil {
		cert, err := m.autoCert.GetCertificate(hello)
		if err == nil {
			return cert, nil
		}
		util.Warn("AutoCert failed, falling back", zap.String("server_name", hello.ServerName), zap.Error(err))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.static != nil {
		return m.static, nil
	}

	if m.cfg.CertFile != "" && m.cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(m.cfg.CertFile, m.cfg.KeyFile)
		if err == nil {
			m.static = &cert
			return m.static, nil
		}
		util.Error("Failed to load certificate files", zap.String("cert_file", m.cfg.CertFile), zap.Error(err))
	}

	if m.production {
		return nil, ErrNoCertificate
	}

	cert, err := m.generateSelfSignedCert()
	if err != nil {
		return nil, err
	}
	m.static = cert
	return m.static, nil
}

func (m *TLSManager) generateSelfSignedCert() (*tls.Certificate, error) {
	hosts := []string{m.cfg.Domain, "localhost", "127.0.0.1", "::1"}
	cert, err := NewDevCertGenerator(m.cfg.AutoCertDir).GenerateCert(hosts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate self-signed certificate: %w", err)
	}
	return &cert, nil
}

func (m *TLSManager) GetTLSConfig() *tls.Config {
	cfg := &tls.Config{
		GetCertificate: m.GetCertificate,
		NextProtos:     []string{"h2", "http/1.1"},
		MinVersion:     tls.VersionTLS12,
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		},
	}
	if m.autoCert != nil {
		cfg.NextProtos = append(cfg.NextProtos, "acme-tls/1")
	}
	return cfg
}

// HTTPHandler answers ACME HTTP-01 challenges and redirects everything
// else to HTTPS.
func (m *TLSManager) HTTPHandler() http.Handler {
	if m.autoCert != nil {
		return m.autoCert.HTTPHandler(nil)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		http.Redirect(w, r, "https://"+host+portSuffix(m.cfg.TLSPort)+r.URL.RequestURI(), http.StatusMovedPermanently)
	})
}

func portSuffix(port int) string {
	if port == 0 || port == 443 {
		return ""
	}
	return fmt.Sprintf(":%d", port)
}
