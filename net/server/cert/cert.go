package cert

import (
	"crypto/tls"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"pimine.team/miner/log"
)

// CertReloader keeps a TLS keypair in memory and reloads it from disk on SIGHUP,
// so renewed certificates are picked up without a restart.
type CertReloader struct {
	mu       sync.RWMutex
	cert     *tls.Certificate
	certPath string
	keyPath  string
}

// NewCertReloader loads the keypair once and starts listening for SIGHUP.
func NewCertReloader(certPath, keyPath string) (*CertReloader, error) {
	cr := &CertReloader{certPath: certPath, keyPath: keyPath}
	if err := cr.Reload(); err != nil {
		return nil, err
	}
	go cr.watchSignals()
	return cr, nil
}

// Reload reads the keypair from disk again. The previous keypair stays in use on error.
func (cr *CertReloader) Reload() error {
	cert, err := tls.LoadX509KeyPair(cr.certPath, cr.keyPath)
	if err != nil {
		return fmt.Errorf("loading keypair: %w", err)
	}
	cr.mu.Lock()
	cr.cert = &cert
	cr.mu.Unlock()
	return nil
}

func (cr *CertReloader) watchSignals() {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	for range hup {
		if err := cr.Reload(); err != nil {
			log.Server.Errorf("TLS reload failed, keeping previous keypair: %s", err)
			continue
		}
		log.Server.Infof("TLS keypair reloaded from %s", cr.certPath)
	}
}

// GetCertificate can be used as tls.Config.GetCertificate.
func (cr *CertReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return cr.cert, nil
}

// GetTLSConfig returns a server configuration serving the current keypair.
func (cr *CertReloader) GetTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: cr.GetCertificate,
	}
}
