package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"admin-auth-service/internal/util"
)

// DevCertGenerator creates and caches a self-signed certificate for local
// development. Never used when autocert or a configured key pair resolves.
type DevCertGenerator struct {
	certDir string
}

func NewDevCertGenerator(certDir string) *DevCertGenerator {
	return &DevCertGenerator{certDir: certDir}
}

func (d *DevCertGenerator) GenerateCert(hosts []string) (tls.Certificate, error) {
	certPath := filepath.Join(d.certDir, "dev-cert.pem")
	keyPath := filepath.Join(d.certDir, "dev-key.pem")

	if cert, err := tls.LoadX509KeyPair(certPath, keyPath); err == nil {
		if d.certificateValid(certPath) {
			util.Info("Using existing development certificate", zap.String("cert_path", certPath))
			return cert, nil
		}
	}

	util.Info("Generating self-signed certificate", zap.Strings("hosts", hosts))

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate private key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate serial number: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"Admin Auth Service Development"},
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create certificate: %w", err)
	}

	keyBytes, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to encode private key: %w", err)
	}

	if err := writePEM(certPath, "CERTIFICATE", derBytes, 0644); err != nil {
		return tls.Certificate{}, err
	}
	if err := writePEM(keyPath, "EC PRIVATE KEY", keyBytes, 0600); err != nil {
		return tls.Certificate{}, err
	}

	util.Info("Self-signed certificate written",
		zap.String("cert_path", certPath),
		zap.String("key_path", keyPath))

	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to load generated certificate: %w", err)
	}
	return cert, nil
}

func writePEM(path, blockType string, der []byte, mode os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}

func (d *DevCertGenerator) certificateValid(certPath string) bool {
	certData, err := os.ReadFile(certPath)
	if err != nil {
		return false
	}

	block, _ := pem.Decode(certData)
	if block == nil {
		return false
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return false
	}

	now := time.Now()
	return now.After(cert.NotBefore) && now.Before(cert.NotAfter)
}
