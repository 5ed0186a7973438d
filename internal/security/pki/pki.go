// Package pki creates a local CA and server certificates for running the
// gRPC controller over TLS without an external PKI.
package pki

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

const organization = "taskbalancer"

// Paths returns default file paths for a given PKI directory and name prefix.
func Paths(dir, name string) (caCert, caKey, cert, key string) {
	return filepath.Join(dir, "ca.pem"), filepath.Join(dir, "ca.key"), filepath.Join(dir, name+".pem"), filepath.Join(dir, name+".key")
}

// EnsureCA creates a self-signed CA in dir if not present and returns the
// CA cert and key.
func EnsureCA(dir, commonName string, validity time.Duration) (*x509.Certificate, *ecdsa.PrivateKey, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, nil, err
	}
	caCertPath, caKeyPath, _, _ := Paths(dir, "")
	if _, err := os.Stat(caCertPath); err == nil {
		return LoadCA(caCertPath, caKeyPath)
	}
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	tmpl := &x509.Certificate{
		SerialNumber:          serial(),
		Subject:               pkix.Name{CommonName: commonName, Organization: []string{organization}},
		NotBefore:             time.Now().Add(-5 * time.Minute),
		NotAfter:              time.Now().Add(validity),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, nil, err
	}
	if err := writeCertKey(caCertPath, caKeyPath, der, key); err != nil {
		return nil, nil, err
	}
	cert, err := x509.ParseCertificate(der)
	return cert, key, err
}

// LoadCA reads a CA written by EnsureCA.
func LoadCA(certPath, keyPath string) (*x509.Certificate, *ecdsa.PrivateKey, error) {
	crt, err := os.ReadFile(certPath)
	if err != nil {
		return nil, nil, err
	}
	blk, _ := pem.Decode(crt)
	if blk == nil {
		return nil, nil, errors.New("invalid ca cert pem")
	}
	cert, err := x509.ParseCertificate(blk.Bytes)
	if err != nil {
		return nil, nil, err
	}
	kb, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, nil, err
	}
	kblk, _ := pem.Decode(kb)
	if kblk == nil {
		return nil, nil, errors.New("invalid ca key pem")
	}
	key, err := x509.ParseECPrivateKey(kblk.Bytes)
	if err != nil {
		return nil, nil, err
	}
	return cert, key, nil
}

// IssueServerCert issues a server certificate named name, signed by the
// CA. hosts become DNS or IP SANs. An existing certificate is kept.
func IssueServerCert(dir, name string, caCert *x509.Certificate, caKey *ecdsa.PrivateKey, validity time.Duration, hosts []string) (certPath, keyPath string, err error) {
	_, _, certPath, keyPath = Paths(dir, name)
	if _, err := os.Stat(certPath); err == nil {
		return certPath, keyPath, nil
	}
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", err
	}
	tmpl := &x509.Certificate{
		SerialNumber: serial(),
		Subject:      pkix.Name{CommonName: name, Organization: []string{organization}},
		NotBefore:    time.Now().Add(-5 * time.Minute),
		NotAfter:     time.Now().Add(validity),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
		} else if h != "" {
			tmpl.DNSNames = append(tmpl.DNSNames, h)
		}
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, caCert, &key.PublicKey, caKey)
	if err != nil {
		return "", "", err
	}
	if err := writeCertKey(certPath, keyPath, der, key); err != nil {
		return "", "", err
	}
	return certPath, keyPath, nil
}

// DevCerts ensures a CA and a server certificate for hosts exist in dir
// and returns their paths.
func DevCerts(dir string, hosts []string) (caCert, cert, key string, err error) {
	ca, caKey, err := EnsureCA(dir, "taskbalancer dev CA", 365*24*time.Hour)
	if err != nil {
		return "", "", "", fmt.Errorf("ensure ca: %w", err)
	}
	cert, key, err = IssueServerCert(dir, "controller", ca, caKey, 365*24*time.Hour, hosts)
	if err != nil {
		return "", "", "", fmt.Errorf("issue server cert: %w", err)
	}
	caCert, _, _, _ = Paths(dir, "")
	return caCert, cert, key, nil
}

func serial() *big.Int {
	n, _ := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	return n
}

func writeCertKey(certPath, keyPath string, certDER []byte, key *ecdsa.PrivateKey) error {
	kb, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return err
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
		return err
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: kb})
	return os.WriteFile(keyPath, keyPEM, 0o600)
}
