package pki

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevCerts(t *testing.T) {
	dir := t.TempDir()
	caPath, certPath, keyPath, err := DevCerts(dir, []string{"localhost", "127.0.0.1"})
	require.NoError(t, err)

	pair, err := tls.LoadX509KeyPair(certPath, keyPath)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(pair.Certificate[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost"}, leaf.DNSNames)
	require.Len(t, leaf.IPAddresses, 1)
	assert.Equal(t, "127.0.0.1", leaf.IPAddresses[0].String())

	caPEM, err := os.ReadFile(caPath)
	require.NoError(t, err)
	pool := x509.NewCertPool()
	require.True(t, pool.AppendCertsFromPEM(caPEM))
	_, err = leaf.Verify(x509.VerifyOptions{DNSName: "localhost", Roots: pool})
	require.NoError(t, err)

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestEnsureCAReusesExisting(t *testing.T) {
	dir := t.TempDir()
	ca1, _, err := EnsureCA(dir, "test", time.Hour)
	require.NoError(t, err)
	ca2, _, err := EnsureCA(dir, "other", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, ca1.Raw, ca2.Raw)
	assert.Equal(t, "test", ca2.Subject.CommonName)
}
