// Package tlstest issues a throwaway CA and a localhost leaf certificate for
// tests that talk to TLS endpoints. All files are written under t.TempDir().
package tlstest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Bundle is a CA plus one leaf usable as both server and client certificate.
type Bundle struct {
	CAFile   string
	CertFile string
	KeyFile  string

	// ServerTLS is the leaf loaded as a key pair, ready for tls.Config.
	ServerTLS tls.Certificate
	// Roots trusts the CA.
	Roots *x509.CertPool
}

// New issues a bundle whose leaf is valid for localhost, 127.0.0.1 and ::1.
func New(t testing.TB) *Bundle {
	t.Helper()
	dir := t.TempDir()
	now := time.Now()

	caKey := newKey(t)
	ca := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "workflowd test root"},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(time.Hour),
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	caDER := sign(t, ca, ca, caKey, caKey)
	caCert, err := x509.ParseCertificate(caDER)
	if err != nil {
		t.Fatalf("tlstest: parse root: %v", err)
	}

	leafKey := newKey(t)
	leaf := &x509.Certificate{
		SerialNumber: big.NewInt(now.UnixNano()),
		Subject:      pkix.Name{CommonName: "localhost"},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		NotBefore:    now.Add(-time.Minute),
		NotAfter:     now.Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}
	leafDER := sign(t, leaf, caCert, leafKey, caKey)
	keyDER, err := x509.MarshalPKCS8PrivateKey(leafKey)
	if err != nil {
		t.Fatalf("tlstest: marshal leaf key: %v", err)
	}

	b := &Bundle{
		CAFile:   writeFile(t, dir, "ca.pem", "CERTIFICATE", caDER),
		CertFile: writeFile(t, dir, "leaf.pem", "CERTIFICATE", leafDER),
		KeyFile:  writeFile(t, dir, "leaf-key.pem", "PRIVATE KEY", keyDER),
		Roots:    x509.NewCertPool(),
	}
	b.Roots.AddCert(caCert)
	if b.ServerTLS, err = tls.LoadX509KeyPair(b.CertFile, b.KeyFile); err != nil {
		t.Fatalf("tlstest: load leaf: %v", err)
	}
	return b
}

// CorruptPEM writes a file with PEM armour around bytes that are not a
// certificate and returns its path.
func CorruptPEM(t testing.TB) string {
	t.Helper()
	return writeFile(t, t.TempDir(), "corrupt.pem", "CERTIFICATE", []byte("not a certificate"))
}

func newKey(t testing.TB) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("tlstest: generate key: %v", err)
	}
	return key
}

func sign(t testing.TB, tmpl, parent *x509.Certificate, key, signer *ecdsa.PrivateKey) []byte {
	t.Helper()
	der, err := x509.CreateCertificate(rand.Reader, tmpl, parent, &key.PublicKey, signer)
	if err != nil {
		t.Fatalf("tlstest: sign %q: %v", tmpl.Subject.CommonName, err)
	}
	return der
}

func writeFile(t testing.TB, dir, name, blockType string, der []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("tlstest: write %s: %v", name, err)
	}
	return path
}
