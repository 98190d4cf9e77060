package certgen

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGenerateCA(t *testing.T) {
	certPEM, keyPEM, err := GenerateCA("Test CA")
	if err != nil {
		t.Fatalf("GenerateCA error: %v", err)
	}
	caCert, caKey, err := ParseCA(certPEM, keyPEM)
	if err != nil {
		t.Fatalf("ParseCA error: %v", err)
	}
	if !caCert.IsCA || !caCert.BasicConstraintsValid {
		t.Error("CA certificate should have IsCA and BasicConstraintsValid")
	}
	if caCert.KeyUsage&x509.KeyUsageCertSign == 0 {
		t.Errorf("CA KeyUsage = %v; want CertSign", caCert.KeyUsage)
	}
	if caCert.Subject.CommonName != "Test CA" {
		t.Errorf("CommonName = %q; want %q", caCert.Subject.CommonName, "Test CA")
	}
	if d := caCert.NotAfter.Sub(caCert.NotBefore); d < 9*365*24*time.Hour {
		t.Errorf("CA validity too short: %v", d)
	}
	if _, ok := caKey.(*ecdsa.PrivateKey); !ok {
		t.Errorf("key type = %T; want *ecdsa.PrivateKey", caKey)
	}
}

func TestGenerateServerCertificate(t *testing.T) {
	caPEM, caKeyPEM, err := GenerateCA("Test CA")
	if err != nil {
		t.Fatal(err)
	}
	caCert, caKey, err := ParseCA(caPEM, caKeyPEM)
	if err != nil {
		t.Fatal(err)
	}

	certPEM, keyPEM, err := GenerateServerCertificate([]string{"localhost", "127.0.0.1"}, caCert, caKey)
	if err != nil {
		t.Fatalf("GenerateServerCertificate error: %v", err)
	}
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		t.Fatalf("X509KeyPair error: %v", err)
	}
	leaf, err := x509.ParseCertificate(pair.Certificate[0])
	if err != nil {
		t.Fatal(err)
	}

	if leaf.Subject.CommonName != "localhost" {
		t.Errorf("CommonName = %q; want localhost", leaf.Subject.CommonName)
	}
	if len(leaf.DNSNames) != 1 || leaf.DNSNames[0] != "localhost" {
		t.Errorf("DNSNames = %v", leaf.DNSNames)
	}
	if len(leaf.IPAddresses) != 1 || !leaf.IPAddresses[0].Equal(net.ParseIP("127.0.0.1")) {
		t.Errorf("IPAddresses = %v", leaf.IPAddresses)
	}

	roots := x509.NewCertPool()
	roots.AddCert(caCert)
	for _, host := range []string{"localhost", "127.0.0.1"} {
		opts := x509.VerifyOptions{Roots: roots, DNSName: host, KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}}
		if _, err := leaf.Verify(opts); err != nil {
			t.Errorf("verify for %s: %v", host, err)
		}
	}
}

func TestGenerateServerCertificate_NoHosts(t *testing.T) {
	if _, _, err := GenerateServerCertificate(nil, nil, nil); err == nil {
		t.Fatal("expected error for empty hosts")
	}
}

func TestLoadCACredentials_Success(t *testing.T) {
	certPEM, keyPEM, err := GenerateCA("Test CA")
	if err != nil {
		t.Fatal(err)
	}
	caCert, caKey, err := LoadCACredentials(writeTemp(t, "ca.crt", certPEM), writeTemp(t, "ca.key", keyPEM))
	if err != nil {
		t.Fatalf("LoadCACredentials error: %v", err)
	}
	if caCert.Subject.CommonName != "Test CA" {
		t.Errorf("CommonName = %q", caCert.Subject.CommonName)
	}
	if _, ok := caKey.(*ecdsa.PrivateKey); !ok {
		t.Errorf("key type = %T; want *ecdsa.PrivateKey", caKey)
	}
}

func TestLoadCACredentials_MissingFiles(t *testing.T) {
	_, _, err := LoadCACredentials("/no/such/file.pem", "ignored")
	if err == nil || !strings.Contains(err.Error(), "read ca cert") {
		t.Errorf("got %v; want error about reading ca cert", err)
	}

	certPEM, _, err := GenerateCA("Test CA")
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = LoadCACredentials(writeTemp(t, "ca.crt", certPEM), "/no/such/key.pem")
	if err == nil || !strings.Contains(err.Error(), "read ca key") {
		t.Errorf("got %v; want error about reading ca key", err)
	}
}

func TestParseCA_Errors(t *testing.T) {
	caPEM, caKeyPEM, err := GenerateCA("Test CA")
	if err != nil {
		t.Fatal(err)
	}
	caCert, caKey, err := ParseCA(caPEM, caKeyPEM)
	if err != nil {
		t.Fatal(err)
	}
	leafPEM, leafKeyPEM, err := GenerateServerCertificate([]string{"localhost"}, caCert, caKey)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cert    []byte
		key     []byte
		wantSub string
	}{
		{"bad cert pem", []byte("nope"), caKeyPEM, "invalid CA cert PEM"},
		{"not a ca", leafPEM, leafKeyPEM, "not a CA"},
		{"bad key pem", caPEM, []byte("nope"), "invalid CA key PEM"},
		{"unknown key type", caPEM, pem.EncodeToMemory(&pem.Block{Type: "FOO", Bytes: []byte{1}}), "unsupported key type"},
		{"corrupt key", caPEM, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: []byte{1}}), "parse ca key"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParseCA(tc.cert, tc.key)
			if err == nil || !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("got %v; want error containing %q", err, tc.wantSub)
			}
		})
	}
}

func TestParseCA_RSAKey(t *testing.T) {
	caPEM, _, err := GenerateCA("Test CA")
	if err != nil {
		t.Fatal(err)
	}
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(rsaKey)})
	_, key, err := ParseCA(caPEM, keyPEM)
	if err != nil {
		t.Fatalf("ParseCA error: %v", err)
	}
	if _, ok := key.(*rsa.PrivateKey); !ok {
		t.Errorf("key type = %T; want *rsa.PrivateKey", key)
	}
}

func TestWritePair(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	if err := WritePair(dir, CACertFile, CAKeyFile, []byte("cert"), []byte("key")); err != nil {
		t.Fatalf("WritePair error: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, CAKeyFile))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("key mode = %v; want 0600", info.Mode().Perm())
	}
	data, err := os.ReadFile(filepath.Join(dir, CACertFile))
	if err != nil || string(data) != "cert" {
		t.Errorf("cert = %q, %v", data, err)
	}
}
