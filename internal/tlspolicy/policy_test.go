package tlspolicy

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestBypassAllShortCircuits(t *testing.T) {
	// Bogus CA path must not be touched when bypass is on.
	p, err := Resolve(RawFlags{
		Verify:    true,
		BypassAll: true,
		CAPath:    "/nonexistent/ca.pem",
	}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Verify {
		t.Error("bypass did not force Verify off")
	}
	if len(p.CACert) != 0 {
		t.Error("bypass loaded a CA certificate")
	}

	cfg, err := p.TLSConfig()
	if err != nil {
		t.Fatalf("TLSConfig: %v", err)
	}
	if !cfg.InsecureSkipVerify {
		t.Error("bypass policy did not disable verification")
	}
}

func TestSelfSignedSkipsPinning(t *testing.T) {
	p, err := Resolve(RawFlags{
		Verify:          true,
		AllowSelfSigned: true,
		CAPath:          "/nonexistent/ca.pem",
	}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(p.CACert) != 0 {
		t.Error("self-signed mode loaded a CA certificate")
	}
}

func TestCALoadFailure(t *testing.T) {
	_, err := Resolve(RawFlags{Verify: true, CAPath: "/nonexistent/ca.pem"}, nil)
	var cle *CertLoadError
	if !errors.As(err, &cle) {
		t.Fatalf("expected CertLoadError, got %v", err)
	}
	if cle.Path != "/nonexistent/ca.pem" {
		t.Errorf("error path = %q", cle.Path)
	}
}

func TestCAInlineContentWinsOverPath(t *testing.T) {
	p, err := Resolve(RawFlags{
		Verify:    true,
		CAPath:    "/nonexistent/ca.pem",
		CAContent: "inline-pem",
	}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if string(p.CACert) != "inline-pem" {
		t.Errorf("CACert = %q, want inline content", p.CACert)
	}
}

func TestClientCertPairRequired(t *testing.T) {
	tests := []struct {
		name string
		raw  RawFlags
	}{
		{"cert without key", RawFlags{Verify: true, ClientCertContent: "cert"}},
		{"key without cert", RawFlags{Verify: true, ClientKeyContent: "key"}},
		{"cert path without key", RawFlags{Verify: true, ClientCertPath: "/tmp/c.pem"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.raw, nil)
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
		})
	}
}

func TestValidateStatsPaths(t *testing.T) {
	dir := t.TempDir()
	caPath := filepath.Join(dir, "ca.pem")
	if err := os.WriteFile(caPath, testCAPEM(t), 0600); err != nil {
		t.Fatal(err)
	}

	p, err := Resolve(RawFlags{Verify: true, CAPath: caPath}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate on existing file: %v", err)
	}

	// Directory in place of a file must fail.
	p2 := &Policy{caPath: dir}
	var cle *CertLoadError
	if err := p2.Validate(); !errors.As(err, &cle) {
		t.Errorf("expected CertLoadError for directory, got %v", err)
	}
}

func TestTLSConfigWithPinnedCA(t *testing.T) {
	p := &Policy{Verify: true, CACert: testCAPEM(t)}
	cfg, err := p.TLSConfig()
	if err != nil {
		t.Fatalf("TLSConfig: %v", err)
	}
	if cfg.RootCAs == nil {
		t.Error("pinned CA did not produce a root pool")
	}
	if cfg.InsecureSkipVerify {
		t.Error("pinned CA config disables verification")
	}
}

func TestTLSConfigRejectsGarbagePEM(t *testing.T) {
	p := &Policy{Verify: true, CACert: []byte("not pem at all")}
	if _, err := p.TLSConfig(); err == nil {
		t.Error("expected error for invalid CA PEM")
	}
}

// testCAPEM generates a throwaway self-signed certificate.
func testCAPEM(t *testing.T) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test-ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}
