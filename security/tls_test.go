package security

import (
	"crypto/tls"
	"strings"
	"testing"

	"github.com/kbukum/flowengine/security/tlstest"
)

func TestTLSConfig_Build(t *testing.T) {
	certs := tlstest.New(t)
	badPEM := tlstest.CorruptPEM(t)

	tests := []struct {
		name    string
		cfg     *TLSConfig
		wantNil bool
		wantErr bool
		check   func(t *testing.T, c *tls.Config)
	}{
		{name: "nil", cfg: nil, wantNil: true},
		{name: "zero value", cfg: &TLSConfig{}, wantNil: true},
		{
			name: "skip verify",
			cfg:  &TLSConfig{SkipVerify: true},
			check: func(t *testing.T, c *tls.Config) {
				if !c.InsecureSkipVerify {
					t.Error("InsecureSkipVerify not set")
				}
				if c.MinVersion != tls.VersionTLS12 {
					t.Errorf("MinVersion = %d, want TLS 1.2", c.MinVersion)
				}
			},
		},
		{
			name: "server name and min version",
			cfg:  &TLSConfig{ServerName: "redis.internal", MinVersion: "1.3"},
			check: func(t *testing.T, c *tls.Config) {
				if c.ServerName != "redis.internal" {
					t.Errorf("ServerName = %q", c.ServerName)
				}
				if c.MinVersion != tls.VersionTLS13 {
					t.Errorf("MinVersion = %d, want TLS 1.3", c.MinVersion)
				}
			},
		},
		{
			name: "custom CA",
			cfg:  &TLSConfig{CAFile: certs.CAFile},
			check: func(t *testing.T, c *tls.Config) {
				if c.RootCAs == nil {
					t.Error("RootCAs not loaded")
				}
			},
		},
		{
			name: "mutual TLS",
			cfg:  &TLSConfig{CAFile: certs.CAFile, CertFile: certs.CertFile, KeyFile: certs.KeyFile},
			check: func(t *testing.T, c *tls.Config) {
				if len(c.Certificates) != 1 {
					t.Errorf("got %d client certificates, want 1", len(c.Certificates))
				}
			},
		},
		{name: "missing CA file", cfg: &TLSConfig{CAFile: "/nonexistent/ca.pem"}, wantErr: true},
		{name: "unparseable CA", cfg: &TLSConfig{CAFile: badPEM}, wantErr: true},
		{name: "cert without key", cfg: &TLSConfig{CertFile: certs.CertFile}, wantErr: true},
		{name: "unknown min version", cfg: &TLSConfig{SkipVerify: true, MinVersion: "1.0"}, wantErr: true},
		{name: "key pair mismatch", cfg: &TLSConfig{CertFile: certs.CAFile, KeyFile: certs.KeyFile}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.Build()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Build() error: %v", err)
			}
			if tt.wantNil {
				if got != nil {
					t.Fatal("expected nil config")
				}
				return
			}
			if got == nil {
				t.Fatal("expected a config")
			}
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}

func TestTLSConfig_ClientConfigAlwaysReturnsConfig(t *testing.T) {
	var nilCfg *TLSConfig
	for _, cfg := range []*TLSConfig{nilCfg, {}} {
		got, err := cfg.ClientConfig()
		if err != nil {
			t.Fatalf("ClientConfig() error: %v", err)
		}
		if got == nil || got.InsecureSkipVerify || got.MinVersion != tls.VersionTLS12 {
			t.Fatalf("unexpected default client config: %+v", got)
		}
	}
}

func TestTLSConfig_Validate(t *testing.T) {
	err := (&TLSConfig{KeyFile: "k.pem", MinVersion: "TLS13"}).Validate()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"cert_file and key_file", "min_version"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err, want)
		}
	}
}

func TestTLSConfig_IsEnabled(t *testing.T) {
	tests := []struct {
		cfg  *TLSConfig
		want bool
	}{
		{nil, false},
		{&TLSConfig{}, false},
		{&TLSConfig{MinVersion: "1.3"}, false},
		{&TLSConfig{SkipVerify: true}, true},
		{&TLSConfig{CAFile: "ca.pem"}, true},
		{&TLSConfig{CertFile: "c.pem", KeyFile: "k.pem"}, true},
		{&TLSConfig{ServerName: "kafka"}, true},
	}
	for _, tt := range tests {
		if got := tt.cfg.IsEnabled(); got != tt.want {
			t.Errorf("IsEnabled(%+v) = %v, want %v", tt.cfg, got, tt.want)
		}
	}
}

func TestTLSConfig_HandshakeWithGeneratedCA(t *testing.T) {
	certs := tlstest.New(t)
	cfg := &TLSConfig{CAFile: certs.CAFile, ServerName: "localhost"}
	clientCfg, err := cfg.Build()
	if err != nil {
		t.Fatal(err)
	}

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{certs.ServerTLS},
		MinVersion:   tls.VersionTLS12,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = ln.Close() }()

	done := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			done <- err
			return
		}
		defer func() { _ = conn.Close() }()
		done <- conn.(*tls.Conn).Handshake()
	}()

	conn, err := tls.Dial("tcp", ln.Addr().String(), clientCfg)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	_ = conn.Close()
	if err := <-done; err != nil {
		t.Fatalf("server handshake: %v", err)
	}
}
