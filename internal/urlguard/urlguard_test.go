package urlguard

import (
	"errors"
	"net"
	"testing"
)

func TestValidate(t *testing.T) {
	guard := New(false)

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{
			name:    "valid https URL",
			url:     "https://go.dev/doc/effective_go",
			wantErr: false,
		},
		{
			name:    "valid http URL",
			url:     "http://example.com",
			wantErr: false,
		},
		{
			name:    "ftp scheme rejected",
			url:     "ftp://example.com/file",
			wantErr: true,
		},
		{
			name:    "file scheme rejected",
			url:     "file:///etc/passwd",
			wantErr: true,
		},
		{
			name:    "localhost rejected",
			url:     "https://localhost:8080",
			wantErr: true,
		},
		{
			name:    "127.0.0.1 rejected",
			url:     "https://127.0.0.1/path",
			wantErr: true,
		},
		{
			name:    ".local domain rejected",
			url:     "https://myserver.local/api",
			wantErr: true,
		},
		{
			name:    ".internal domain rejected",
			url:     "https://app.internal/api",
			wantErr: true,
		},
		{
			name:    "private IP 192.168.x.x rejected",
			url:     "https://192.168.1.1/path",
			wantErr: true,
		},
		{
			name:    "private IP 10.x.x.x rejected",
			url:     "https://10.0.0.1/path",
			wantErr: true,
		},
		{
			name:    "private IP 172.16.x.x rejected",
			url:     "https://172.16.0.1/path",
			wantErr: true,
		},
		{
			name:    "missing host rejected",
			url:     "https://",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.Validate(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestValidate_AllowPrivateHosts(t *testing.T) {
	guard := New(true)

	urls := []string{
		"http://localhost:8080",
		"http://192.168.1.1/page",
		"http://target.internal/docs",
	}

	for _, u := range urls {
		if err := guard.Validate(u); err != nil {
			t.Errorf("Validate(%q) error = %v, want nil with private hosts allowed", u, err)
		}
	}

	// Scheme checks still apply even with private hosts allowed.
	if err := guard.Validate("file:///etc/passwd"); err == nil {
		t.Error("Validate(file://) error = nil, want scheme error")
	}
}

func TestValidate_PrivateTargetError(t *testing.T) {
	guard := New(false)

	err := guard.Validate("https://10.0.0.1/path")
	if !errors.Is(err, ErrPrivateTarget) {
		t.Errorf("Validate() error = %v, want ErrPrivateTarget", err)
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip       string
		expected bool
	}{
		{"127.0.0.1", true},
		{"10.0.0.1", true},
		{"172.16.0.1", true},
		{"192.168.1.1", true},
		{"169.254.1.1", true},
		{"100.64.0.1", true},
		{"::1", true},
		{"fc00::1", true},
		{"fe80::1", true},
		{"::ffff:192.168.1.1", true},
		{"8.8.8.8", false},
		{"1.1.1.1", false},
		{"2606:4700:4700::1111", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			ip := net.ParseIP(tt.ip)
			if ip == nil {
				t.Fatalf("failed to parse IP %q", tt.ip)
			}
			if got := IsPrivateIP(ip); got != tt.expected {
				t.Errorf("IsPrivateIP(%q) = %v, want %v", tt.ip, got, tt.expected)
			}
		})
	}
}
