package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/backkem/triaka/pkg/aka"
	"github.com/pion/logging"
)

func TestParseFlagsDefaults(t *testing.T) {
	tests := []struct {
		role   aka.Role
		id     string
		listen string
	}{
		{aka.RoleServer, aka.DefaultServerID, ":3874"},
		{aka.RoleGateway, aka.DefaultGatewayID, ":4542"},
		{aka.RoleClient, aka.DefaultClientID, ""},
	}

	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			opts, err := ParseFlags(tt.role, nil, &bytes.Buffer{})
			if err != nil {
				t.Fatalf("ParseFlags failed: %v", err)
			}
			if opts.ID != tt.id {
				t.Errorf("ID = %q, want %q", opts.ID, tt.id)
			}
			if opts.Listen != tt.listen {
				t.Errorf("Listen = %q, want %q", opts.Listen, tt.listen)
			}
			if opts.Logins != 1 {
				t.Errorf("Logins = %d, want 1", opts.Logins)
			}
		})
	}
}

func TestParseFlagsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.json")
	data := []byte(`{
	// lab gateway
	"id": "gw-lab",
	"upstream": "10.0.0.2:3874",
	"timeout": "5s",
	"advertise": true
}
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	opts, err := ParseFlags(aka.RoleGateway, []string{"-c", path, "--server", "10.0.0.3:3874", "-l", "debug"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.ID != "gw-lab" {
		t.Errorf("ID = %q, want %q", opts.ID, "gw-lab")
	}
	if opts.Upstream != "10.0.0.3:3874" {
		t.Errorf("Upstream = %q, want flag value", opts.Upstream)
	}
	if !opts.Advertise {
		t.Error("Advertise = false, want true from file")
	}
	if opts.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", opts.LogLevel, "debug")
	}
	if d, _ := opts.TimeoutDuration(); d != 5*time.Second {
		t.Errorf("TimeoutDuration() = %v, want 5s", d)
	}
}

func TestParseFlagsLongValueForms(t *testing.T) {
	forms := map[string][]string{
		"separate": {"--gateway", "10.0.0.9:4542", "--credentials", "reader.json", "-d", "--timeout", "2s"},
		"joined":   {"--gateway=10.0.0.9:4542", "--credentials=reader.json", "-d", "--timeout=2s"},
	}
	for name, args := range forms {
		t.Run(name, func(t *testing.T) {
			opts, err := ParseFlags(aka.RoleClient, args, &bytes.Buffer{})
			if err != nil {
				t.Fatalf("ParseFlags failed: %v", err)
			}
			if opts.Upstream != "10.0.0.9:4542" || opts.Credentials != "reader.json" || !opts.Discover || opts.Timeout != "2s" {
				t.Errorf("opts = %+v", opts)
			}
		})
	}

	// A boolean long flag never takes the next argument.
	if _, err := ParseFlags(aka.RoleGateway, []string{"--advertise", "extra"}, &bytes.Buffer{}); err == nil {
		t.Error("ParseFlags() accepted a positional after --advertise")
	}
	// A trailing long flag without a value is still an error.
	if _, err := ParseFlags(aka.RoleGateway, []string{"--server"}, &bytes.Buffer{}); err == nil {
		t.Error("ParseFlags() accepted --server without a value")
	}
}

func TestParseFlagsErrors(t *testing.T) {
	tests := []struct {
		name string
		role aka.Role
		args []string
	}{
		{"unknown flag", aka.RoleServer, []string{"--server", "x:1"}},
		{"bad timeout", aka.RoleClient, []string{"-t", "soon"}},
		{"bad log level", aka.RoleClient, []string{"-l", "loud"}},
		{"zero logins", aka.RoleClient, []string{"-n", "0"}},
		{"positional", aka.RoleClient, []string{"extra"}},
		{"missing config", aka.RoleServer, []string{"-c", "/nonexistent/aka.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFlags(tt.role, tt.args, &bytes.Buffer{}); err == nil {
				t.Error("ParseFlags() error = nil, want error")
			}
		})
	}
}

func TestParseFlagsHelp(t *testing.T) {
	var out bytes.Buffer
	_, err := ParseFlags(aka.RoleClient, []string{"--help"}, &out)
	if !IsHelp(err) {
		t.Fatalf("ParseFlags() error = %v, want help", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("aka-client")) {
		t.Errorf("usage = %q, want command name", out.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name string
		want logging.LogLevel
	}{
		{"", logging.LogLevelInfo},
		{"off", logging.LogLevelDisabled},
		{"ERROR", logging.LogLevelError},
		{"warn", logging.LogLevelWarn},
		{"debug", logging.LogLevelDebug},
		{"trace", logging.LogLevelTrace},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.name)
		if err != nil || got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, %v; want %v", tt.name, got, err, tt.want)
		}
	}
}

func TestLoadCredentialsIdentityMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	opts := DefaultOptions(aka.RoleClient)
	opts.Credentials = path

	_, save, err := opts.LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials failed: %v", err)
	}
	save(&aka.Credentials{ID: []byte("someone-else"), Nonce: []byte("1"), Verifier: []byte("2")})

	creds, _, err := opts.LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials failed: %v", err)
	}
	if creds != nil {
		t.Errorf("credentials = %+v, want nil for another identity", creds)
	}

	save(&aka.Credentials{ID: []byte(opts.ID), Nonce: []byte("1"), Verifier: []byte("2")})
	if creds, _, _ = opts.LoadCredentials(); creds == nil {
		t.Error("credentials = nil, want saved registration")
	}
}
