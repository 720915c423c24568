//go:build process

// This file runs the aka-server, aka-gateway and aka-client commands as
// separate processes on their default ports.
//
// Build with: go test -tags=process ./test/integration/...
package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/backkem/triaka/test/integration/framework"
)

func cmdPath(name string) string {
	return filepath.Join("..", "..", "cmd", name)
}

func TestProcess_Login(t *testing.T) {
	logFile := os.Getenv("PROCESS_LOG_FILE")
	dir := t.TempDir()

	server := framework.NewRoleProcess(framework.RoleProcessConfig{
		PkgPath: cmdPath("aka-server"),
		Args:    []string{"--peers", filepath.Join(dir, "gateways.json")},
		LogFile: logFile,
	})
	if err := server.Start(5 * time.Second); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	defer server.Stop()

	gateway := framework.NewRoleProcess(framework.RoleProcessConfig{
		PkgPath: cmdPath("aka-gateway"),
		Args:    []string{"--credentials=" + filepath.Join(dir, "gateway.json")},
		LogFile: logFile,
	})
	if err := gateway.Start(5 * time.Second); err != nil {
		t.Fatalf("Failed to start gateway: %v", err)
	}
	defer gateway.Stop()

	if !gateway.IsRunning() {
		t.Fatalf("gateway exited:\n%s", gateway.Output())
	}

	client := framework.NewRoleProcess(framework.RoleProcessConfig{
		PkgPath: cmdPath("aka-client"),
		Args:    []string{"-n", "3"},
		LogFile: logFile,
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	out, err := client.Run(ctx)
	if err != nil {
		t.Fatalf("client failed: %v\n%s", err, out)
	}
	for _, want := range []string{"Timings :", " - register: ", " - login: ", "OKAY !!! Logged In !"} {
		if !strings.Contains(out, want) {
			t.Errorf("client output missing %q:\n%s", want, out)
		}
	}
}
