package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DQC_DATABASE_URL", "")
	t.Setenv("DQC_FLEET_FILE", "")
	t.Setenv("DQC_EXPORT_S3_REGION", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.FleetFile != "fleet.toml" {
		t.Errorf("FleetFile = %q, want fleet.toml", cfg.FleetFile)
	}
	if cfg.ExportS3Region != "us-east-1" {
		t.Errorf("ExportS3Region = %q, want us-east-1", cfg.ExportS3Region)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DQC_DATABASE_URL", "postgres://localhost/dqc")
	t.Setenv("DQC_NATS_URL", "nats://localhost:4222")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DatabaseURL != "postgres://localhost/dqc" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.NATSURL != "nats://localhost:4222" {
		t.Errorf("NATSURL = %q", cfg.NATSURL)
	}
}

func writeFleet(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleet.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing fleet file: %v", err)
	}
	return path
}

func TestLoadFleet(t *testing.T) {
	path := writeFleet(t, `
scheme = "cat"

[[nodes]]
name = "node_0"
comm_qubits = 2

[[nodes]]
name = "node_1"

[link]
classical_latency = "1ms"
entanglement_latency = "5ms"
failure_prob = 0.1
seed = 42

[retry]
max_attempts = 4
backoff = "2ms"
`)
	fleet, err := LoadFleet(path)
	if err != nil {
		t.Fatalf("LoadFleet() error: %v", err)
	}
	if fleet.Scheme != "cat" {
		t.Errorf("Scheme = %q, want cat", fleet.Scheme)
	}
	if len(fleet.Nodes) != 2 {
		t.Fatalf("nodes = %d, want 2", len(fleet.Nodes))
	}
	if fleet.Nodes[0].CommQubits != 2 {
		t.Errorf("node_0 comm_qubits = %d, want 2", fleet.Nodes[0].CommQubits)
	}
	// Unset comm_qubits defaults to 1.
	if fleet.Nodes[1].CommQubits != 1 {
		t.Errorf("node_1 comm_qubits = %d, want default 1", fleet.Nodes[1].CommQubits)
	}
	if fleet.Link.EntanglementLatency.Duration != 5*time.Millisecond {
		t.Errorf("entanglement_latency = %v, want 5ms", fleet.Link.EntanglementLatency.Duration)
	}
	if fleet.Retry.MaxAttempts != 4 || fleet.Retry.Backoff.Duration != 2*time.Millisecond {
		t.Errorf("retry = %+v", fleet.Retry)
	}
}

func TestLoadFleet_Invalid(t *testing.T) {
	for _, tc := range []struct {
		name string
		body string
		want string
	}{
		{"empty roster", `scheme = "cat"`, "no nodes declared"},
		{"unnamed node", "[[nodes]]\ncomm_qubits = 1\n", "has no name"},
		{"duplicate", "[[nodes]]\nname = \"a\"\n[[nodes]]\nname = \"a\"\n", "duplicate node name"},
		{"bad probability", "[[nodes]]\nname = \"a\"\n[link]\nfailure_prob = 1.5\n", "outside [0,1]"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFleet(writeFleet(t, tc.body))
			if err == nil {
				t.Fatal("LoadFleet() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want substring %q", err, tc.want)
			}
		})
	}
}
