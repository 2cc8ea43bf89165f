// Package config loads runtime settings from DQC_* environment variables
// and the TOML fleet file describing the QPU roster.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	DatabaseURL string // DQC_DATABASE_URL (optional, empty = no run ledger)
	NATSURL     string // DQC_NATS_URL (optional, empty = in-process link)
	FleetFile   string // DQC_FLEET_FILE (default "fleet.toml")

	// Export settings
	ExportS3Bucket   string // DQC_EXPORT_S3_BUCKET (enables S3 when set)
	ExportS3Endpoint string // DQC_EXPORT_S3_ENDPOINT (custom endpoint for MinIO)
	ExportS3Region   string // DQC_EXPORT_S3_REGION (default "us-east-1")
	ExportS3Key      string // DQC_EXPORT_S3_KEY (default "dqc/schedules.jsonl")
}

func Load() (*Config, error) {
	return &Config{
		DatabaseURL:      os.Getenv("DQC_DATABASE_URL"),
		NATSURL:          os.Getenv("DQC_NATS_URL"),
		FleetFile:        envOrDefault("DQC_FLEET_FILE", "fleet.toml"),
		ExportS3Bucket:   os.Getenv("DQC_EXPORT_S3_BUCKET"),
		ExportS3Endpoint: os.Getenv("DQC_EXPORT_S3_ENDPOINT"),
		ExportS3Region:   envOrDefault("DQC_EXPORT_S3_REGION", "us-east-1"),
		ExportS3Key:      envOrDefault("DQC_EXPORT_S3_KEY", "dqc/schedules.jsonl"),
	}, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Fleet describes the QPU roster and link characteristics for one
// deployment. It is the unit the compiler partitions against and the
// coordinator executes against.
type Fleet struct {
	// Scheme is the default remote-gate scheme token.
	Scheme string      `toml:"scheme"`
	Nodes  []FleetNode `toml:"nodes"`
	Link   LinkConfig  `toml:"link"`
	Retry  RetryConfig `toml:"retry"`
}

type FleetNode struct {
	Name string `toml:"name"`
	// CommQubits is the node's comm-qubit slot count (default 1).
	CommQubits int `toml:"comm_qubits"`
}

// LinkConfig models the physical layer.
type LinkConfig struct {
	ClassicalLatency    duration `toml:"classical_latency"`
	EntanglementLatency duration `toml:"entanglement_latency"`
	FailureProb         float64  `toml:"failure_prob"`
	Seed                int64    `toml:"seed"`
}

// RetryConfig is the policy applied after a failed entanglement attempt.
type RetryConfig struct {
	MaxAttempts int      `toml:"max_attempts"`
	Backoff     duration `toml:"backoff"`
}

// duration decodes TOML strings like "5ms".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// LoadFleet reads and validates a fleet file.
func LoadFleet(path string) (*Fleet, error) {
	var fleet Fleet
	if _, err := toml.DecodeFile(path, &fleet); err != nil {
		return nil, fmt.Errorf("reading fleet file %s: %w", path, err)
	}
	if err := fleet.Validate(); err != nil {
		return nil, fmt.Errorf("fleet file %s: %w", path, err)
	}
	return &fleet, nil
}

// Validate checks roster shape and fills node defaults.
func (f *Fleet) Validate() error {
	if len(f.Nodes) == 0 {
		return fmt.Errorf("no nodes declared")
	}
	seen := map[string]bool{}
	for i := range f.Nodes {
		n := &f.Nodes[i]
		if n.Name == "" {
			return fmt.Errorf("node %d has no name", i)
		}
		if seen[n.Name] {
			return fmt.Errorf("duplicate node name %q", n.Name)
		}
		seen[n.Name] = true
		if n.CommQubits == 0 {
			n.CommQubits = 1
		}
		if n.CommQubits < 0 {
			return fmt.Errorf("node %q: negative comm_qubits", n.Name)
		}
	}
	if f.Link.FailureProb < 0 || f.Link.FailureProb > 1 {
		return fmt.Errorf("link failure_prob %v outside [0,1]", f.Link.FailureProb)
	}
	if f.Retry.MaxAttempts < 0 {
		return fmt.Errorf("negative retry max_attempts")
	}
	return nil
}
