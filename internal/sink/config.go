package sink

import (
	"strings"
	"time"
)

// Config holds the configuration for publishing messages to Kafka
type Config struct {
	BootstrapServers  string
	Topic             string
	AuthMechanism     string // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Username          string
	Password          string
	TLSEnabled        bool // Enable TLS without client certificates
	TLSCertFile       string
	TLSKeyFile        string
	TLSCAFile         string
	Timeout           time.Duration
	Partitions        int32 // -1 uses the broker default
	ReplicationFactor int16 // -1 uses the broker default
}

// Seeds splits the comma-separated bootstrap servers.
func (c Config) Seeds() []string {
	var seeds []string
	for _, seed := range strings.Split(c.BootstrapServers, ",") {
		if seed = strings.TrimSpace(seed); seed != "" {
			seeds = append(seeds, seed)
		}
	}
	return seeds
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}
