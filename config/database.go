package config

import (
	"strings"
	"time"
)

// DefaultJobKeyPrefix namespaces tracked job records in Redis.
const DefaultJobKeyPrefix = "nmma:job:"

// JobTrackingConfig controls the optional Redis-backed job status store.
type JobTrackingConfig struct {
	Enabled   bool          `env:"JOB_TRACKING_ENABLED"    envDefault:"false"`
	TTL       time.Duration `env:"JOB_TRACKING_TTL"        envDefault:"24h"`
	KeyPrefix string        `env:"JOB_TRACKING_KEY_PREFIX" envDefault:"nmma:job:"`
}

// Sanitize applies guardrails to job tracking configuration values.
func (c *JobTrackingConfig) Sanitize() {
	if c.TTL < time.Minute {
		c.TTL = time.Minute
	}
	if c.KeyPrefix = strings.TrimSpace(c.KeyPrefix); c.KeyPrefix == "" {
		c.KeyPrefix = DefaultJobKeyPrefix
	}
}

// RedisMode selects the Redis topology.
type RedisMode string

// Supported Redis topologies.
const (
	RedisDirect   RedisMode = "direct"
	RedisSentinel RedisMode = "sentinel"
	RedisCluster  RedisMode = "cluster"
)

// RedisConfig describes how the job tracker reaches Redis.
// URI is a redis:// or rediss:// URL, or a bare host:port. Nodes lists the
// sentinels in sentinel mode and the seed nodes in cluster mode; a cluster
// with no nodes falls back to the URI's address.
type RedisConfig struct {
	Mode             RedisMode     `env:"MODE"              envDefault:"direct"`
	URI              string        `env:"URI"               envDefault:"localhost:6379"`
	Password         string        `env:"PASSWORD"`
	Nodes            []string      `env:"NODES"`
	MasterName       string        `env:"MASTER_NAME"       envDefault:"mymaster"`
	SentinelPassword string        `env:"SENTINEL_PASSWORD"`
	DialTimeout      time.Duration `env:"DIAL_TIMEOUT"      envDefault:"5s"`
}

// Sanitize lowercases the mode, falling back to direct, and drops blank nodes.
func (c *RedisConfig) Sanitize() {
	c.Mode = RedisMode(strings.ToLower(strings.TrimSpace(string(c.Mode))))
	switch c.Mode {
	case RedisDirect, RedisSentinel, RedisCluster:
	default:
		c.Mode = RedisDirect
	}
	c.URI = strings.TrimSpace(c.URI)

	nodes := c.Nodes[:0]
	for _, n := range c.Nodes {
		if n = strings.TrimSpace(n); n != "" {
			nodes = append(nodes, n)
		}
	}
	c.Nodes = nodes

	if c.MasterName = strings.TrimSpace(c.MasterName); c.MasterName == "" {
		c.MasterName = "mymaster"
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
}
