package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skyportal/nmma-analysis/config"
)

// RedisConnectConfig contains configuration for the Redis connection.
type RedisConnectConfig struct {
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

// ConnectRedis opens the client for cfg.RedisConfig.Mode and pings it.
//
//nolint:ireturn // returning redis.UniversalClient lets us pick direct, sentinel, or cluster clients at runtime.
func ConnectRedis(ctx context.Context, cfg RedisConnectConfig) (redis.UniversalClient, error) {
	rc := cfg.RedisConfig
	client, target, err := newRedisClient(rc)
	if err != nil {
		return nil, err
	}

	timeout := rc.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis %s: %w", target, pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.InfoContext(ctx, "redis connected", "mode", modeOf(rc), "target", target)
	}
	return client, nil
}

func modeOf(cfg config.RedisConfig) config.RedisMode {
	if cfg.Mode == "" {
		return config.RedisDirect
	}
	return cfg.Mode
}

// newRedisClient returns the client and a credential-free description of
// what it points at.
//
//nolint:ireturn // see ConnectRedis.
func newRedisClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	switch modeOf(cfg) {
	case config.RedisCluster:
		return clusterClient(cfg)
	case config.RedisSentinel:
		return sentinelClient(cfg)
	case config.RedisDirect:
		return directClient(cfg)
	default:
		return nil, "", fmt.Errorf("unknown redis mode %q", cfg.Mode)
	}
}

//nolint:ireturn // see ConnectRedis.
func directClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	opts, err := parseRedisURI(cfg.URI, cfg.Password)
	if err != nil {
		return nil, "", err
	}
	opts.DialTimeout = cfg.DialTimeout
	return redis.NewClient(opts), opts.Addr, nil
}

//nolint:ireturn // see ConnectRedis.
func sentinelClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	sentinels := cleanAddrs(cfg.Nodes)
	if len(sentinels) == 0 {
		return nil, "", errors.New("redis sentinel mode requires REDIS_NODES")
	}
	client := redis.NewFailoverClient(&redis.FailoverOptions{
		MasterName:       cfg.MasterName,
		SentinelAddrs:    sentinels,
		Password:         cfg.Password,
		SentinelPassword: cfg.SentinelPassword,
		DialTimeout:      cfg.DialTimeout,
	})
	return client, "sentinel:" + cfg.MasterName, nil
}

//nolint:ireturn // see ConnectRedis.
func clusterClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	opts := &redis.ClusterOptions{
		Addrs:       cleanAddrs(cfg.Nodes),
		Password:    cfg.Password,
		DialTimeout: cfg.DialTimeout,
	}
	if len(opts.Addrs) == 0 {
		seed, err := parseRedisURI(cfg.URI, cfg.Password)
		if err != nil {
			return nil, "", fmt.Errorf("redis cluster seed: %w", err)
		}
		opts.Addrs = []string{seed.Addr}
		opts.Username = seed.Username
		opts.Password = seed.Password
		opts.TLSConfig = seed.TLSConfig
	}
	return redis.NewClusterClient(opts), "cluster:" + strings.Join(opts.Addrs, ","), nil
}

// parseRedisURI accepts redis:// and rediss:// URLs or a bare host:port.
// password applies when the URL carries none.
func parseRedisURI(uri, password string) (*redis.Options, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, errors.New("redis URI is empty")
	}
	if !strings.HasPrefix(uri, "redis://") && !strings.HasPrefix(uri, "rediss://") {
		return &redis.Options{Addr: uri, Password: password}, nil
	}
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.Password == "" {
		opts.Password = password
	}
	return opts, nil
}

func cleanAddrs(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, addr := range raw {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
