// Package containercfg loads the container's own runtime knobs — settings
// for the container's operation itself, distinct from the config source
// loader used for bean definitions — from the process environment and an
// optional .env file, following the familiar Load/env/envBool shape.
package containercfg

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the operational knobs of a container instance.
type Config struct {
	// AllowCircularReferences enables early exposure of not-yet-populated
	// singletons so that circular property/constructor graphs can resolve.
	// Disabling it turns every circular singleton graph into a
	// CircularCreation error.
	AllowCircularReferences bool

	// PooledTargetSourceTimeout is a checkout timeout for pooled target
	// sources (IOC_POOL_TIMEOUT). No package in this module reads it:
	// aop.NewPooledTargetSource takes its timeout as an argument.
	PooledTargetSourceTimeout time.Duration

	// PooledTargetSourceSize is a pool capacity for pooled target sources
	// (IOC_POOL_SIZE). No package in this module reads it:
	// aop.NewPooledTargetSource takes its size as an argument.
	PooledTargetSourceSize int

	// AdvisorCacheSize is a size for the AdvisorChain's per-(method,class)
	// interceptor-list cache (IOC_ADVISOR_CACHE_SIZE). No package in this
	// module reads it: aop.CreateProxy takes its cache size as an argument.
	AdvisorCacheSize int64

	// LogLevel is read from IOC_LOG_LEVEL. No package in this module reads
	// it; every package logs at whatever level its call sites choose.
	LogLevel string
}

// Load reads .env (if present, non-fatal when absent) and environment
// variables into a Config, applying the same defaults a fresh container
// would need to behave out of the box.
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	_ = godotenv.Load(files...)

	return &Config{
		AllowCircularReferences:   envBool("IOC_ALLOW_CIRCULAR_REFERENCES", true),
		PooledTargetSourceTimeout: envDuration("IOC_POOL_TIMEOUT", 5*time.Second),
		PooledTargetSourceSize:    envInt("IOC_POOL_SIZE", 8),
		AdvisorCacheSize:          int64(envInt("IOC_ADVISOR_CACHE_SIZE", 4096)),
		LogLevel:                  env("IOC_LOG_LEVEL", "INFO"),
	}
}

func env(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
