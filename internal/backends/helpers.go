package backends

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"time"

	"bankhook/internal/backends/ddb"
	"bankhook/internal/backends/memory"
	"bankhook/internal/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	redisbackend "bankhook/internal/backends/redis"
)

const (
	DedupBackendEnvKey = "DEDUP_BACKEND"
	RateBackendEnvKey  = "RATE_BACKEND"
	BackendDDB         = "ddb"
	BackendRedis       = "redis"
	BackendMemory      = "memory"

	DDBEndpointKey = "DDB_ENDPOINT"
	DDBTableKey    = "DDB_TABLE"

	RedisHost  = "REDIS_HOST"
	RedisPort  = "REDIS_PORT"
	RedisUser  = "REDIS_USER"
	RedisPass  = "REDIS_PASS"
	RedisTLS   = "REDIS_SSL"
	RedisDBNum = "REDIS_DB_NUM"
)

// RateCounterFromEnv constructs the shared rate counter. Redis is the
// only genuinely shared backend; "memory" selects the in-process counter
// (degraded, single-instance). A nil counter makes the limiter use its
// own fallback, so an unreachable Redis at startup is logged, not fatal.
func RateCounterFromEnv() ports.RateCounter {
	switch os.Getenv(RateBackendEnvKey) {
	case BackendMemory:
		return memory.NewRateCounter()
	case BackendRedis, "":
		fallthrough
	default:
		cli, err := redisClientFromEnv()
		if err != nil {
			log.WithError(err).Warn("redis unavailable, rate limiting degrades to in-process counting")
			return nil
		}
		return redisbackend.NewRateCounter(cli)
	}
}

// DedupBackendFromEnv constructs the persistent processed-transaction
// index. Supported backends are "ddb" (default), "redis" and "memory"
// (tests/local only).
func DedupBackendFromEnv() (ports.DedupStore, error) {
	switch os.Getenv(DedupBackendEnvKey) {
	case BackendMemory:
		return memory.NewDedupStore(), nil
	case BackendRedis:
		cli, err := redisClientFromEnv()
		if err != nil {
			return nil, err
		}
		return redisbackend.NewDedupStore(cli), nil
	case BackendDDB, "":
		fallthrough
	default:
		cli, err := ddbClientFromEnv()
		if err != nil {
			return nil, err
		}
		table := getenv(DDBTableKey, "bankhook")
		return ddb.NewDedupStore(table, cli), nil
	}
}

// ArchiveFromEnv returns the batch archive when the DynamoDB backend is
// in play; other backends run without an archive.
func ArchiveFromEnv(retention time.Duration) ports.BatchArchive {
	switch os.Getenv(DedupBackendEnvKey) {
	case BackendMemory, BackendRedis:
		return nil
	default:
		cli, err := ddbClientFromEnv()
		if err != nil {
			log.WithError(err).Warn("batch archive disabled")
			return nil
		}
		table := getenv(DDBTableKey, "bankhook")
		return ddb.NewArchive(table, cli, retention)
	}
}

// ddbClientFromEnv creates a DynamoDB client from environment variables, if any.
func ddbClientFromEnv() (*dynamodb.Client, error) {
	var ddbEndpoint *string
	if de := os.Getenv(DDBEndpointKey); de != "" {
		ddbEndpoint = aws.String(de)
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, err
	}

	ddbClient := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if ddbEndpoint != nil {
			// Local testing endpoint only
			o.BaseEndpoint = ddbEndpoint
			o.Region = getenv("AWS_REGION", "us-east-1")
			credProvider := credentials.NewStaticCredentialsProvider(
				getenv("AWS_ACCESS_KEY_ID", "x"),
				getenv("AWS_SECRET_ACCESS_KEY", "x"),
				"",
			)
			o.Credentials = credProvider
		}
	})
	return ddbClient, nil
}

// redisClientFromEnv creates a Redis client from environment variables, if any.
func redisClientFromEnv() (*redis.Client, error) {
	host := getenv(RedisHost, "localhost")
	port := getenv(RedisPort, "6379")
	user := os.Getenv(RedisUser)
	pass := os.Getenv(RedisPass)
	tlsEnabled := parseBoolean(getenv(RedisTLS, "false"))
	dbNum, err := strconv.Atoi(getenv(RedisDBNum, "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid Redis DB number: %w", err)
	}

	var tlsConfig *tls.Config
	if tlsEnabled {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:      fmt.Sprintf("%s:%s", host, port),
		Username:  user,
		Password:  pass,
		DB:        dbNum,
		TLSConfig: tlsConfig,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
	if _, err = redisClient.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return redisClient, nil
}

// getenv retrieves the value of the environment variable named by the key.
func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func parseBoolean(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}
