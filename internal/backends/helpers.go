package backends

import (
	"budgie/internal/backends/ddb"
	"budgie/internal/backends/memory"
	"budgie/internal/ports"
	"budgie/internal/pub"
	"budgie/internal/types"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/redis/go-redis/v9"

	redisbackend "budgie/internal/backends/redis"
)

const (
	PublisherBackendEnvKey = "PUBLISHER_BACKEND"
	BackendNone            = "none"
	BackendMemory          = "memory"
	BackendSNS             = "sns"
	BackendDDB             = "ddb"
	BackendRedis           = "redis"

	SNSTopicArnKey  = "SNS_TOPIC_ARN"
	SNSEndpointKey  = "SNS_ENDPOINT"
	DDBEndpointKey  = "DDB_ENDPOINT"
	DDBTableKey     = "DDB_TABLE"
	DefaultDDBTable = "budgie_events"
	RedisChannel    = "REDIS_CHANNEL"
	EventLogSizeKey = "EVENT_LOG_SIZE"

	RedisHost  = "REDIS_HOST"
	RedisPort  = "REDIS_PORT"
	RedisUser  = "REDIS_USER"
	RedisPass  = "REDIS_PASS"
	RedisTLS   = "REDIS_SSL"
	RedisDBNum = "REDIS_DB_NUM"
)
const AmazonRootCA1PEM = `-----BEGIN CERTIFICATE-----
MIIDQTCCAimgAwIBAgITBmyfz5m/jAo54vB4ikPmljZbyjANBgkqhkiG9w0BAQsF
ADA5MQswCQYDVQQGEwJVUzEPMA0GA1UEChMGQW1hem9uMRkwFwYDVQQDExBBbWF6
b24gUm9vdCBDQSAxMB4XDTE1MDUyNjAwMDAwMFoXDTM4MDExNzAwMDAwMFowOTEL
MAkGA1UEBhMCVVMxDzANBgNVBAoTBkFtYXpvbjEZMBcGA1UEAxMQQW1hem9uIFJv
b3QgQ0EgMTCCASIwDQYJKoZIhvcNAQEBBQADggEPADCCAQoCggEBALJ4gHHKeNXj
ca9HgFB0fW7Y14h29Jlo91ghYPl0hAEvrAIthtOgQ3pOsqTQNroBvo3bSMgHFzZM
9O6II8c+6zf1tRn4SWiw3te5djgdYZ6k/oI2peVKVuRF4fn9tBb6dNqcmzU5L/qw
IFAGbHrQgLKm+a/sRxmPUDgH3KKHOVj4utWp+UhnMJbulHheb4mjUcAwhmahRWa6
VOujw5H5SNz/0egwLX0tdHA114gk957EWW67c4cX8jJGKLhD+rcdqsq08p8kDi1L
93FcXmn/6pUCyziKrlA4b9v7LWIbxcceVOF34GfID5yHI9Y/QCB/IIDEgEw+OyQm
jgSubJrIqg0CAwEAAaNCMEAwDwYDVR0TAQH/BAUwAwEB/zAOBgNVHQ8BAf8EBAMC
AYYwHQYDVR0OBBYEFIQYzIU07LwMlJQuCFmcx7IQTgoIMA0GCSqGSIb3DQEBCwUA
A4IBAQCY8jdaQZChGsV2USggNiMOruYou6r4lK5IpDB/G/wkjUu0yKGX9rbxenDI
U5PMCCjjmCXPI6T53iHTfIUJrU6adTrCC2qJeHZERxhlbI1Bjjt/msv0tadQ1wUs
N+gDS63pYaACbvXy8MWy7Vu33PqUXHeeE6V/Uq2V8viTO96LXFvKWlJbYK8U90vv
o/ufQJVtMVT8QtPHRh8jrdkPSHCa2XV4cdFyQzR1bldZwgJcJmApzyMZFo6IQ6XU
5MsI+yMRQ+hDKXJioaldXgjUkK642M4UwtBV8ob2xJNDd2ZhwLnoQdeXeGADbkpy
rqXRfboQnoZsG4q5WTP468SQvvG5
-----END CERTIFICATE-----`

// PublisherFromEnv constructs the operation event publisher based on environment variables.
// Supported backends are "memory", "sns", "redis" and "ddb". It checks the "PUBLISHER_BACKEND" env var
// and, depending on the backend, reads additional env vars. An empty value or "none" logs events only.
func PublisherFromEnv(ctx context.Context) (ports.Publisher, error) {
	backend := os.Getenv(PublisherBackendEnvKey)
	switch backend {
	case BackendNone, "":
		return pub.Log{}, nil

	case BackendMemory:
		size, _ := strconv.Atoi(os.Getenv(EventLogSizeKey))
		return memory.NewEventLog(size), nil

	case BackendSNS:
		arn := os.Getenv(SNSTopicArnKey)
		if arn == "" {
			return nil, types.Err(types.ErrInvalidBackend, nil, "%s is required for the sns publisher", SNSTopicArnKey)
		}
		snsClient, err := snsClientFromEnv(ctx)
		if err != nil {
			return nil, err
		}
		return pub.NewSNS(snsClient, arn), nil

	case BackendRedis:
		redisClient, err := redisClientFromEnv(ctx)
		if err != nil {
			return nil, err
		}
		return redisbackend.NewPublisher(redisClient, os.Getenv(RedisChannel)), nil

	case BackendDDB:
		ddbClient, err := ddbClientFromEnv(ctx)
		if err != nil {
			return nil, err
		}
		return ddb.NewJournal(getenv(DDBTableKey, DefaultDDBTable), ddbClient), nil

	default:
		return nil, types.Err(types.ErrInvalidBackend, nil, "unknown publisher backend %q", backend)
	}
}

// snsClientFromEnv creates an SNS client. SNS_ENDPOINT points it at a local mock.
func snsClientFromEnv(ctx context.Context) (*sns.Client, error) {
	var snsEndpoint *string
	se := os.Getenv(SNSEndpointKey)
	if se != "" {
		snsEndpoint = aws.String(se)
	}
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if snsEndpoint != nil {
			o.BaseEndpoint = snsEndpoint
			if o.Region == "" {
				o.Region = "us-east-1"
			}
			o.Credentials = credentials.NewStaticCredentialsProvider("test", "test", "")
		}
	}), nil
}

// ddbClientFromEnv creates a DynamoDB client from environment variables, if any.
func ddbClientFromEnv(ctx context.Context) (*dynamodb.Client, error) {
	var ddbEndpoint *string
	de := os.Getenv(DDBEndpointKey)
	if de != "" {
		ddbEndpoint = aws.String(de)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	ddbClient := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if ddbEndpoint != nil {
			// This is used for testing only locally
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
func redisClientFromEnv(ctx context.Context) (*redis.Client, error) {
	host := getenv(RedisHost, "localhost")
	port := getenv(RedisPort, "6379")
	user := os.Getenv(RedisUser)
	pass := os.Getenv(RedisPass)
	tlsEnabled := parseBoolean(getenv(RedisTLS, "false"))
	dbNumStr := getenv(RedisDBNum, "0")
	dbNum, err := strconv.Atoi(dbNumStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis DB number: %w", err)
	}

	var tlsConfig *tls.Config
	if tlsEnabled {
		// Create a CA certificate pool and add our CA certificate
		caCerts := x509.NewCertPool()
		if !caCerts.AppendCertsFromPEM([]byte(AmazonRootCA1PEM)) {
			return nil, fmt.Errorf("failed to retrieve CA certificate")
		}
		tlsConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			RootCAs:    caCerts,
		}
	}

	redisConfig := redis.Options{
		Addr:      fmt.Sprintf("%s:%s", host, port),
		Username:  user,
		Password:  pass,
		DB:        dbNum,
		TLSConfig: tlsConfig,
	}
	redisClient := redis.NewClient(&redisConfig)
	_, err = redisClient.Ping(ctx).Result()
	if err != nil {
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
