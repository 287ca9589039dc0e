package dynamo

import (
	"context"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/viper"

	"github.com/lukeryannetnz/quartz-dynamo/errors"
)

// Config holds DynamoDB connection settings.
type Config struct {
	Region      string
	Endpoint    string
	AccessKey   string
	SecretKey   string
	TablePrefix string
}

// LoadConfig reads connection settings from the environment with sensible
// local-development defaults. The default endpoint targets DynamoDB Local.
//
// Environment variables: QUARTZ_DYNAMO_REGION, QUARTZ_DYNAMO_ENDPOINT,
// QUARTZ_DYNAMO_ACCESS_KEY, QUARTZ_DYNAMO_SECRET_KEY,
// QUARTZ_DYNAMO_TABLE_PREFIX.
func LoadConfig() Config {
	v := viper.New()
	v.SetEnvPrefix("QUARTZ_DYNAMO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("region", "us-east-1")
	v.SetDefault("endpoint", "http://localhost:8000")
	v.SetDefault("access_key", "local")
	v.SetDefault("secret_key", "local")
	v.SetDefault("table_prefix", "")

	return Config{
		Region:      v.GetString("region"),
		Endpoint:    v.GetString("endpoint"),
		AccessKey:   v.GetString("access_key"),
		SecretKey:   v.GetString("secret_key"),
		TablePrefix: v.GetString("table_prefix"),
	}
}

// NewClient creates a DynamoDB client for the given configuration.
func NewClient(ctx context.Context, cfg Config) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS configuration")
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
		}
	}), nil
}
