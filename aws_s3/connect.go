// Package aws_s3 contains a graphkv.Store persisting each storage key as an object in an S3 bucket.
package aws_s3

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sharedcode/graphkv"
)

type Config struct {
	// "http://127.0.0.1:9000"
	HostEndpointUrl string
	// "us-east-1"
	Region   string
	Username string
	Password string
}

// ConfigFromOptions converts the s3 section of graphkv.Options.
func ConfigFromOptions(c *graphkv.S3Config) Config {
	if c == nil {
		return Config{Region: "us-east-1"}
	}
	cfg := Config{
		HostEndpointUrl: c.HostEndpointURL,
		Region:          c.Region,
		Username:        c.Username,
		Password:        c.Password,
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	return cfg
}

// Connect to an S3 (or S3 compatible, e.g. minio) endpoint.
func Connect(config Config) *s3.Client {
	client := s3.NewFromConfig(aws.Config{Region: config.Region}, func(o *s3.Options) {
		if config.HostEndpointUrl != "" {
			o.BaseEndpoint = aws.String(config.HostEndpointUrl)
			// minio and friends serve buckets by path, not by virtual host.
			o.UsePathStyle = true
		}
		if config.Username != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(config.Username, config.Password, "")
		}
	})
	return client
}
