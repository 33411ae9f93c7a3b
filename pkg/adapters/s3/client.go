package s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ajitpratap0/oddcollector/pkg/errors"
)

// Opener builds the listing client for p.
type Opener func(ctx context.Context, p *Plugin) (awss3.ListObjectsV2APIClient, error)

// Open loads the AWS configuration of p. Static keys win over the default
// credential chain; an endpoint URL switches to path-style addressing for
// S3-compatible stores.
func Open(ctx context.Context, p *Plugin) (awss3.ListObjectsV2APIClient, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if p.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(p.AWSRegion))
	}
	if p.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(p.AWSAccessKeyID, p.AWSSecretAccessKey, p.AWSSessionToken)))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS config")
	}

	return awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		if p.EndpointURL != "" {
			o.BaseEndpoint = aws.String(p.EndpointURL)
			o.UsePathStyle = true
		}
	}), nil
}
