// internal/common/aws/s3.go
package aws

import (
	appconfig "divorce-wizard/internal/common/config"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewS3Client honours a custom endpoint so MinIO or LocalStack can stand in for S3.
func NewS3Client(awsCfg awssdk.Config, cfg appconfig.AWSConfig) *s3.Client {
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = awssdk.String(cfg.S3.Endpoint)
		}
		o.UsePathStyle = cfg.S3.UsePathStyle
	})
}
