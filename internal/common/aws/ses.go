// internal/common/aws/ses.go
package aws

import (
	"context"
	"fmt"

	appconfig "divorce-wizard/internal/common/config"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
)

// LoadConfig resolves credentials from the default chain for the configured region.
func LoadConfig(ctx context.Context, cfg appconfig.AWSConfig) (awssdk.Config, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return awssdk.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	return awsCfg, nil
}

// NewSESClient returns the SDK client; callers depend on their own narrow interface.
func NewSESClient(awsCfg awssdk.Config) *ses.Client {
	return ses.NewFromConfig(awsCfg)
}
