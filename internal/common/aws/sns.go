// internal/common/aws/sns.go
package aws

import (
	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

func NewSNSClient(awsCfg awssdk.Config) *sns.Client {
	return sns.NewFromConfig(awsCfg)
}
