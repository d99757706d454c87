package sns

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/tuition-notify/internal/config"
	"github.com/tuition-notify/internal/infrastructure/awscfg"
)

// NewClient creates an SNS client in cfg.SNSRegion, honouring the LocalStack endpoint override.
func NewClient(cfg *config.Config) (*sns.Client, error) {
	awsCfg, err := awscfg.Load(context.Background(), cfg, cfg.SNSRegion)
	if err != nil {
		return nil, err
	}
	clientOpts := []func(*sns.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return sns.NewFromConfig(awsCfg, clientOpts...), nil
}
