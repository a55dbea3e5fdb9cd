// Package params provides access to the SSM parameter store, the source of
// pipeline configuration.
package params

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/gel-ops/exifstrip/pkg/errors"
)

// Client provides SSM parameter store operations.
type Client struct {
	ssmClient *ssm.Client
}

// NewClient creates a new SSM client using the default credential chain.
func NewClient(ctx context.Context, region string) (*Client, error) {
	slog.Info("ssm_client_init", "region", region)

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
	)
	if err != nil {
		slog.Error("aws_config_load_failed", "error", err)
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	return &Client{ssmClient: ssm.NewFromConfig(cfg)}, nil
}

// GetParameters fetches the named parameters in a single call, with
// decryption enabled. The returned map only contains parameters that exist;
// the call fails as a whole on any transport error.
func (c *Client) GetParameters(ctx context.Context, names []string) (map[string]string, error) {
	slog.Info("ssm_get_parameters_start", "count", len(names))

	out, err := c.ssmClient.GetParameters(ctx, &ssm.GetParametersInput{
		Names:          names,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		slog.Error("ssm_get_parameters_failed", "error", err)
		return nil, errors.WithKind(errors.KindTransport, errors.Wrap(err, "failed to fetch parameters"))
	}

	values := make(map[string]string, len(out.Parameters))
	for _, p := range out.Parameters {
		if p.Name != nil && p.Value != nil {
			values[*p.Name] = *p.Value
		}
	}

	slog.Info("ssm_get_parameters_complete", "requested", len(names), "returned", len(values))
	return values, nil
}
