package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/zgpcy/aws-cost-api/internal/config"
	"github.com/zgpcy/aws-cost-api/internal/logger"
	"github.com/zgpcy/aws-cost-api/internal/provider"
)

// Region is the only region serving the Cost Explorer API
const Region = "us-east-1"

// ErrMissingCredentials is returned by NewClient when either required credential is empty
var ErrMissingCredentials = errors.New("AWS credentials not found: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")

// costExplorerAPI is the subset of the Cost Explorer client used here
type costExplorerAPI interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

// identityAPI is the subset of the STS client used here
type identityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Client wraps the Cost Explorer client and implements provider.CostQuerier
type Client struct {
	ce      costExplorerAPI
	sts     identityAPI
	timeout time.Duration
	logger  *logger.Logger
}

// Verify that Client implements provider.CostQuerier
var _ provider.CostQuerier = (*Client)(nil)

// NewClient creates a Cost Explorer client from the static credentials in cfg.
// It fails with ErrMissingCredentials instead of deferring the problem to the
// first query.
func NewClient(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Client, error) {
	if !cfg.Credentials.Complete() {
		return nil, ErrMissingCredentials
	}

	creds := credentials.NewStaticCredentialsProvider(
		cfg.Credentials.AccessKeyID,
		cfg.Credentials.SecretAccessKey,
		cfg.Credentials.SessionToken,
	)

	// Retries are left to the caller: one request, one billing query
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(Region),
		awsconfig.WithCredentialsProvider(creds),
		awsconfig.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newClient(
		costexplorer.NewFromConfig(awsCfg),
		sts.NewFromConfig(awsCfg),
		time.Duration(cfg.APITimeout)*time.Second,
		log,
	), nil
}

func newClient(ce costExplorerAPI, id identityAPI, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		ce:      ce,
		sts:     id,
		timeout: timeout,
		logger:  log,
	}
}

// Name returns the provider type
func (c *Client) Name() provider.ProviderType {
	return provider.ProviderAWS
}

// VerifyIdentity checks the credentials against STS and returns the account ID
func (c *Client) VerifyIdentity(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", &provider.UpstreamError{Op: "GetCallerIdentity", Err: err}
	}
	return awssdk.ToString(out.Account), nil
}

// QueryCost runs a single GetCostAndUsage call. Pagination tokens are ignored.
func (c *Client) QueryCost(ctx context.Context, q provider.Query) (*provider.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("Querying AWS Cost Explorer",
		"start_date", q.Period.Start,
		"end_date", q.Period.End,
		"granularity", q.Granularity,
		"group_by", q.GroupBy,
		"filtered", q.Filter != nil)

	out, err := c.ce.GetCostAndUsage(ctx, buildInput(q))
	if err != nil {
		return nil, &provider.UpstreamError{Op: "GetCostAndUsage", Err: err}
	}

	result, err := parseOutput(out)
	if err != nil {
		return nil, &provider.UpstreamError{Op: "GetCostAndUsage", Err: err}
	}

	if out.NextPageToken != nil {
		c.logger.Warn("Cost Explorer response has further pages that are not fetched",
			"start_date", q.Period.Start,
			"end_date", q.Period.End)
	}

	return result, nil
}

// buildInput translates a provider query into a Cost Explorer request
func buildInput(q provider.Query) *costexplorer.GetCostAndUsageInput {
	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &types.DateInterval{
			Start: awssdk.String(q.Period.Start),
			End:   awssdk.String(q.Period.End),
		},
		Granularity: types.Granularity(q.Granularity),
		Metrics:     append([]string(nil), q.Metrics...),
	}

	for _, key := range q.GroupBy {
		input.GroupBy = append(input.GroupBy, types.GroupDefinition{
			Type: types.GroupDefinitionTypeDimension,
			Key:  awssdk.String(key),
		})
	}

	if q.Filter != nil {
		input.Filter = &types.Expression{
			Dimensions: &types.DimensionValues{
				Key:    types.Dimension(q.Filter.Key),
				Values: append([]string(nil), q.Filter.Values...),
			},
		}
	}

	return input
}

// parseOutput converts a Cost Explorer response, keeping bucket and group order
func parseOutput(out *costexplorer.GetCostAndUsageOutput) (*provider.Result, error) {
	if out == nil {
		return nil, errors.New("empty response from Cost Explorer")
	}

	result := &provider.Result{
		Buckets: make([]provider.Bucket, 0, len(out.ResultsByTime)),
	}

	for i, r := range out.ResultsByTime {
		if r.TimePeriod == nil {
			return nil, fmt.Errorf("result %d has no time period", i)
		}

		bucket := provider.Bucket{
			Start:     awssdk.ToString(r.TimePeriod.Start),
			End:       awssdk.ToString(r.TimePeriod.End),
			Estimated: r.Estimated,
			Total:     convertMetrics(r.Total),
		}

		if len(r.Groups) > 0 {
			bucket.Groups = make([]provider.Group, 0, len(r.Groups))
			for _, g := range r.Groups {
				bucket.Groups = append(bucket.Groups, provider.Group{
					Keys:    append([]string(nil), g.Keys...),
					Metrics: convertMetrics(g.Metrics),
				})
			}
		}

		result.Buckets = append(result.Buckets, bucket)
	}

	return result, nil
}

// convertMetrics copies metric values; nil amounts become empty strings
func convertMetrics(in map[string]types.MetricValue) map[string]provider.Amount {
	out := make(map[string]provider.Amount, len(in))
	for name, v := range in {
		out[name] = provider.Amount{
			Value: awssdk.ToString(v.Amount),
			Unit:  awssdk.ToString(v.Unit),
		}
	}
	return out
}
