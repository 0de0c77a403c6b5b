// Package aws provides the AWS Cost Explorer billing client.
//
// Client implements provider.CostQuerier on top of the Cost Explorer
// GetCostAndUsage operation. It handles:
//   - Authentication with static credentials taken from the environment
//   - The fixed us-east-1 endpoint (Cost Explorer is a global service)
//   - Translating provider queries into Cost Explorer requests
//   - Converting responses into provider results, preserving order
//   - A per-call timeout; SDK retries are disabled
//
// NewClient returns ErrMissingCredentials when AWS_ACCESS_KEY_ID or
// AWS_SECRET_ACCESS_KEY is empty, so the caller can refuse to start.
// Every failure of a query is returned as *provider.UpstreamError.
//
// Example usage:
//
//	client, err := aws.NewClient(ctx, cfg, log)
//	if errors.Is(err, aws.ErrMissingCredentials) {
//		log.Error("Billing client could not be initialized", "error", err)
//		os.Exit(1)
//	}
//
//	result, err := client.QueryCost(ctx, provider.Query{
//		Period:      period.CurrentMonth(time.Now()),
//		Granularity: provider.GranularityMonthly,
//		Metrics:     []string{provider.MetricUnblendedCost},
//	})
package aws
