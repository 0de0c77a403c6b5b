// Package provider defines the billing provider abstraction layer.
//
// The report layer never talks to a cloud SDK directly. It builds a Query,
// hands it to a CostQuerier and reshapes the provider-neutral Result:
//
//	type CostQuerier interface {
//		QueryCost(ctx context.Context, q Query) (*Result, error)
//		Name() ProviderType
//	}
//
// A Result mirrors the shape of a Cost Explorer GetCostAndUsage response:
// a sequence of time buckets, each with per-metric totals and, when the
// query grouped by a dimension, a sequence of groups. Amounts are kept as
// the decimal strings the provider returned so that rounding happens
// exactly once, in the report layer.
//
// Every failure that originates upstream (transport, authentication,
// malformed or incomplete responses) is represented by *UpstreamError.
// Callers distinguish it with errors.As or IsUpstream and must not rely
// on finer-grained causes.
package provider
