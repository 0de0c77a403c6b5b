package provider

import (
	"context"
	"errors"

	"github.com/zgpcy/aws-cost-api/internal/period"
)

// ProviderType represents a cloud billing provider
type ProviderType string

// Supported cloud providers
const (
	ProviderAWS ProviderType = "aws"
)

// Granularity is the time bucketing resolution of a cost query
type Granularity string

// Supported granularities
const (
	GranularityDaily   Granularity = "DAILY"
	GranularityMonthly Granularity = "MONTHLY"
)

// Cost metrics and dimensions understood by the billing service
const (
	MetricUnblendedCost = "UnblendedCost"
	DimensionService    = "SERVICE"
)

// Errors describing billing responses that do not have the expected shape
var (
	ErrNoResults     = errors.New("billing response contained no time periods")
	ErrNoGroups      = errors.New("billing response contained no groups")
	ErrMissingMetric = errors.New("billing response is missing metric")
	ErrMissingKeys   = errors.New("billing response group has no keys")
)

// CostQuerier is the interface that billing clients must implement
type CostQuerier interface {
	// QueryCost performs a single cost and usage query
	QueryCost(ctx context.Context, q Query) (*Result, error)

	// Name returns the provider name
	Name() ProviderType
}

// DimensionFilter restricts a query to the given values of one dimension
type DimensionFilter struct {
	Key    string
	Values []string
}

// Query describes one cost and usage request
type Query struct {
	Period      period.Range
	Granularity Granularity
	Metrics     []string
	GroupBy     []string // dimension keys, empty for no grouping
	Filter      *DimensionFilter
}

// Amount is a metric value exactly as the billing service reported it
type Amount struct {
	Value string // decimal string, e.g. "123.4567"
	Unit  string // currency code, e.g. "USD"
}

// Group is one grouped entry within a time bucket
type Group struct {
	Keys    []string
	Metrics map[string]Amount
}

// Bucket is the result for one time period of a query
type Bucket struct {
	Start     string // YYYY-MM-DD
	End       string // YYYY-MM-DD, exclusive
	Estimated bool
	Total     map[string]Amount
	Groups    []Group
}

// Result is the response to a Query. Buckets and groups keep the order
// in which the billing service returned them.
type Result struct {
	Buckets []Bucket
}

// UpstreamError is any failure reported by, or caused by, the billing service.
// Error returns the underlying message unchanged.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return "upstream billing error"
	}
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Upstream wraps err as an UpstreamError unless it already is one
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return err
	}
	return &UpstreamError{Op: op, Err: err}
}

// IsUpstream reports whether err is an UpstreamError
func IsUpstream(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream)
}
