package report

import (
	"context"
	"fmt"
	"time"

	"github.com/zgpcy/aws-cost-api/internal/clock"
	"github.com/zgpcy/aws-cost-api/internal/logger"
	"github.com/zgpcy/aws-cost-api/internal/metrics"
	"github.com/zgpcy/aws-cost-api/internal/period"
	"github.com/zgpcy/aws-cost-api/internal/provider"
)

// Report names, used in logs, metrics and upstream errors
const (
	NameTotalCost      = "total-cost"
	NameCostByService  = "cost-by-service"
	NameDailyCostTrend = "daily-cost-trend"
	NameEC2Cost        = "ec2-cost"
)

// The EC2 report filters on this SERVICE dimension value and labels the result
const (
	EC2ServiceDimension = "Amazon Elastic Compute Cloud - Compute"
	EC2ServiceLabel     = "Amazon EC2 Instances"
)

// ServiceCost is the cost of one service
type ServiceCost struct {
	ServiceName string `json:"service_name"`
	Cost        Money  `json:"cost"`
}

// DailyCost is the cost of one day
type DailyCost struct {
	Date string `json:"date"`
	Cost Money  `json:"cost"`
}

// TotalCostReport is the month-to-date total
type TotalCostReport struct {
	TimePeriod period.Range `json:"time_period"`
	TotalCost  Money        `json:"total_cost"`
}

// ServiceCostReport is the month-to-date cost per service
type ServiceCostReport struct {
	TimePeriod period.Range  `json:"time_period"`
	Services   []ServiceCost `json:"services"`
}

// DailyCostReport is the per-day cost of the month so far
type DailyCostReport struct {
	TimePeriod period.Range `json:"time_period"`
	DailyCosts []DailyCost  `json:"daily_costs"`
}

// FilteredCostReport is the month-to-date total of a single service
type FilteredCostReport struct {
	Service    string       `json:"service"`
	TimePeriod period.Range `json:"time_period"`
	TotalCost  Money        `json:"total_cost"`
}

// Service builds cost reports for the current calendar month.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	querier provider.CostQuerier
	clock   clock.Clock
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewService creates a report service backed by querier
func NewService(querier provider.CostQuerier, clk clock.Clock, log *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		querier: querier,
		clock:   clk,
		logger:  log,
		metrics: m,
	}
}

// TotalCost returns the unblended cost of the current month
func (s *Service) TotalCost(ctx context.Context) (*TotalCostReport, error) {
	tp := s.currentPeriod()

	result, err := s.query(ctx, NameTotalCost, monthlyQuery(tp))
	if err != nil {
		return nil, err
	}

	total, err := bucketTotal(result)
	if err != nil {
		return nil, s.fail(NameTotalCost, err)
	}

	return &TotalCostReport{TimePeriod: tp, TotalCost: total}, nil
}

// CostByService returns the current month's cost per service, in the order
// the billing service listed them
func (s *Service) CostByService(ctx context.Context) (*ServiceCostReport, error) {
	tp := s.currentPeriod()

	q := monthlyQuery(tp)
	q.GroupBy = []string{provider.DimensionService}

	result, err := s.query(ctx, NameCostByService, q)
	if err != nil {
		return nil, err
	}

	bucket, err := firstBucket(result)
	if err != nil {
		return nil, s.fail(NameCostByService, err)
	}
	if len(bucket.Groups) == 0 {
		return nil, s.fail(NameCostByService, provider.ErrNoGroups)
	}

	services := make([]ServiceCost, 0, len(bucket.Groups))
	for _, g := range bucket.Groups {
		if len(g.Keys) == 0 {
			return nil, s.fail(NameCostByService, provider.ErrMissingKeys)
		}
		cost, err := metricMoney(g.Metrics)
		if err != nil {
			return nil, s.fail(NameCostByService, fmt.Errorf("service %s: %w", g.Keys[0], err))
		}
		services = append(services, ServiceCost{ServiceName: g.Keys[0], Cost: cost})
	}

	return &ServiceCostReport{TimePeriod: tp, Services: services}, nil
}

// DailyCostTrend returns one entry per day bucket of the current month
func (s *Service) DailyCostTrend(ctx context.Context) (*DailyCostReport, error) {
	tp := s.currentPeriod()

	q := monthlyQuery(tp)
	q.Granularity = provider.GranularityDaily

	result, err := s.query(ctx, NameDailyCostTrend, q)
	if err != nil {
		return nil, err
	}

	if _, err := firstBucket(result); err != nil {
		return nil, s.fail(NameDailyCostTrend, err)
	}

	days := make([]DailyCost, 0, len(result.Buckets))
	for _, b := range result.Buckets {
		cost, err := metricMoney(b.Total)
		if err != nil {
			return nil, s.fail(NameDailyCostTrend, fmt.Errorf("day %s: %w", b.Start, err))
		}
		days = append(days, DailyCost{Date: b.Start, Cost: cost})
	}

	return &DailyCostReport{TimePeriod: tp, DailyCosts: days}, nil
}

// EC2Cost returns the current month's cost of EC2 compute
func (s *Service) EC2Cost(ctx context.Context) (*FilteredCostReport, error) {
	tp := s.currentPeriod()

	q := monthlyQuery(tp)
	q.Filter = &provider.DimensionFilter{
		Key:    provider.DimensionService,
		Values: []string{EC2ServiceDimension},
	}

	result, err := s.query(ctx, NameEC2Cost, q)
	if err != nil {
		return nil, err
	}

	total, err := bucketTotal(result)
	if err != nil {
		return nil, s.fail(NameEC2Cost, err)
	}

	return &FilteredCostReport{Service: EC2ServiceLabel, TimePeriod: tp, TotalCost: total}, nil
}

// currentPeriod is computed in UTC, the timezone Cost Explorer days are in
func (s *Service) currentPeriod() period.Range {
	return period.CurrentMonth(s.clock.Now().UTC())
}

func (s *Service) query(ctx context.Context, name string, q provider.Query) (*provider.Result, error) {
	start := time.Now()
	result, err := s.querier.QueryCost(ctx, q)
	s.metrics.ObserveUpstream(name, err, time.Since(start))

	if err != nil {
		return nil, s.fail(name, err)
	}
	return result, nil
}

// fail logs err and returns it as an upstream error
func (s *Service) fail(name string, err error) error {
	s.logger.Error("Cost report failed",
		"report", name,
		"provider", s.querier.Name(),
		"error", err)
	return provider.Upstream(name, err)
}

func monthlyQuery(tp period.Range) provider.Query {
	return provider.Query{
		Period:      tp,
		Granularity: provider.GranularityMonthly,
		Metrics:     []string{provider.MetricUnblendedCost},
	}
}

func firstBucket(result *provider.Result) (provider.Bucket, error) {
	if result == nil || len(result.Buckets) == 0 {
		return provider.Bucket{}, provider.ErrNoResults
	}
	return result.Buckets[0], nil
}

func bucketTotal(result *provider.Result) (Money, error) {
	bucket, err := firstBucket(result)
	if err != nil {
		return Money{}, err
	}
	return metricMoney(bucket.Total)
}

func metricMoney(values map[string]provider.Amount) (Money, error) {
	amount, ok := values[provider.MetricUnblendedCost]
	if !ok {
		return Money{}, fmt.Errorf("%w %s", provider.ErrMissingMetric, provider.MetricUnblendedCost)
	}
	return NewMoney(amount)
}
