package report

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/zgpcy/aws-cost-api/internal/clock"
	"github.com/zgpcy/aws-cost-api/internal/logger"
	"github.com/zgpcy/aws-cost-api/internal/metrics"
	"github.com/zgpcy/aws-cost-api/internal/provider"
)

// mockQuerier is a mock implementation of provider.CostQuerier for testing
type mockQuerier struct {
	mu      sync.Mutex
	result  *provider.Result
	err     error
	queries []provider.Query
}

func (m *mockQuerier) QueryCost(ctx context.Context, q provider.Query) (*provider.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	return m.result, m.err
}

func (m *mockQuerier) Name() provider.ProviderType {
	return provider.ProviderAWS
}

func (m *mockQuerier) lastQuery(t *testing.T) provider.Query {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queries) == 0 {
		t.Fatal("no query was issued")
	}
	return m.queries[len(m.queries)-1]
}

var testNow = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, q *mockQuerier) *Service {
	t.Helper()
	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("metrics.New() error = %v", err)
	}
	return NewService(q, clock.FixedClock{Time: testNow}, logger.Discard(), m)
}

func usd(value string) map[string]provider.Amount {
	return map[string]provider.Amount{
		provider.MetricUnblendedCost: {Value: value, Unit: "USD"},
	}
}

func monthBucket(total string, groups ...provider.Group) provider.Bucket {
	return provider.Bucket{Start: "2024-03-01", End: "2024-04-01", Total: usd(total), Groups: groups}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return string(data)
}

func TestTotalCost(t *testing.T) {
	q := &mockQuerier{result: &provider.Result{Buckets: []provider.Bucket{monthBucket("123.456")}}}
	svc := newTestService(t, q)

	got, err := svc.TotalCost(context.Background())
	if err != nil {
		t.Fatalf("TotalCost() error = %v", err)
	}

	want := `{"time_period":{"start":"2024-03-01","end":"2024-04-01"},"total_cost":{"amount":123.46,"unit":"USD"}}`
	if s := mustJSON(t, got); s != want {
		t.Errorf("JSON:\n got %s\nwant %s", s, want)
	}

	query := q.lastQuery(t)
	if query.Granularity != provider.GranularityMonthly {
		t.Errorf("Granularity: got %v, want MONTHLY", query.Granularity)
	}
	if query.Period.Start != "2024-03-01" || query.Period.End != "2024-04-01" {
		t.Errorf("Period: got %+v", query.Period)
	}
	if len(query.Metrics) != 1 || query.Metrics[0] != provider.MetricUnblendedCost {
		t.Errorf("Metrics: got %v", query.Metrics)
	}
	if len(query.GroupBy) != 0 || query.Filter != nil {
		t.Errorf("total cost must not group or filter, got %+v", query)
	}
}

func TestTotalCost_WholeAmount(t *testing.T) {
	q := &mockQuerier{result: &provider.Result{Buckets: []provider.Bucket{monthBucket("100")}}}
	svc := newTestService(t, q)

	got, err := svc.TotalCost(context.Background())
	if err != nil {
		t.Fatalf("TotalCost() error = %v", err)
	}
	if got.TotalCost.Amount != 100.0 || got.TotalCost.Unit != "USD" {
		t.Errorf("TotalCost: got %+v, want 100 USD", got.TotalCost)
	}
}

func TestCostByService_PreservesOrder(t *testing.T) {
	q := &mockQuerier{result: &provider.Result{Buckets: []provider.Bucket{
		monthBucket("0",
			provider.Group{Keys: []string{"S3"}, Metrics: usd("10.00")},
			provider.Group{Keys: []string{"EC2"}, Metrics: usd("20.00")},
		),
	}}}
	svc := newTestService(t, q)

	got, err := svc.CostByService(context.Background())
	if err != nil {
		t.Fatalf("CostByService() error = %v", err)
	}

	want := `{"time_period":{"start":"2024-03-01","end":"2024-04-01"},"services":[` +
		`{"service_name":"S3","cost":{"amount":10,"unit":"USD"}},` +
		`{"service_name":"EC2","cost":{"amount":20,"unit":"USD"}}]}`
	if s := mustJSON(t, got); s != want {
		t.Errorf("JSON:\n got %s\nwant %s", s, want)
	}

	query := q.lastQuery(t)
	if len(query.GroupBy) != 1 || query.GroupBy[0] != provider.DimensionService {
		t.Errorf("GroupBy: got %v, want [SERVICE]", query.GroupBy)
	}
	if query.Granularity != provider.GranularityMonthly {
		t.Errorf("Granularity: got %v, want MONTHLY", query.Granularity)
	}
}

func TestCostByService_NoGroups(t *testing.T) {
	q := &mockQuerier{result: &provider.Result{Buckets: []provider.Bucket{monthBucket("0")}}}
	svc := newTestService(t, q)

	_, err := svc.CostByService(context.Background())
	if !errors.Is(err, provider.ErrNoGroups) {
		t.Fatalf("error = %v, want ErrNoGroups", err)
	}
	if !provider.IsUpstream(err) {
		t.Errorf("error should be an upstream error, got %T", err)
	}
}

func TestCostByService_GroupWithoutKeys(t *testing.T) {
	q := &mockQuerier{result: &provider.Result{Buckets: []provider.Bucket{
		monthBucket("0", provider.Group{Metrics: usd("1.00")}),
	}}}
	svc := newTestService(t, q)

	_, err := svc.CostByService(context.Background())
	if !errors.Is(err, provider.ErrMissingKeys) || !provider.IsUpstream(err) {
		t.Fatalf("error = %v, want upstream ErrMissingKeys", err)
	}
}

func TestDailyCostTrend(t *testing.T) {
	q := &mockQuerier{result: &provider.Result{Buckets: []provider.Bucket{
		{Start: "2024-03-01", End: "2024-03-02", Total: usd("1.00")},
		{Start: "2024-03-02", End: "2024-03-03", Total: usd("2.00")},
		{Start: "2024-03-03", End: "2024-03-04", Total: usd("3.005")},
	}}}
	svc := newTestService(t, q)

	got, err := svc.DailyCostTrend(context.Background())
	if err != nil {
		t.Fatalf("DailyCostTrend() error = %v", err)
	}

	want := []DailyCost{
		{Date: "2024-03-01", Cost: Money{Amount: 1.0, Unit: "USD"}},
		{Date: "2024-03-02", Cost: Money{Amount: 2.0, Unit: "USD"}},
		{Date: "2024-03-03", Cost: Money{Amount: 3.01, Unit: "USD"}},
	}
	if len(got.DailyCosts) != len(want) {
		t.Fatalf("DailyCosts: got %d entries, want %d", len(got.DailyCosts), len(want))
	}
	for i := range want {
		if got.DailyCosts[i] != want[i] {
			t.Errorf("DailyCosts[%d]: got %+v, want %+v", i, got.DailyCosts[i], want[i])
		}
	}
	if got.TimePeriod.Start != "2024-03-01" || got.TimePeriod.End != "2024-04-01" {
		t.Errorf("TimePeriod: got %+v", got.TimePeriod)
	}

	query := q.lastQuery(t)
	if query.Granularity != provider.GranularityDaily {
		t.Errorf("Granularity: got %v, want DAILY", query.Granularity)
	}
}

func TestEC2Cost(t *testing.T) {
	q := &mockQuerier{result: &provider.Result{Buckets: []provider.Bucket{monthBucket("42.424")}}}
	svc := newTestService(t, q)

	got, err := svc.EC2Cost(context.Background())
	if err != nil {
		t.Fatalf("EC2Cost() error = %v", err)
	}

	want := `{"service":"Amazon EC2 Instances","time_period":{"start":"2024-03-01","end":"2024-04-01"},"total_cost":{"amount":42.42,"unit":"USD"}}`
	if s := mustJSON(t, got); s != want {
		t.Errorf("JSON:\n got %s\nwant %s", s, want)
	}

	query := q.lastQuery(t)
	if query.Filter == nil {
		t.Fatal("EC2 query must be filtered")
	}
	if query.Filter.Key != provider.DimensionService {
		t.Errorf("Filter key: got %v, want SERVICE", query.Filter.Key)
	}
	if len(query.Filter.Values) != 1 || query.Filter.Values[0] != "Amazon Elastic Compute Cloud - Compute" {
		t.Errorf("Filter values: got %v", query.Filter.Values)
	}
	if len(query.GroupBy) != 0 {
		t.Errorf("EC2 query must not group, got %v", query.GroupBy)
	}
}

// reportFuncs runs every report against the same service
func reportFuncs(svc *Service) map[string]func(context.Context) (any, error) {
	return map[string]func(context.Context) (any, error){
		NameTotalCost:      func(ctx context.Context) (any, error) { return svc.TotalCost(ctx) },
		NameCostByService:  func(ctx context.Context) (any, error) { return svc.CostByService(ctx) },
		NameDailyCostTrend: func(ctx context.Context) (any, error) { return svc.DailyCostTrend(ctx) },
		NameEC2Cost:        func(ctx context.Context) (any, error) { return svc.EC2Cost(ctx) },
	}
}

func TestReports_EmptyResultFails(t *testing.T) {
	results := map[string]*provider.Result{
		"empty buckets": {Buckets: []provider.Bucket{}},
		"nil result":    nil,
	}

	for resultName, result := range results {
		svc := newTestService(t, &mockQuerier{result: result})
		for name, run := range reportFuncs(svc) {
			t.Run(resultName+"/"+name, func(t *testing.T) {
				got, err := run(context.Background())
				if err == nil {
					t.Fatalf("expected failure, got report %+v", got)
				}
				if !errors.Is(err, provider.ErrNoResults) {
					t.Errorf("error = %v, want ErrNoResults", err)
				}
				if !provider.IsUpstream(err) {
					t.Errorf("error should be an upstream error, got %T", err)
				}
			})
		}
	}
}

func TestReports_UpstreamErrorPropagates(t *testing.T) {
	cause := &provider.UpstreamError{Op: "GetCostAndUsage", Err: errors.New("ExpiredTokenException: token expired")}
	svc := newTestService(t, &mockQuerier{err: cause})

	for name, run := range reportFuncs(svc) {
		t.Run(name, func(t *testing.T) {
			_, err := run(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != "ExpiredTokenException: token expired" {
				t.Errorf("message: got %q, want raw upstream message", err.Error())
			}
			if !provider.IsUpstream(err) {
				t.Errorf("error should be an upstream error, got %T", err)
			}
		})
	}
}

func TestReports_PlainQuerierErrorBecomesUpstream(t *testing.T) {
	svc := newTestService(t, &mockQuerier{err: context.DeadlineExceeded})

	for name, run := range reportFuncs(svc) {
		t.Run(name, func(t *testing.T) {
			_, err := run(context.Background())
			if !provider.IsUpstream(err) || !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("error = %v (%T), want upstream wrapping DeadlineExceeded", err, err)
			}
		})
	}
}

func TestReports_MissingMetricFails(t *testing.T) {
	bucket := provider.Bucket{
		Start:  "2024-03-01",
		End:    "2024-04-01",
		Total:  map[string]provider.Amount{"BlendedCost": {Value: "1", Unit: "USD"}},
		Groups: []provider.Group{{Keys: []string{"S3"}, Metrics: map[string]provider.Amount{}}},
	}
	svc := newTestService(t, &mockQuerier{result: &provider.Result{Buckets: []provider.Bucket{bucket}}})

	for name, run := range reportFuncs(svc) {
		t.Run(name, func(t *testing.T) {
			_, err := run(context.Background())
			if !errors.Is(err, provider.ErrMissingMetric) || !provider.IsUpstream(err) {
				t.Errorf("error = %v, want upstream ErrMissingMetric", err)
			}
		})
	}
}

func TestReports_InvalidAmountFails(t *testing.T) {
	bucket := monthBucket("not-a-number", provider.Group{Keys: []string{"S3"}, Metrics: usd("")})
	svc := newTestService(t, &mockQuerier{result: &provider.Result{Buckets: []provider.Bucket{bucket}}})

	for name, run := range reportFuncs(svc) {
		t.Run(name, func(t *testing.T) {
			if _, err := run(context.Background()); !provider.IsUpstream(err) {
				t.Errorf("error = %v, want upstream error", err)
			}
		})
	}
}

func TestReports_Idempotent(t *testing.T) {
	result := &provider.Result{Buckets: []provider.Bucket{
		monthBucket("55.555",
			provider.Group{Keys: []string{"S3"}, Metrics: usd("10.004")},
			provider.Group{Keys: []string{"EC2"}, Metrics: usd("45.551")},
		),
	}}
	svc := newTestService(t, &mockQuerier{result: result})

	for name, run := range reportFuncs(svc) {
		t.Run(name, func(t *testing.T) {
			first, err := run(context.Background())
			if err != nil {
				t.Fatalf("first call error = %v", err)
			}
			second, err := run(context.Background())
			if err != nil {
				t.Fatalf("second call error = %v", err)
			}
			if a, b := mustJSON(t, first), mustJSON(t, second); a != b {
				t.Errorf("responses differ:\n%s\n%s", a, b)
			}
		})
	}
}

func TestCurrentPeriod_UsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*60*60)
	// 2024-03-31 20:00 in UTC-8 is already April 1st in UTC
	now := time.Date(2024, time.March, 31, 20, 0, 0, 0, loc)

	q := &mockQuerier{result: &provider.Result{Buckets: []provider.Bucket{monthBucket("1")}}}
	svc := NewService(q, clock.FixedClock{Time: now}, logger.Discard(), nil)

	got, err := svc.TotalCost(context.Background())
	if err != nil {
		t.Fatalf("TotalCost() error = %v", err)
	}
	if got.TimePeriod.Start != "2024-04-01" || got.TimePeriod.End != "2024-05-01" {
		t.Errorf("TimePeriod: got %+v, want April 2024", got.TimePeriod)
	}
}

func TestReports_OneQueryPerCall(t *testing.T) {
	q := &mockQuerier{result: &provider.Result{Buckets: []provider.Bucket{
		monthBucket("1", provider.Group{Keys: []string{"S3"}, Metrics: usd("1")}),
	}}}
	svc := newTestService(t, q)

	for _, run := range reportFuncs(svc) {
		if _, err := run(context.Background()); err != nil {
			t.Fatalf("report error = %v", err)
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queries) != 4 {
		t.Errorf("queries: got %d, want 4", len(q.queries))
	}
}
