package traveltime

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"googlemaps.github.io/maps"

	"github.com/samirrijal/mobilebook/internal/core/domain"
)

var (
	london = domain.Coordinate{Latitude: 51.5074, Longitude: -0.1278}
	paris  = domain.Coordinate{Latitude: 48.8566, Longitude: 2.3522}
)

type mockEstimator struct {
	mu         sync.Mutex
	calls      int
	estimateFn func(ctx context.Context, o, d domain.Coordinate) (time.Duration, error)
}

func (m *mockEstimator) Estimate(ctx context.Context, o, d domain.Coordinate) (time.Duration, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.estimateFn(ctx, o, d)
}

type mockMatrix struct {
	resp *maps.DistanceMatrixResponse
	err  error
	last *maps.DistanceMatrixRequest
}

func (m *mockMatrix) DistanceMatrix(ctx context.Context, r *maps.DistanceMatrixRequest) (*maps.DistanceMatrixResponse, error) {
	m.last = r
	return m.resp, m.err
}

func matrix(el maps.DistanceMatrixElement) *maps.DistanceMatrixResponse {
	return &maps.DistanceMatrixResponse{Rows: []maps.DistanceMatrixElementsRow{{Elements: []*maps.DistanceMatrixElement{&el}}}}
}

type memCache struct {
	data map[string][]byte
	ttl  map[string]int
	err  error
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttl: map[string]int{}}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	v, ok := c.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	if c.err != nil {
		return c.err
	}
	c.data[key] = value
	c.ttl[key] = ttl
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func TestStraightLine_Estimate(t *testing.T) {
	s := NewStraightLine(36) // 10 m/s

	d, err := s.Estimate(context.Background(), london, london)
	if err != nil || d != 0 {
		t.Fatalf("expected zero for the same point, got %v (%v)", d, err)
	}

	d, err = s.Estimate(context.Background(), london, paris)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// ~343.5km at 10 m/s
	if d < 9*time.Hour+25*time.Minute || d > 9*time.Hour+40*time.Minute {
		t.Errorf("expected about 9h32m, got %v", d)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Estimate(ctx, london, paris); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGoogle_Estimate(t *testing.T) {
	tests := []struct {
		name    string
		el      maps.DistanceMatrixElement
		want    time.Duration
		wantErr error
	}{
		{"prefers traffic", maps.DistanceMatrixElement{Status: "OK", Duration: 20 * time.Minute, DurationInTraffic: 27 * time.Minute}, 27 * time.Minute, nil},
		{"plain duration", maps.DistanceMatrixElement{Status: "OK", Duration: 20 * time.Minute}, 20 * time.Minute, nil},
		{"no route", maps.DistanceMatrixElement{Status: "ZERO_RESULTS"}, 0, ErrNoRoute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockMatrix{resp: matrix(tt.el)}
			g := newGoogle(client, 100)

			got, err := g.Estimate(context.Background(), london, paris)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
			if client.last.Mode != maps.TravelModeDriving || client.last.Origins[0] != london.String() {
				t.Errorf("unexpected request %+v", client.last)
			}
		})
	}
}

func TestGoogle_Errors(t *testing.T) {
	g := newGoogle(&mockMatrix{err: errors.New("OVER_QUERY_LIMIT")}, 100)
	if _, err := g.Estimate(context.Background(), london, paris); err == nil || !strings.Contains(err.Error(), "OVER_QUERY_LIMIT") {
		t.Errorf("expected the client error, got %v", err)
	}

	g = newGoogle(&mockMatrix{resp: &maps.DistanceMatrixResponse{}}, 100)
	if _, err := g.Estimate(context.Background(), london, paris); err == nil {
		t.Error("expected an error for an empty response")
	}
}

func TestGoogle_RateLimitHonoursContext(t *testing.T) {
	g := newGoogle(&mockMatrix{resp: matrix(maps.DistanceMatrixElement{Status: "OK", Duration: time.Minute})}, 0.001)
	if _, err := g.Estimate(context.Background(), london, paris); err != nil {
		t.Fatalf("first call should use the burst, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := g.Estimate(ctx, london, paris); err == nil {
		t.Error("expected the limiter to refuse a wait past the deadline")
	}
}

func TestRetrying_RetriesTransientErrors(t *testing.T) {
	attempts := 0
	next := &mockEstimator{estimateFn: func(ctx context.Context, o, d domain.Coordinate) (time.Duration, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("503")
		}
		return 12 * time.Minute, nil
	}}
	r := NewRetrying(next, 2, time.Millisecond)

	got, err := r.Estimate(context.Background(), london, paris)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 12*time.Minute || attempts != 3 {
		t.Errorf("expected 12m after 3 attempts, got %v after %d", got, attempts)
	}
}

func TestRetrying_GivesUp(t *testing.T) {
	boom := errors.New("503")
	next := &mockEstimator{estimateFn: func(ctx context.Context, o, d domain.Coordinate) (time.Duration, error) {
		return 0, boom
	}}
	r := NewRetrying(next, 2, time.Millisecond)

	if _, err := r.Estimate(context.Background(), london, paris); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	if next.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", next.calls)
	}
}

func TestRetrying_PermanentErrors(t *testing.T) {
	for _, perm := range []error{ErrNoRoute, context.DeadlineExceeded} {
		next := &mockEstimator{estimateFn: func(ctx context.Context, o, d domain.Coordinate) (time.Duration, error) {
			return 0, perm
		}}
		r := NewRetrying(next, 5, time.Millisecond)
		if _, err := r.Estimate(context.Background(), london, paris); !errors.Is(err, perm) {
			t.Errorf("expected %v, got %v", perm, err)
		}
		if next.calls != 1 {
			t.Errorf("%v: expected a single attempt, got %d", perm, next.calls)
		}
	}
}

func TestCached_ReadThrough(t *testing.T) {
	next := &mockEstimator{estimateFn: func(ctx context.Context, o, d domain.Coordinate) (time.Duration, error) {
		return 17 * time.Minute, nil
	}}
	cache := newMemCache()
	c := NewCached(next, cache, 900)

	for i := 0; i < 3; i++ {
		got, err := c.Estimate(context.Background(), london, paris)
		if err != nil || got != 17*time.Minute {
			t.Fatalf("expected 17m, got %v (%v)", got, err)
		}
	}
	if next.calls != 1 {
		t.Errorf("expected one upstream call, got %d", next.calls)
	}
	if cache.ttl[cacheKey(london, paris)] != 900 {
		t.Errorf("expected ttl 900, got %v", cache.ttl)
	}

	// reverse direction is a separate entry
	if _, err := c.Estimate(context.Background(), paris, london); err != nil {
		t.Fatal(err)
	}
	if next.calls != 2 {
		t.Errorf("expected a second upstream call for the reverse leg, got %d", next.calls)
	}
}

func TestCached_CacheDownFallsThrough(t *testing.T) {
	next := &mockEstimator{estimateFn: func(ctx context.Context, o, d domain.Coordinate) (time.Duration, error) {
		return 5 * time.Minute, nil
	}}
	cache := newMemCache()
	cache.err = errors.New("connection refused")
	c := NewCached(next, cache, 900)

	got, err := c.Estimate(context.Background(), london, paris)
	if err != nil || got != 5*time.Minute {
		t.Fatalf("expected 5m despite cache failure, got %v (%v)", got, err)
	}
}

func TestCached_DoesNotStoreErrors(t *testing.T) {
	boom := errors.New("down")
	next := &mockEstimator{estimateFn: func(ctx context.Context, o, d domain.Coordinate) (time.Duration, error) {
		return 0, boom
	}}
	cache := newMemCache()
	c := NewCached(next, cache, 900)

	if _, err := c.Estimate(context.Background(), london, paris); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	if len(cache.data) != 0 {
		t.Errorf("expected nothing cached, got %v", cache.data)
	}
}

func TestInstrumented_PassesThrough(t *testing.T) {
	boom := errors.New("down")
	next := &mockEstimator{estimateFn: func(ctx context.Context, o, d domain.Coordinate) (time.Duration, error) {
		if d == paris {
			return 0, boom
		}
		return time.Minute, nil
	}}
	i := NewInstrumented(next, "test")

	if got, err := i.Estimate(context.Background(), paris, london); err != nil || got != time.Minute {
		t.Errorf("expected 1m, got %v (%v)", got, err)
	}
	if _, err := i.Estimate(context.Background(), london, paris); !errors.Is(err, boom) {
		t.Errorf("expected %v, got %v", boom, err)
	}
}

func TestNew_SelectsEstimator(t *testing.T) {
	est, err := New(Options{AverageSpeedKmh: 36})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	inst, ok := est.(*Instrumented)
	if !ok {
		t.Fatalf("expected an instrumented estimator, got %T", est)
	}
	if _, ok := inst.next.(*StraightLine); !ok || inst.name != "straight_line" {
		t.Errorf("expected straight line without an api key, got %T (%s)", inst.next, inst.name)
	}

	est, err = New(Options{GoogleAPIKey: "AIza-test-key", GoogleQPS: 5, Retries: 2, Cache: newMemCache(), CacheTTLSeconds: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	inst = est.(*Instrumented)
	cached, ok := inst.next.(*Cached)
	if !ok {
		t.Fatalf("expected a cached layer, got %T", inst.next)
	}
	if _, ok := cached.next.(*Retrying); !ok {
		t.Errorf("expected retries under the cache, got %T", cached.next)
	}
}
