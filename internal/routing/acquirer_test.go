package routing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airwatchuk/airwatch/pkg/geo"
)

// mockProvider is a mock routing provider for testing.
type mockProvider struct {
	name         string
	kind         ProviderKind
	unconfigured bool
	routes       []Candidate
	err          error
	callCount    atomic.Int32
	blockOnCtx   bool
}

func (m *mockProvider) Routes(ctx context.Context, _ Request) ([]Candidate, error) {
	m.callCount.Add(1)
	if m.blockOnCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.routes, nil
}

func (m *mockProvider) Name() string       { return m.name }
func (m *mockProvider) Kind() ProviderKind { return m.kind }
func (m *mockProvider) Configured() bool   { return !m.unconfigured }

type recordedRequest struct {
	provider string
	failed   bool
}

type mockRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (m *mockRecorder) RecordRequest(provider, _ string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, recordedRequest{provider: provider, failed: err != nil})
}

var (
	london     = geo.Coordinate{Lat: 51.5074, Lon: -0.1278}
	manchester = geo.Coordinate{Lat: 53.4808, Lon: -2.2426}
	testReq    = Request{Origin: london, Destination: manchester, Vehicle: VehicleCar, Alternatives: 3}
)

func route(name string, distance float64) Candidate {
	return Candidate{
		Name:            name,
		Path:            []geo.Coordinate{london, {Lat: 52.4862, Lon: -1.8904}, manchester},
		DistanceMeters:  distance,
		DurationSeconds: 3600,
	}
}

func TestAcquirer_FirstSuccessfulProviderWins(t *testing.T) {
	primary := &mockProvider{name: "graphhopper", kind: KindPrimaryAPI, routes: []Candidate{route("a", 100), route("b", 200)}}
	secondary := &mockProvider{name: "openrouteservice", kind: KindSecondaryAPI, routes: []Candidate{route("c", 300)}}
	fallback := &mockProvider{name: "synthetic", kind: KindSynthetic, routes: []Candidate{route("s", 400)}}

	a := NewAcquirer(AcquirerConfig{
		Providers: []Provider{primary, secondary},
		Fallback:  fallback,
		Logger:    zerolog.Nop(),
	})

	routes, err := a.Acquire(context.Background(), testReq)
	require.NoError(t, err)
	require.Len(t, routes, 2)

	assert.Equal(t, "a", routes[0].Name)
	assert.Equal(t, "b", routes[1].Name)
	assert.Equal(t, KindPrimaryAPI, routes[0].Provider)
	assert.Equal(t, "graphhopper", routes[0].ProviderName)
	assert.NotEmpty(t, routes[0].ID)

	assert.Equal(t, int32(1), primary.callCount.Load())
	assert.Equal(t, int32(0), secondary.callCount.Load())
	assert.Equal(t, int32(0), fallback.callCount.Load())
}

func TestAcquirer_SkipsUnconfiguredProviders(t *testing.T) {
	primary := &mockProvider{name: "graphhopper", kind: KindPrimaryAPI, unconfigured: true}
	community := &mockProvider{name: "osrm", kind: KindCommunityAPI, routes: []Candidate{route("osrm", 100)}}

	a := NewAcquirer(AcquirerConfig{Providers: []Provider{primary, community}})

	routes, err := a.Acquire(context.Background(), testReq)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, KindCommunityAPI, routes[0].Provider)
	assert.Equal(t, int32(0), primary.callCount.Load())
}

func TestAcquirer_FallsThroughOnFailureAndEmptyResults(t *testing.T) {
	primary := &mockProvider{name: "graphhopper", kind: KindPrimaryAPI, err: &Error{Provider: "graphhopper", Message: "boom", Err: ErrProviderUnavailable}}
	secondary := &mockProvider{name: "openrouteservice", kind: KindSecondaryAPI, routes: nil}
	community := &mockProvider{name: "osrm", kind: KindCommunityAPI, routes: []Candidate{route("osrm", 100)}}
	recorder := &mockRecorder{}

	a := NewAcquirer(AcquirerConfig{
		Providers: []Provider{primary, secondary, community},
		Metrics:   recorder,
	})

	routes, err := a.Acquire(context.Background(), testReq)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "osrm", routes[0].ProviderName)

	require.Len(t, recorder.requests, 3)
	assert.Equal(t, recordedRequest{provider: "graphhopper", failed: true}, recorder.requests[0])
	assert.Equal(t, recordedRequest{provider: "openrouteservice", failed: true}, recorder.requests[1])
	assert.Equal(t, recordedRequest{provider: "osrm", failed: false}, recorder.requests[2])
}

func TestAcquirer_UsesFallbackWhenAllProvidersFail(t *testing.T) {
	primary := &mockProvider{name: "graphhopper", kind: KindPrimaryAPI, err: errors.New("network down")}
	fallback := &mockProvider{name: "synthetic", kind: KindSynthetic, routes: []Candidate{route("direct", 0)}}

	a := NewAcquirer(AcquirerConfig{Providers: []Provider{primary}, Fallback: fallback})

	routes, err := a.Acquire(context.Background(), testReq)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, KindSynthetic, routes[0].Provider)
	// Missing distance is backfilled from the geometry.
	assert.Greater(t, routes[0].DistanceMeters, 200000.0)
}

func TestAcquirer_ProviderTimeoutFallsThrough(t *testing.T) {
	slow := &mockProvider{name: "graphhopper", kind: KindPrimaryAPI, blockOnCtx: true}
	fallback := &mockProvider{name: "synthetic", kind: KindSynthetic, routes: []Candidate{route("direct", 1)}}

	a := NewAcquirer(AcquirerConfig{
		Providers:       []Provider{slow},
		Fallback:        fallback,
		ProviderTimeout: 20 * time.Millisecond,
	})

	start := time.Now()
	routes, err := a.Acquire(context.Background(), testReq)
	require.NoError(t, err)
	assert.Len(t, routes, 1)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestAcquirer_MergeProviders(t *testing.T) {
	primary := &mockProvider{name: "graphhopper", kind: KindPrimaryAPI, routes: []Candidate{route("a", 100)}}
	community := &mockProvider{name: "osrm", kind: KindCommunityAPI, routes: []Candidate{route("b", 100)}}

	a := NewAcquirer(AcquirerConfig{Providers: []Provider{primary, community}, MergeProviders: true})

	routes, err := a.Acquire(context.Background(), testReq)
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, KindPrimaryAPI, routes[0].Provider)
	assert.Equal(t, KindCommunityAPI, routes[1].Provider)
}

func TestAcquirer_DropsDegenerateCandidates(t *testing.T) {
	onePoint := Candidate{Name: "bad", Path: []geo.Coordinate{london}}
	badPoint := Candidate{Name: "worse", Path: []geo.Coordinate{london, {Lat: 123, Lon: 0}}}
	primary := &mockProvider{name: "graphhopper", kind: KindPrimaryAPI, routes: []Candidate{onePoint, badPoint, route("good", 10)}}

	a := NewAcquirer(AcquirerConfig{Providers: []Provider{primary}})

	routes, err := a.Acquire(context.Background(), testReq)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "good", routes[0].Name)
}

func TestAcquirer_NoFallbackReturnsErrNoRoutes(t *testing.T) {
	primary := &mockProvider{name: "graphhopper", kind: KindPrimaryAPI, err: errors.New("down")}

	a := NewAcquirer(AcquirerConfig{Providers: []Provider{primary}})

	_, err := a.Acquire(context.Background(), testReq)
	assert.ErrorIs(t, err, ErrNoRoutes)
}

func TestAcquirer_FallbackFailure(t *testing.T) {
	fallback := &mockProvider{name: "synthetic", kind: KindSynthetic, err: errors.New("broken")}

	a := NewAcquirer(AcquirerConfig{Fallback: fallback})

	_, err := a.Acquire(context.Background(), testReq)
	assert.ErrorIs(t, err, ErrNoRoutes)
}

func TestAcquirer_InvalidCoordinates(t *testing.T) {
	a := NewAcquirer(AcquirerConfig{})

	_, err := a.Acquire(context.Background(), Request{Origin: geo.Coordinate{Lat: 91}, Destination: manchester})

	var routingErr *Error
	require.ErrorAs(t, err, &routingErr)
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
	assert.Equal(t, "INVALID_ORIGIN", routingErr.Code)
}

func TestAcquirer_Providers(t *testing.T) {
	a := NewAcquirer(AcquirerConfig{
		Providers: []Provider{
			&mockProvider{name: "graphhopper", kind: KindPrimaryAPI, unconfigured: true},
			&mockProvider{name: "osrm", kind: KindCommunityAPI},
		},
		Fallback: &mockProvider{name: "synthetic", kind: KindSynthetic},
	})

	statuses := a.Providers()
	require.Len(t, statuses, 3)
	assert.Equal(t, ProviderStatus{Name: "graphhopper", Kind: KindPrimaryAPI, Configured: false}, statuses[0])
	assert.Equal(t, ProviderStatus{Name: "synthetic", Kind: KindSynthetic, Configured: true}, statuses[2])
}

func TestParseVehicle(t *testing.T) {
	assert.Equal(t, VehicleCar, ParseVehicle(""))
	assert.Equal(t, VehicleCar, ParseVehicle("driving"))
	assert.Equal(t, VehicleBike, ParseVehicle("Bike"))
	assert.Equal(t, VehicleFoot, ParseVehicle("walking"))
}

func TestError_IsRetryable(t *testing.T) {
	assert.True(t, (&Error{Err: ErrProviderUnavailable}).IsRetryable())
	assert.True(t, (&Error{Err: ErrRateLimitExceeded}).IsRetryable())
	assert.False(t, (&Error{Err: ErrNoRouteFound}).IsRetryable())
	assert.Equal(t, "osrm: boom: routing provider unavailable", (&Error{Provider: "osrm", Message: "boom", Err: ErrProviderUnavailable}).Error())
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{429, ErrRateLimitExceeded},
		{401, ErrProviderUnavailable},
		{403, ErrProviderUnavailable},
		{404, ErrNoRouteFound},
		{502, ErrProviderUnavailable},
		{400, ErrProviderUnavailable},
	}

	for _, tt := range tests {
		err := StatusError("graphhopper", tt.status, "")
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
	}
}
