package airquality

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/airwatchuk/airwatch/pkg/geo"
)

// UKRegions are the cities used for regional comparison.
var UKRegions = []Region{
	{Name: "London", Coordinate: geo.Coordinate{Lat: 51.5074, Lon: -0.1278}},
	{Name: "Manchester", Coordinate: geo.Coordinate{Lat: 53.4808, Lon: -2.2426}},
	{Name: "Birmingham", Coordinate: geo.Coordinate{Lat: 52.4862, Lon: -1.8904}},
	{Name: "Leeds", Coordinate: geo.Coordinate{Lat: 53.8008, Lon: -1.5491}},
	{Name: "Glasgow", Coordinate: geo.Coordinate{Lat: 55.8642, Lon: -4.2518}},
	{Name: "Sheffield", Coordinate: geo.Coordinate{Lat: 53.3811, Lon: -1.4701}},
	{Name: "Bradford", Coordinate: geo.Coordinate{Lat: 53.7960, Lon: -1.7594}},
	{Name: "Liverpool", Coordinate: geo.Coordinate{Lat: 53.4084, Lon: -2.9916}},
	{Name: "Edinburgh", Coordinate: geo.Coordinate{Lat: 55.9533, Lon: -3.1883}},
	{Name: "Cardiff", Coordinate: geo.Coordinate{Lat: 51.4816, Lon: -3.1791}},
	{Name: "Belfast", Coordinate: geo.Coordinate{Lat: 54.5973, Lon: -5.9301}},
	{Name: "Newcastle", Coordinate: geo.Coordinate{Lat: 54.9783, Lon: -1.6178}},
}

// rankingGroupSize is the length of the best and worst lists.
const rankingGroupSize = 3

// RegionList returns the configured regions.
func (s *Service) RegionList() []Region {
	out := make([]Region, len(s.regions))
	copy(out, s.regions)
	return out
}

// Regions fetches the current reading for every region. A region whose lookup
// fails is kept with its error message; the call itself only fails when the
// provider is not configured.
func (s *Service) Regions(ctx context.Context) ([]RegionReading, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	results := make([]RegionReading, len(s.regions))

	var g errgroup.Group
	g.SetLimit(s.regionConcurrency)
	for i, region := range s.regions {
		g.Go(func() error {
			results[i] = RegionReading{Region: region}
			reading, err := s.Current(ctx, region.Coordinate)
			if err != nil {
				s.logger.Warn().Err(err).Str("region", region.Name).Msg("region air quality lookup failed")
				results[i].Error = err.Error()
				return nil
			}
			results[i].Reading = reading
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

// Rankings orders the regions with a reading by pollutant, lowest first.
// An empty pollutant ranks by AQI.
func (s *Service) Rankings(ctx context.Context, pollutant string) (*Rankings, error) {
	if pollutant == "" {
		pollutant = PollutantAQI
	}
	if !RankablePollutant(pollutant) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPollutant, pollutant)
	}

	regions, err := s.Regions(ctx)
	if err != nil {
		return nil, err
	}

	return Rank(regions, pollutant), nil
}

// Rank orders regions that have a reading and groups them by category.
func Rank(regions []RegionReading, pollutant string) *Rankings {
	valid := make([]RegionReading, 0, len(regions))
	for _, r := range regions {
		if r.Reading != nil {
			valid = append(valid, r)
		}
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Reading.Value(pollutant) < valid[j].Reading.Value(pollutant)
	})

	rankings := &Rankings{
		Pollutant:             pollutant,
		Low:                   []RegionReading{},
		Moderate:              []RegionReading{},
		High:                  []RegionReading{},
		BestAirQuality:        valid[:min(rankingGroupSize, len(valid))],
		AreasNeedingAttention: valid[max(0, len(valid)-rankingGroupSize):],
		All:                   valid,
	}

	for _, r := range valid {
		switch CategoryFor(pollutant, r.Reading.Value(pollutant)) {
		case CategoryLow:
			rankings.Low = append(rankings.Low, r)
		case CategoryModerate:
			rankings.Moderate = append(rankings.Moderate, r)
		case CategoryHigh:
			rankings.High = append(rankings.High, r)
		}
	}

	return rankings
}
