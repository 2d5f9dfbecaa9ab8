// Package synthetic generates plausible-looking routes without any network
// call. It is the last link of the provider chain and never fails for a
// valid request.
package synthetic

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/airwatchuk/airwatch/internal/random"
	"github.com/airwatchuk/airwatch/internal/routing"
	"github.com/airwatchuk/airwatch/pkg/geo"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "synthetic"

	// Segments is the number of segments per generated path (Segments+1 points).
	Segments = 25

	// jitterDegrees is the full width of the per-point random jitter.
	jitterDegrees = 0.0001
)

// Nominal speeds in metres per second.
const (
	carSpeed  = 40.0 / 3.6
	bikeSpeed = 15.0 / 3.6
	footSpeed = 5.0 / 3.6
)

// archetypeShape describes one route shape.
type archetypeShape struct {
	name         string
	deviation    func(p float64) float64
	distanceMult float64
	durationMult float64
	instructions []midInstruction
}

type midInstruction struct {
	text     string
	fraction float64
}

var archetypes = map[routing.Archetype]archetypeShape{
	routing.ArchetypeDirect: {
		name:         "Direct Route",
		deviation:    func(p float64) float64 { return 0.001 * math.Sin(2*math.Pi*p) },
		distanceMult: 1.0,
		durationMult: 1.0,
		instructions: []midInstruction{{text: "Continue straight along the main road", fraction: 0.5}},
	},
	routing.ArchetypeScenic: {
		name: "Scenic Route",
		deviation: func(p float64) float64 {
			return 0.003*math.Sin(4*math.Pi*p) + 0.002*math.Cos(3*math.Pi*p)
		},
		distanceMult: 1.2,
		durationMult: 1.15,
		instructions: []midInstruction{{text: "Turn onto quieter streets through the park", fraction: 0.4}},
	},
	routing.ArchetypeHighway: {
		name:         "Highway Route",
		deviation:    func(p float64) float64 { return 0.0005 * math.Sin(math.Pi*p) },
		distanceMult: 0.95,
		durationMult: 0.85,
		instructions: []midInstruction{{text: "Merge onto the motorway", fraction: 0.2}},
	},
}

// DefaultArchetypes is the order routes are produced in.
var DefaultArchetypes = []routing.Archetype{
	routing.ArchetypeDirect,
	routing.ArchetypeScenic,
	routing.ArchetypeHighway,
}

// Config holds configuration for the generator.
type Config struct {
	// Rand supplies the jitter (optional, defaults to the process generator).
	Rand random.Source

	// Archetypes to produce, in order (optional, defaults to DefaultArchetypes).
	Archetypes []routing.Archetype

	// Logger for generator operations.
	Logger zerolog.Logger
}

// Generator produces synthetic candidate routes.
type Generator struct {
	rand       random.Source
	archetypes []routing.Archetype
	logger     zerolog.Logger
}

// New creates a new synthetic route generator.
func New(cfg Config) *Generator {
	src := cfg.Rand
	if src == nil {
		src = random.Default()
	}
	arch := cfg.Archetypes
	if len(arch) == 0 {
		arch = DefaultArchetypes
	}
	return &Generator{rand: src, archetypes: arch, logger: cfg.Logger}
}

// Name returns the provider name.
func (g *Generator) Name() string {
	return ProviderName
}

// Kind returns routing.KindSynthetic.
func (g *Generator) Kind() routing.ProviderKind {
	return routing.KindSynthetic
}

// Configured always reports true; the generator needs no credentials.
func (g *Generator) Configured() bool {
	return true
}

// Routes returns one candidate per configured archetype.
func (g *Generator) Routes(ctx context.Context, req routing.Request) ([]routing.Candidate, error) {
	if err := routing.ValidateRequest(ProviderName, req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]routing.Candidate, 0, len(g.archetypes))
	for _, a := range g.archetypes {
		c, err := g.Generate(req.Origin, req.Destination, req.Vehicle, a)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	g.logger.Debug().
		Int("route_count", len(out)).
		Str("vehicle", string(req.Vehicle)).
		Msg("generated synthetic routes")

	return out, nil
}

// Generate builds a single route of the given archetype.
func (g *Generator) Generate(origin, dest geo.Coordinate, vehicle routing.Vehicle, archetype routing.Archetype) (routing.Candidate, error) {
	shape, ok := archetypes[archetype]
	if !ok {
		return routing.Candidate{}, fmt.Errorf("unknown route archetype %q", archetype)
	}

	bearing := geo.Bearing(origin, dest)
	perp := bearing + math.Pi/2

	path := make([]geo.Coordinate, 0, Segments+1)
	for i := 0; i <= Segments; i++ {
		switch i {
		case 0:
			path = append(path, origin)
			continue
		case Segments:
			path = append(path, dest)
			continue
		}

		p := float64(i) / Segments
		pt := geo.Interpolate(origin, dest, p)

		// Bearing is clockwise from north, so the north component is cos.
		dev := shape.deviation(p)
		pt.Lat += dev * math.Cos(perp)
		pt.Lon += dev * math.Sin(perp)

		pt.Lat += (g.rand.Float64() - 0.5) * jitterDegrees
		pt.Lon += (g.rand.Float64() - 0.5) * jitterDegrees

		// Offsets near the antimeridian or a pole can leave the valid range.
		path = append(path, geo.Normalize(pt))
	}

	straight := geo.Distance(origin, dest)
	distance := straight * shape.distanceMult
	duration := straight / speedFor(vehicle) * shape.durationMult

	instructions := make([]routing.Instruction, 0, len(shape.instructions)+2)
	instructions = append(instructions, routing.Instruction{
		Text:                 "Head " + geo.CompassDirection(bearing) + " from origin",
		DistanceOffsetMeters: 0,
	})
	for _, mi := range shape.instructions {
		instructions = append(instructions, routing.Instruction{
			Text:                 mi.text,
			DistanceOffsetMeters: distance * mi.fraction,
		})
	}
	instructions = append(instructions, routing.Instruction{
		Text:                 "Arrive at destination",
		DistanceOffsetMeters: distance,
	})

	return routing.Candidate{
		ID:              "synthetic-" + string(archetype),
		Name:            shape.name,
		Path:            path,
		DistanceMeters:  distance,
		DurationSeconds: duration,
		Provider:        routing.KindSynthetic,
		ProviderName:    ProviderName,
		Instructions:    instructions,
		Archetype:       archetype,
	}, nil
}

func speedFor(v routing.Vehicle) float64 {
	switch v {
	case routing.VehicleBike:
		return bikeSpeed
	case routing.VehicleFoot:
		return footSpeed
	default:
		return carSpeed
	}
}
