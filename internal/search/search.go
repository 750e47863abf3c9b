// Package search finds routes between airports that match departure and
// arrival filters.
package search

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/yegors/routemap/internal/airport"
	"github.com/yegors/routemap/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxCandidates bounds the airports considered on each side of a search
	MaxCandidates = 2000
	// MaxResults bounds the routes a search returns
	MaxResults = 100
)

// Store is the airport lookup a Searcher runs against
type Store interface {
	GetAirportByICAO(ctx context.Context, icao string) (*airport.Airport, error)
	FindAirports(ctx context.Context, filter airport.Filter, limit int) ([]*airport.Airport, error)
}

// AirportFilters selects one side of a route. An ICAO code wins over the
// other fields.
type AirportFilters struct {
	ICAO string `json:"icao,omitempty"`
	airport.Filter
}

// TimeRange bounds the flight time; both ends are inclusive and optional
type TimeRange struct {
	Min *airport.Time `json:"min,omitempty"`
	Max *airport.Time `json:"max,omitempty"`
}

// Contains reports whether t lies within the range
func (r TimeRange) Contains(t airport.Time) bool {
	if r.Min != nil && t.TotalMinutes() < r.Min.TotalMinutes() {
		return false
	}
	if r.Max != nil && t.TotalMinutes() > r.Max.TotalMinutes() {
		return false
	}
	return true
}

// DistanceRange bounds the distance in nautical miles; both ends are
// inclusive and optional
type DistanceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Contains reports whether nm lies within the range
func (r DistanceRange) Contains(nm float64) bool {
	if r.Min != nil && nm < *r.Min {
		return false
	}
	if r.Max != nil && nm > *r.Max {
		return false
	}
	return true
}

// Filters describes a route search
type Filters struct {
	Speed     airport.Speed   `json:"speed"`
	Departure *AirportFilters `json:"departure,omitempty"`
	Arrival   *AirportFilters `json:"arrival,omitempty"`
	Time      *TimeRange      `json:"time,omitempty"`
	Distance  *DistanceRange  `json:"distance,omitempty"`
}

// Validate checks the speed, ICAO codes and airport filters
func (f Filters) Validate() error {
	if err := f.Speed.Validate(); err != nil {
		return err
	}
	for _, side := range []*AirportFilters{f.Departure, f.Arrival} {
		if side == nil {
			continue
		}
		if side.ICAO != "" {
			if err := airport.ValidateICAO(side.ICAO); err != nil {
				return err
			}
		}
		if err := side.Filter.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (f Filters) matches(route *airport.Route) bool {
	if f.Time != nil && !f.Time.Contains(route.Time) {
		return false
	}
	if f.Distance != nil && !f.Distance.Contains(route.Distance) {
		return false
	}
	return true
}

// Searcher runs route searches
type Searcher struct {
	store  Store
	logger *logger.Logger
}

// NewSearcher creates a searcher over store
func NewSearcher(store Store, logger *logger.Logger) *Searcher {
	return &Searcher{
		store:  store,
		logger: logger.Named("route-search"),
	}
}

// Search pairs every departure candidate with every arrival candidate, keeps
// the routes within the time and distance ranges and returns the shortest
// MaxResults of them, shortest first. Airports on the returned routes are
// fully loaded.
func (s *Searcher) Search(ctx context.Context, f Filters) ([]*airport.Route, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	departures, err := s.candidates(ctx, f.Departure)
	if err != nil {
		return nil, fmt.Errorf("failed to find departures: %w", err)
	}
	arrivals, err := s.candidates(ctx, f.Arrival)
	if err != nil {
		return nil, fmt.Errorf("failed to find arrivals: %w", err)
	}

	perDeparture := make([][]*airport.Route, len(departures))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, dep := range departures {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			routes, err := routesFrom(dep, arrivals, f)
			perDeparture[i] = routes
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var routes []*airport.Route
	for _, r := range perDeparture {
		routes = append(routes, r...)
	}
	routes = shortest(routes, MaxResults)

	if err := s.load(ctx, routes); err != nil {
		return nil, err
	}

	s.logger.Debug("Searched routes",
		logger.Int("departures", len(departures)),
		logger.Int("arrivals", len(arrivals)),
		logger.Int("routes", len(routes)),
		logger.Duration("duration", time.Since(start)))

	return routes, nil
}

// candidates resolves one side of the search. An unknown ICAO yields no
// candidates rather than an error.
func (s *Searcher) candidates(ctx context.Context, side *AirportFilters) ([]*airport.Airport, error) {
	if side == nil {
		return s.store.FindAirports(ctx, airport.Filter{}, MaxCandidates)
	}
	if side.ICAO != "" {
		apt, err := s.store.GetAirportByICAO(ctx, side.ICAO)
		if errors.Is(err, airport.ErrAirportNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []*airport.Airport{apt}, nil
	}
	return s.store.FindAirports(ctx, side.Filter, MaxCandidates)
}

func routesFrom(dep *airport.Airport, arrivals []*airport.Airport, f Filters) ([]*airport.Route, error) {
	var routes []*airport.Route
	for _, arr := range arrivals {
		if arr.ICAO == dep.ICAO {
			continue
		}
		route, err := airport.NewRoute(dep, arr, f.Speed)
		if err != nil {
			return nil, err
		}
		if f.matches(route) {
			routes = append(routes, route)
		}
	}
	return shortest(routes, MaxResults), nil
}

// shortest sorts routes by distance, then by ICAO codes, and keeps the first n
func shortest(routes []*airport.Route, n int) []*airport.Route {
	sort.Slice(routes, func(i, j int) bool {
		a, b := routes[i], routes[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if a.From.ICAO != b.From.ICAO {
			return a.From.ICAO < b.From.ICAO
		}
		return a.To.ICAO < b.To.ICAO
	})
	if len(routes) > n {
		routes = routes[:n]
	}
	return routes
}

// load replaces candidate airports with fully loaded ones
func (s *Searcher) load(ctx context.Context, routes []*airport.Route) error {
	for _, r := range routes {
		from, err := s.store.GetAirportByICAO(ctx, r.From.ICAO)
		if err != nil {
			return fmt.Errorf("failed to load departure: %w", err)
		}
		to, err := s.store.GetAirportByICAO(ctx, r.To.ICAO)
		if err != nil {
			return fmt.Errorf("failed to load arrival: %w", err)
		}
		r.From, r.To = from, to
	}
	return nil
}
