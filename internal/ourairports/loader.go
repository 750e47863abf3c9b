// Package ourairports reads the OurAirports CSV data set
// (https://ourairports.com/data) into airport models.
package ourairports

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/yegors/routemap/internal/airport"
	"github.com/yegors/routemap/pkg/logger"
)

// Data file names inside an OurAirports directory
const (
	AirportsFile    = "airports.csv"
	RunwaysFile     = "runways.csv"
	FrequenciesFile = "airport-frequencies.csv"
	CountriesFile   = "countries.csv"
)

// ErrMissingColumn is returned when a CSV header lacks a required column
var ErrMissingColumn = errors.New("missing column")

// Dataset is everything loaded from one directory
type Dataset struct {
	Countries []airport.Country
	Airports  []*airport.Airport
}

// Store persists a dataset
type Store interface {
	StoreAirports(ctx context.Context, countries []airport.Country, airports []*airport.Airport) error
}

// Loader reads OurAirports files from a directory
type Loader struct {
	dir    string
	logger *logger.Logger
}

// NewLoader creates a loader for dir
func NewLoader(dir string, logger *logger.Logger) *Loader {
	return &Loader{dir: dir, logger: logger.Named("ourairports")}
}

// Import loads the directory and hands the result to store
func (l *Loader) Import(ctx context.Context, store Store) (*Dataset, error) {
	data, err := l.Load()
	if err != nil {
		return nil, err
	}
	if err := store.StoreAirports(ctx, data.Countries, data.Airports); err != nil {
		return nil, fmt.Errorf("failed to store airports: %w", err)
	}
	return data, nil
}

// Load reads all four files. Airports without a valid ICAO ident, without
// runways or with an unknown country are left out. Airports are sorted by ICAO.
func (l *Loader) Load() (*Dataset, error) {
	airports, err := l.readAirports()
	if err != nil {
		return nil, err
	}
	runways, err := l.readRunways()
	if err != nil {
		return nil, err
	}
	frequencies, err := l.readFrequencies()
	if err != nil {
		return nil, err
	}
	countries, err := l.readCountries()
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(countries))
	for _, c := range countries {
		names[c.Code] = c.Name
	}

	var skipped int
	results := make([]*airport.Airport, 0, len(airports))
	for _, rec := range airports {
		if airport.ValidateICAO(rec.ident) != nil {
			skipped++
			continue
		}

		rwys, ok := runways[rec.id]
		if !ok {
			skipped++
			continue
		}

		country, ok := names[rec.countryCode]
		if !ok {
			skipped++
			continue
		}

		freqs := frequencies[rec.id]
		if freqs == nil {
			freqs = airport.Frequencies{}
		}

		results = append(results, &airport.Airport{
			ICAO:        rec.ident,
			Class:       rec.class,
			Position:    airport.Position{LatitudeDeg: rec.lat, LongitudeDeg: rec.lon},
			Runways:     rwys,
			Frequencies: freqs,
			CountryName: country,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].ICAO < results[j].ICAO })

	l.logger.Info("Loaded OurAirports data",
		logger.String("dir", l.dir),
		logger.Int("airports", len(results)),
		logger.Int("skipped", skipped),
		logger.Int("countries", len(countries)))

	return &Dataset{Countries: countries, Airports: results}, nil
}

type airportRecord struct {
	id          string
	ident       string
	class       airport.Class
	lat, lon    float64
	countryCode string
}

func (l *Loader) readAirports() ([]airportRecord, error) {
	var out []airportRecord
	err := l.readFile(AirportsFile, []string{"id", "ident", "type", "latitude_deg", "longitude_deg", "iso_country"},
		func(r row) error {
			lat, err := r.float("latitude_deg")
			if err != nil {
				return err
			}
			lon, err := r.float("longitude_deg")
			if err != nil {
				return err
			}
			out = append(out, airportRecord{
				id:          r.get("id"),
				ident:       r.get("ident"),
				class:       airport.Class(r.get("type")),
				lat:         lat,
				lon:         lon,
				countryCode: r.get("iso_country"),
			})
			return nil
		})
	return out, err
}

func (l *Loader) readRunways() (map[string][]airport.Runway, error) {
	out := make(map[string][]airport.Runway)
	err := l.readFile(RunwaysFile, []string{
		"airport_ref", "length_ft", "width_ft",
		"le_ident", "le_latitude_deg", "le_longitude_deg",
		"he_ident", "he_latitude_deg", "he_longitude_deg",
	}, func(r row) error {
		length, err := r.optionalInt("length_ft")
		if err != nil {
			return err
		}
		width, err := r.optionalInt("width_ft")
		if err != nil {
			return err
		}
		// The data set's "le" end is drawn as the runway's heading end and
		// vice versa.
		he, err := r.marker("le")
		if err != nil {
			return err
		}
		le, err := r.marker("he")
		if err != nil {
			return err
		}

		ref := r.get("airport_ref")
		out[ref] = append(out[ref], airport.Runway{LengthFT: length, WidthFT: width, HEMarker: he, LEMarker: le})
		return nil
	})
	return out, err
}

func (l *Loader) readFrequencies() (map[string]airport.Frequencies, error) {
	out := make(map[string]airport.Frequencies)
	err := l.readFile(FrequenciesFile, []string{"airport_ref", "type", "frequency_mhz"}, func(r row) error {
		kind, ok := FrequencyType(r.get("type"))
		if !ok {
			return nil
		}
		ref := r.get("airport_ref")
		if out[ref] == nil {
			out[ref] = airport.Frequencies{}
		}
		out[ref][kind] = r.get("frequency_mhz")
		return nil
	})
	return out, err
}

func (l *Loader) readCountries() ([]airport.Country, error) {
	var out []airport.Country
	err := l.readFile(CountriesFile, []string{"code", "name"}, func(r row) error {
		out = append(out, airport.Country{Code: r.get("code"), Name: r.get("name")})
		return nil
	})
	return out, err
}

// FrequencyType maps an OurAirports frequency type. Types without a
// counterpart report false.
func FrequencyType(value string) (airport.FrequencyType, bool) {
	switch value {
	case "ATIS":
		return airport.FrequencyATIS, true
	case "APP", "ARR":
		return airport.FrequencyArrival, true
	case "DEP":
		return airport.FrequencyDeparture, true
	case "A/D":
		return airport.FrequencyArrivalDeparture, true
	case "GND", "GROUND":
		return airport.FrequencyGround, true
	case "TWR", "TOWER":
		return airport.FrequencyTower, true
	case "UNIC", "UNICOM":
		return airport.FrequencyUnicom, true
	default:
		return "", false
	}
}

// readFile streams a CSV file, calling fn for every record after the header
func (l *Loader) readFile(name string, required []string, fn func(row) error) error {
	path := filepath.Join(l.dir, name)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	return parse(f, name, required, fn)
}

func parse(r io.Reader, name string, required []string, fn func(row) error) error {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read %s header: %w", name, err)
	}

	columns := make(map[string]int, len(header))
	for i, col := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))] = i
	}
	for _, col := range required {
		if _, ok := columns[col]; !ok {
			return fmt.Errorf("%s: %w %q", name, ErrMissingColumn, col)
		}
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}

		line, _ := reader.FieldPos(0)
		if err := fn(row{columns: columns, record: record}); err != nil {
			return fmt.Errorf("%s line %d: %w", name, line, err)
		}
	}
}

type row struct {
	columns map[string]int
	record  []string
}

func (r row) get(col string) string {
	i, ok := r.columns[col]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

func (r row) float(col string) (float64, error) {
	v, err := strconv.ParseFloat(r.get(col), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", col, err)
	}
	return v, nil
}

func (r row) optionalFloat(col string) (*float64, error) {
	if r.get(col) == "" {
		return nil, nil
	}
	v, err := r.float(col)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r row) optionalInt(col string) (*int, error) {
	s := r.get(col)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", col, err)
	}
	return &v, nil
}

// marker builds the runway end with the given column prefix. Any missing part
// leaves the end unknown.
func (r row) marker(prefix string) (*airport.RunwayMarker, error) {
	ident := r.get(prefix + "_ident")
	lat, err := r.optionalFloat(prefix + "_latitude_deg")
	if err != nil {
		return nil, err
	}
	lon, err := r.optionalFloat(prefix + "_longitude_deg")
	if err != nil {
		return nil, err
	}
	if ident == "" || lat == nil || lon == nil {
		return nil, nil
	}
	return &airport.RunwayMarker{
		Name:     ident,
		Position: airport.Position{LatitudeDeg: *lat, LongitudeDeg: *lon},
	}, nil
}
