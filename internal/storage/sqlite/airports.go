package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/yegors/routemap/internal/airport"
	"github.com/yegors/routemap/pkg/logger"
)

// AirportStorage handles storage of airports, runways, frequencies and countries
type AirportStorage struct {
	db     *sql.DB
	cache  *expirable.LRU[string, *airport.Airport]
	logger *logger.Logger
}

// NewAirportStorage creates the airport tables if needed. Looked-up airports
// are cached for ttl; cacheSize 0 disables the cache.
func NewAirportStorage(db *sql.DB, cacheSize int, ttl time.Duration, logger *logger.Logger) (*AirportStorage, error) {
	storage := &AirportStorage{
		db:     db,
		logger: logger.Named("sqlite-airports"),
	}
	if cacheSize > 0 {
		storage.cache = expirable.NewLRU[string, *airport.Airport](cacheSize, nil, ttl)
	}

	if err := storage.initDB(); err != nil {
		return nil, err
	}

	return storage, nil
}

// initDB initializes the database tables
func (s *AirportStorage) initDB() error {
	tables := []struct {
		name string
		ddl  string
	}{
		{"countries", `
			CREATE TABLE IF NOT EXISTS countries (
				code TEXT PRIMARY KEY,
				name TEXT NOT NULL
			)`},
		{"airports", `
			CREATE TABLE IF NOT EXISTS airports (
				icao TEXT PRIMARY KEY,
				class TEXT NOT NULL,
				latitude REAL NOT NULL,
				longitude REAL NOT NULL,
				country_code TEXT NOT NULL,
				FOREIGN KEY (country_code) REFERENCES countries(code)
			)`},
		{"runways", `
			CREATE TABLE IF NOT EXISTS runways (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				icao TEXT NOT NULL,
				position INTEGER NOT NULL,
				length_ft INTEGER,
				width_ft INTEGER,
				he_name TEXT,
				he_latitude REAL,
				he_longitude REAL,
				le_name TEXT,
				le_latitude REAL,
				le_longitude REAL,
				FOREIGN KEY (icao) REFERENCES airports(icao) ON DELETE CASCADE
			)`},
		{"frequencies", `
			CREATE TABLE IF NOT EXISTS frequencies (
				icao TEXT NOT NULL,
				type TEXT NOT NULL,
				mhz TEXT NOT NULL,
				PRIMARY KEY (icao, type),
				FOREIGN KEY (icao) REFERENCES airports(icao) ON DELETE CASCADE
			)`},
	}

	for _, table := range tables {
		if _, err := s.db.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_runways_icao ON runways(icao)`,
		`CREATE INDEX IF NOT EXISTS idx_airports_country ON airports(country_code)`,
	}
	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create airport index: %w", err)
		}
	}

	return nil
}

// StoreAirports replaces the stored data set with countries and airports in a
// single transaction. Every airport's country must be among countries.
func (s *AirportStorage) StoreAirports(ctx context.Context, countries []airport.Country, airports []*airport.Airport) error {
	codes := make(map[string]string, len(countries))
	for _, c := range countries {
		codes[c.Name] = c.Code
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM frequencies`, `DELETE FROM runways`, `DELETE FROM airports`, `DELETE FROM countries`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear airport data: %w", err)
		}
	}

	insertCountry, err := tx.PrepareContext(ctx, `INSERT INTO countries (code, name) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare country insert: %w", err)
	}
	defer insertCountry.Close()

	insertAirport, err := tx.PrepareContext(ctx,
		`INSERT INTO airports (icao, class, latitude, longitude, country_code) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare airport insert: %w", err)
	}
	defer insertAirport.Close()

	insertRunway, err := tx.PrepareContext(ctx,
		`INSERT INTO runways
		(icao, position, length_ft, width_ft, he_name, he_latitude, he_longitude, le_name, le_latitude, le_longitude)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare runway insert: %w", err)
	}
	defer insertRunway.Close()

	insertFrequency, err := tx.PrepareContext(ctx, `INSERT INTO frequencies (icao, type, mhz) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare frequency insert: %w", err)
	}
	defer insertFrequency.Close()

	for _, c := range countries {
		if _, err := insertCountry.ExecContext(ctx, c.Code, c.Name); err != nil {
			return fmt.Errorf("failed to insert country %s: %w", c.Code, err)
		}
	}

	for _, apt := range airports {
		if err := apt.Validate(); err != nil {
			return err
		}
		code, ok := codes[apt.CountryName]
		if !ok {
			return fmt.Errorf("airport %s: unknown country %q", apt.ICAO, apt.CountryName)
		}

		if _, err := insertAirport.ExecContext(ctx, apt.ICAO, string(apt.Class),
			apt.Position.LatitudeDeg, apt.Position.LongitudeDeg, code); err != nil {
			return fmt.Errorf("failed to insert airport %s: %w", apt.ICAO, err)
		}

		for i, rwy := range apt.Runways {
			heName, heLat, heLon := markerColumns(rwy.HEMarker)
			leName, leLat, leLon := markerColumns(rwy.LEMarker)
			if _, err := insertRunway.ExecContext(ctx, apt.ICAO, i,
				nullInt(rwy.LengthFT), nullInt(rwy.WidthFT),
				heName, heLat, heLon, leName, leLat, leLon); err != nil {
				return fmt.Errorf("failed to insert runway for %s: %w", apt.ICAO, err)
			}
		}

		for kind, mhz := range apt.Frequencies {
			if _, err := insertFrequency.ExecContext(ctx, apt.ICAO, string(kind), mhz); err != nil {
				return fmt.Errorf("failed to insert frequency for %s: %w", apt.ICAO, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit airports: %w", err)
	}

	if s.cache != nil {
		s.cache.Purge()
	}

	s.logger.Info("Stored airport data",
		logger.Int("countries", len(countries)),
		logger.Int("airports", len(airports)))

	return nil
}

// CountAirports returns the number of stored airports
func (s *AirportStorage) CountAirports(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM airports`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count airports: %w", err)
	}
	return n, nil
}

// GetAirportByICAO returns the airport with its runways and frequencies. The
// returned airport may be shared with other callers and must not be modified.
func (s *AirportStorage) GetAirportByICAO(ctx context.Context, icao string) (*airport.Airport, error) {
	if err := airport.ValidateICAO(icao); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if apt, ok := s.cache.Get(icao); ok {
			return apt, nil
		}
	}

	apt := &airport.Airport{ICAO: icao, Frequencies: airport.Frequencies{}}
	var class string
	err := s.db.QueryRowContext(ctx,
		`SELECT a.class, a.latitude, a.longitude, c.name
		FROM airports a
		JOIN countries c ON c.code = a.country_code
		WHERE a.icao = ?`,
		icao,
	).Scan(&class, &apt.Position.LatitudeDeg, &apt.Position.LongitudeDeg, &apt.CountryName)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", airport.ErrAirportNotFound, icao)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query airport %s: %w", icao, err)
	}
	apt.Class = airport.Class(class)

	if apt.Runways, err = s.runways(ctx, icao); err != nil {
		return nil, err
	}
	if err := s.frequencies(ctx, apt); err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Add(icao, apt)
	}

	return apt, nil
}

func (s *AirportStorage) runways(ctx context.Context, icao string) ([]airport.Runway, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT length_ft, width_ft, he_name, he_latitude, he_longitude, le_name, le_latitude, le_longitude
		FROM runways
		WHERE icao = ?
		ORDER BY position`,
		icao,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runways: %w", err)
	}
	defer rows.Close()

	runways := []airport.Runway{}
	for rows.Next() {
		var length, width sql.NullInt64
		var heName, leName sql.NullString
		var heLat, heLon, leLat, leLon sql.NullFloat64

		if err := rows.Scan(&length, &width, &heName, &heLat, &heLon, &leName, &leLat, &leLon); err != nil {
			return nil, fmt.Errorf("failed to scan runway: %w", err)
		}

		runways = append(runways, airport.Runway{
			LengthFT: intPtr(length),
			WidthFT:  intPtr(width),
			HEMarker: markerFromColumns(heName, heLat, heLon),
			LEMarker: markerFromColumns(leName, leLat, leLon),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runways: %w", err)
	}

	return runways, nil
}

func (s *AirportStorage) frequencies(ctx context.Context, apt *airport.Airport) error {
	rows, err := s.db.QueryContext(ctx, `SELECT type, mhz FROM frequencies WHERE icao = ?`, apt.ICAO)
	if err != nil {
		return fmt.Errorf("failed to query frequencies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind, mhz string
		if err := rows.Scan(&kind, &mhz); err != nil {
			return fmt.Errorf("failed to scan frequency: %w", err)
		}
		apt.Frequencies[airport.FrequencyType(kind)] = mhz
	}

	return rows.Err()
}

var lengthOperators = map[airport.LengthSelector]string{
	airport.LengthEqual:       "=",
	airport.LengthGreaterThan: ">",
	airport.LengthLessThan:    "<",
}

// FindAirports returns airports matching filter. With limit > 0 at most limit
// airports are returned, sampled at random; otherwise all matches ordered by
// ICAO. Returned airports carry their class, position and country only.
func (s *AirportStorage) FindAirports(ctx context.Context, filter airport.Filter, limit int) ([]*airport.Airport, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	var where []string
	var args []interface{}

	if filter.Class != "" {
		where = append(where, "a.class = ?")
		args = append(args, string(filter.Class))
	}
	if rl := filter.RunwayLength; rl != nil {
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM runways r WHERE r.icao = a.icao AND r.length_ft %s ?)",
			lengthOperators[rl.Selector]))
		args = append(args, rl.Length)
	}
	if len(filter.Countries) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(filter.Countries)), ", ")
		where = append(where, "c.name COLLATE NOCASE IN ("+placeholders+")")
		for _, c := range filter.Countries {
			args = append(args, c)
		}
	}

	query := `SELECT a.icao, a.class, a.latitude, a.longitude, c.name
		FROM airports a
		JOIN countries c ON c.code = a.country_code`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if limit > 0 {
		query += " ORDER BY RANDOM() LIMIT ?"
		args = append(args, limit)
	} else {
		query += " ORDER BY a.icao"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query airports: %w", err)
	}
	defer rows.Close()

	airports := []*airport.Airport{}
	for rows.Next() {
		apt := &airport.Airport{}
		var class string
		if err := rows.Scan(&apt.ICAO, &class, &apt.Position.LatitudeDeg, &apt.Position.LongitudeDeg, &apt.CountryName); err != nil {
			return nil, fmt.Errorf("failed to scan airport: %w", err)
		}
		apt.Class = airport.Class(class)
		airports = append(airports, apt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read airports: %w", err)
	}

	s.logger.Debug("Found airports", logger.Int("count", len(airports)), logger.Int("limit", limit))
	return airports, nil
}

// ListCountries returns every stored country ordered by name
func (s *AirportStorage) ListCountries(ctx context.Context) ([]airport.Country, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, name FROM countries ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query countries: %w", err)
	}
	defer rows.Close()

	countries := []airport.Country{}
	for rows.Next() {
		var c airport.Country
		if err := rows.Scan(&c.Code, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan country: %w", err)
		}
		countries = append(countries, c)
	}

	return countries, rows.Err()
}

func markerColumns(m *airport.RunwayMarker) (sql.NullString, sql.NullFloat64, sql.NullFloat64) {
	if m == nil {
		return sql.NullString{}, sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullString{String: m.Name, Valid: true},
		sql.NullFloat64{Float64: m.Position.LatitudeDeg, Valid: true},
		sql.NullFloat64{Float64: m.Position.LongitudeDeg, Valid: true}
}

func markerFromColumns(name sql.NullString, lat, lon sql.NullFloat64) *airport.RunwayMarker {
	if !name.Valid || !lat.Valid || !lon.Valid {
		return nil
	}
	return &airport.RunwayMarker{
		Name:     name.String,
		Position: airport.Position{LatitudeDeg: lat.Float64, LongitudeDeg: lon.Float64},
	}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
