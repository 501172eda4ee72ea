// Package geoparser contains the builder that turns the MaxMind CSV
// dumps and the catalogue database into the geolocation snapshot file.
package geoparser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ggadnet/geodb/internal/catalogue"
	"github.com/ggadnet/geodb/internal/geodb/geodbpb"
	"github.com/ggadnet/geodb/internal/metrics"
)

// Config is the configuration of the snapshot builder.
type Config struct {
	// Logger is used for logging the operation of the builder.  It must
	// not be nil.
	Logger *slog.Logger

	// Storage is the catalogue storage.  It must not be nil.
	Storage catalogue.Storage

	// GeoDBFile is the path the snapshot file is written to.
	GeoDBFile string

	// MaxMindPath is the directory containing the MaxMind CSV files.
	MaxMindPath string

	// IPv4File is the name of the IPv4 blocks file.
	IPv4File string

	// IPv6File is the name of the IPv6 blocks file.
	IPv6File string

	// LocationsEnFile is the name of the English locations file.
	LocationsEnFile string

	// LocationsRuFile is the name of the Russian locations file.
	LocationsRuFile string

	// StoreCatalogue, if true, makes the builder write the catalogue
	// sections into the snapshot file in addition to the IP ranges.
	StoreCatalogue bool
}

// location is the per-GeoNames-identifier data attached to IP ranges.
type location struct {
	countryKey string
	stateKey   string
	cityName   string
	countryID  uint32
	stateID    uint32
	cityID     uint32
}

// Parser is the snapshot builder.
//
// Use [New] to construct instances.
type Parser struct {
	logger    *slog.Logger
	storage   catalogue.Storage
	countries map[string]*catalogue.Country
	states    map[string]*catalogue.State
	cities    map[string]*catalogue.City
	locations map[uint32]*location
	geo       *geodbpb.Geo

	geoDBFile       string
	maxMindPath     string
	ipv4File        string
	ipv6File        string
	locationsEnFile string
	locationsRuFile string

	nextCountryID uint32
	nextStateID   uint32
	nextCityID    uint32

	storeCatalogue bool
}

// New returns a new snapshot builder.  c must not be nil.
func New(c *Config) (p *Parser) {
	return &Parser{
		logger:    c.Logger,
		storage:   c.Storage,
		countries: map[string]*catalogue.Country{},
		states:    map[string]*catalogue.State{},
		cities:    map[string]*catalogue.City{},
		locations: map[uint32]*location{},
		geo:       &geodbpb.Geo{},

		geoDBFile:       c.GeoDBFile,
		maxMindPath:     c.MaxMindPath,
		ipv4File:        c.IPv4File,
		ipv6File:        c.IPv6File,
		locationsEnFile: c.LocationsEnFile,
		locationsRuFile: c.LocationsRuFile,

		storeCatalogue: c.StoreCatalogue,
	}
}

// Run executes all builder phases in order.  The first phase failure
// stops the run.
func (p *Parser) Run(ctx context.Context) (err error) {
	phases := []struct {
		fn   func(ctx context.Context) (err error)
		name string
	}{{
		fn:   p.loadFromDB,
		name: "load_from_db",
	}, {
		fn: func(ctx context.Context) (err error) {
			return p.loadLocations(ctx, p.locationsEnFile, true)
		},
		name: "load_locations_en",
	}, {
		fn: func(ctx context.Context) (err error) {
			return p.loadLocations(ctx, p.locationsRuFile, false)
		},
		name: "load_locations_ru",
	}, {
		fn: func(ctx context.Context) (err error) {
			return p.loadBlocks(ctx, p.ipv4File, false)
		},
		name: "load_ipv4_blocks",
	}, {
		fn: func(ctx context.Context) (err error) {
			return p.loadBlocks(ctx, p.ipv6File, true)
		},
		name: "load_ipv6_blocks",
	}, {
		fn:   p.saveGeoDB,
		name: "save_geodb",
	}, {
		fn:   p.saveToDB,
		name: "save_to_db",
	}}

	for _, ph := range phases {
		start := time.Now()
		err = ph.fn(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", ph.name, err)
		}

		elapsed := time.Since(start)
		metrics.ParserPhaseDuration.WithLabelValues(ph.name).Set(elapsed.Seconds())
		p.logger.InfoContext(ctx, "phase finished", "phase", ph.name, "elapsed", elapsed)
	}

	return nil
}

// loadFromDB loads the current catalogue from the storage and prepares
// the identifier counters for new entries.
func (p *Parser) loadFromDB(ctx context.Context) (err error) {
	countries, err := p.storage.LoadCountries(ctx)
	if err != nil {
		return err
	}

	for _, c := range countries {
		p.countries[c.Key] = c
		p.nextCountryID = max(p.nextCountryID, c.ID)
	}

	p.nextCountryID++
	p.logger.InfoContext(ctx, "loaded countries", "count", len(countries))

	states, err := p.storage.LoadStates(ctx)
	if err != nil {
		return err
	}

	for _, s := range states {
		p.states[s.Key] = s
		p.nextStateID = max(p.nextStateID, s.ID)
	}

	p.nextStateID++
	p.logger.InfoContext(ctx, "loaded states", "count", len(states))

	cities, err := p.storage.LoadCities(ctx)
	if err != nil {
		return err
	}

	for _, c := range cities {
		p.cities[c.Key] = c
		p.nextCityID = max(p.nextCityID, c.ID)
	}

	p.nextCityID++
	p.logger.InfoContext(ctx, "loaded cities", "count", len(cities))

	return nil
}

// atoui parses the leading decimal digits of s, stopping at the first
// character that is not a digit.
func atoui(s string) (n uint32) {
	for i := range len(s) {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}

		n = n*10 + uint32(c-'0')
	}

	return n
}
