package geoparser

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/ggadnet/geodb/internal/catalogue"
)

// locationsFields is the expected header of a MaxMind city locations
// file.
var locationsFields = []string{
	"geoname_id",
	"locale_code",
	"continent_code",
	"continent_name",
	"country_iso_code",
	"country_name",
	"subdivision_1_iso_code",
	"subdivision_1_name",
	"subdivision_2_iso_code",
	"subdivision_2_name",
	"city_name",
	"metro_code",
	"time_zone",
	"is_in_european_union",
}

// Indexes of the locations fields used by the builder.
const (
	locFieldGeonameID  = 0
	locFieldCountryISO = 4
	locFieldCountry    = 5
	locFieldSubdivISO  = 6
	locFieldSubdiv     = 7
	locFieldCity       = 10
)

// Identifiers involved in the reattribution of the Crimean ranges to
// the Russian Federation, the way the source database does it.
const (
	crimeaStateID   = 703883
	crimeaCountryID = 2017370
)

// openCSV opens the named file and returns a CSV reader with the header
// already consumed and validated against fields.
func openCSV(path string, fields []string) (f *os.File, r *csv.Reader, err error) {
	f, err = os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	r = csv.NewReader(f)
	r.FieldsPerRecord = len(fields)
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return nil, nil, errors.WithDeferred(fmt.Errorf("reading header: %w", err), f.Close())
	}

	if !slices.Equal(header, fields) {
		err = fmt.Errorf("unexpected header %q", header)

		return nil, nil, errors.WithDeferred(err, f.Close())
	}

	return f, r, nil
}

// loadLocations reads a locations file and reconciles it with the
// catalogue.  The English pass, en being true, is responsible for the
// English names; the pass order is English first, then Russian.
func (p *Parser) loadLocations(ctx context.Context, file string, en bool) (err error) {
	path := filepath.Join(p.maxMindPath, file)
	defer func() { err = errors.Annotate(err, "locations %q: %w", path) }()

	f, r, err := openCSV(path, locationsFields)
	if err != nil {
		return err
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	count := 0
	for {
		rec, readErr := r.Read()
		if readErr == io.EOF {
			break
		} else if readErr != nil {
			return fmt.Errorf("reading line %d: %w", count+1, readErr)
		}

		if rec[locFieldCountryISO] == "" {
			continue
		}

		p.processLocation(rec, en)
		count++
	}

	p.logger.InfoContext(ctx, "loaded locations", "path", path, "count", count)

	return nil
}

// processLocation reconciles one locations record with the catalogue
// and remembers the resulting location under its GeoNames identifier.
func (p *Parser) processLocation(rec []string, en bool) {
	locID := atoui(rec[locFieldGeonameID])
	loc := &location{}

	key := rec[locFieldCountryISO]
	p.processCountry(loc, key, rec[locFieldCountry], en)

	if rec[locFieldSubdivISO] != "" {
		key += "." + rec[locFieldSubdivISO]
		p.processState(loc, key, rec[locFieldSubdivISO], rec[locFieldSubdiv], en)

		if rec[locFieldCity] != "" {
			key += "." + rec[locFieldGeonameID]
			p.processCity(loc, key, rec[locFieldCity], en)
		}
	}

	if loc.stateID == crimeaStateID {
		loc.countryID = crimeaCountryID
	}

	p.locations[locID] = loc
}

// processCountry creates or updates the country entry for key and fills
// in the country part of loc.
func (p *Parser) processCountry(loc *location, key, name string, en bool) {
	c, ok := p.countries[key]
	if !ok {
		c = &catalogue.Country{
			Key:   key,
			Name:  name,
			ID:    p.nextCountryID,
			Dirty: true,
		}
		c.Weight = c.ID
		if en {
			c.NameEn = name
		}

		p.nextCountryID++
		p.countries[key] = c
	} else if name != "" {
		if name != c.Name {
			c.Name = name
			c.Dirty = true
		}

		if en && name != c.NameEn {
			c.NameEn = name
			c.Dirty = true
		}
	}

	loc.countryID = c.ID
	loc.countryKey = key
}

// processState creates or updates the state entry for key and fills in
// the state part of loc.  subdiv is the bare subdivision code, name may
// be empty, in which case the code doubles as the name.
func (p *Parser) processState(loc *location, key, subdiv, name string, en bool) {
	s, ok := p.states[key]
	if !ok {
		s = &catalogue.State{
			Key:       key,
			CountryID: loc.countryID,
			ID:        p.nextStateID,
			Dirty:     true,
		}
		s.Weight = s.ID

		if name != "" {
			s.Name = name
			if en {
				s.NameEn = name
			}
		} else {
			s.Name = subdiv
			if en {
				s.NameEn = subdiv
			}
		}

		p.nextStateID++
		p.states[key] = s
	} else if name != "" {
		if name != s.Name {
			s.Name = name
			s.Dirty = true
		}

		if en && name != s.NameEn {
			s.NameEn = name
			s.Dirty = true
		}
	}

	loc.stateID = s.ID
	loc.stateKey = subdiv
}

// processCity creates or updates the city entry for key and fills in
// the city part of loc.
func (p *Parser) processCity(loc *location, key, name string, en bool) {
	c, ok := p.cities[key]
	if !ok {
		c = &catalogue.City{
			Key:     key,
			Name:    name,
			StateID: loc.stateID,
			ID:      p.nextCityID,
			Dirty:   true,
		}
		c.Weight = c.ID
		if en {
			c.NameEn = name
		}

		p.nextCityID++
		p.cities[key] = c
	} else if name != "" {
		if name != c.Name {
			c.Name = name
			c.Dirty = true
		}

		if en && name != c.NameEn {
			c.NameEn = name
			c.Dirty = true
		}
	}

	loc.cityID = c.ID
	loc.cityName = c.NameEn
}
