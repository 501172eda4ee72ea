package geoparser

import (
	"context"
	"maps"
	"slices"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/c2h5oh/datasize"
	"github.com/ggadnet/geodb/internal/catalogue"
	"github.com/ggadnet/geodb/internal/geodb/geodbpb"
	"github.com/google/renameio/v2"
)

// storeCatalogueSections appends the catalogue entries to the snapshot
// message, in key order.
func (p *Parser) storeCatalogueSections(ctx context.Context) {
	for _, key := range slices.Sorted(maps.Keys(p.countries)) {
		c := p.countries[key]
		p.geo.Countries = append(p.geo.Countries, &geodbpb.Country{
			Key:    p.countryKey(ctx, c.Key),
			Name:   c.Name,
			NameEn: c.NameEn,
			ID:     c.ID,
			Weight: c.Weight,
		})
	}

	for _, key := range slices.Sorted(maps.Keys(p.states)) {
		s := p.states[key]
		p.geo.States = append(p.geo.States, &geodbpb.State{
			Key:       s.Key,
			Name:      s.Name,
			NameEn:    s.NameEn,
			ID:        s.ID,
			CountryID: s.CountryID,
			Weight:    s.Weight,
		})
	}

	for _, key := range slices.Sorted(maps.Keys(p.cities)) {
		c := p.cities[key]
		p.geo.Cities = append(p.geo.Cities, &geodbpb.City{
			Key:     c.Key,
			Name:    c.Name,
			NameEn:  c.NameEn,
			ID:      c.ID,
			StateID: c.StateID,
			Weight:  c.Weight,
		})
	}
}

// saveGeoDB serializes the snapshot and atomically replaces the
// snapshot file, so that concurrent readers never observe a partially
// written file.
func (p *Parser) saveGeoDB(ctx context.Context) (err error) {
	defer func() { err = errors.Annotate(err, "saving geodb: %w") }()

	if p.storeCatalogue {
		p.storeCatalogueSections(ctx)
	}

	b := geodbpb.Marshal(p.geo)
	err = renameio.WriteFile(p.geoDBFile, b, 0o644)
	if err != nil {
		return err
	}

	p.logger.InfoContext(
		ctx,
		"saved geodb",
		"path", p.geoDBFile,
		"size", datasize.ByteSize(len(b)),
		"ipv4_ranges", len(p.geo.IPsV4),
		"ipv6_ranges", len(p.geo.IPsV6),
	)

	return nil
}

// saveToDB writes the created and modified catalogue entries back to
// the storage.
func (p *Parser) saveToDB(ctx context.Context) (err error) {
	var countries []*catalogue.Country
	for _, c := range p.countries {
		if c.Dirty {
			countries = append(countries, c)
		}
	}

	err = p.storage.SaveCountries(ctx, countries)
	if err != nil {
		return err
	}

	p.logger.InfoContext(ctx, "saved countries", "count", len(countries))

	var states []*catalogue.State
	for _, s := range p.states {
		if s.Dirty {
			states = append(states, s)
		}
	}

	err = p.storage.SaveStates(ctx, states)
	if err != nil {
		return err
	}

	p.logger.InfoContext(ctx, "saved states", "count", len(states))

	var cities []*catalogue.City
	for _, c := range p.cities {
		if c.Dirty {
			cities = append(cities, c)
		}
	}

	err = p.storage.SaveCities(ctx, cities)
	if err != nil {
		return err
	}

	p.logger.InfoContext(ctx, "saved cities", "count", len(cities))

	return nil
}
