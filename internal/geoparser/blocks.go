package geoparser

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/ggadnet/geodb/internal/geodb"
	"github.com/ggadnet/geodb/internal/geodb/geodbpb"
	"github.com/ggadnet/geodb/internal/iso3166"
)

// blocksFields is the expected header of a MaxMind city blocks file.
var blocksFields = []string{
	"network",
	"geoname_id",
	"registered_country_geoname_id",
	"represented_country_geoname_id",
	"is_anonymous_proxy",
	"is_satellite_provider",
	"postal_code",
	"latitude",
	"longitude",
	"accuracy_radius",
}

// Indexes of the blocks fields used by the builder.
const (
	blockFieldNetwork    = 0
	blockFieldGeonameID  = 1
	blockFieldRegistered = 2
)

// loadBlocks reads a blocks file and emits an IP range for every
// network whose location is known.
func (p *Parser) loadBlocks(ctx context.Context, file string, v6 bool) (err error) {
	path := filepath.Join(p.maxMindPath, file)
	defer func() { err = errors.Annotate(err, "blocks %q: %w", path) }()

	f, r, err := openCSV(path, blocksFields)
	if err != nil {
		return err
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	count := 0
	for line := 1; ; line++ {
		rec, readErr := r.Read()
		if readErr == io.EOF {
			break
		} else if readErr != nil {
			return fmt.Errorf("reading line %d: %w", line, readErr)
		}

		network := rec[blockFieldNetwork]
		if !strings.Contains(network, "/") {
			p.logger.WarnContext(ctx, "bad network", "line", line, "path", path)

			continue
		}

		loc, ok := p.findLocation(rec)
		if !ok {
			continue
		}

		if v6 {
			p.emitRangeV6(ctx, network, loc)
		} else {
			p.emitRangeV4(ctx, network, loc)
		}

		count++
	}

	p.logger.InfoContext(ctx, "loaded blocks", "path", path, "count", count)

	return nil
}

// findLocation resolves the location of a blocks record, falling back
// from the network's own GeoNames identifier to the registered
// country's one.
func (p *Parser) findLocation(rec []string) (loc *location, ok bool) {
	loc, ok = p.locations[atoui(rec[blockFieldGeonameID])]
	if ok {
		return loc, true
	}

	if rec[blockFieldRegistered] == "" {
		return nil, false
	}

	loc, ok = p.locations[atoui(rec[blockFieldRegistered])]

	return loc, ok
}

// countryKey returns the ISO 3166-1 alpha-3 code for the location's
// alpha-2 country code.  Codes missing from the table are passed
// through with a warning.
func (p *Parser) countryKey(ctx context.Context, alpha2 string) (key string) {
	key, ok := iso3166.ToAlpha3(alpha2)
	if !ok {
		p.logger.WarnContext(ctx, "unknown country code", "code", alpha2)

		return alpha2
	}

	return key
}

// emitRangeV4 appends an IPv4 range for the network.
func (p *Parser) emitRangeV4(ctx context.Context, network string, loc *location) {
	from, to := geodb.Net4ToRange(network)
	p.geo.IPsV4 = append(p.geo.IPsV4, &geodbpb.IPv4Range{
		CountryKey: p.countryKey(ctx, loc.countryKey),
		StateKey:   loc.stateKey,
		CityName:   loc.cityName,
		From:       uint32(from),
		To:         uint32(to),
		CountryID:  loc.countryID,
		StateID:    loc.stateID,
		CityID:     loc.cityID,
	})
}

// emitRangeV6 appends an IPv6 range for the network.
func (p *Parser) emitRangeV6(ctx context.Context, network string, loc *location) {
	from, to := geodb.Net6ToRange(network)
	p.geo.IPsV6 = append(p.geo.IPsV6, &geodbpb.IPv6Range{
		CountryKey: p.countryKey(ctx, loc.countryKey),
		StateKey:   loc.stateKey,
		CityName:   loc.cityName,
		FromHi:     from.Hi,
		FromLo:     from.Lo,
		ToHi:       to.Hi,
		ToLo:       to.Lo,
		CountryID:  loc.countryID,
		StateID:    loc.stateID,
		CityID:     loc.cityID,
	})
}
