// Package cataloguetest contains test implementations of the catalogue
// interfaces.
package cataloguetest

import (
	"context"

	"github.com/ggadnet/geodb/internal/catalogue"
)

// type check
var _ catalogue.Storage = (*Storage)(nil)

// Storage is a catalogue.Storage for tests.
type Storage struct {
	OnLoadCountries func(ctx context.Context) (countries []*catalogue.Country, err error)
	OnLoadStates    func(ctx context.Context) (states []*catalogue.State, err error)
	OnLoadCities    func(ctx context.Context) (cities []*catalogue.City, err error)
	OnSaveCountries func(ctx context.Context, countries []*catalogue.Country) (err error)
	OnSaveStates    func(ctx context.Context, states []*catalogue.State) (err error)
	OnSaveCities    func(ctx context.Context, cities []*catalogue.City) (err error)
}

// LoadCountries implements the catalogue.Storage interface for *Storage.
func (s *Storage) LoadCountries(ctx context.Context) (countries []*catalogue.Country, err error) {
	return s.OnLoadCountries(ctx)
}

// LoadStates implements the catalogue.Storage interface for *Storage.
func (s *Storage) LoadStates(ctx context.Context) (states []*catalogue.State, err error) {
	return s.OnLoadStates(ctx)
}

// LoadCities implements the catalogue.Storage interface for *Storage.
func (s *Storage) LoadCities(ctx context.Context) (cities []*catalogue.City, err error) {
	return s.OnLoadCities(ctx)
}

// SaveCountries implements the catalogue.Storage interface for *Storage.
func (s *Storage) SaveCountries(
	ctx context.Context,
	countries []*catalogue.Country,
) (err error) {
	return s.OnSaveCountries(ctx, countries)
}

// SaveStates implements the catalogue.Storage interface for *Storage.
func (s *Storage) SaveStates(ctx context.Context, states []*catalogue.State) (err error) {
	return s.OnSaveStates(ctx, states)
}

// SaveCities implements the catalogue.Storage interface for *Storage.
func (s *Storage) SaveCities(ctx context.Context, cities []*catalogue.City) (err error) {
	return s.OnSaveCities(ctx, cities)
}
