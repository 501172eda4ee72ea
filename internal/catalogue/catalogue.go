// Package catalogue contains the country, state, and city catalogue
// entities and their persistent storage.
package catalogue

import "context"

// Country is a country catalogue entry.
type Country struct {
	// Key is the ISO 3166-1 alpha-2 code of the country.
	Key string

	// Name is the native or Russian name of the country.
	Name string

	// NameEn is the English name of the country.
	NameEn string

	// ID is the catalogue identifier.
	ID uint32

	// Weight is the sorting weight.  New entries get their identifier
	// as the initial weight.
	Weight uint32

	// Dirty is true when the entry has been created or modified since
	// it was loaded and must be written back.
	Dirty bool
}

// State is a state catalogue entry.
type State struct {
	// Key is the country code and the subdivision code joined with a
	// dot, for example "US.CA".
	Key string

	// Name is the native or Russian name of the state.
	Name string

	// NameEn is the English name of the state.
	NameEn string

	// ID is the catalogue identifier.
	ID uint32

	// CountryID is the identifier of the country the state belongs to.
	CountryID uint32

	// Weight is the sorting weight.  New entries get their identifier
	// as the initial weight.
	Weight uint32

	// Dirty is true when the entry has been created or modified since
	// it was loaded and must be written back.
	Dirty bool
}

// City is a city catalogue entry.
type City struct {
	// Key is the state key and the GeoNames identifier joined with a
	// dot, for example "US.CA.5368361".
	Key string

	// Name is the native or Russian name of the city.
	Name string

	// NameEn is the English name of the city.
	NameEn string

	// ID is the catalogue identifier.
	ID uint32

	// StateID is the identifier of the state the city belongs to.
	StateID uint32

	// Weight is the sorting weight.  New entries get their identifier
	// as the initial weight.
	Weight uint32

	// Dirty is true when the entry has been created or modified since
	// it was loaded and must be written back.
	Dirty bool
}

// Storage is the persistent storage of the catalogue.
type Storage interface {
	// LoadCountries returns all country entries.
	LoadCountries(ctx context.Context) (countries []*Country, err error)

	// LoadStates returns all state entries.
	LoadStates(ctx context.Context) (states []*State, err error)

	// LoadCities returns all city entries.
	LoadCities(ctx context.Context) (cities []*City, err error)

	// SaveCountries upserts the given country entries.
	SaveCountries(ctx context.Context, countries []*Country) (err error)

	// SaveStates upserts the given state entries.
	SaveStates(ctx context.Context, states []*State) (err error)

	// SaveCities upserts the given city entries.
	SaveCities(ctx context.Context, cities []*City) (err error)
}
