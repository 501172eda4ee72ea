package geoparser_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/testutil"
	"github.com/ggadnet/geodb/internal/catalogue"
	"github.com/ggadnet/geodb/internal/cataloguetest"
	"github.com/ggadnet/geodb/internal/geodb/geodbpb"
	"github.com/ggadnet/geodb/internal/geoparser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTimeout is the common timeout for tests.
const testTimeout = 1 * time.Second

// Test fixture file names.
const (
	testIPv4File        = "blocks-v4.csv"
	testIPv6File        = "blocks-v6.csv"
	testLocationsEnFile = "locations-en.csv"
	testLocationsRuFile = "locations-ru.csv"
)

// locationsHeader is the header line of the locations fixtures.
const locationsHeader = "geoname_id,locale_code,continent_code,continent_name," +
	"country_iso_code,country_name,subdivision_1_iso_code,subdivision_1_name," +
	"subdivision_2_iso_code,subdivision_2_name,city_name,metro_code,time_zone," +
	"is_in_european_union"

// blocksHeader is the header line of the blocks fixtures.
const blocksHeader = "network,geoname_id,registered_country_geoname_id," +
	"represented_country_geoname_id,is_anonymous_proxy,is_satellite_provider," +
	"postal_code,latitude,longitude,accuracy_radius"

// testLocationsEn is the English locations fixture.
const testLocationsEn = locationsHeader + "\n" +
	"6252001,en,NA,North America,US,United States,,,,,,,America/Chicago,0\n" +
	"5332921,en,NA,North America,US,United States,CA,California,,,Los Angeles,803,America/Los_Angeles,0\n" +
	"703884,en,EU,Europe,UA,Ukraine,43,Crimea,,,,,Europe/Simferopol,0\n" +
	"999999,en,,,,,,,,,,,,\n" +
	"111,en,EU,Europe,DE,Germany,HH,,,,,,Europe/Berlin,0\n" +
	"222,en,,,XZ,Nowhere,,,,,,,UTC,0\n"

// testLocationsRu is the Russian locations fixture.
const testLocationsRu = locationsHeader + "\n" +
	"6252001,ru,NA,Северная Америка,US,США,,,,,,,America/Chicago,0\n" +
	"5332921,ru,NA,Северная Америка,US,США,CA,Калифорния,,,Лос-Анджелес,803,America/Los_Angeles,0\n" +
	"703884,ru,EU,Европа,UA,Украина,43,Крым,,,,,Europe/Simferopol,0\n" +
	"111,ru,EU,Европа,DE,Германия,HH,,,,,,Europe/Berlin,0\n"

// testBlocksV4 is the IPv4 blocks fixture.
const testBlocksV4 = blocksHeader + "\n" +
	"1.0.0.0/24,5332921,6252001,,0,0,90001,34.0,-118.0,10\n" +
	"2.0.0.0/24,999,6252001,,0,0,,,,\n" +
	"3.0.0.0/24,999,,,0,0,,,,\n" +
	"badnetwork,5332921,,,0,0,,,,\n" +
	"5.0.0.0/24,703884,,,0,0,,,,\n" +
	"6.0.0.0/24,222,,,0,0,,,,\n"

// testBlocksV6 is the IPv6 blocks fixture.
const testBlocksV6 = blocksHeader + "\n" +
	"2001:db8::/32,5332921,,,0,0,,,,\n"

// writeFixtures writes the MaxMind CSV fixtures and returns their
// directory.
func writeFixtures(t *testing.T) (dir string) {
	t.Helper()

	dir = t.TempDir()
	files := map[string]string{
		testLocationsEnFile: testLocationsEn,
		testLocationsRuFile: testLocationsRu,
		testIPv4File:        testBlocksV4,
		testIPv6File:        testBlocksV6,
	}

	for name, data := range files {
		err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o600)
		require.NoError(t, err)
	}

	return dir
}

// newTestStorage returns a fake catalogue storage pre-seeded with a few
// entries and pointers to the slices capturing the saved entries.
func newTestStorage() (
	s *cataloguetest.Storage,
	savedCountries *[]*catalogue.Country,
	savedStates *[]*catalogue.State,
	savedCities *[]*catalogue.City,
) {
	savedCountries = &[]*catalogue.Country{}
	savedStates = &[]*catalogue.State{}
	savedCities = &[]*catalogue.City{}

	s = &cataloguetest.Storage{
		OnLoadCountries: func(_ context.Context) (countries []*catalogue.Country, err error) {
			return []*catalogue.Country{{
				Key:    "US",
				Name:   "United States",
				NameEn: "United States",
				ID:     100,
				Weight: 100,
			}, {
				Key:    "FR",
				Name:   "Франция",
				NameEn: "France",
				ID:     50,
				Weight: 50,
			}}, nil
		},
		OnLoadStates: func(_ context.Context) (states []*catalogue.State, err error) {
			return []*catalogue.State{{
				Key:       "UA.43",
				Name:      "Крым",
				NameEn:    "Crimea",
				ID:        703883,
				CountryID: 20,
				Weight:    703883,
			}}, nil
		},
		OnLoadCities: func(_ context.Context) (cities []*catalogue.City, err error) {
			return nil, nil
		},
		OnSaveCountries: func(_ context.Context, countries []*catalogue.Country) (err error) {
			*savedCountries = append(*savedCountries, countries...)

			return nil
		},
		OnSaveStates: func(_ context.Context, states []*catalogue.State) (err error) {
			*savedStates = append(*savedStates, states...)

			return nil
		},
		OnSaveCities: func(_ context.Context, cities []*catalogue.City) (err error) {
			*savedCities = append(*savedCities, cities...)

			return nil
		},
	}

	return s, savedCountries, savedStates, savedCities
}

func TestParser_Run(t *testing.T) {
	dir := writeFixtures(t)
	storage, savedCountries, savedStates, savedCities := newTestStorage()

	geoDBFile := filepath.Join(t.TempDir(), "geodb.dat")
	p := geoparser.New(&geoparser.Config{
		Logger:          slogutil.NewDiscardLogger(),
		Storage:         storage,
		GeoDBFile:       geoDBFile,
		MaxMindPath:     dir,
		IPv4File:        testIPv4File,
		IPv6File:        testIPv6File,
		LocationsEnFile: testLocationsEnFile,
		LocationsRuFile: testLocationsRuFile,
	})

	ctx := testutil.ContextWithTimeout(t, testTimeout)
	require.NoError(t, p.Run(ctx))

	b, err := os.ReadFile(geoDBFile)
	require.NoError(t, err)

	g, err := geodbpb.Unmarshal(b)
	require.NoError(t, err)

	// The catalogue sections are not written by default.
	assert.Empty(t, g.Countries)
	assert.Empty(t, g.States)
	assert.Empty(t, g.Cities)

	wantV4 := []*geodbpb.IPv4Range{{
		CountryKey: "USA",
		StateKey:   "CA",
		CityName:   "Los Angeles",
		From:       0x01000000,
		To:         0x010000FF,
		CountryID:  100,
		StateID:    703884,
		CityID:     1,
	}, {
		// Unknown geoname identifier with a known registered country.
		CountryKey: "USA",
		From:       0x02000000,
		To:         0x020000FF,
		CountryID:  100,
	}, {
		// The Crimean state keeps its own identifier while the country
		// is reattributed.
		CountryKey: "UKR",
		StateKey:   "43",
		From:       0x05000000,
		To:         0x050000FF,
		CountryID:  2017370,
		StateID:    703883,
	}, {
		// A country code missing from the ISO table is passed through.
		CountryKey: "XZ",
		From:       0x06000000,
		To:         0x060000FF,
		CountryID:  103,
	}}
	assert.Equal(t, wantV4, g.IPsV4)

	wantV6 := []*geodbpb.IPv6Range{{
		CountryKey: "USA",
		StateKey:   "CA",
		CityName:   "Los Angeles",
		FromHi:     0x20010DB800000000,
		FromLo:     0,
		ToHi:       0x20010DB8FFFFFFFF,
		ToLo:       0xFFFFFFFFFFFFFFFF,
		CountryID:  100,
		StateID:    703884,
		CityID:     1,
	}}
	assert.Equal(t, wantV6, g.IPsV6)

	// Only the created and modified entries are written back.  The
	// untouched France entry is not.
	gotCountries := map[string]*catalogue.Country{}
	for _, c := range *savedCountries {
		gotCountries[c.Key] = c
	}

	require.Len(t, gotCountries, 4)
	assert.NotContains(t, gotCountries, "FR")

	// The Russian pass updates the name, the English one the English
	// name.
	us := gotCountries["US"]
	assert.Equal(t, "США", us.Name)
	assert.Equal(t, "United States", us.NameEn)
	assert.EqualValues(t, 100, us.ID)

	// New countries get sequential identifiers above the database
	// maximum, with the identifier doubling as the weight.
	ua := gotCountries["UA"]
	assert.EqualValues(t, 101, ua.ID)
	assert.EqualValues(t, 101, ua.Weight)
	assert.Equal(t, "Украина", ua.Name)
	assert.Equal(t, "Ukraine", ua.NameEn)

	de := gotCountries["DE"]
	assert.EqualValues(t, 102, de.ID)

	xz := gotCountries["XZ"]
	assert.EqualValues(t, 103, xz.ID)

	gotStates := map[string]*catalogue.State{}
	for _, s := range *savedStates {
		gotStates[s.Key] = s
	}

	require.Len(t, gotStates, 3)

	ca := gotStates["US.CA"]
	assert.EqualValues(t, 703884, ca.ID)
	assert.EqualValues(t, 703884, ca.Weight)
	assert.EqualValues(t, 100, ca.CountryID)
	assert.Equal(t, "Калифорния", ca.Name)
	assert.Equal(t, "California", ca.NameEn)

	crimea := gotStates["UA.43"]
	assert.Equal(t, "Крым", crimea.Name)
	assert.Equal(t, "Crimea", crimea.NameEn)

	// A state without a name falls back to its subdivision code.
	hh := gotStates["DE.HH"]
	assert.Equal(t, "HH", hh.Name)
	assert.Equal(t, "HH", hh.NameEn)

	gotCities := map[string]*catalogue.City{}
	for _, c := range *savedCities {
		gotCities[c.Key] = c
	}

	require.Len(t, gotCities, 1)

	la := gotCities["US.CA.5332921"]
	assert.EqualValues(t, 1, la.ID)
	assert.EqualValues(t, 703884, la.StateID)
	assert.Equal(t, "Лос-Анджелес", la.Name)
	assert.Equal(t, "Los Angeles", la.NameEn)
}

func TestParser_Run_storeCatalogue(t *testing.T) {
	dir := writeFixtures(t)
	storage, _, _, _ := newTestStorage()

	geoDBFile := filepath.Join(t.TempDir(), "geodb.dat")
	p := geoparser.New(&geoparser.Config{
		Logger:          slogutil.NewDiscardLogger(),
		Storage:         storage,
		GeoDBFile:       geoDBFile,
		MaxMindPath:     dir,
		IPv4File:        testIPv4File,
		IPv6File:        testIPv6File,
		LocationsEnFile: testLocationsEnFile,
		LocationsRuFile: testLocationsRuFile,
		StoreCatalogue:  true,
	})

	ctx := testutil.ContextWithTimeout(t, testTimeout)
	require.NoError(t, p.Run(ctx))

	b, err := os.ReadFile(geoDBFile)
	require.NoError(t, err)

	g, err := geodbpb.Unmarshal(b)
	require.NoError(t, err)

	require.Len(t, g.Countries, 5)
	require.Len(t, g.States, 3)
	require.Len(t, g.Cities, 1)

	// The section is sorted by the alpha-2 key while carrying the
	// alpha-3 one.
	assert.Equal(t, "DEU", g.Countries[0].Key)
	assert.Equal(t, "FRA", g.Countries[1].Key)
	assert.Equal(t, "UKR", g.Countries[2].Key)
	assert.Equal(t, "USA", g.Countries[3].Key)
	assert.Equal(t, "XZ", g.Countries[4].Key)

	assert.Equal(t, "US.CA.5332921", g.Cities[0].Key)
}

func TestParser_Run_badHeader(t *testing.T) {
	dir := writeFixtures(t)
	storage, _, _, _ := newTestStorage()

	badFile := "bad.csv"
	err := os.WriteFile(
		filepath.Join(dir, badFile),
		[]byte("foo,bar\n1,2\n"),
		0o600,
	)
	require.NoError(t, err)

	p := geoparser.New(&geoparser.Config{
		Logger:          slogutil.NewDiscardLogger(),
		Storage:         storage,
		GeoDBFile:       filepath.Join(t.TempDir(), "geodb.dat"),
		MaxMindPath:     dir,
		IPv4File:        testIPv4File,
		IPv6File:        testIPv6File,
		LocationsEnFile: badFile,
		LocationsRuFile: testLocationsRuFile,
	})

	ctx := testutil.ContextWithTimeout(t, testTimeout)
	assert.Error(t, p.Run(ctx))
}

func TestParser_Run_badFieldCount(t *testing.T) {
	dir := writeFixtures(t)
	storage, _, _, _ := newTestStorage()

	badFile := "bad.csv"
	err := os.WriteFile(
		filepath.Join(dir, badFile),
		[]byte(locationsHeader+"\n1,2,3\n"),
		0o600,
	)
	require.NoError(t, err)

	p := geoparser.New(&geoparser.Config{
		Logger:          slogutil.NewDiscardLogger(),
		Storage:         storage,
		GeoDBFile:       filepath.Join(t.TempDir(), "geodb.dat"),
		MaxMindPath:     dir,
		IPv4File:        testIPv4File,
		IPv6File:        testIPv6File,
		LocationsEnFile: badFile,
		LocationsRuFile: testLocationsRuFile,
	})

	ctx := testutil.ContextWithTimeout(t, testTimeout)
	assert.Error(t, p.Run(ctx))
}

func TestParser_Run_missingFile(t *testing.T) {
	dir := writeFixtures(t)
	storage, _, _, _ := newTestStorage()

	p := geoparser.New(&geoparser.Config{
		Logger:          slogutil.NewDiscardLogger(),
		Storage:         storage,
		GeoDBFile:       filepath.Join(t.TempDir(), "geodb.dat"),
		MaxMindPath:     dir,
		IPv4File:        testIPv4File,
		IPv6File:        testIPv6File,
		LocationsEnFile: "does-not-exist.csv",
		LocationsRuFile: testLocationsRuFile,
	})

	ctx := testutil.ContextWithTimeout(t, testTimeout)
	assert.Error(t, p.Run(ctx))
}
