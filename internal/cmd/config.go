package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/validate"
)

// Default configuration values.
const (
	defaultConfPath = "geo_parser.conf"

	defaultDBHost    = "localhost"
	defaultDBPort    = 3306
	defaultGeoDBFile = "geodb.dat"

	defaultMaxMindPath        = "./"
	defaultMaxMindIPv4File    = "GeoLite2-City-Blocks-IPv4.csv"
	defaultMaxMindIPv6File    = "GeoLite2-City-Blocks-IPv6.csv"
	defaultMaxMindLocationsEn = "GeoLite2-City-Locations-en.csv"
	defaultMaxMindLocationsRu = "GeoLite2-City-Locations-ru.csv"
)

// configuration is the JSON configuration structure of the builder.
type configuration struct {
	DB      *dbConfig      `json:"db"`
	MaxMind *maxmindConfig `json:"maxmind"`
}

// dbConfig is the db section of the configuration.
type dbConfig struct {
	Host           string `json:"host"`
	User           string `json:"user"`
	Password       string `json:"password"`
	DB             string `json:"db"`
	GeoDBFile      string `json:"geodb_file"`
	Port           uint16 `json:"port"`
	StoreCatalogue bool   `json:"store_catalogue"`
}

// maxmindConfig is the maxmind section of the configuration.
type maxmindConfig struct {
	Path            string `json:"path"`
	IPv4File        string `json:"ipv4_file"`
	IPv6File        string `json:"ipv6_file"`
	LocationsEnFile string `json:"locations_en_file"`
	LocationsRuFile string `json:"locations_ru_file"`
}

// type check
var _ validate.Interface = (*configuration)(nil)

// Validate implements the [validate.Interface] interface for
// *configuration.
func (c *configuration) Validate() (err error) {
	if c == nil {
		return errors.ErrNoValue
	}

	if c.DB == nil {
		return fmt.Errorf("db: %w", errors.ErrNoValue)
	}

	return errors.Join(
		validate.NotEmpty("db.user", c.DB.User),
		validate.NotEmpty("db.password", c.DB.Password),
		validate.NotEmpty("db.db", c.DB.DB),
	)
}

// parseConfig reads the configuration file at path and fills in the
// defaults for the values the file leaves out.
func parseConfig(path string) (c *configuration, err error) {
	defer func() { err = errors.Annotate(err, "config %q: %w", path) }()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c = &configuration{}
	err = json.Unmarshal(b, c)
	if err != nil {
		return nil, err
	}

	if c.DB == nil {
		c.DB = &dbConfig{}
	}

	if c.DB.Host == "" {
		c.DB.Host = defaultDBHost
	}

	if c.DB.Port == 0 {
		c.DB.Port = defaultDBPort
	}

	if c.DB.GeoDBFile == "" {
		c.DB.GeoDBFile = defaultGeoDBFile
	}

	if c.MaxMind == nil {
		c.MaxMind = &maxmindConfig{}
	}

	if c.MaxMind.Path == "" {
		c.MaxMind.Path = defaultMaxMindPath
	}

	if c.MaxMind.IPv4File == "" {
		c.MaxMind.IPv4File = defaultMaxMindIPv4File
	}

	if c.MaxMind.IPv6File == "" {
		c.MaxMind.IPv6File = defaultMaxMindIPv6File
	}

	if c.MaxMind.LocationsEnFile == "" {
		c.MaxMind.LocationsEnFile = defaultMaxMindLocationsEn
	}

	if c.MaxMind.LocationsRuFile == "" {
		c.MaxMind.LocationsRuFile = defaultMaxMindLocationsRu
	}

	return c, nil
}
