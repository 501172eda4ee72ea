package geodbsvc

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/validate"
)

// Default configuration values.
const (
	// DefaultFile is the snapshot file path used when the configuration
	// does not set one.
	DefaultFile = "geodb.dat"

	// DefaultCheckForUpdateTimeout is the default interval between
	// snapshot file modification checks.
	DefaultCheckForUpdateTimeout = 5 * time.Second
)

// MinCheckForUpdateTimeout is the smallest allowed interval between
// snapshot file modification checks.
const MinCheckForUpdateTimeout = 2 * time.Second

// Config is the configuration of the geolocation lookup service.
type Config struct {
	// Logger is used for logging the operation of the service.  It must
	// not be nil.
	Logger *slog.Logger

	// File is the path to the snapshot file.
	File string

	// CheckForUpdateTimeout is the interval between snapshot file
	// modification checks.  It must not be less than
	// [MinCheckForUpdateTimeout].
	CheckForUpdateTimeout time.Duration

	// DontLoad, if true, disables both the initial load and the file
	// watcher.  All lookups return the empty element.
	DontLoad bool
}

// type check
var _ validate.Interface = (*Config)(nil)

// Validate implements the [validate.Interface] interface for *Config.
func (c *Config) Validate() (err error) {
	if c == nil {
		return errors.ErrNoValue
	}

	errs := []error{
		validate.NotNil("logger", c.Logger),
		validate.NotEmpty("file", c.File),
	}

	if c.CheckForUpdateTimeout < MinCheckForUpdateTimeout {
		errs = append(errs, fmt.Errorf(
			"check_for_update_timeout: %w: got %s, minimum %s",
			errors.ErrOutOfRange,
			c.CheckForUpdateTimeout,
			MinCheckForUpdateTimeout,
		))
	}

	return errors.Join(errs...)
}

// jsonConf is the JSON configuration document containing the geodb
// section.
type jsonConf struct {
	GeoDB *jsonGeoDBConf `json:"geodb"`
}

// jsonGeoDBConf is the geodb section of the JSON configuration
// document.
type jsonGeoDBConf struct {
	File                  string  `json:"file"`
	CheckForUpdateTimeout float64 `json:"check_for_update_timeout"`
	DontLoad              bool    `json:"dont_load"`
}

// ParseConfig reads the geodb section of the JSON configuration
// document b and returns the service configuration with defaults
// applied.  logger must not be nil.
func ParseConfig(b []byte, logger *slog.Logger) (c *Config, err error) {
	defer func() { err = errors.Annotate(err, "geodb config: %w") }()

	doc := &jsonConf{}
	err = json.Unmarshal(b, doc)
	if err != nil {
		return nil, err
	}

	c = &Config{
		Logger:                logger,
		File:                  DefaultFile,
		CheckForUpdateTimeout: DefaultCheckForUpdateTimeout,
	}

	sect := doc.GeoDB
	if sect == nil {
		return c, nil
	}

	if sect.File != "" {
		c.File = sect.File
	}

	if sect.CheckForUpdateTimeout != 0 {
		c.CheckForUpdateTimeout = time.Duration(sect.CheckForUpdateTimeout * float64(time.Second))
	}

	c.DontLoad = sect.DontLoad

	err = c.Validate()
	if err != nil {
		return nil, err
	}

	return c, nil
}
