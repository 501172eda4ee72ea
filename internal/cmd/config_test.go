package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AdguardTeam/golibs/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConf writes data to a temporary configuration file and returns
// its path.
func writeConf(t *testing.T, data string) (path string) {
	t.Helper()

	path = filepath.Join(t.TempDir(), "geo_parser.conf")
	err := os.WriteFile(path, []byte(data), 0o644)
	require.NoError(t, err)

	return path
}

func TestParseConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		path := writeConf(t, `{"db":{"user":"u","password":"p","db":"geo"}}`)

		c, err := parseConfig(path)
		require.NoError(t, err)

		assert.Equal(t, defaultDBHost, c.DB.Host)
		assert.Equal(t, uint16(defaultDBPort), c.DB.Port)
		assert.Equal(t, defaultGeoDBFile, c.DB.GeoDBFile)
		assert.False(t, c.DB.StoreCatalogue)

		assert.Equal(t, defaultMaxMindPath, c.MaxMind.Path)
		assert.Equal(t, defaultMaxMindIPv4File, c.MaxMind.IPv4File)
		assert.Equal(t, defaultMaxMindIPv6File, c.MaxMind.IPv6File)
		assert.Equal(t, defaultMaxMindLocationsEn, c.MaxMind.LocationsEnFile)
		assert.Equal(t, defaultMaxMindLocationsRu, c.MaxMind.LocationsRuFile)

		assert.NoError(t, c.Validate())
	})

	t.Run("overrides", func(t *testing.T) {
		path := writeConf(t, `{
			"db": {
				"host": "db.example.com",
				"port": 3307,
				"user": "u",
				"password": "p",
				"db": "geo",
				"geodb_file": "/var/lib/geodb.dat",
				"store_catalogue": true
			},
			"maxmind": {
				"path": "/opt/maxmind",
				"ipv4_file": "v4.csv",
				"ipv6_file": "v6.csv",
				"locations_en_file": "en.csv",
				"locations_ru_file": "ru.csv"
			}
		}`)

		c, err := parseConfig(path)
		require.NoError(t, err)

		assert.Equal(t, "db.example.com", c.DB.Host)
		assert.Equal(t, uint16(3307), c.DB.Port)
		assert.Equal(t, "/var/lib/geodb.dat", c.DB.GeoDBFile)
		assert.True(t, c.DB.StoreCatalogue)

		assert.Equal(t, "/opt/maxmind", c.MaxMind.Path)
		assert.Equal(t, "v4.csv", c.MaxMind.IPv4File)
		assert.Equal(t, "v6.csv", c.MaxMind.IPv6File)
		assert.Equal(t, "en.csv", c.MaxMind.LocationsEnFile)
		assert.Equal(t, "ru.csv", c.MaxMind.LocationsRuFile)
	})

	t.Run("missing_file", func(t *testing.T) {
		_, err := parseConfig(filepath.Join(t.TempDir(), "none.conf"))
		assert.Error(t, err)
	})

	t.Run("bad_json", func(t *testing.T) {
		path := writeConf(t, `{`)

		_, err := parseConfig(path)
		testutil.AssertErrorMsg(
			t,
			`config "`+path+`": unexpected end of JSON input`,
			err,
		)
	})
}

func TestConfiguration_Validate(t *testing.T) {
	testCases := []struct {
		name       string
		conf       string
		wantErrMsg string
	}{{
		name:       "ok",
		conf:       `{"db":{"user":"u","password":"p","db":"geo"}}`,
		wantErrMsg: "",
	}, {
		name:       "no_user",
		conf:       `{"db":{"password":"p","db":"geo"}}`,
		wantErrMsg: "db.user: empty value",
	}, {
		name:       "no_password",
		conf:       `{"db":{"user":"u","db":"geo"}}`,
		wantErrMsg: "db.password: empty value",
	}, {
		name:       "no_db",
		conf:       `{"db":{"user":"u","password":"p"}}`,
		wantErrMsg: "db.db: empty value",
	}, {
		name: "nothing",
		conf: `{"db":{}}`,
		wantErrMsg: "db.user: empty value\n" +
			"db.password: empty value\n" +
			"db.db: empty value",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConf(t, tc.conf)

			c, err := parseConfig(path)
			require.NoError(t, err)

			testutil.AssertErrorMsg(t, tc.wantErrMsg, c.Validate())
		})
	}
}
