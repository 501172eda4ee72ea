// Package cmd is the entry point of the geodb snapshot builder.
package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/osutil"
	"github.com/ggadnet/geodb/internal/catalogue"
	"github.com/ggadnet/geodb/internal/geoparser"
)

// envConfPath is the environment variable that overrides the default
// configuration file path.
const envConfPath = "GEO_PARSER_CONF"

// Main is the entry point of the builder.  It reads the configuration,
// connects to the catalogue storage, and runs the build.
func Main() {
	l := slogutil.New(nil)
	ctx := context.Background()

	confPath := defaultConfPath
	if p, ok := os.LookupEnv(envConfPath); ok {
		confPath = p
	}

	c, err := parseConfig(confPath)
	exitOnError(ctx, l, err)

	err = c.Validate()
	exitOnError(ctx, l, err)

	storage, err := catalogue.NewMySQL(ctx, &catalogue.MySQLConfig{
		Logger:   l.With(slogutil.KeyPrefix, "mysql"),
		Host:     c.DB.Host,
		User:     c.DB.User,
		Password: c.DB.Password,
		Database: c.DB.DB,
		Port:     c.DB.Port,
	})
	exitOnError(ctx, l, err)
	defer func() { exitOnError(ctx, l, storage.Close()) }()

	p := geoparser.New(&geoparser.Config{
		Logger:          l.With(slogutil.KeyPrefix, "parser"),
		Storage:         storage,
		GeoDBFile:       c.DB.GeoDBFile,
		MaxMindPath:     c.MaxMind.Path,
		IPv4File:        c.MaxMind.IPv4File,
		IPv6File:        c.MaxMind.IPv6File,
		LocationsEnFile: c.MaxMind.LocationsEnFile,
		LocationsRuFile: c.MaxMind.LocationsRuFile,
		StoreCatalogue:  c.DB.StoreCatalogue,
	})

	err = p.Run(ctx)
	exitOnError(ctx, l, err)
}

// exitOnError logs err and exits with a failure code if err is not nil.
func exitOnError(ctx context.Context, l *slog.Logger, err error) {
	if err != nil {
		l.ErrorContext(ctx, "fatal error", slogutil.KeyError, err)

		os.Exit(osutil.ExitCodeFailure)
	}
}
