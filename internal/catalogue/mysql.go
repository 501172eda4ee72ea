package catalogue

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/go-sql-driver/mysql"
)

// MySQLConfig is the configuration of the MySQL catalogue storage.
type MySQLConfig struct {
	// Logger is used for logging the operation of the storage.  It must
	// not be nil.
	Logger *slog.Logger

	// Host is the database server host.
	Host string

	// User is the database user name.
	User string

	// Password is the database user password.
	Password string

	// Database is the database name.
	Database string

	// Port is the database server port.
	Port uint16
}

// MySQL is the MySQL-backed catalogue storage.
//
// Use [NewMySQL] to construct instances.
type MySQL struct {
	logger *slog.Logger
	db     *sql.DB
}

// NewMySQL opens a connection to the database and returns the storage.
// c must not be nil.
func NewMySQL(ctx context.Context, c *MySQLConfig) (s *MySQL, err error) {
	conf := mysql.NewConfig()
	conf.Net = "tcp"
	conf.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	conf.User = c.User
	conf.Passwd = c.Password
	conf.DBName = c.Database

	db, err := sql.Open("mysql", conf.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		return nil, errors.WithDeferred(fmt.Errorf("connecting: %w", err), db.Close())
	}

	return &MySQL{
		logger: c.Logger,
		db:     db,
	}, nil
}

// type check
var _ Storage = (*MySQL)(nil)

// Close closes the underlying database connection.
func (s *MySQL) Close() (err error) {
	return s.db.Close()
}

// LoadCountries implements the [Storage] interface for *MySQL.
func (s *MySQL) LoadCountries(ctx context.Context) (countries []*Country, err error) {
	defer func() { err = errors.Annotate(err, "loading countries: %w") }()

	rows, err := s.db.QueryContext(
		ctx,
		"select id, `key`, name, name_en, weight from countries",
	)
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.WithDeferred(err, rows.Close()) }()

	for rows.Next() {
		c := &Country{}
		err = rows.Scan(&c.ID, &c.Key, &c.Name, &c.NameEn, &c.Weight)
		if err != nil {
			return nil, fmt.Errorf("scanning row %d: %w", len(countries), err)
		}

		countries = append(countries, c)
	}

	return countries, rows.Err()
}

// LoadStates implements the [Storage] interface for *MySQL.
func (s *MySQL) LoadStates(ctx context.Context) (states []*State, err error) {
	defer func() { err = errors.Annotate(err, "loading states: %w") }()

	rows, err := s.db.QueryContext(
		ctx,
		"select id, country_id, `key`, name, name_en, weight from states",
	)
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.WithDeferred(err, rows.Close()) }()

	for rows.Next() {
		st := &State{}
		err = rows.Scan(&st.ID, &st.CountryID, &st.Key, &st.Name, &st.NameEn, &st.Weight)
		if err != nil {
			return nil, fmt.Errorf("scanning row %d: %w", len(states), err)
		}

		states = append(states, st)
	}

	return states, rows.Err()
}

// LoadCities implements the [Storage] interface for *MySQL.
func (s *MySQL) LoadCities(ctx context.Context) (cities []*City, err error) {
	defer func() { err = errors.Annotate(err, "loading cities: %w") }()

	rows, err := s.db.QueryContext(
		ctx,
		"select id, state_id, `key`, name, name_en, weight from cities",
	)
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.WithDeferred(err, rows.Close()) }()

	for rows.Next() {
		c := &City{}
		err = rows.Scan(&c.ID, &c.StateID, &c.Key, &c.Name, &c.NameEn, &c.Weight)
		if err != nil {
			return nil, fmt.Errorf("scanning row %d: %w", len(cities), err)
		}

		cities = append(cities, c)
	}

	return cities, rows.Err()
}

// SaveCountries implements the [Storage] interface for *MySQL.
func (s *MySQL) SaveCountries(ctx context.Context, countries []*Country) (err error) {
	defer func() { err = errors.Annotate(err, "saving countries: %w") }()

	stmt, err := s.db.PrepareContext(
		ctx,
		"replace into countries (id, `key`, name, name_en, weight) values (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return err
	}
	defer func() { err = errors.WithDeferred(err, stmt.Close()) }()

	for _, c := range countries {
		_, err = stmt.ExecContext(ctx, c.ID, c.Key, c.Name, c.NameEn, c.Weight)
		if err != nil {
			return fmt.Errorf("country %d: %w", c.ID, err)
		}
	}

	return nil
}

// SaveStates implements the [Storage] interface for *MySQL.
func (s *MySQL) SaveStates(ctx context.Context, states []*State) (err error) {
	defer func() { err = errors.Annotate(err, "saving states: %w") }()

	stmt, err := s.db.PrepareContext(
		ctx,
		"replace into states (id, country_id, `key`, name, name_en, weight)"+
			" values (?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return err
	}
	defer func() { err = errors.WithDeferred(err, stmt.Close()) }()

	for _, st := range states {
		_, err = stmt.ExecContext(ctx, st.ID, st.CountryID, st.Key, st.Name, st.NameEn, st.Weight)
		if err != nil {
			return fmt.Errorf("state %d: %w", st.ID, err)
		}
	}

	return nil
}

// SaveCities implements the [Storage] interface for *MySQL.
func (s *MySQL) SaveCities(ctx context.Context, cities []*City) (err error) {
	defer func() { err = errors.Annotate(err, "saving cities: %w") }()

	stmt, err := s.db.PrepareContext(
		ctx,
		"replace into cities (id, state_id, `key`, name, name_en, weight)"+
			" values (?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return err
	}
	defer func() { err = errors.WithDeferred(err, stmt.Close()) }()

	for _, c := range cities {
		_, err = stmt.ExecContext(ctx, c.ID, c.StateID, c.Key, c.Name, c.NameEn, c.Weight)
		if err != nil {
			return fmt.Errorf("city %d: %w", c.ID, err)
		}
	}

	return nil
}
