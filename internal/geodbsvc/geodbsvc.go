// Package geodbsvc contains the geolocation lookup service.  The
// service loads an immutable snapshot from a file, serves lock-free
// lookups from it, and hot-swaps it whenever the file is replaced on
// disk.
package geodbsvc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/service"
	"github.com/c2h5oh/datasize"
	"github.com/ggadnet/geodb/internal/geodb"
	"github.com/ggadnet/geodb/internal/geodb/geodbpb"
	"github.com/ggadnet/geodb/internal/metrics"
)

// unit is a convenient alias for struct{}.
type unit = struct{}

// Service is the geolocation lookup service.  It serves any number of
// concurrent readers and replaces the snapshot in the background when
// the file changes.
//
// Use [New] to construct instances.
type Service struct {
	logger   *slog.Logger
	snapshot atomic.Pointer[geodb.Snapshot]
	done     chan unit
	loopDone chan unit
	file     string
	timeout  time.Duration
	dontLoad bool
}

// New returns a new geolocation lookup service.  c must be valid.
func New(c *Config) (svc *Service) {
	return &Service{
		logger:   c.Logger,
		done:     make(chan unit),
		loopDone: make(chan unit),
		file:     c.File,
		timeout:  c.CheckForUpdateTimeout,
		dontLoad: c.DontLoad,
	}
}

// type check
var _ service.Interface = (*Service)(nil)

// Start implements the [service.Interface] interface for *Service.  It
// performs the initial snapshot load, unless the service is configured
// not to, and starts the file watcher.  An initial load failure is
// returned and the watcher is not started.
func (svc *Service) Start(ctx context.Context) (err error) {
	if svc.dontLoad {
		svc.logger.InfoContext(ctx, "loading disabled")
		go svc.watch(time.Time{})

		return nil
	}

	err = svc.load(ctx)
	if err != nil {
		return fmt.Errorf("initial load: %w", err)
	}

	var lastModified time.Time
	fi, err := os.Stat(svc.file)
	if err == nil {
		lastModified = fi.ModTime()
	}

	go svc.watch(lastModified)

	return nil
}

// Shutdown implements the [service.Interface] interface for *Service.
// It stops the watcher, waits for it to finish, and drops the
// snapshot, so subsequent lookups return the empty element.
func (svc *Service) Shutdown(ctx context.Context) (err error) {
	close(svc.done)

	select {
	case <-svc.loopDone:
		// Go on.
	case <-ctx.Done():
		return fmt.Errorf("waiting for watcher: %w", ctx.Err())
	}

	svc.snapshot.Store(nil)
	svc.logger.InfoContext(ctx, "shut down successfully")

	return nil
}

// load reads the snapshot file, decodes it, and publishes the new
// snapshot.
func (svc *Service) load(ctx context.Context) (err error) {
	defer func() { err = errors.Annotate(err, "loading geodb: %w") }()

	defer func() {
		if err != nil {
			metrics.SnapshotUpdateStatus.WithLabelValues(svc.file).Set(0)
		}
	}()

	b, err := os.ReadFile(svc.file)
	if err != nil {
		return err
	}

	g, err := geodbpb.Unmarshal(b)
	if err != nil {
		return fmt.Errorf("decoding %q: %w", svc.file, err)
	}

	sb := geodb.NewSnapshotBuilder()
	for _, r := range g.IPsV4 {
		sb.AddRangeV4(
			geodb.IPv4(r.From),
			geodb.IPv4(r.To),
			r.CountryID,
			r.StateID,
			r.CityID,
			r.CountryKey,
			r.StateKey,
			r.CityName,
		)
	}

	for _, r := range g.IPsV6 {
		sb.AddRangeV6(
			geodb.IPv6{Hi: r.FromHi, Lo: r.FromLo},
			geodb.IPv6{Hi: r.ToHi, Lo: r.ToLo},
			r.CountryID,
			r.StateID,
			r.CityID,
			r.CountryKey,
			r.StateKey,
			r.CityName,
		)
	}

	s := sb.Build()
	svc.snapshot.Store(s)

	metrics.SnapshotUpdateStatus.WithLabelValues(svc.file).Set(1)
	metrics.SnapshotUpdateTime.WithLabelValues(svc.file).SetToCurrentTime()
	metrics.SnapshotRangesIPv4.Set(float64(s.LenV4()))
	metrics.SnapshotRangesIPv6.Set(float64(s.LenV6()))

	svc.logger.InfoContext(
		ctx,
		"loaded geodb",
		"path", svc.file,
		"size", datasize.ByteSize(len(b)),
		"ipv4_ranges", s.LenV4(),
		"ipv6_ranges", s.LenV6(),
	)

	return nil
}

// watch polls the snapshot file for modifications until Shutdown is
// called.  A modification is acted upon only after the modification
// time has stayed the same for a full polling interval, so that a
// snapshot still being written is not read halfway.
func (svc *Service) watch(lastModified time.Time) {
	defer close(svc.loopDone)

	ctx := context.Background()
	defer slogutil.RecoverAndLog(ctx, svc.logger)

	if svc.dontLoad {
		<-svc.done

		return
	}

	svc.logger.InfoContext(ctx, "starting watcher", "path", svc.file)

	tick := time.NewTicker(svc.timeout)
	defer tick.Stop()

	pending := false
	for {
		select {
		case <-svc.done:
			svc.logger.InfoContext(ctx, "finished watcher")

			return
		case <-tick.C:
			pending, lastModified = svc.check(ctx, pending, lastModified)
		}
	}
}

// check performs one watcher tick and returns the next state.
func (svc *Service) check(
	ctx context.Context,
	pending bool,
	lastModified time.Time,
) (nextPending bool, nextModified time.Time) {
	fi, err := os.Stat(svc.file)
	if err != nil {
		svc.logger.DebugContext(ctx, "checking for update", slogutil.KeyError, err)

		return pending, lastModified
	}

	modified := fi.ModTime()
	if pending {
		if modified.Equal(lastModified) {
			err = svc.load(ctx)
			if err != nil {
				svc.logger.ErrorContext(ctx, "reloading", slogutil.KeyError, err)
			}

			return false, lastModified
		}

		return true, modified
	}

	if modified.After(lastModified) {
		svc.logger.DebugContext(ctx, "file modified", "path", svc.file)

		return true, modified
	}

	return false, lastModified
}

// IPv4 returns the location element of the range containing ip.  The
// result is the empty element when there is no snapshot or no matching
// range.
func (svc *Service) IPv4(ip geodb.IPv4) (el geodb.Element) {
	s := svc.snapshot.Load()
	if s == nil {
		return geodb.Element{}
	}

	return s.FindV4(ip)
}

// IPv6 returns the location element of the range containing ip.  The
// result is the empty element when there is no snapshot or no matching
// range.
func (svc *Service) IPv6(ip geodb.IPv6) (el geodb.Element) {
	s := svc.snapshot.Load()
	if s == nil {
		return geodb.Element{}
	}

	return s.FindV6(ip)
}

// IPv4String looks up the location of a textual IPv4 address.
func (svc *Service) IPv4String(s string) (el geodb.Element) {
	return svc.IPv4(geodb.IPv4FromString(s))
}

// IPv6String looks up the location of a textual IPv6 address.
func (svc *Service) IPv6String(s string) (el geodb.Element) {
	return svc.IPv6(geodb.IPv6FromString(s))
}

// IP looks up the location of a textual IP address of either family.
// Strings that are not valid IP addresses produce the empty element.
func (svc *Service) IP(s string) (el geodb.Element) {
	switch {
	case geodb.CheckIPv4(s):
		return svc.IPv4String(s)
	case geodb.CheckIPv6(s):
		return svc.IPv6String(s)
	default:
		return geodb.Element{}
	}
}
