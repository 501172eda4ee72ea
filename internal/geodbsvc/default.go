package geodbsvc

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ggadnet/geodb/internal/geodb"
)

// defaultMu serializes [Init] and [Stop].  Lookups do not take it.
var defaultMu sync.Mutex

// defaultSvc is the process-wide service instance driven by [Init] and
// [Stop].
var defaultSvc atomic.Pointer[Service]

// Init creates and starts the process-wide service instance.  A second
// call while the instance is running is a no-op.  c must be valid.
func Init(ctx context.Context, c *Config) (err error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultSvc.Load() != nil {
		return nil
	}

	svc := New(c)
	err = svc.Start(ctx)
	if err != nil {
		return err
	}

	defaultSvc.Store(svc)

	return nil
}

// Stop shuts down the process-wide service instance.  Calling it when
// the instance is not running is a no-op.  After Stop all package-level
// lookups return the empty element.
func Stop(ctx context.Context) (err error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	svc := defaultSvc.Load()
	if svc == nil {
		return nil
	}

	err = svc.Shutdown(ctx)
	defaultSvc.Store(nil)

	return err
}

// current returns the running process-wide instance or nil.
func current() (svc *Service) {
	return defaultSvc.Load()
}

// IPv4 looks up the location of ip in the process-wide instance.
func IPv4(ip geodb.IPv4) (el geodb.Element) {
	svc := current()
	if svc == nil {
		return geodb.Element{}
	}

	return svc.IPv4(ip)
}

// IPv6 looks up the location of ip in the process-wide instance.
func IPv6(ip geodb.IPv6) (el geodb.Element) {
	svc := current()
	if svc == nil {
		return geodb.Element{}
	}

	return svc.IPv6(ip)
}

// IPv4String looks up the location of a textual IPv4 address in the
// process-wide instance.
func IPv4String(s string) (el geodb.Element) {
	svc := current()
	if svc == nil {
		return geodb.Element{}
	}

	return svc.IPv4String(s)
}

// IPv6String looks up the location of a textual IPv6 address in the
// process-wide instance.
func IPv6String(s string) (el geodb.Element) {
	svc := current()
	if svc == nil {
		return geodb.Element{}
	}

	return svc.IPv6String(s)
}

// IP looks up the location of a textual IP address of either family in
// the process-wide instance.
func IP(s string) (el geodb.Element) {
	svc := current()
	if svc == nil {
		return geodb.Element{}
	}

	return svc.IP(s)
}
