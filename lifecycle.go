package simnet

import (
	"runtime"

	"github.com/sirupsen/logrus"
)

// Close tears the namespace down: it deregisters the default address from
// the registry and releases the handle. Loopback was never registered
// globally and needs no deregistration, matching construction.
//
// Close is idempotent and runs its body exactly once no matter how many
// teardown paths reach it; a runtime finalizer covers paths that never call
// it at all. It always returns nil and exists as io.Closer for composition
// with the host teardown sequence.
func (ns *NetworkNamespace) Close() error {
	ns.closeOnce.Do(func() {
		runtime.SetFinalizer(ns, nil)

		ns.reg.Deregister(ns.defaultAddress)
		ns.defaultAddress.Release()

		logrus.WithFields(logrus.Fields{
			"hostname": ns.defaultAddress.Hostname(),
			"ip":       ns.defaultIP.String(),
		}).Debug("closed network namespace")
	})
	return nil
}

func (ns *NetworkNamespace) finalize() {
	logrus.WithField("ip", ns.defaultIP.String()).
		Warn("network namespace leaked, releasing default address from finalizer")
	_ = ns.Close()
}
