package network

import (
	"context"
	"net"
	"time"
)

// LinkUp сообщает, есть ли поднятый сетевой интерфейс с адресом, кроме loopback.
func LinkUp() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err == nil && len(addrs) > 0 {
			return true
		}
	}

	return false
}

// WatchLink опрашивает up с интервалом и передает в report первое значение и
// каждое изменение. Блокируется до отмены ctx.
func WatchLink(ctx context.Context, interval time.Duration, up func() bool, report func(online bool)) {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}

	last := up()
	report(last)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if now := up(); now != last {
				last = now
				report(now)
			}
		}
	}
}
