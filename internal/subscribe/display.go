package subscribe

import (
	"bytes"
	"errors"
	"syscall"

	"github.com/rs/zerolog/log"
)

// DisplayEvents emits whenever the kernel reports a backlight change. The
// channel is closed once stop is closed or the socket cannot be opened.
func DisplayEvents(stop <-chan struct{}) <-chan struct{} {
	events := make(chan struct{}, 1)

	go func() {
		defer close(events)

		fd, err := syscall.Socket(syscall.AF_NETLINK, syscall.SOCK_RAW, syscall.NETLINK_KOBJECT_UEVENT)
		if err != nil {
			log.Warn().Err(err).Str("component", "subscribe").Msg("failed to open netlink socket")
			return
		}
		defer syscall.Close(fd)

		addr := &syscall.SockaddrNetlink{
			Family: syscall.AF_NETLINK,
			Groups: 1, // listen to broadcast uevents
		}
		if err := syscall.Bind(fd, addr); err != nil {
			log.Warn().Err(err).Str("component", "subscribe").Msg("failed to bind netlink socket")
			return
		}

		// wake up periodically to notice stop
		tv := syscall.Timeval{Sec: 1}
		_ = syscall.SetsockoptTimeval(fd, syscall.SOL_SOCKET, syscall.SO_RCVTIMEO, &tv)

		buf := make([]byte, 4096)
		for {
			select {
			case <-stop:
				return
			default:
			}

			n, _, err := syscall.Recvfrom(fd, buf, 0)
			if err != nil {
				if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EINTR) {
					continue
				}
				log.Debug().Err(err).Str("component", "subscribe").Msg("netlink recv error")
				continue
			}

			if IsBacklightChange(buf[:n]) {
				select {
				case events <- struct{}{}:
				default:
				}
			}
		}
	}()

	return events
}

// IsBacklightChange matches a raw NUL-separated uevent payload.
func IsBacklightChange(msg []byte) bool {
	return bytes.Contains(msg, []byte("SUBSYSTEM=backlight")) && bytes.Contains(msg, []byte("ACTION=change"))
}
