package discovery

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog/log"
)

const ServiceType = "_collabcanvas._tcp"

type Advertiser struct {
	server *mdns.Server
}

// Advertise announces the canvas server on the local network.
func Advertise(port int, info ...string) (*Advertiser, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}
	if len(info) == 0 {
		info = []string{"collaborative canvas"}
	}

	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}

	log.Info().Str("service", ServiceType).Int("port", port).Msg("advertising on local network")
	return &Advertiser{server: server}, nil
}

func (a *Advertiser) Shutdown() error {
	return a.server.Shutdown()
}

// Browse returns the first advertised server as host:port, waiting at
// most timeout or until ctx is done.
func Browse(ctx context.Context, timeout time.Duration) (string, error) {
	return browse(ctx, timeout, mdns.Query)
}

func browse(ctx context.Context, timeout time.Duration, query func(*mdns.QueryParam) error) (string, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	found := make(chan string, 1)
	scanned := make(chan struct{})

	go func() {
		defer close(scanned)
		firstAddr(entries, found)
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	errc := make(chan error, 1)
	go func() {
		errc <- query(params)
		close(entries)
	}()

	select {
	case addr := <-found:
		return addr, nil
	case err := <-errc:
		if err != nil {
			return "", fmt.Errorf("mdns query: %w", err)
		}
		<-scanned
		select {
		case addr := <-found:
			return addr, nil
		default:
			return "", fmt.Errorf("no %s service found within %s", ServiceType, timeout)
		}
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// firstAddr drains entries and offers the first one with an IPv4 address
// and a port on found.
func firstAddr(entries <-chan *mdns.ServiceEntry, found chan<- string) {
	for e := range entries {
		if e == nil || e.AddrV4 == nil || e.Port == 0 {
			continue
		}
		select {
		case found <- fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port):
		default:
		}
	}
}
