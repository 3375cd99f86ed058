package server

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/sanya94592-stack/ecu-editor/internal/logging"
	"github.com/sanya94592-stack/ecu-editor/internal/version"
)

const (
	// ServiceType is the mDNS service type advertised by ecu-server
	ServiceType = "_ecu-editor._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for Browse
	DefaultScanTimeout = 5 * time.Second
)

// Advertise registers the API on the local network. An empty instance name
// is derived from the hostname.
func Advertise(instance string, port int, useTLS bool) (*zeroconf.Server, error) {
	if instance == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "localhost"
		}
		instance = "ecu-editor on " + host
	}

	txt := []string{
		"path=/api",
		"version=" + version.Version,
		fmt.Sprintf("tls=%t", useTLS),
	}

	srv, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising over mDNS",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return srv, nil
}

// Endpoint is an ecu-server instance found on the network
type Endpoint struct {
	Instance string
	Hostname string
	IP       string
	Port     int
	Metadata map[string]string
}

// BaseURL returns the API base URL for the endpoint
func (e *Endpoint) BaseURL() string {
	scheme := "http"
	if e.Metadata["tls"] == "true" {
		scheme = "https"
	}
	host := e.IP
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, host, e.Port, e.Metadata["path"])
}

func (e *Endpoint) String() string {
	return fmt.Sprintf("%s (%s) at %s", e.Instance, e.Hostname, e.BaseURL())
}

// Browse lists ecu-server instances that answer within timeout.
func Browse(ctx context.Context, timeout time.Duration) ([]*Endpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu        sync.Mutex
		endpoints []*Endpoint
		done      = make(chan struct{})
	)
	go func() {
		defer close(done)
		for entry := range entries {
			if ep := parseServiceEntry(entry); ep != nil {
				mu.Lock()
				endpoints = append(endpoints, ep)
				mu.Unlock()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	// The resolver closes entries once the context ends
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	return endpoints, nil
}

// parseServiceEntry converts a zeroconf entry to an Endpoint, or nil if it
// has no usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Endpoint {
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" || entry.Port == 0 {
		return nil
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	return &Endpoint{
		Instance: entry.Instance,
		Hostname: entry.HostName,
		IP:       ip,
		Port:     entry.Port,
		Metadata: metadata,
	}
}
