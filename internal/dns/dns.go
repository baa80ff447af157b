// Package dns resolves the signaling server hostname with a fallback to
// public resolvers, for networks where the local DNS drops unknown hosts.
package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Public resolvers raced when the system resolver fails.
var publicDNS = []string{
	"1.1.1.1",         // Cloudflare
	"8.8.8.8",         // Google
	"9.9.9.9",         // Quad9
	"208.67.222.222",  // Cisco OpenDNS
	"149.112.112.112", // Quad9 secondary
}

// Lookup resolves a hostname to an IP address, preferring IPv4. The system
// resolver is tried first with a short timeout; on failure all public
// resolvers are queried concurrently and the first answer wins.
func Lookup(host string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	ip, err := lookupWith(ctx, host, &net.Resolver{})
	cancel()
	if err == nil {
		return ip, nil
	}
	return raceLookup(host)
}

func raceLookup(host string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	results := make(chan string, len(publicDNS))
	for _, server := range publicDNS {
		go func(server string) {
			ip, err := lookupWith(ctx, host, resolverAt(server))
			if err != nil {
				results <- ""
				return
			}
			results <- ip
		}(server)
	}

	for range publicDNS {
		select {
		case ip := <-results:
			if ip != "" {
				return ip, nil
			}
		case <-ctx.Done():
			return "", fmt.Errorf("dns lookup for %s timed out", host)
		}
	}
	return "", fmt.Errorf("failed to resolve %s: all %d public resolvers failed", host, len(publicDNS))
}

func resolverAt(server string) *net.Resolver {
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			d := new(net.Dialer)
			return d.DialContext(ctx, network, net.JoinHostPort(server, "53"))
		},
	}
}

func lookupWith(ctx context.Context, host string, r *net.Resolver) (string, error) {
	ips, err := r.LookupHost(ctx, host)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", errors.New("no addresses found")
	}
	for _, ip := range ips {
		if net.ParseIP(ip).To4() != nil {
			return ip, nil
		}
	}
	return ips[0], nil
}
