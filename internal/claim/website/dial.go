package website

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"
)

// errNonPublicAddress is returned by the dialer for addresses that are not on
// the public internet. Claimants choose the URL, so the fetch must not reach
// the service's own network.
var errNonPublicAddress = errors.New("address is not publicly routable")

// publicOnly is a net.Dialer Control hook. It runs after DNS resolution, so
// redirects and rebinding are checked on the address actually dialed.
func publicOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	if !isPublic(ip.Unmap()) {
		return fmt.Errorf("dial %s: %w", ip, errNonPublicAddress)
	}
	return nil
}

func isPublic(ip netip.Addr) bool {
	return !(ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified() ||
		sharedAddressSpace.Contains(ip))
}

var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// newPublicClient returns an HTTP client whose connections may only reach
// public addresses. Proxies are ignored so the check sees the real target.
func newPublicClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   DefaultTimeout,
		KeepAlive: 30 * time.Second,
		Control:   publicOnly,
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return &http.Client{Transport: transport}
}
