package preview

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"
)

// ErrBlockedAddress is returned when a URL resolves to a loopback, private or
// otherwise internal address.
var ErrBlockedAddress = errors.New("preview: address is not publicly routable")

// sharedAddressSpace is carrier-grade NAT (RFC 6598), which net.IP does not
// classify as private.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

func isPrivateIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() {
		return true
	}
	if addr, ok := netip.AddrFromSlice(ip); ok && sharedAddressSpace.Contains(addr.Unmap()) {
		return true
	}
	return false
}

// checkHost rejects IP literals in internal ranges before any request is made.
// Names are checked after resolution by the dialer.
func checkHost(host string) error {
	if ip := net.ParseIP(host); ip != nil && isPrivateIP(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return nil
}

// publicDialControl runs after DNS resolution, so every dial, including those
// made for redirects, is checked against the address actually used.
func publicDialControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	if isPrivateIP(net.ParseIP(host)) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return nil
}

// newPublicClient returns a client that only connects to public addresses.
func newPublicClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
		Control:   publicDialControl,
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return checkHost(req.URL.Hostname())
		},
	}
}
