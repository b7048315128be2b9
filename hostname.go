package cfddns

import (
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// SplitHostname splits a hostname into the full name and its zone,
// where the zone is the last two labels of the name.
//
//	"home.example.com"  -> ("home.example.com", "example.com")
//	"a.b.example.com."  -> ("a.b.example.com", "example.com")
//	"example.com"       -> ("example.com", "example.com")
//
// A single trailing dot is dropped from both results since providers report names without it.
// Names with fewer than two labels, empty labels, or whitespace return an error wrapping ErrInvalidHostname.
func SplitHostname(name string) (fqdn string, zone string, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", fmt.Errorf("%w: empty name", ErrInvalidHostname)
	}
	if strings.ContainsAny(name, " \t\r\n") {
		return "", "", fmt.Errorf("%w: %q contains whitespace", ErrInvalidHostname, name)
	}
	if _, ok := dns.IsDomainName(name); !ok {
		return "", "", fmt.Errorf("%w: %q is not a domain name", ErrInvalidHostname, name)
	}

	fqdn = strings.TrimSuffix(name, ".")
	labels := dns.SplitDomainName(fqdn)
	if len(labels) < 2 {
		return "", "", fmt.Errorf("%w: %q needs at least two labels", ErrInvalidHostname, name)
	}
	for _, l := range labels {
		if l == "" {
			return "", "", fmt.Errorf("%w: %q has an empty label", ErrInvalidHostname, name)
		}
	}
	zone = strings.Join(labels[len(labels)-2:], ".")
	return fqdn, zone, nil
}
