package gate

import (
	"net/netip"
	"strings"

	log "github.com/sirupsen/logrus"
)

// NetFilter holds the trusted network set. Immutable after construction;
// the set is reloaded only on process restart.
type NetFilter struct {
	prefixes []netip.Prefix
}

// NewNetFilter parses the configured entries as prefixes. A bare IP is
// widened to /32 or /128. Malformed entries are dropped with a warning;
// a typo in one entry must not take the gateway down.
func NewNetFilter(entries []string) *NetFilter {
	f := &NetFilter{}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		p, err := parseEntry(e)
		if err != nil {
			log.WithError(err).WithField("entry", e).Warn("skipping malformed trusted network entry")
			continue
		}
		f.prefixes = append(f.prefixes, p)
	}
	log.WithField("networks", len(f.prefixes)).Info("trusted network set loaded")
	return f
}

func parseEntry(e string) (netip.Prefix, error) {
	if strings.Contains(e, "/") {
		return netip.ParsePrefix(e)
	}
	addr, err := netip.ParseAddr(e)
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// Admit reports whether callerIP falls inside any trusted prefix.
// A caller IP that does not parse is rejected.
func (f *NetFilter) Admit(callerIP string) bool {
	addr, err := netip.ParseAddr(callerIP)
	if err != nil {
		log.WithField("caller_ip", callerIP).Warn("unparseable caller address")
		return false
	}
	addr = addr.Unmap()
	for _, p := range f.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Size returns the number of usable prefixes, for startup logging.
func (f *NetFilter) Size() int { return len(f.prefixes) }
