package ratelimit

import (
	"net"
	"strings"
)

// TrustList is an immutable set of client identities exempt from admission
// control. Entries are matched verbatim; entries that parse as CIDR blocks
// additionally match any IP address they contain.
type TrustList struct {
	exact map[string]struct{}
	cidrs []*net.IPNet
}

// NewTrustList builds a TrustList. Blank entries are ignored.
func NewTrustList(identities []string) *TrustList {
	tl := &TrustList{
		exact: make(map[string]struct{}, len(identities)),
	}
	for _, id := range identities {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		tl.exact[id] = struct{}{}
		if strings.Contains(id, "/") {
			if _, cidr, err := net.ParseCIDR(id); err == nil {
				tl.cidrs = append(tl.cidrs, cidr)
			}
		}
	}
	return tl
}

// IsTrusted reports whether key bypasses the limiter. A nil TrustList
// trusts nobody.
func (tl *TrustList) IsTrusted(key string) bool {
	if tl == nil || key == "" {
		return false
	}
	if _, ok := tl.exact[key]; ok {
		return true
	}
	if len(tl.cidrs) == 0 {
		return false
	}
	ip := net.ParseIP(key)
	if ip == nil {
		return false
	}
	for _, cidr := range tl.cidrs {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// Len returns the number of configured entries.
func (tl *TrustList) Len() int {
	if tl == nil {
		return 0
	}
	return len(tl.exact)
}
