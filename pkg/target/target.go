// Package target expands operator target specifications (IP ranges, CIDR
// blocks, inventory files) into an ordered, deduplicated host list.
package target

import (
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ExpandRange expands a "start-end" IPv4 range (inclusive) into individual
// addresses. A bare address without "-" expands to itself, so a single host
// can be targeted with --range 10.10.10.5.
func ExpandRange(spec string) ([]string, error) {
	if !strings.Contains(spec, "-") {
		if net.ParseIP(spec) == nil {
			return nil, fmt.Errorf("invalid IP address: %s", spec)
		}
		return []string{spec}, nil
	}

	parts := strings.SplitN(spec, "-", 2)
	start, err := parseIPv4(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, fmt.Errorf("invalid range start: %w", err)
	}
	end, err := parseIPv4(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid range end: %w", err)
	}
	if end < start {
		return nil, fmt.Errorf("range end must be >= start: %s", spec)
	}

	hosts := make([]string, 0, end-start+1)
	for i := start; ; i++ {
		hosts = append(hosts, uint32ToIP(i).String())
		if i == end {
			break
		}
	}
	return hosts, nil
}

// ExpandCIDR expands a CIDR block into its usable host addresses. The
// network and broadcast addresses are excluded, except for /31 and /32
// blocks where every address is usable.
func ExpandCIDR(spec string) ([]string, error) {
	ip, ipnet, err := net.ParseCIDR(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid CIDR: %w", err)
	}

	var hosts []string
	for ip := ip.Mask(ipnet.Mask); ipnet.Contains(ip); incIP(ip) {
		hosts = append(hosts, ip.String())
	}

	if len(hosts) > 2 {
		return hosts[1 : len(hosts)-1], nil
	}
	return hosts, nil
}

// File is a YAML targets inventory: explicit hosts plus range and CIDR
// specs, expanded in file order.
type File struct {
	Hosts  []string `yaml:"hosts,omitempty"`
	Ranges []string `yaml:"ranges,omitempty"`
	CIDRs  []string `yaml:"cidrs,omitempty"`
}

// ExpandFile reads a YAML inventory and expands it into a host list.
func ExpandFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse targets file %s: %w", path, err)
	}

	var hosts []string
	for _, h := range f.Hosts {
		h = strings.TrimSpace(h)
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	for _, r := range f.Ranges {
		expanded, err := ExpandRange(r)
		if err != nil {
			return nil, fmt.Errorf("targets file %s: %w", path, err)
		}
		hosts = append(hosts, expanded...)
	}
	for _, c := range f.CIDRs {
		expanded, err := ExpandCIDR(c)
		if err != nil {
			return nil, fmt.Errorf("targets file %s: %w", path, err)
		}
		hosts = append(hosts, expanded...)
	}
	return hosts, nil
}

// Dedup removes duplicate hosts while preserving first-seen order.
func Dedup(hosts []string) []string {
	seen := make(map[string]struct{}, len(hosts))
	result := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		result = append(result, h)
	}
	return result
}

func parseIPv4(s string) (uint32, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return 0, fmt.Errorf("invalid IP address: %s", s)
	}
	v4 := ip.To4()
	if v4 == nil {
		return 0, fmt.Errorf("ranges require IPv4 addresses: %s", s)
	}
	return binary.BigEndian.Uint32(v4), nil
}

func uint32ToIP(n uint32) net.IP {
	ip := make(net.IP, 4)
	binary.BigEndian.PutUint32(ip, n)
	return ip
}

// incIP increments an IP address by one.
func incIP(ip net.IP) {
	for j := len(ip) - 1; j >= 0; j-- {
		ip[j]++
		if ip[j] > 0 {
			break
		}
	}
}
