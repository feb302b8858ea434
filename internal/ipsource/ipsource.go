// Package ipsource fetches the operator's public address and a CDN's
// published IP ranges over HTTP.
package ipsource

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/eleven-am/sgsync/internal/domain"
)

const maxBodySize = 1 << 20

type CheckIP struct {
	url    string
	client *http.Client
}

var _ domain.AddressSource = (*CheckIP)(nil)

func NewCheckIP(url string, timeout time.Duration) *CheckIP {
	return &CheckIP{url: url, client: &http.Client{Timeout: timeout}}
}

// CurrentAddress returns the caller's public address as a single-host CIDR.
func (c *CheckIP) CurrentAddress(ctx context.Context) (domain.CIDR, error) {
	body, err := get(ctx, c.client, c.url)
	if err != nil {
		return "", fmt.Errorf("get public address: %w", err)
	}
	return HostCIDR(strings.TrimSpace(string(body)))
}

// HostCIDR turns a bare address into /32 or /128 notation.
func HostCIDR(raw string) (domain.CIDR, error) {
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return "", fmt.Errorf("parse public address %q: %w", raw, err)
	}
	addr = addr.Unmap()
	return domain.CIDR(netip.PrefixFrom(addr, addr.BitLen()).String()), nil
}

type RangeList struct {
	url    string
	client *http.Client
}

var _ domain.RangeSource = (*RangeList)(nil)

func NewRangeList(url string, timeout time.Duration) *RangeList {
	return &RangeList{url: url, client: &http.Client{Timeout: timeout}}
}

// PublishedRanges returns the list in its published order.
func (r *RangeList) PublishedRanges(ctx context.Context) ([]domain.CIDR, error) {
	body, err := get(ctx, r.client, r.url)
	if err != nil {
		return nil, fmt.Errorf("get published ranges: %w", err)
	}
	ranges, err := ParseRanges(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse published ranges: %w", err)
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("published range list at %s is empty", r.url)
	}
	return ranges, nil
}

// ParseRanges reads one CIDR per line, skipping blanks and # comments.
func ParseRanges(r io.Reader) ([]domain.CIDR, error) {
	var ranges []domain.CIDR
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, err := netip.ParsePrefix(line); err != nil {
			return nil, fmt.Errorf("invalid range %q: %w", line, err)
		}
		ranges = append(ranges, domain.CIDR(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ranges, nil
}

func get(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
}
