// Package ambient derives the caller's location and local time from the
// geolocation hints an edge network attaches to each request.
package ambient

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Unknown is the location label used when any geo hint is missing.
const Unknown = "unknown"

// LocalTimeLayout matches the en-US locale string browsers produce.
const LocalTimeLayout = "1/2/2006, 3:04:05 PM"

// Hints are the caller-supplied geo and timezone values. Any may be empty.
type Hints struct {
	Country  string
	Region   string
	City     string
	Timezone string
}

// Context grounds the reply generator. It is never persisted.
type Context struct {
	LocationLabel string
	LocalTime     string
}

// HeaderSet names the headers carrying one kind of hint, in priority order.
type HeaderSet struct {
	Country  []string
	Region   []string
	City     []string
	Timezone []string
}

// DefaultHeaders reads Vercel's geo headers and falls back to Cloudflare's.
var DefaultHeaders = HeaderSet{
	Country:  []string{"X-Vercel-IP-Country", "CF-IPCountry"},
	Region:   []string{"X-Vercel-IP-Country-Region", "CF-Region-Code"},
	City:     []string{"X-Vercel-IP-City", "CF-IPCity"},
	Timezone: []string{"X-Vercel-IP-Timezone", "CF-Timezone"},
}

// FromHeaders extracts hints from h. Edge networks URL-encode non-ASCII city
// names, so values are percent-decoded when possible.
func (s HeaderSet) FromHeaders(h http.Header) Hints {
	return Hints{
		Country:  first(h, s.Country),
		Region:   first(h, s.Region),
		City:     first(h, s.City),
		Timezone: first(h, s.Timezone),
	}
}

func first(h http.Header, keys []string) string {
	for _, key := range keys {
		raw := strings.TrimSpace(h.Get(key))
		if raw == "" {
			continue
		}
		if decoded, err := url.PathUnescape(raw); err == nil {
			return strings.TrimSpace(decoded)
		}
		return raw
	}
	return ""
}

// Provider turns hints into a Context.
type Provider struct {
	now      func() time.Time
	fallback *time.Location
}

// NewProvider returns a Provider that formats times in fallback when the
// caller's timezone is absent or unknown. A nil fallback means time.Local.
func NewProvider(fallback *time.Location, now func() time.Time) *Provider {
	if fallback == nil {
		fallback = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Provider{now: now, fallback: fallback}
}

// LoadLocation resolves a timezone name, returning nil for empty or invalid names.
func LoadLocation(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil
	}
	return loc
}

// Resolve never fails; missing hints degrade to defaults.
func (p *Provider) Resolve(h Hints) Context {
	return Context{
		LocationLabel: Location(h),
		LocalTime:     p.localTime(h.Timezone),
	}
}

// Location renders "City, Region, Country" or Unknown.
func Location(h Hints) string {
	if h.Country == "" || h.Region == "" || h.City == "" {
		return Unknown
	}
	return h.City + ", " + h.Region + ", " + h.Country
}

func (p *Provider) localTime(timezone string) string {
	loc := LoadLocation(timezone)
	if loc == nil {
		loc = p.fallback
	}
	return p.now().In(loc).Format(LocalTimeLayout)
}
