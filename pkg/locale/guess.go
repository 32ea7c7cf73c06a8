package locale

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
)

// Guess sources.
const (
	SourceCache    = "cache"
	SourceIP       = "ip"
	SourceTimezone = "timezone"
)

// cacheSection is the record section holding a cached guess.
const cacheSection domain.Section = "country"

// Guess is a pre-selection for the welcome step. The zero value means "no idea".
type Guess struct {
	Country   string   `json:"country,omitempty" mapstructure:"country"`
	Language  string   `json:"language,omitempty" mapstructure:"language"`
	Supported []string `json:"supported,omitempty" mapstructure:"supported"`
	Source    string   `json:"source,omitempty" mapstructure:"source"`
}

// Empty reports whether no country was guessed.
func (g Guess) Empty() bool {
	return g.Country == ""
}

// CacheKey is the record key of a device's cached guess.
func CacheKey(storeName, device string) string {
	return storeName + ":country:" + device
}

// Guesser resolves the country of a device: a cached guess first, then the IP
// lookup, then the timezone. It never fails; the worst outcome is an empty Guess.
type Guesser struct {
	table     *Table
	locator   ports.CountryLocator
	cache     ports.RecordStore
	storeName string
	logger    *slog.Logger
}

// GuesserOption configures a Guesser.
type GuesserOption func(*Guesser)

// WithTable replaces the embedded country table.
func WithTable(t *Table) GuesserOption {
	return func(g *Guesser) {
		if t != nil {
			g.table = t
		}
	}
}

// WithLocator sets the IP-based country locator.
func WithLocator(l ports.CountryLocator) GuesserOption {
	return func(g *Guesser) {
		g.locator = l
	}
}

// WithCache stores successful IP guesses in store under CacheKey(storeName, device).
func WithCache(store ports.RecordStore, storeName string) GuesserOption {
	return func(g *Guesser) {
		g.cache = store
		if storeName != "" {
			g.storeName = storeName
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GuesserOption {
	return func(g *Guesser) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGuesser creates a Guesser.
func NewGuesser(opts ...GuesserOption) *Guesser {
	g := &Guesser{
		table:     Default(),
		storeName: domain.DefaultStoreName,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Table returns the country table the guesser uses.
func (g *Guesser) Table() *Table {
	return g.table
}

// Guess returns the best country/language guess for a device.
// ip is the client address handed to the locator; tz is the client's IANA zone.
func (g *Guesser) Guess(ctx context.Context, device, ip, tz string) Guess {
	if cached, ok := g.Cached(ctx, device); ok {
		return cached
	}

	if g.locator != nil {
		country, err := g.locator.Locate(ctx, ip)
		if err == nil && country != "" {
			guess := g.build(country, SourceIP)
			g.store(ctx, device, guess)
			return guess
		}
		g.logger.Debug("country lookup failed, using timezone", "device", device, "err", err)
	}

	if country, ok := g.table.CountryForTimezone(tz); ok {
		return g.build(country, SourceTimezone)
	}
	return Guess{}
}

func (g *Guesser) build(country, source string) Guess {
	guess := Guess{Country: country, Source: source}
	if _, known := g.table.Lookup(country); !known {
		return guess
	}
	guess.Language = g.table.DefaultLanguage(country).String()
	for _, tag := range g.table.Languages(country) {
		guess.Supported = append(guess.Supported, tag.String())
	}
	return guess
}

// Cached returns the stored IP guess of a device without performing a lookup.
func (g *Guesser) Cached(ctx context.Context, device string) (Guess, bool) {
	if g.cache == nil || device == "" {
		return Guess{}, false
	}
	record, err := g.cache.Load(ctx, CacheKey(g.storeName, device))
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			g.logger.Debug("country cache unavailable", "device", device, "err", err)
		}
		return Guess{}, false
	}
	var guess Guess
	if err := mapstructure.Decode(map[string]any(record.Sections[cacheSection]), &guess); err != nil || guess.Empty() {
		return Guess{}, false
	}
	guess.Source = SourceCache
	return guess, true
}

func (g *Guesser) store(ctx context.Context, device string, guess Guess) {
	if g.cache == nil || device == "" {
		return
	}
	fields := domain.Fields{
		"country":  guess.Country,
		"language": guess.Language,
		"source":   guess.Source,
	}
	if len(guess.Supported) > 0 {
		fields["supported"] = guess.Supported
	}
	record := &domain.Record{
		Name:     g.storeName,
		Sections: domain.Answers{cacheSection: fields},
	}
	if err := g.cache.Save(ctx, CacheKey(g.storeName, device), record); err != nil {
		g.logger.Debug("failed to cache country guess", "device", device, "err", err)
	}
}

// DefaultLookupURL is the public IP geolocation endpoint.
const DefaultLookupURL = "https://ipwho.is"

// IPWho locates countries through an ipwho.is compatible JSON endpoint.
type IPWho struct {
	baseURL string
	client  *http.Client
}

// NewIPWho creates a locator. An empty baseURL uses DefaultLookupURL.
func NewIPWho(baseURL string, timeout time.Duration) *IPWho {
	if baseURL == "" {
		baseURL = DefaultLookupURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &IPWho{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type ipwhoResponse struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Country string `json:"country"`
}

// Locate implements ports.CountryLocator.
func (l *IPWho) Locate(ctx context.Context, ip string) (string, error) {
	endpoint := l.baseURL + "/"
	if ip != "" {
		endpoint += url.PathEscape(ip)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("country lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("country lookup: unexpected status %d", resp.StatusCode)
	}
	var body ipwhoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("country lookup: %w", err)
	}
	if body.Success != nil && !*body.Success {
		return "", fmt.Errorf("country lookup: %s", body.Message)
	}
	if body.Country == "" {
		return "", errors.New("country lookup: empty country")
	}
	return body.Country, nil
}
