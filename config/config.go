package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"agenda_scrooper/calendar"
)

type Config struct {
	DatabaseURL string
	RunsDBPath  string
	AdminID     string
	Geocoder    GeocoderConfig
	Relay       RelayConfig
	Browser     BrowserConfig
	Calendar    CalendarConfig
	LogLevel    string
	LogPath     string
	Sites       map[string]*SiteConfig
}

type GeocoderConfig struct {
	URL    string
	MapURL string
}

type RelayConfig struct {
	Addr string
	// BaseURL is the public, absolute address of the relay's /img-proxy
	// route. Record image URLs are built on it.
	BaseURL string
}

type BrowserConfig struct {
	Headless bool
}

// CalendarConfig tunes the browser-driven calendar walk.
type CalendarConfig struct {
	PolitenessMin time.Duration
	PolitenessMax time.Duration
	SettleDelay   time.Duration
	OverflowCap   int
	DetailLimit   int
	MonthWindow   int
}

type SiteConfig struct {
	ID          string           `yaml:"id"`
	Name        string           `yaml:"name"`
	Handler     string           `yaml:"handler"`
	Render      string           `yaml:"render"`
	Origin      string           `yaml:"origin"`
	Island      string           `yaml:"island"`
	Location    string           `yaml:"location"`
	RateLimitMS int              `yaml:"rate_limit_ms"`
	Concurrency int              `yaml:"concurrency"`
	Listings    []ListingConfig  `yaml:"listings"`
	Calendar    *CalendarSite    `yaml:"calendar"`
	Selectors   ListingSelectors `yaml:"selectors"`
}

// ListingConfig is one static listing page of a site.
type ListingConfig struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	URLEnv   string `yaml:"url_env"`
	Category string `yaml:"category"`
	// ImageFrom is "listing" or "detail".
	ImageFrom         string `yaml:"image_from"`
	DetailDescription string `yaml:"detail_description"`
	DetailImage       string `yaml:"detail_image"`
}

type ListingSelectors struct {
	Item  string `yaml:"item"`
	Date  string `yaml:"date"`
	Title string `yaml:"title"`
	Link  string `yaml:"link"`
	Image string `yaml:"image"`
}

type CalendarSite struct {
	URL            string              `yaml:"url"`
	URLEnv         string              `yaml:"url_env"`
	ExternalPrefix string              `yaml:"external_prefix"`
	Selectors      *calendar.Selectors `yaml:"selectors"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	relayAddr := getEnv("RELAY_ADDR", ":8080")
	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RunsDBPath:  getEnv("RUNS_DB_PATH", "runs.db"),
		AdminID:     os.Getenv("ADMIN_ID"),
		Geocoder: GeocoderConfig{
			URL:    getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
			MapURL: os.Getenv("MAP_IMAGE_URL"),
		},
		Relay: RelayConfig{
			Addr:    relayAddr,
			BaseURL: getEnv("RELAY_BASE_URL", defaultRelayBase(relayAddr)),
		},
		Browser: BrowserConfig{
			Headless: getEnvBool("HEADLESS", true),
		},
		Calendar: CalendarConfig{
			PolitenessMin: time.Duration(getEnvInt("POLITENESS_MIN_MS", 5000)) * time.Millisecond,
			PolitenessMax: time.Duration(getEnvInt("POLITENESS_MAX_MS", 8000)) * time.Millisecond,
			SettleDelay:   time.Duration(getEnvInt("SETTLE_DELAY_MS", 1500)) * time.Millisecond,
			OverflowCap:   getEnvInt("OVERFLOW_CAP", 2),
			DetailLimit:   getEnvInt("DETAIL_LIMIT", 2),
			MonthWindow:   getEnvInt("MONTH_WINDOW", 2),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", "scrooper.log"),
		Sites:    make(map[string]*SiteConfig),
	}

	if err := cfg.LoadSites(getEnv("SITES_DIR", "config/sites")); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadSites reads every *.yaml file in dir. A missing dir is not an error.
// URLs named by url_env are taken from the environment when set.
func (c *Config) LoadSites(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var site SiteConfig
		if err := yaml.Unmarshal(data, &site); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if site.ID == "" {
			return fmt.Errorf("%s: missing id", path)
		}

		for i := range site.Listings {
			l := &site.Listings[i]
			if l.URLEnv != "" {
				l.URL = getEnv(l.URLEnv, l.URL)
			}
		}
		if site.Calendar != nil && site.Calendar.URLEnv != "" {
			site.Calendar.URL = getEnv(site.Calendar.URLEnv, site.Calendar.URL)
		}

		c.Sites[site.ID] = &site
	}

	return nil
}

// defaultRelayBase points at a relay listening locally on addr.
func defaultRelayBase(addr string) string {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return "http://" + host + "/img-proxy"
}

// SiteIDs returns the configured site ids in a stable order.
func (c *Config) SiteIDs() []string {
	ids := make([]string, 0, len(c.Sites))
	for id := range c.Sites {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return defaultVal
}
