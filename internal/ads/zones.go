// Package ads holds the anti-adblock zone table for the network of sites and
// resolves the rotating ad library shipped under the static directory.
package ads

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	PrimaryDomain    = "hiredalways.com"
	primaryZoneID    = "hkqscsmnjy"
	LibraryPrefix    = "lib-"
	LibraryURLPath   = "/static/js/"
	UpdateFrequency  = 5 * time.Minute
	libraryExtension = ".js"
)

var zones = map[string]string{
	"hiredalways.com":       "hkqscsmnjy",
	"coderchallenges.com":   "8y4olj93dr",
	"3dmodelgenerators.com": "hkvpc1qbmq",
	"answermatepro.com":     "mtckulgwdu",
	"bibletrumper.net":      "yzv2ihe3gn",
	"collegeaibots.com":     "bpvwjuoecq",
	"collegeaibot.com":      "7pbozszikc",
	"ingredienthelper.com":  "ie9ycjapmy",
	"graphixcamera.com":     "2fsehinytl",
	"lowbudgetbuddy.com":    "hnhupo6pwv",
}

// ZoneID returns the zone configured for domain. A leading "www." and any
// port are ignored.
func ZoneID(domain string) (string, bool) {
	id, ok := zones[normalizeDomain(domain)]
	return id, ok
}

// PrimaryZoneID is the zone of the main site.
func PrimaryZoneID() string {
	if id, ok := zones[PrimaryDomain]; ok {
		return id
	}
	return primaryZoneID
}

func normalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if i := strings.IndexByte(domain, ':'); i >= 0 {
		domain = domain[:i]
	}
	return strings.TrimPrefix(domain, "www.")
}

// Config is what the ad loader script fetches.
type Config struct {
	Domain                 string `json:"domain"`
	ZoneID                 string `json:"zone_id"`
	LibraryURL             string `json:"library_url,omitempty"`
	UpdateFrequencyMinutes int    `json:"update_frequency_minutes"`
	Enabled                bool   `json:"enabled"`
}

// Resolver builds Configs against a static directory.
type Resolver struct {
	staticDir string
}

func NewResolver(staticDir string) *Resolver {
	return &Resolver{staticDir: staticDir}
}

// Config returns the configuration for domain, falling back to the primary
// domain's zone for unknown or empty domains.
func (r *Resolver) Config(domain string) Config {
	cfg := Config{
		Domain:                 normalizeDomain(domain),
		UpdateFrequencyMinutes: int(UpdateFrequency / time.Minute),
		Enabled:                true,
	}
	if id, ok := ZoneID(domain); ok {
		cfg.ZoneID = id
	} else {
		cfg.Domain = PrimaryDomain
		cfg.ZoneID = PrimaryZoneID()
	}
	if name, ok := r.LatestLibrary(); ok {
		cfg.LibraryURL = path.Join(LibraryURLPath, name)
	}
	return cfg
}

// LatestLibrary returns the newest lib-*.js file in <static>/js.
func (r *Resolver) LatestLibrary() (string, bool) {
	entries, err := os.ReadDir(filepath.Join(r.staticDir, "js"))
	if err != nil {
		return "", false
	}

	var newest string
	var newestMod time.Time
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, LibraryPrefix) || !strings.HasSuffix(name, libraryExtension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		mod := info.ModTime()
		if newest == "" || mod.After(newestMod) || (mod.Equal(newestMod) && name > newest) {
			newest, newestMod = name, mod
		}
	}
	return newest, newest != ""
}
