package content

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SchemaVersion is written into every singleton document saved by this build.
const SchemaVersion = 1

type SocialLinks struct {
	Instagram string `json:"instagram,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	X         string `json:"x,omitempty"`
}

type SEODefaults struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	OGImage     string `json:"ogImage,omitempty"`
}

// SiteSettings lives at settings/config.
type SiteSettings struct {
	SchemaVersion   int         `json:"schemaVersion"`
	SiteName        string      `json:"siteName"`
	Tagline         string      `json:"tagline"`
	ContactEmail    string      `json:"contactEmail"`
	ContactPhone    string      `json:"contactPhone,omitempty"`
	Social          SocialLinks `json:"social"`
	SEO             SEODefaults `json:"seo"`
	MaintenanceMode bool        `json:"maintenanceMode"`
}

func (s SiteSettings) Validate() error {
	if strings.TrimSpace(s.SiteName) == "" {
		return invalid("siteName", "site name is required")
	}
	if s.ContactEmail != "" && !strings.Contains(s.ContactEmail, "@") {
		return invalid("contactEmail", "contact email is malformed")
	}
	return nil
}

// ImageConfig lives at images/config.
type ImageConfig struct {
	SchemaVersion int    `json:"schemaVersion"`
	Hero          string `json:"hero"`
	Logo          string `json:"logo"`
	OG            string `json:"og,omitempty"`
	AppStoreBadge string `json:"appStoreBadge,omitempty"`
	PlayBadge     string `json:"playBadge,omitempty"`
}

func (c ImageConfig) Validate() error {
	fields := []struct{ name, value string }{
		{"hero", c.Hero}, {"logo", c.Logo}, {"og", c.OG},
		{"appStoreBadge", c.AppStoreBadge}, {"playBadge", c.PlayBadge},
	}
	for _, f := range fields {
		if f.value != "" && !validImageURL(f.value) {
			return invalid(f.name, "image url must be absolute http(s) or site-relative")
		}
	}
	return nil
}

type SafetySection struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
	Order int    `json:"order"`
}

func (s SafetySection) Key() string                          { return s.ID }
func (s SafetySection) Position() int                        { return s.Order }
func (s SafetySection) WithPosition(order int) SafetySection { s.Order = order; return s }

// SafetyContent lives at content/safety.
type SafetyContent struct {
	SchemaVersion int             `json:"schemaVersion"`
	Headline      string          `json:"headline"`
	Intro         string          `json:"intro"`
	Sections      []SafetySection `json:"sections"`
}

func (c SafetyContent) Validate() error {
	if strings.TrimSpace(c.Headline) == "" {
		return invalid("headline", "headline is required")
	}
	return uniqueIDs("sections", c.Sections)
}

type LegalSection struct {
	ID      string `json:"id"`
	Heading string `json:"heading"`
	Body    string `json:"body"`
	Order   int    `json:"order"`
}

func (s LegalSection) Key() string                         { return s.ID }
func (s LegalSection) Position() int                       { return s.Order }
func (s LegalSection) WithPosition(order int) LegalSection { s.Order = order; return s }

type LegalType string

const (
	LegalTerms   LegalType = "terms"
	LegalPrivacy LegalType = "privacy"
	LegalCookies LegalType = "cookies"
)

var LegalTypes = []LegalType{LegalTerms, LegalPrivacy, LegalCookies}

func ParseLegalType(raw string) (LegalType, bool) {
	for _, t := range LegalTypes {
		if string(t) == raw {
			return t, true
		}
	}
	return "", false
}

// LegalPage lives at legal/{type}.
type LegalPage struct {
	SchemaVersion int            `json:"schemaVersion"`
	Title         string         `json:"title"`
	LastUpdated   string         `json:"lastUpdated"`
	Sections      []LegalSection `json:"sections"`
}

func (p LegalPage) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return invalid("title", "title is required")
	}
	return uniqueIDs("sections", p.Sections)
}

// EnvironmentContent lives at content/environment.
type EnvironmentContent struct {
	SchemaVersion   int     `json:"schemaVersion"`
	Headline        string  `json:"headline"`
	Description     string  `json:"description"`
	CO2SavedKg      float64 `json:"co2SavedKg"`
	RidesShared     int     `json:"ridesShared"`
	TreesEquivalent float64 `json:"treesEquivalent"`
	CarsOffRoad     int     `json:"carsOffRoad"`
}

var (
	environmentStrings = []string{"headline", "description"}
	environmentNumbers = []string{"co2SavedKg", "ridesShared", "treesEquivalent", "carsOffRoad"}
)

// DecodeEnvironment checks a raw write body before it is accepted: every
// required text field must be a non-empty string and every figure a number.
func DecodeEnvironment(raw json.RawMessage) (EnvironmentContent, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return EnvironmentContent{}, invalid("body", "body must be a JSON object")
	}
	for _, name := range environmentStrings {
		value, ok := fields[name].(string)
		if !ok || strings.TrimSpace(value) == "" {
			return EnvironmentContent{}, invalid(name, "required string field")
		}
	}
	for _, name := range environmentNumbers {
		value, ok := fields[name].(float64)
		if !ok {
			return EnvironmentContent{}, invalid(name, "must be a number")
		}
		if value < 0 {
			return EnvironmentContent{}, invalid(name, "must not be negative")
		}
	}
	var env EnvironmentContent
	if err := json.Unmarshal(raw, &env); err != nil {
		return EnvironmentContent{}, invalid("body", err.Error())
	}
	env.SchemaVersion = SchemaVersion
	return env, nil
}

// MergeWithDefaults decodes a stored, possibly partial, document over a deep
// copy of defaults. Fields missing from stored keep their default value;
// arrays present in stored replace the default array.
func MergeWithDefaults[T any](stored json.RawMessage, defaults T) (T, error) {
	var out T
	seed, err := json.Marshal(defaults)
	if err != nil {
		return out, fmt.Errorf("encode defaults: %w", err)
	}
	if err := json.Unmarshal(seed, &out); err != nil {
		return out, fmt.Errorf("copy defaults: %w", err)
	}
	if len(stored) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(stored, &out); err != nil {
		return defaults, fmt.Errorf("merge stored document: %w", err)
	}
	return out, nil
}

func uniqueIDs[T interface{ Key() string }](field string, items []T) error {
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if item.Key() == "" {
			return invalid(fmt.Sprintf("%s[%d].id", field, i), "id is required")
		}
		if _, dup := seen[item.Key()]; dup {
			return invalid(fmt.Sprintf("%s[%d].id", field, i), "duplicate id")
		}
		seen[item.Key()] = struct{}{}
	}
	return nil
}
