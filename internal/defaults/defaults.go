// Package defaults holds the content served before anything has been saved.
// The documents are YAML files embedded in the binary; every call decodes a
// fresh copy so callers may modify what they get.
package defaults

import (
	"embed"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"ridepool/cms/internal/content"
)

//go:embed data/*.yaml
var files embed.FS

// Decode reads data/<name>.yaml into out. YAML is converted to JSON first so
// the content types' json tags and custom decoders apply.
func Decode(name string, out any) error {
	raw, err := files.ReadFile("data/" + name + ".yaml")
	if err != nil {
		return fmt.Errorf("read defaults %s: %w", name, err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse defaults %s: %w", name, err)
	}
	if doc == nil {
		doc = []any{}
	}
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("convert defaults %s: %w", name, err)
	}
	if err := json.Unmarshal(asJSON, out); err != nil {
		return fmt.Errorf("decode defaults %s: %w", name, err)
	}
	return nil
}

func mustDecode[T any](name string) T {
	var out T
	if err := Decode(name, &out); err != nil {
		panic(err)
	}
	return out
}

func FAQs() []content.FAQ                  { return mustDecode[[]content.FAQ]("faq") }
func Features() []content.Feature          { return mustDecode[[]content.Feature]("features") }
func HowItWorks() []content.HowItWorksStep { return mustDecode[[]content.HowItWorksStep]("howItWorks") }
func Instagram() []content.InstagramPost   { return mustDecode[[]content.InstagramPost]("instagram") }
func BlogPosts() []content.BlogPost        { return mustDecode[[]content.BlogPost]("blogs") }

func Settings() content.SiteSettings { return mustDecode[content.SiteSettings]("settings") }
func Images() content.ImageConfig    { return mustDecode[content.ImageConfig]("images") }
func Safety() content.SafetyContent  { return mustDecode[content.SafetyContent]("safety") }
func Environment() content.EnvironmentContent {
	return mustDecode[content.EnvironmentContent]("environment")
}

func Legal(t content.LegalType) content.LegalPage {
	return mustDecode[content.LegalPage]("legal_" + string(t))
}
