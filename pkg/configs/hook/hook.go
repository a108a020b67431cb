package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the lifecycle hook file.
//
// Example:
//
//	lifecycle-hooks:
//	  before:
//	    - http://fraud-check.internal/orders
//	  after:
//	    - http://mailer.internal/orders/confirmed
func Load(filename string) (Config, error) {
	content, err := os.ReadFile(os.ExpandEnv(filename))
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type Config struct {
	// called for each order reaching confirmed or paid.
	Lifecycle WebHook `yaml:"lifecycle-hooks,omitempty"`
}

type WebHook struct {
	// Before may veto a notification by answering other than 2xx.
	Before []*url.URL

	// After receives the order after it is marked notified.
	After []*url.URL
}

// parseURLs reads hook endpoints after expanding ${ENV}. Only http(s) is allowed.
func parseURLs(raw []string) ([]*url.URL, error) {
	urls := make([]*url.URL, len(raw))
	for i, u := range raw {
		parsed, err := url.Parse(os.ExpandEnv(u))
		if err != nil {
			return nil, err
		}
		if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return nil, fmt.Errorf("hook endpoint should be http(s) URL: %q", u)
		}
		urls[i] = parsed
	}
	return urls, nil
}

func (wh *WebHook) UnmarshalYAML(node *yaml.Node) error {
	raw := struct {
		Before []string `yaml:"before"`
		After  []string `yaml:"after"`
	}{}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	before, err := parseURLs(raw.Before)
	if err != nil {
		return err
	}
	after, err := parseURLs(raw.After)
	if err != nil {
		return err
	}
	wh.Before, wh.After = before, after
	return nil
}
