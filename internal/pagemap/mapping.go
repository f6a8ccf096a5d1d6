// Package pagemap resolves storefront page types to environment-specific
// URLs using a CSV-driven lookup table.
package pagemap

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Config holds mapper configuration.
type Config struct {
	// CSVPath points at the mapping file with PAGE_TYPE and URL columns.
	CSVPath string `yaml:"csv_path"`

	// BaseURL is the storefront root for the active environment,
	// e.g. "https://www-dev.storefront.example/".
	BaseURL string `yaml:"base_url"`

	// RewriteHosts lists URL prefixes whose paths are grafted onto
	// BaseURL, so production URLs in the CSV resolve against the
	// active environment.
	RewriteHosts []string `yaml:"rewrite_hosts"`

	// PassthroughHosts lists URL prefixes kept untouched (external
	// surfaces that have no per-environment deployment).
	PassthroughHosts []string `yaml:"passthrough_hosts"`
}

// Mapper looks up page types and rewrites their URLs for one
// environment. Immutable after Load.
type Mapper struct {
	baseURL          string
	rewriteHosts     []string
	passthroughHosts []string
	urls             map[string]string
}

// Load reads the CSV mapping table and builds a mapper.
// Rows with an empty page type or URL are skipped.
func Load(cfg Config) (*Mapper, error) {
	f, err := os.Open(cfg.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open page map: %w", err)
	}
	defer f.Close()

	m, err := ParseReader(f, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page map %s: %w", cfg.CSVPath, err)
	}
	return m, nil
}

// ParseReader builds a mapper from CSV content.
func ParseReader(r io.Reader, cfg Config) (*Mapper, error) {
	m := &Mapper{
		baseURL:          strings.TrimRight(cfg.BaseURL, "/") + "/",
		rewriteHosts:     cfg.RewriteHosts,
		passthroughHosts: cfg.PassthroughHosts,
		urls:             make(map[string]string),
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("missing header row: %w", err)
	}

	pageTypeCol, urlCol := -1, -1
	for i, name := range header {
		switch strings.ToUpper(strings.TrimSpace(name)) {
		case "PAGE_TYPE":
			pageTypeCol = i
		case "URL":
			urlCol = i
		}
	}
	if pageTypeCol < 0 || urlCol < 0 {
		return nil, fmt.Errorf("header must contain PAGE_TYPE and URL columns, got %v", header)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) <= pageTypeCol || len(record) <= urlCol {
			continue
		}

		pageType := strings.TrimSpace(record[pageTypeCol])
		url := strings.TrimSpace(record[urlCol])
		if pageType == "" || url == "" {
			continue
		}

		m.urls[strings.ToLower(pageType)] = m.Convert(url)
	}

	return m, nil
}

// URL returns the environment-specific URL for a page type.
func (m *Mapper) URL(pageType string) (string, bool) {
	url, ok := m.urls[strings.ToLower(pageType)]
	return url, ok
}

// BaseURL returns the storefront root for the active environment.
func (m *Mapper) BaseURL() string {
	return m.baseURL
}

// Len returns the number of mapped page types.
func (m *Mapper) Len() int {
	return len(m.urls)
}

// Convert rewrites a URL for the active environment.
//
// Known storefront hosts are stripped and their path grafted onto the
// base URL; passthrough hosts are kept as-is; everything else is
// treated as a path relative to the base URL.
func (m *Mapper) Convert(url string) string {
	if url == "" || url == "undefined" {
		return m.baseURL
	}

	for _, host := range m.passthroughHosts {
		if strings.HasPrefix(url, host) {
			return url
		}
	}

	for _, host := range m.rewriteHosts {
		if strings.HasPrefix(url, host) {
			path := strings.TrimPrefix(strings.TrimPrefix(url, host), "/")
			return m.baseURL + path
		}
	}

	return m.baseURL + strings.TrimPrefix(url, "/")
}
