package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"FactorPulse/internal/model"
	"FactorPulse/internal/platform/httpclient"
)

// DefaultFactorsPath is the backend route listing all factors.
const DefaultFactorsPath = "/api/factors"

// Fetcher defines the interface for fetching factor records.
type Fetcher interface {
	FetchFactors(ctx context.Context) ([]model.FactorRecord, error)
	Name() string
}

// BackendFetcher implements Fetcher using the factor backend REST API.
type BackendFetcher struct {
	BaseURL     string
	FactorsPath string
	APIKey      string
	Client      *httpclient.Client
}

// NewBackendFetcher creates a fetcher for the backend at baseURL.
func NewBackendFetcher(baseURL, factorsPath, apiKey string, client *httpclient.Client) *BackendFetcher {
	if factorsPath == "" {
		factorsPath = DefaultFactorsPath
	}
	return &BackendFetcher{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		FactorsPath: factorsPath,
		APIKey:      apiKey,
		Client:      client,
	}
}

func (f *BackendFetcher) Name() string { return "backend" }

// FetchFactors loads and validates the full factor list.
func (f *BackendFetcher) FetchFactors(ctx context.Context) ([]model.FactorRecord, error) {
	header := http.Header{}
	header.Set("Accept", "application/json")
	if f.APIKey != "" {
		header.Set("Authorization", "Bearer "+f.APIKey)
	}

	body, err := f.Client.Get(ctx, f.BaseURL+f.FactorsPath, header)
	if err != nil {
		return nil, fmt.Errorf("fetch factors: %w", err)
	}

	var records []model.FactorRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode factors: %w", err)
	}
	if err := ValidateRecords(records); err != nil {
		return nil, err
	}
	return records, nil
}

// ValidateRecords checks every record and rejects duplicate ids.
func ValidateRecords(records []model.FactorRecord) error {
	seen := make(map[int]string, len(records))
	for i := range records {
		rec := &records[i]
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("invalid record: %w", err)
		}
		if prev, dup := seen[rec.ID]; dup {
			return fmt.Errorf("invalid record: duplicate id %d (%q and %q)", rec.ID, prev, rec.Name)
		}
		seen[rec.ID] = rec.Name
	}
	return nil
}
