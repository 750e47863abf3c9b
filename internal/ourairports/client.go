package ourairports

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yegors/routemap/pkg/logger"
)

// DefaultBaseURL is where OurAirports publishes its data files
const DefaultBaseURL = "https://ourairports.com/data"

// UpdateInterval is how old the local files may get before a refresh
const UpdateInterval = 14 * 24 * time.Hour

const (
	lastUpdatedFile = ".last_updated"
	dateFormat      = "2006-01-02"
)

// Files lists every data file a complete data set contains
var Files = []string{AirportsFile, RunwaysFile, FrequenciesFile, CountriesFile}

// Client downloads the OurAirports data set into a directory
type Client struct {
	httpClient *http.Client
	baseURL    string
	dir        string
	logger     *logger.Logger
}

// NewClient creates a new OurAirports client
func NewClient(baseURL, dir string, timeout time.Duration, logger *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		dir:     dir,
		logger:  logger.Named("ourairports-cli"),
	}
}

// NeedsUpdate reports whether the local files are missing or older than
// UpdateInterval
func (c *Client) NeedsUpdate(now time.Time) bool {
	data, err := os.ReadFile(filepath.Join(c.dir, lastUpdatedFile))
	if err != nil {
		return true
	}

	updatedAt, err := time.Parse(dateFormat, strings.TrimSpace(string(data)))
	if err != nil {
		c.logger.Warn("Ignoring unreadable update marker", logger.Error(err))
		return true
	}

	for _, name := range Files {
		if _, err := os.Stat(filepath.Join(c.dir, name)); err != nil {
			return true
		}
	}

	return now.UTC().Sub(updatedAt) >= UpdateInterval
}

// Update downloads every data file. A file is only replaced once it has been
// downloaded completely, so a failed update leaves the previous copy in place.
func (c *Client) Update(ctx context.Context, now time.Time) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	c.logger.Info("Updating airport data", logger.String("url", c.baseURL), logger.String("dir", c.dir))

	for _, name := range Files {
		if err := c.download(ctx, name); err != nil {
			return err
		}
	}

	marker := filepath.Join(c.dir, lastUpdatedFile)
	if err := os.WriteFile(marker, []byte(now.UTC().Format(dateFormat)), 0o644); err != nil {
		return fmt.Errorf("failed to write update marker: %w", err)
	}

	c.logger.Info("Finished updating airport data")
	return nil
}

func (c *Client) download(ctx context.Context, name string) error {
	url := c.baseURL + "/" + name

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	c.logger.Debug("Downloading", logger.String("url", url))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download %s: unexpected status code: %d", name, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(c.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(c.dir, name)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}

	c.logger.Debug("Downloaded", logger.String("file", name), logger.Int("bytes", int(n)))
	return nil
}
