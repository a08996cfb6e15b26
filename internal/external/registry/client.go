package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/gestioncarteras/backend/pkg/httputil"
	"github.com/gestioncarteras/backend/pkg/logger"
)

// Record is one delinquency entry published for an identification.
type Record struct {
	Entity       string    `json:"entidad"`
	Amount       float64   `json:"monto"`
	ReportedDate time.Time `json:"fecha_reporte"`
}

// Result is the outcome of a registry lookup.
type Result struct {
	Identification string    `json:"identificacion"`
	Flagged        bool      `json:"registro_morosidad"`
	Records        []Record  `json:"registros,omitempty"`
	CheckedAt      time.Time `json:"consultado_en"`
}

// Client consults the public delinquent-debtor registry. The registry
// publishes HTML only, so responses are scraped; lookups are throttled
// to stay well under the site's tolerance.
type Client struct {
	httpClient *httputil.Client
	limiter    *rate.Limiter
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new registry client
func NewClient(httpClient *httputil.Client, baseURL string, requestsPerMin int, log *logger.Logger) *Client {
	if requestsPerMin < 1 {
		requestsPerMin = 1
	}
	return &Client{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMin)), 1),
		logger:     log.WithField("component", "registry"),
		baseURL:    baseURL,
	}
}

// Lookup checks whether the identification appears in the registry.
func (c *Client) Lookup(ctx context.Context, identification string) (*Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("documento", identification)
	fullURL := fmt.Sprintf("%s/consulta?%s", c.baseURL, params.Encode())

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	records, err := parseRegistryHTML(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse registry page: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"identification": identification,
		"records":        len(records),
	}).Debug("Registry lookup completed")

	return &Result{
		Identification: identification,
		Flagged:        len(records) > 0,
		Records:        records,
		CheckedAt:      time.Now(),
	}, nil
}

var registryDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// parseRegistryHTML extracts delinquency rows from the results table.
// Page structure: table.resultados with one row per report, columns
// entidad | monto | fecha_reporte.
func parseRegistryHTML(html string) ([]Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var records []Record

	doc.Find("table.resultados tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}

		dateText := strings.TrimSpace(cells.Eq(2).Text())
		if !registryDateRe.MatchString(dateText) {
			return
		}
		reported, err := time.Parse("2006-01-02", dateText)
		if err != nil {
			return
		}

		records = append(records, Record{
			Entity:       strings.TrimSpace(cells.Eq(0).Text()),
			Amount:       parseAmount(cells.Eq(1).Text()),
			ReportedDate: reported,
		})
	})

	return records, nil
}

// parseAmount handles the registry's money formatting: "$ 1.250.000"
// with dots as thousand separators.
func parseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return 0
	}
	n, _ := strconv.ParseFloat(s, 64)
	return n
}
