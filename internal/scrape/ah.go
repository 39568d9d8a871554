package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jdboer/grocery-cli/internal/config"
	"github.com/jdboer/grocery-cli/internal/model"
)

// AlbertHeijn walks the retailer's taxonomy search API one root category
// at a time. Categories whose slug contains a blacklist keyword are
// skipped; a fetch failure abandons the current category but never the
// whole walk.
type AlbertHeijn struct {
	baseURL    string
	client     *http.Client
	pageSize   int
	categories map[string]string
	blacklist  []string
	pace       *pacer
	now        func() time.Time
}

// NewAlbertHeijn creates an Albert Heijn catalog scraper from config.
func NewAlbertHeijn(cfg config.AHConfig) *AlbertHeijn {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AlbertHeijn{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		pageSize:   cfg.PageSize,
		categories: cfg.Categories,
		blacklist:  cfg.BlacklistKeywords,
		pace: newPacer(
			time.Duration(cfg.MinDelayMS)*time.Millisecond,
			time.Duration(cfg.MaxDelayMS)*time.Millisecond,
		),
		now: time.Now,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

func (a *AlbertHeijn) Name() string { return "albert_heijn" }

// ahSearchResponse mirrors the taxonomy search API payload; only the
// fields the scraper reads are declared.
type ahSearchResponse struct {
	Page  ahPageInfo `json:"page"`
	Cards []ahCard   `json:"cards"`
}

type ahPageInfo struct {
	TotalPages int `json:"totalPages"`
}

type ahCard struct {
	Products []ahProduct `json:"products"`
}

type ahProduct struct {
	ID         json.Number     `json:"id"`
	Title      string          `json:"title"`
	Category   string          `json:"category"`
	Link       string          `json:"link"`
	Discount   json.RawMessage `json:"discount"`
	Price      ahPrice         `json:"price"`
	Shield     ahShield        `json:"shield"`
	Properties ahProperties    `json:"properties"`
}

type ahPrice struct {
	Now      *decimal.Decimal `json:"now"`
	Was      *decimal.Decimal `json:"was"`
	UnitSize string           `json:"unitSize"`
}

type ahShield struct {
	Text string `json:"text"`
}

type ahProperties struct {
	Nutriscore string `json:"nutriscore"`
}

// Scrape walks every non-blacklisted category page by page. The returned
// records are raw per-aisle rows; products listed under several aisles
// appear once per aisle until merged downstream.
func (a *AlbertHeijn) Scrape(ctx context.Context) ([]model.ProductRecord, error) {
	active := a.activeCategories()
	if len(active) == 0 {
		return nil, eris.New("albert_heijn: no categories after blacklist filter")
	}

	day := a.now().Format("2006-01-02")
	var records []model.ProductRecord

	for _, slug := range active {
		taxID := a.categories[slug]
		found, err := a.scrapeCategory(ctx, slug, taxID, day, &records)
		if err != nil {
			if ctx.Err() != nil {
				return records, ctx.Err()
			}
			// Abandon this category, keep walking the rest.
			zap.L().Warn("albert_heijn: category abandoned",
				zap.String("category", slug),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("albert_heijn: category done",
			zap.String("category", slug),
			zap.Int("items", found),
		)
	}

	return records, nil
}

// activeCategories filters out blacklisted slugs and sorts the remainder
// so walk order is stable.
func (a *AlbertHeijn) activeCategories() []string {
	slugs := make([]string, 0, len(a.categories))
	for slug := range a.categories {
		if a.blacklisted(slug) {
			continue
		}
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

func (a *AlbertHeijn) blacklisted(slug string) bool {
	for _, kw := range a.blacklist {
		if strings.Contains(slug, kw) {
			return true
		}
	}
	return false
}

func (a *AlbertHeijn) scrapeCategory(ctx context.Context, slug, taxID, day string, out *[]model.ProductRecord) (int, error) {
	page := 0
	totalPages := 1
	found := 0

	for page < totalPages {
		resp, err := a.fetchPage(ctx, taxID, page)
		if err != nil {
			return found, err
		}
		if page == 0 && resp.Page.TotalPages > 0 {
			totalPages = resp.Page.TotalPages
		}

		for _, card := range resp.Cards {
			for _, p := range card.Products {
				rec, ok := a.toRecord(p, slug, day)
				if !ok {
					continue
				}
				*out = append(*out, rec)
				found++
			}
		}

		page++
		if page < totalPages {
			if err := a.pace.wait(ctx); err != nil {
				return found, err
			}
		}
	}

	return found, nil
}

func (a *AlbertHeijn) fetchPage(ctx context.Context, taxID string, page int) (*ahSearchResponse, error) {
	q := url.Values{}
	q.Set("taxonomy", taxID)
	q.Set("size", strconv.Itoa(a.pageSize))
	q.Set("page", strconv.Itoa(page))
	endpoint := fmt.Sprintf("%s/zoeken/api/products/search?%s", a.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "albert_heijn: create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", a.baseURL+"/producten")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "albert_heijn: fetch page")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("albert_heijn: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "albert_heijn: read body")
	}

	var parsed ahSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "albert_heijn: decode response")
	}
	return &parsed, nil
}

// toRecord maps one API product onto a catalog record. Entries without
// an id or title are skipped; an absent was-price defaults to the
// current price.
func (a *AlbertHeijn) toRecord(p ahProduct, slug, day string) (model.ProductRecord, bool) {
	id := p.ID.String()
	if id == "" || p.Title == "" || p.Price.Now == nil {
		return model.ProductRecord{}, false
	}

	now := *p.Price.Now
	was := now
	if p.Price.Was != nil && !p.Price.Was.IsZero() {
		was = *p.Price.Was
	}

	discount := p.Shield.Text
	if discount == "" && hasValue(p.Discount) {
		discount = "Bonus"
	}

	link := p.Link
	if link != "" && !strings.HasPrefix(link, "http") {
		link = a.baseURL + link
	}

	return model.ProductRecord{
		ID:              id,
		Title:           p.Title,
		Aisle:           slug,
		Category:        p.Category,
		Price:           now,
		WasPrice:        was,
		DiscountPercent: model.DiscountPercent(now, was),
		Discount:        discount,
		Unit:            p.Price.UnitSize,
		Nutriscore:      p.Properties.Nutriscore,
		URL:             link,
		ScrapedAt:       day,
	}, true
}

// hasValue reports whether a raw JSON field carries anything besides
// null or an empty literal.
func hasValue(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	switch s {
	case "", "null", "false", "0", `""`, "{}", "[]":
		return false
	}
	return true
}

// Summarize counts raw per-aisle rows, one summary line per aisle,
// sorted by aisle name.
func Summarize(records []model.ProductRecord) []model.CategorySummary {
	counts := make(map[string]int)
	for _, r := range records {
		if r.Aisle == "" {
			continue
		}
		counts[r.Aisle]++
	}
	aisles := make([]string, 0, len(counts))
	for aisle := range counts {
		aisles = append(aisles, aisle)
	}
	sort.Strings(aisles)

	out := make([]model.CategorySummary, 0, len(aisles))
	for _, aisle := range aisles {
		out = append(out, model.CategorySummary{Aisle: aisle, Items: counts[aisle]})
	}
	return out
}
