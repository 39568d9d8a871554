package scrape

import (
	"context"
	"encoding/json"
	"html"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jdboer/grocery-cli/internal/config"
	"github.com/jdboer/grocery-cli/internal/model"
)

// Lidl scrapes the weekly offers page. Offer data is embedded in the
// page HTML as entity-escaped JSON inside data-grid-data attributes;
// there is no stable product id, so records have an empty ID and are
// de-duplicated by title.
type Lidl struct {
	offersURL string
	client    *http.Client
	now       func() time.Time
}

// NewLidl creates a Lidl offers scraper from config.
func NewLidl(cfg config.LidlConfig) *Lidl {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Lidl{
		offersURL: cfg.OffersURL,
		now:       time.Now,
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

func (l *Lidl) Name() string { return "lidl" }

type lidlProduct struct {
	FullTitle     string          `json:"fullTitle"`
	CanonicalURL  string          `json:"canonicalUrl"`
	PriceLabel    looseNumber     `json:"priceLabel"`
	Price         lidlPrice       `json:"price"`
	LidlPlus      []lidlPlusEntry `json:"lidlPlus"`
	Ribbons       []lidlText      `json:"ribbons"`
	Merchandising lidlText        `json:"merchandising"`
}

type lidlPrice struct {
	Price     looseNumber `json:"price"`
	OldPrice  looseNumber `json:"oldPrice"`
	Packaging lidlText    `json:"packaging"`
	UnitSize  string      `json:"unitSize"`
}

type lidlPlusEntry struct {
	Price         lidlPrice `json:"price"`
	HighlightText string    `json:"highlightText"`
}

type lidlText struct {
	Text string `json:"text"`
}

// looseNumber accepts a JSON number or a numeric string; the payload
// mixes both for prices.
type looseNumber string

func (n *looseNumber) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	s = strings.Trim(s, `"`)
	if s == "null" {
		s = ""
	}
	*n = looseNumber(s)
	return nil
}

func (n looseNumber) empty() bool { return n == "" || n == "0" }

// Scrape fetches the offers page and extracts every embedded offer.
func (l *Lidl) Scrape(ctx context.Context) ([]model.ProductRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.offersURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "lidl: create request")
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; GroceryBot/1.0)")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "lidl: fetch offers page")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("lidl: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "lidl: read body")
	}

	blobs := extractGridData(string(body))
	if len(blobs) == 0 {
		return nil, eris.New("lidl: no offer data in page")
	}

	day := l.now().Format("2006-01-02")
	var records []model.ProductRecord
	seen := make(map[string]struct{})

	for _, blob := range blobs {
		products, err := decodeGridBlob(blob)
		if err != nil {
			zap.L().Debug("lidl: skipping malformed grid blob", zap.Error(err))
			continue
		}
		for _, p := range products {
			rec, ok := toOffer(p, day)
			if !ok {
				continue
			}
			if _, dup := seen[rec.Title]; dup {
				continue
			}
			seen[rec.Title] = struct{}{}
			records = append(records, rec)
		}
	}

	if len(records) == 0 {
		return nil, eris.New("lidl: no offers extracted")
	}
	return records, nil
}

// extractGridData pulls every data-grid-data attribute value out of the
// page HTML. The values are entity-escaped JSON documents.
func extractGridData(page string) []string {
	const marker = `data-grid-data="`
	var blobs []string
	for {
		start := strings.Index(page, marker)
		if start < 0 {
			break
		}
		rest := page[start+len(marker):]
		end := strings.Index(rest, `"`)
		if end < 0 {
			break
		}
		blobs = append(blobs, html.UnescapeString(rest[:end]))
		page = rest[end+1:]
	}
	return blobs
}

// decodeGridBlob parses one attribute value as either a product array
// or a single product object.
func decodeGridBlob(blob string) ([]lidlProduct, error) {
	var many []lidlProduct
	if err := json.Unmarshal([]byte(blob), &many); err == nil {
		return many, nil
	}
	var one lidlProduct
	if err := json.Unmarshal([]byte(blob), &one); err != nil {
		return nil, eris.Wrap(err, "lidl: decode grid data")
	}
	return []lidlProduct{one}, nil
}

// toOffer maps one embedded offer onto a catalog record. The Lidl Plus
// member price wins over the standard price when present; offers whose
// price cannot be parsed are skipped.
func toOffer(p lidlProduct, day string) (model.ProductRecord, bool) {
	if p.FullTitle == "" {
		return model.ProductRecord{}, false
	}

	var rawCurrent, rawOld looseNumber
	label := ""
	dealType := "Standard"

	if len(p.LidlPlus) > 0 && !p.LidlPlus[0].Price.Price.empty() {
		lp := p.LidlPlus[0]
		rawCurrent = lp.Price.Price
		rawOld = lp.Price.OldPrice
		label = "Lidl Plus"
		dealType = "Member Deal"
		if lp.HighlightText != "" {
			label += " (" + lp.HighlightText + ")"
		}
	} else {
		rawCurrent = p.Price.Price
		rawOld = p.Price.OldPrice
		if rawCurrent == "" {
			rawCurrent = p.PriceLabel
		}
	}

	price, err := parsePrice(rawCurrent)
	if err != nil {
		return model.ProductRecord{}, false
	}
	old, err := parsePrice(rawOld)
	if err != nil {
		return model.ProductRecord{}, false
	}
	old = model.NormalizeWasPrice(price, old)

	if !strings.Contains(label, "Lidl Plus") {
		if len(p.Ribbons) > 0 {
			label = p.Ribbons[0].Text
		} else if p.Merchandising.Text != "" {
			label = p.Merchandising.Text
		}
	}

	unit := p.Price.Packaging.Text
	if unit == "" {
		unit = p.Price.UnitSize
	}

	link := p.CanonicalURL
	if link != "" && !strings.HasPrefix(link, "http") {
		link = "https://www.lidl.nl" + link
	}

	return model.ProductRecord{
		Title:           p.FullTitle,
		Price:           price,
		WasPrice:        old,
		DiscountPercent: model.DiscountPercent(price, old),
		Discount:        label,
		DealType:        dealType,
		Unit:            unit,
		URL:             link,
		ScrapedAt:       day,
	}, true
}

func parsePrice(raw looseNumber) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(string(raw))
}
