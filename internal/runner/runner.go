package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"AmazonTracker/internal/model"
	"AmazonTracker/internal/notifier"
	"AmazonTracker/internal/pricing"
	"AmazonTracker/internal/recorder"
	"AmazonTracker/internal/tracker"
)

// Runner executes check passes over the tracked product set.
type Runner struct {
	Fetcher     pricing.Fetcher
	Notifier    notifier.Notifier
	Recorder    recorder.Recorder
	Templates   map[string]notifier.Template
	StateFile   string
	PartnerTag  string
	Marketplace string

	// ChunkPause is the courtesy wait between GetItems batches.
	ChunkPause time.Duration
	Now        func() time.Time
}

// New creates a Runner with default templates, pause, and clock.
func New(f pricing.Fetcher, n notifier.Notifier, rec recorder.Recorder, stateFile string) *Runner {
	return &Runner{
		Fetcher:    f,
		Notifier:   n,
		Recorder:   rec,
		Templates:  notifier.DefaultTemplates(),
		StateFile:  stateFile,
		ChunkPause: time.Second,
		Now:        time.Now,
	}
}

// Check runs one pass: fetch current prices, notify on strict drops, update
// every resolved product's price and timestamp, write the state file once.
// Per-product failures are logged and skipped; the returned error is non-nil
// only when the state file itself cannot be read or written.
func (r *Runner) Check(ctx context.Context) error {
	store, err := tracker.Load(r.StateFile)
	if err != nil {
		return fmt.Errorf("load tracked products: %w", err)
	}
	if store.Len() == 0 {
		log.Println("[INFO] no tracked products")
		return nil
	}

	asins := store.ASINs()
	log.Printf("[INFO] checking %d tracked products", len(asins))

	infos := make(map[string]model.ItemInfo, len(asins))
	for i, chunk := range chunks(asins, pricing.MaxItemsPerRequest) {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.ChunkPause):
			}
		}
		got, err := r.Fetcher.FetchItems(ctx, chunk)
		if err != nil {
			log.Printf("[ERROR] fetch items (%s): %v", strings.Join(chunk, ", "), err)
			continue
		}
		for asin, info := range got {
			infos[asin] = info
		}
	}

	for _, asin := range asins {
		p, _ := store.Get(asin)
		r.checkProduct(ctx, p, infos)
	}

	if err := tracker.Save(r.StateFile, store); err != nil {
		return fmt.Errorf("save tracked products: %w", err)
	}
	return nil
}

// checkProduct applies one fetched observation to one tracked product.
func (r *Runner) checkProduct(ctx context.Context, p *model.Product, infos map[string]model.ItemInfo) {
	info, ok := infos[p.ASIN]
	if !ok || info.Price == nil {
		lerr := &LookupError{ASIN: p.ASIN, Err: errors.New("no price returned")}
		log.Printf("[WARN] %v, skipping this cycle", lerr)
		return
	}
	newPrice := *info.Price
	now := r.Now()

	if p.LastPrice != nil && newPrice < *p.LastPrice {
		oldPrice := *p.LastPrice
		log.Printf("[INFO] price drop: %s %d -> %d", p.ASIN, oldPrice, newPrice)

		text := notifier.FormatPriceDrop(r.Templates, p, oldPrice, newPrice)
		posted := true
		if err := r.Notifier.Post(ctx, text); err != nil {
			posted = false
			nerr := &NotificationError{ASIN: p.ASIN, Err: err}
			log.Printf("[ERROR] %v", nerr)
		}
		if err := r.Recorder.RecordNotification(&recorder.NotificationEvent{
			ASIN: p.ASIN, OldPrice: oldPrice, NewPrice: newPrice, Posted: posted,
		}); err != nil {
			log.Printf("[ERROR] record notification: %v", err)
		}
	}

	if p.LastPrice == nil || *p.LastPrice != newPrice {
		p.PriceHistory = append(p.PriceHistory, model.PricePoint{Price: newPrice, Timestamp: now})
	}
	p.LastPrice = &newPrice
	if info.Availability != "" {
		p.LastAvailability = info.Availability
	}
	checked := now
	p.LastChecked = &checked

	if err := r.Recorder.RecordCheck(&recorder.CheckEvent{
		ASIN: p.ASIN, Price: newPrice, Availability: info.Availability,
	}); err != nil {
		log.Printf("[ERROR] record check: %v", err)
	}
}

// Add fetches a product once and appends it to the tracked set.
func (r *Runner) Add(ctx context.Context, asin string) error {
	store, err := tracker.Load(r.StateFile)
	if err != nil {
		return fmt.Errorf("load tracked products: %w", err)
	}
	if _, ok := store.Get(asin); ok {
		return fmt.Errorf("product %s is already tracked", asin)
	}

	infos, err := r.Fetcher.FetchItems(ctx, []string{asin})
	if err != nil {
		return &LookupError{ASIN: asin, Err: err}
	}
	info, ok := infos[asin]
	if !ok {
		return &LookupError{ASIN: asin, Err: errors.New("item not found")}
	}

	now := r.Now()
	p := &model.Product{
		ASIN:             asin,
		Name:             info.Title,
		URL:              r.affiliateURL(asin, info.DetailPageURL),
		LastPrice:        info.Price,
		LastAvailability: info.Availability,
		LastChecked:      &now,
	}
	if p.Name == "" {
		p.Name = "商品 " + asin
	}
	if info.Price != nil {
		p.PriceHistory = []model.PricePoint{{Price: *info.Price, Timestamp: now}}
	}

	if err := store.Add(p); err != nil {
		return err
	}
	if err := tracker.Save(r.StateFile, store); err != nil {
		return fmt.Errorf("save tracked products: %w", err)
	}
	log.Printf("[INFO] now tracking %s (%s)", p.Name, asin)
	return nil
}

// affiliateURL ensures the product URL carries the associate tag.
func (r *Runner) affiliateURL(asin, detailURL string) string {
	u := detailURL
	if u == "" {
		u = fmt.Sprintf("https://%s/dp/%s", r.Marketplace, asin)
	}
	if r.PartnerTag == "" ||
		strings.Contains(u, "?tag=") || strings.Contains(u, "&tag=") {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "tag=" + r.PartnerTag
}

// chunks splits asins into batches of at most size.
func chunks(asins []string, size int) [][]string {
	var out [][]string
	for len(asins) > size {
		out = append(out, asins[:size])
		asins = asins[size:]
	}
	if len(asins) > 0 {
		out = append(out, asins)
	}
	return out
}
