package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"AmazonTracker/internal/model"
	"AmazonTracker/internal/pricing"
	"AmazonTracker/internal/recorder"
	"AmazonTracker/internal/tracker"
)

type fakeNotifier struct {
	posts []string
	err   error
}

func (f *fakeNotifier) Post(_ context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.posts = append(f.posts, text)
	return nil
}

func intPtr(v int) *int { return &v }

func fixedClock() func() time.Time {
	t := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func newTestRunner(t *testing.T, fetcher pricing.Fetcher, n *fakeNotifier) *Runner {
	t.Helper()
	r := New(fetcher, n, recorder.NewNoopRecorder(), filepath.Join(t.TempDir(), "tracking_products.json"))
	r.ChunkPause = 0
	r.Now = fixedClock()
	r.PartnerTag = "partner-22"
	r.Marketplace = "www.amazon.co.jp"
	return r
}

func seedState(t *testing.T, r *Runner, products ...*model.Product) {
	t.Helper()
	s := tracker.NewStore()
	for _, p := range products {
		if err := s.Add(p); err != nil {
			t.Fatal(err)
		}
	}
	if err := tracker.Save(r.StateFile, s); err != nil {
		t.Fatal(err)
	}
}

func loadState(t *testing.T, r *Runner) *tracker.Store {
	t.Helper()
	s, err := tracker.Load(r.StateFile)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestCheck_FirstObservationNoNotification(t *testing.T) {
	fetcher := &pricing.MockFetcher{Items: map[string]model.ItemInfo{
		"B000X": {ASIN: "B000X", Title: "Widget", Price: intPtr(1500)},
	}}
	n := &fakeNotifier{}
	r := newTestRunner(t, fetcher, n)
	seedState(t, r, &model.Product{ASIN: "B000X", Name: "Widget"})

	if err := r.Check(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(n.posts) != 0 {
		t.Errorf("expected no notification on first observation, got %d", len(n.posts))
	}

	p, _ := loadState(t, r).Get("B000X")
	if p.LastPrice == nil || *p.LastPrice != 1500 {
		t.Errorf("price not recorded: %v", p.LastPrice)
	}
	if p.LastChecked == nil {
		t.Error("timestamp not recorded")
	}
}

func TestCheck_PriceDropNotifiesOnce(t *testing.T) {
	fetcher := &pricing.MockFetcher{Items: map[string]model.ItemInfo{
		"B000X": {ASIN: "B000X", Title: "Widget", Price: intPtr(1800)},
	}}
	n := &fakeNotifier{}
	r := newTestRunner(t, fetcher, n)
	seedState(t, r, &model.Product{ASIN: "B000X", Name: "Widget", LastPrice: intPtr(2000)})

	if err := r.Check(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(n.posts) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(n.posts))
	}
	for _, want := range []string{"Widget", "2,000", "1,800"} {
		if !strings.Contains(n.posts[0], want) {
			t.Errorf("notification missing %q:\n%s", want, n.posts[0])
		}
	}

	p, _ := loadState(t, r).Get("B000X")
	if *p.LastPrice != 1800 {
		t.Errorf("expected updated price 1800, got %d", *p.LastPrice)
	}
}

func TestCheck_NoNotificationWhenPriceNotLower(t *testing.T) {
	for _, price := range []int{2000, 2200} {
		t.Run(fmt.Sprintf("price_%d", price), func(t *testing.T) {
			fetcher := &pricing.MockFetcher{Items: map[string]model.ItemInfo{
				"B000X": {ASIN: "B000X", Title: "Widget", Price: intPtr(price)},
			}}
			n := &fakeNotifier{}
			r := newTestRunner(t, fetcher, n)
			seedState(t, r, &model.Product{ASIN: "B000X", Name: "Widget", LastPrice: intPtr(2000)})

			if err := r.Check(context.Background()); err != nil {
				t.Fatalf("check: %v", err)
			}
			if len(n.posts) != 0 {
				t.Errorf("expected no notification for price %d >= 2000, got %d", price, len(n.posts))
			}
			p, _ := loadState(t, r).Get("B000X")
			if *p.LastPrice != price {
				t.Errorf("expected price updated to %d, got %d", price, *p.LastPrice)
			}
		})
	}
}

func TestCheck_Idempotent(t *testing.T) {
	fetcher := &pricing.MockFetcher{Items: map[string]model.ItemInfo{
		"B000X": {ASIN: "B000X", Title: "Widget", Price: intPtr(1800)},
	}}
	n := &fakeNotifier{}
	r := newTestRunner(t, fetcher, n)
	seedState(t, r, &model.Product{ASIN: "B000X", Name: "Widget", LastPrice: intPtr(2000)})

	if err := r.Check(context.Background()); err != nil {
		t.Fatalf("first check: %v", err)
	}
	first, err := os.ReadFile(r.StateFile)
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Check(context.Background()); err != nil {
		t.Fatalf("second check: %v", err)
	}
	second, err := os.ReadFile(r.StateFile)
	if err != nil {
		t.Fatal(err)
	}

	if len(n.posts) != 1 {
		t.Errorf("expected one notification across both runs, got %d", len(n.posts))
	}
	if string(first) != string(second) {
		t.Errorf("state changed on second run with unchanged price:\n%s\nvs\n%s", first, second)
	}
}

func TestCheck_LookupFailureSkipsOnlyThatProduct(t *testing.T) {
	// B000Y is absent from the fetch result, B000Z has no buyable offer.
	fetcher := &pricing.MockFetcher{Items: map[string]model.ItemInfo{
		"B000X": {ASIN: "B000X", Title: "Widget", Price: intPtr(1800)},
		"B000Z": {ASIN: "B000Z", Title: "Gadget"},
	}}
	n := &fakeNotifier{}
	r := newTestRunner(t, fetcher, n)
	seedState(t, r,
		&model.Product{ASIN: "B000X", Name: "Widget", LastPrice: intPtr(2000)},
		&model.Product{ASIN: "B000Y", Name: "Gizmo", LastPrice: intPtr(500)},
		&model.Product{ASIN: "B000Z", Name: "Gadget", LastPrice: intPtr(900)},
	)

	if err := r.Check(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}

	s := loadState(t, r)
	x, _ := s.Get("B000X")
	if *x.LastPrice != 1800 {
		t.Errorf("B000X should be updated despite other failures, got %d", *x.LastPrice)
	}
	for _, asin := range []string{"B000Y", "B000Z"} {
		p, _ := s.Get(asin)
		if p.LastChecked != nil {
			t.Errorf("%s: timestamp should be untouched on lookup failure", asin)
		}
	}
	if len(n.posts) != 1 {
		t.Errorf("expected one notification (for B000X), got %d", len(n.posts))
	}
}

func TestCheck_NotificationFailureStillUpdatesPrice(t *testing.T) {
	fetcher := &pricing.MockFetcher{Items: map[string]model.ItemInfo{
		"B000X": {ASIN: "B000X", Title: "Widget", Price: intPtr(1800)},
	}}
	n := &fakeNotifier{err: errors.New("rate limited")}
	r := newTestRunner(t, fetcher, n)
	seedState(t, r, &model.Product{ASIN: "B000X", Name: "Widget", LastPrice: intPtr(2000)})

	if err := r.Check(context.Background()); err != nil {
		t.Fatalf("check should absorb notification failures: %v", err)
	}
	p, _ := loadState(t, r).Get("B000X")
	if *p.LastPrice != 1800 {
		t.Errorf("price should update even when the post fails, got %d", *p.LastPrice)
	}
}

func TestCheck_BatchesByTen(t *testing.T) {
	items := make(map[string]model.ItemInfo)
	var products []*model.Product
	for i := 0; i < 23; i++ {
		asin := fmt.Sprintf("B%09d", i)
		items[asin] = model.ItemInfo{ASIN: asin, Title: asin, Price: intPtr(100 + i)}
		products = append(products, &model.Product{ASIN: asin, Name: asin})
	}
	fetcher := &pricing.MockFetcher{Items: items}
	r := newTestRunner(t, fetcher, &fakeNotifier{})
	seedState(t, r, products...)

	if err := r.Check(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(fetcher.Calls) != 3 {
		t.Fatalf("expected 3 batches for 23 products, got %d", len(fetcher.Calls))
	}
	for i, want := range []int{10, 10, 3} {
		if len(fetcher.Calls[i]) != want {
			t.Errorf("batch %d: expected %d ASINs, got %d", i, want, len(fetcher.Calls[i]))
		}
	}
}

func TestAdd_AppendsWithAffiliateTag(t *testing.T) {
	fetcher := &pricing.MockFetcher{Items: map[string]model.ItemInfo{
		"B000X": {
			ASIN:          "B000X",
			Title:         "Widget",
			Price:         intPtr(2000),
			DetailPageURL: "https://www.amazon.co.jp/dp/B000X",
		},
	}}
	r := newTestRunner(t, fetcher, &fakeNotifier{})

	if err := r.Add(context.Background(), "B000X"); err != nil {
		t.Fatalf("add: %v", err)
	}

	p, ok := loadState(t, r).Get("B000X")
	if !ok {
		t.Fatal("product not persisted")
	}
	if !strings.Contains(p.URL, "tag=partner-22") {
		t.Errorf("URL missing affiliate tag: %s", p.URL)
	}
	if p.LastPrice == nil || *p.LastPrice != 2000 {
		t.Errorf("initial price not recorded: %v", p.LastPrice)
	}
	if len(p.PriceHistory) != 1 {
		t.Errorf("expected one history point, got %d", len(p.PriceHistory))
	}

	if err := r.Add(context.Background(), "B000X"); err == nil {
		t.Error("expected error adding the same ASIN twice")
	}
}

func TestAdd_UnknownASIN(t *testing.T) {
	r := newTestRunner(t, &pricing.MockFetcher{Items: map[string]model.ItemInfo{}}, &fakeNotifier{})

	err := r.Add(context.Background(), "B00NOPE")
	if err == nil {
		t.Fatal("expected lookup error")
	}
	var lerr *LookupError
	if !errors.As(err, &lerr) {
		t.Errorf("expected *LookupError, got %T: %v", err, err)
	}
}

func TestAffiliateURL(t *testing.T) {
	r := &Runner{PartnerTag: "partner-22", Marketplace: "www.amazon.co.jp"}
	tests := []struct {
		detail string
		want   string
	}{
		{"", "https://www.amazon.co.jp/dp/B000X?tag=partner-22"},
		{"https://www.amazon.co.jp/dp/B000X", "https://www.amazon.co.jp/dp/B000X?tag=partner-22"},
		{"https://www.amazon.co.jp/dp/B000X?th=1", "https://www.amazon.co.jp/dp/B000X?th=1&tag=partner-22"},
		{"https://www.amazon.co.jp/dp/B000X?tag=other-11", "https://www.amazon.co.jp/dp/B000X?tag=other-11"},
	}
	for _, tt := range tests {
		if got := r.affiliateURL("B000X", tt.detail); got != tt.want {
			t.Errorf("affiliateURL(%q):\n got %s\nwant %s", tt.detail, got, tt.want)
		}
	}
}
