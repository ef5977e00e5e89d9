package notifier

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"AmazonTracker/internal/model"
)

// maxPostRunes is the X post length limit.
const maxPostRunes = 280

// Template controls the wording of a price-drop post. Placeholders {old},
// {new}, {diff} and {percent} are expanded with formatted values.
type Template struct {
	Title     string `json:"title"`
	PriceDown string `json:"price_down"`
	Footer    string `json:"footer"`
}

// flashSaleThresholdPct selects the flash_sale template for larger drops.
const flashSaleThresholdPct = 10.0

// DefaultTemplates returns the built-in post templates.
func DefaultTemplates() map[string]Template {
	return map[string]Template{
		"default": {
			Title:     "【Amazon価格変動】",
			PriceDown: "⬇️ {old}円 → {new}円 ({diff}円安 / {percent}%)",
			Footer:    "",
		},
		"flash_sale": {
			Title:     "🔥【緊急値下げ速報】🔥",
			PriceDown: "【値下げ】{old}円 → {new}円 ({percent}%オフ)",
			Footer:    "#お買い得 #タイムセール",
		},
	}
}

// LoadTemplates reads post templates from a JSON file. If the file doesn't
// exist, the defaults are written to it and returned.
func LoadTemplates(path string) (map[string]Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			defaults := DefaultTemplates()
			if out, merr := json.MarshalIndent(defaults, "", "  "); merr == nil {
				if werr := os.WriteFile(path, out, 0644); werr != nil {
					log.Printf("[WARN] write default templates: %v", werr)
				}
			}
			return defaults, nil
		}
		return nil, fmt.Errorf("read templates: %w", err)
	}
	var tpls map[string]Template
	if err := json.Unmarshal(data, &tpls); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if _, ok := tpls["default"]; !ok {
		tpls["default"] = DefaultTemplates()["default"]
	}
	return tpls, nil
}

// FormatPriceDrop builds the post text for a detected price drop.
func FormatPriceDrop(tpls map[string]Template, p *model.Product, oldPrice, newPrice int) string {
	diff := oldPrice - newPrice
	percent := 0.0
	if oldPrice > 0 {
		percent = float64(diff) / float64(oldPrice) * 100
	}

	tpl := tpls["default"]
	if percent >= flashSaleThresholdPct {
		if flash, ok := tpls["flash_sale"]; ok {
			tpl = flash
		}
	}

	expand := strings.NewReplacer(
		"{old}", humanize.Comma(int64(oldPrice)),
		"{new}", humanize.Comma(int64(newPrice)),
		"{diff}", humanize.Comma(int64(diff)),
		"{percent}", fmt.Sprintf("%.1f", percent),
	)

	var b strings.Builder
	b.WriteString(tpl.Title)
	b.WriteByte('\n')
	b.WriteString(p.Name)
	b.WriteString("\n\n")
	b.WriteString(expand.Replace(tpl.PriceDown))
	b.WriteByte('\n')
	if tpl.Footer != "" {
		b.WriteByte('\n')
		b.WriteString(tpl.Footer)
		b.WriteByte('\n')
	}
	if p.URL != "" {
		b.WriteByte('\n')
		b.WriteString(p.URL)
	}

	return truncatePost(b.String())
}

// truncatePost enforces the post length limit, keeping a trailing ellipsis.
func truncatePost(post string) string {
	if utf8.RuneCountInString(post) <= maxPostRunes {
		return post
	}
	runes := []rune(post)
	return string(runes[:maxPostRunes-3]) + "..."
}
