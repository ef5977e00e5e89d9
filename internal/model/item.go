package model

// ItemInfo is the normalized result of a pricing API lookup for one ASIN.
// Price is nil when the marketplace returned the item without a buyable offer.
type ItemInfo struct {
	ASIN            string
	Title           string
	Price           *int
	Availability    string
	DetailPageURL   string
	IsPrimeEligible bool
}
