package pricing

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"AmazonTracker/internal/model"
)

const (
	paapiPath    = "/paapi5/getitems"
	paapiTarget  = "com.amazon.paapi5.v1.ProductAdvertisingAPIv1.GetItems"
	paapiService = "ProductAdvertisingAPI"

	// MaxItemsPerRequest is the GetItems batch limit.
	MaxItemsPerRequest = 10
)

// endpoint maps a marketplace domain to its PA-API host and signing region.
type endpoint struct {
	Host   string
	Region string
}

var marketplaceEndpoints = map[string]endpoint{
	"www.amazon.co.jp":  {"webservices.amazon.co.jp", "us-west-2"},
	"www.amazon.com":    {"webservices.amazon.com", "us-east-1"},
	"www.amazon.ca":     {"webservices.amazon.ca", "us-east-1"},
	"www.amazon.co.uk":  {"webservices.amazon.co.uk", "eu-west-1"},
	"www.amazon.de":     {"webservices.amazon.de", "eu-west-1"},
	"www.amazon.fr":     {"webservices.amazon.fr", "eu-west-1"},
	"www.amazon.it":     {"webservices.amazon.it", "eu-west-1"},
	"www.amazon.es":     {"webservices.amazon.es", "eu-west-1"},
	"www.amazon.com.au": {"webservices.amazon.com.au", "us-west-2"},
}

// endpointFor resolves a marketplace domain. Unknown marketplaces fall back to
// a webservices host derived from the domain and the us-west-2 region.
func endpointFor(marketplace string) endpoint {
	if ep, ok := marketplaceEndpoints[marketplace]; ok {
		return ep
	}
	return endpoint{
		Host:   "webservices." + strings.TrimPrefix(marketplace, "www."),
		Region: "us-west-2",
	}
}

// PAAPIFetcher implements Fetcher against the Product Advertising API 5.0
// GetItems operation, signing each request with AWS Signature V4.
type PAAPIFetcher struct {
	AccessKey   string
	SecretKey   string
	PartnerTag  string
	Marketplace string
	Host        string
	Region      string
	Client      *http.Client

	baseURL string
	now     func() time.Time
}

// NewPAAPIFetcher creates a new fetcher with optional proxy support.
func NewPAAPIFetcher(accessKey, secretKey, partnerTag, marketplace, proxyURL string) *PAAPIFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	ep := endpointFor(marketplace)
	return &PAAPIFetcher{
		AccessKey:   accessKey,
		SecretKey:   secretKey,
		PartnerTag:  partnerTag,
		Marketplace: marketplace,
		Host:        ep.Host,
		Region:      ep.Region,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		baseURL: "https://" + ep.Host,
		now:     time.Now,
	}
}

func (f *PAAPIFetcher) Name() string { return "paapi" }

type getItemsRequest struct {
	ItemIds     []string `json:"ItemIds"`
	Resources   []string `json:"Resources"`
	PartnerTag  string   `json:"PartnerTag"`
	PartnerType string   `json:"PartnerType"`
	Marketplace string   `json:"Marketplace"`
}

type getItemsResponse struct {
	ItemsResult *struct {
		Items []paapiItem `json:"Items"`
	} `json:"ItemsResult"`
	Errors []struct {
		Code    string `json:"Code"`
		Message string `json:"Message"`
	} `json:"Errors"`
}

type paapiItem struct {
	ASIN          string `json:"ASIN"`
	DetailPageURL string `json:"DetailPageURL"`
	ItemInfo      *struct {
		Title *struct {
			DisplayValue string `json:"DisplayValue"`
		} `json:"Title"`
	} `json:"ItemInfo"`
	Offers *struct {
		Listings []struct {
			Price *struct {
				Amount   float64 `json:"Amount"`
				Currency string `json:"Currency"`
			} `json:"Price"`
			Availability *struct {
				Message string `json:"Message"`
				Type    string `json:"Type"`
			} `json:"Availability"`
			DeliveryInfo *struct {
				IsPrimeEligible bool `json:"IsPrimeEligible"`
			} `json:"DeliveryInfo"`
		} `json:"Listings"`
	} `json:"Offers"`
}

// FetchItems looks up up to MaxItemsPerRequest ASINs in one GetItems call.
func (f *PAAPIFetcher) FetchItems(ctx context.Context, asins []string) (map[string]model.ItemInfo, error) {
	if len(asins) == 0 {
		return map[string]model.ItemInfo{}, nil
	}
	if len(asins) > MaxItemsPerRequest {
		return nil, fmt.Errorf("getitems: %d ASINs exceeds batch limit of %d", len(asins), MaxItemsPerRequest)
	}

	payload, err := json.Marshal(getItemsRequest{
		ItemIds: asins,
		Resources: []string{
			"ItemInfo.Title",
			"Offers.Listings.Price",
			"Offers.Listings.Availability.Message",
			"Offers.Listings.Availability.Type",
			"Offers.Listings.DeliveryInfo.IsPrimeEligible",
			"Offers.Listings.SavingBasis",
		},
		PartnerTag:  f.PartnerTag,
		PartnerType: "Associates",
		Marketplace: f.Marketplace,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal getitems request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+paapiPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	f.signRequest(req, payload, f.now().UTC())

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("getitems: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("getitems read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("getitems: status %d, body: %s", resp.StatusCode, string(body))
	}
	return parseItems(body)
}

// parseItems normalizes a GetItems response body into per-ASIN item info.
func parseItems(body []byte) (map[string]model.ItemInfo, error) {
	var out getItemsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode getitems response: %w", err)
	}
	if out.ItemsResult == nil || len(out.ItemsResult.Items) == 0 {
		if len(out.Errors) > 0 {
			return nil, fmt.Errorf("getitems api error: %s: %s", out.Errors[0].Code, out.Errors[0].Message)
		}
		return nil, fmt.Errorf("getitems: no items returned")
	}

	result := make(map[string]model.ItemInfo, len(out.ItemsResult.Items))
	for _, item := range out.ItemsResult.Items {
		info := model.ItemInfo{
			ASIN:          item.ASIN,
			DetailPageURL: item.DetailPageURL,
		}
		if item.ItemInfo != nil && item.ItemInfo.Title != nil {
			info.Title = item.ItemInfo.Title.DisplayValue
		}
		if item.Offers != nil && len(item.Offers.Listings) > 0 {
			listing := item.Offers.Listings[0]
			if listing.Price != nil {
				price := int(listing.Price.Amount)
				info.Price = &price
			}
			if listing.Availability != nil {
				info.Availability = listing.Availability.Message
			}
			if listing.DeliveryInfo != nil {
				info.IsPrimeEligible = listing.DeliveryInfo.IsPrimeEligible
			}
		}
		result[item.ASIN] = info
	}
	return result, nil
}

// signRequest applies an AWS Signature V4 authorization header. PA-API 5.0
// rejects unsigned requests, so the header set and their order are fixed.
func (f *PAAPIFetcher) signRequest(req *http.Request, payload []byte, t time.Time) {
	amzDate := t.Format("20060102T150405Z")
	dateStamp := t.Format("20060102")

	req.Header.Set("Content-Encoding", "amz-1.0")
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("X-Amz-Date", amzDate)
	req.Header.Set("X-Amz-Target", paapiTarget)

	canonicalHeaders := "content-encoding:amz-1.0\n" +
		"content-type:application/json; charset=utf-8\n" +
		"host:" + f.Host + "\n" +
		"x-amz-date:" + amzDate + "\n" +
		"x-amz-target:" + paapiTarget + "\n"
	signedHeaders := "content-encoding;content-type;host;x-amz-date;x-amz-target"

	canonicalRequest := strings.Join([]string{
		http.MethodPost,
		paapiPath,
		"", // no query string
		canonicalHeaders,
		signedHeaders,
		hashSHA256(payload),
	}, "\n")

	scope := dateStamp + "/" + f.Region + "/" + paapiService + "/aws4_request"
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		scope,
		hashSHA256([]byte(canonicalRequest)),
	}, "\n")

	key := signingKey(f.SecretKey, dateStamp, f.Region, paapiService)
	signature := hex.EncodeToString(hmacSHA256(key, []byte(stringToSign)))

	req.Header.Set("Authorization", fmt.Sprintf(
		"AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		f.AccessKey, scope, signedHeaders, signature))
}

// signingKey derives the per-day request signing key from the secret key.
func signingKey(secret, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secret), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	return hmacSHA256(kService, []byte("aws4_request"))
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func hashSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
