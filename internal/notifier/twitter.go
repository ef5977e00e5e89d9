package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dghubble/oauth1"
)

// Notifier broadcasts a message to an external channel.
type Notifier interface {
	Post(ctx context.Context, text string) error
}

const tweetURL = "https://api.twitter.com/2/tweets"

// TwitterNotifier posts messages via the X API v2 using an OAuth1 user context.
type TwitterNotifier struct {
	client  *http.Client
	postURL string
}

// NewTwitterNotifier creates a notifier with optional proxy support.
func NewTwitterNotifier(consumerKey, consumerSecret, accessToken, accessSecret, proxyURL string) *TwitterNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	base := &http.Client{Transport: transport}
	ctx := context.WithValue(context.Background(), oauth1.HTTPClient, base)

	cfg := oauth1.NewConfig(consumerKey, consumerSecret)
	client := cfg.Client(ctx, oauth1.NewToken(accessToken, accessSecret))
	client.Timeout = 30 * time.Second

	return &TwitterNotifier{client: client, postURL: tweetURL}
}

// Post publishes a tweet with the given text.
func (t *TwitterNotifier) Post(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal tweet payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.postURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("post tweet: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("twitter API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
