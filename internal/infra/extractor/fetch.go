package extractor

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"feedpipe/internal/infra/fetcher"
	"feedpipe/internal/usecase/fetch"

	"golang.org/x/time/rate"
)

// ArticleUserAgent identifies the content extractor to third-party article
// origins, distinct from the feed fetcher's User-Agent so operators can tell
// the two traffic sources apart in upstream access logs.
const ArticleUserAgent = "feedpipe-extractor/1.0 (+https://github.com/feedpipe)"

const maxArticleBodySize = 10 * 1024 * 1024
const maxArticleRedirects = 5

// articlePaceLimit and articlePaceBurst space repeated requests to one
// article origin: one request per second after an initial burst of two.
// This pacing is deliberately stricter than the feed fetcher's
// concurrency-only gate. A feed origin has opted into periodic polling by
// publishing a feed; an article origin has not, and a single feed update
// can point a whole enrichment batch at one publisher at once.
const articlePaceLimit = rate.Limit(1)
const articlePaceBurst = 2

// articlePacer holds one rate.Limiter per article origin, lazily created on
// first use, shared by all fetches an engine performs.
type articlePacer struct {
	hosts sync.Map // map[string]*rate.Limiter
}

func newArticlePacer() *articlePacer { return &articlePacer{} }

func (p *articlePacer) wait(ctx context.Context, host string) error {
	if existing, ok := p.hosts.Load(host); ok {
		return existing.(*rate.Limiter).Wait(ctx)
	}
	fresh := rate.NewLimiter(articlePaceLimit, articlePaceBurst)
	actual, _ := p.hosts.LoadOrStore(host, fresh)
	return actual.(*rate.Limiter).Wait(ctx)
}

// newArticleClient builds the shared HTTP client both reference engines use
// to fetch the article itself: same TLS floor and size/redirect ceiling as
// the feed fetcher's client, but a separate instance so its connection pool
// and redirect validation are scoped to article origins.
func newArticleClient(denyPrivateIPs bool) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxArticleRedirects {
				return fmt.Errorf("%w: %d redirects", fetch.ErrTooManyRedirects, len(via))
			}
			return fetcher.ValidateURL(req.URL.String(), denyPrivateIPs)
		},
	}
}

// fetchArticle retrieves articleURL's body through client, honoring gate's
// per-host admission control (the article's own origin, never the feed's
// politeness gate) and a hard per-request deadline. It
// returns the body and the final (post-redirect) URL for engines that need
// it for relative-link resolution.
func fetchArticle(ctx context.Context, client *http.Client, gate *fetcher.Gate, pacer *articlePacer, timeout time.Duration, articleURL string, denyPrivateIPs bool) ([]byte, *url.URL, error) {
	if err := fetcher.ValidateURL(articleURL, denyPrivateIPs); err != nil {
		return nil, nil, err
	}

	host, err := hostOf(articleURL)
	if err != nil {
		return nil, nil, err
	}
	release, err := gate.Acquire(ctx, host)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	if err := pacer.wait(ctx, host); err != nil {
		return nil, nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, articleURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", fetch.ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", ArticleUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, nil, fmt.Errorf("%w: %v", fetch.ErrTimeout, err)
		}
		return nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("HTTP %d fetching article", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, maxArticleBodySize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, nil, fmt.Errorf("read article body: %w", err)
	}
	if int64(len(body)) > maxArticleBodySize {
		return nil, nil, fmt.Errorf("%w: %d bytes", fetch.ErrBodyTooLarge, len(body))
	}

	finalURL := resp.Request.URL
	return body, finalURL, nil
}

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", fetch.ErrInvalidURL, err)
	}
	return u.Host, nil
}
