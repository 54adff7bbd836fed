package hostpage

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// BrowserOptions tune the headless fetch.
type BrowserOptions struct {
	Timeout time.Duration
	// WaitSelector, when set, must become visible before the page is
	// captured. The host placeholder container is the usual choice.
	WaitSelector string
	// Settle is how long the network must stay idle before capture.
	Settle time.Duration
}

// BrowserFetcher loads pages in headless Chrome so client-rendered markup is
// present in the captured document.
type BrowserFetcher struct {
	allocator context.Context
	cancel    context.CancelFunc
	opts      BrowserOptions
	log       *zap.Logger
}

func NewBrowserFetcher(opts BrowserOptions, log *zap.Logger) *BrowserFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 25 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	flags := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-background-networking", true),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), flags...)
	return &BrowserFetcher{allocator: allocCtx, cancel: cancel, opts: opts, log: log.Named("browser")}
}

func (b *BrowserFetcher) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	return nil
}

func (b *BrowserFetcher) Fetch(ctx context.Context, target string, hdr http.Header) (*Document, error) {
	if strings.TrimSpace(target) == "" {
		return nil, fmt.Errorf("browser fetch: empty target url")
	}
	tabCtx, closeTab := chromedp.NewContext(b.allocator)
	defer closeTab()

	// Tie the tab to the caller as well as to the allocator.
	tabCtx, cancel := context.WithTimeout(tabCtx, b.opts.Timeout)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-tabCtx.Done():
		}
	}()

	var (
		mu       sync.Mutex
		inflight int
		lastSeen = time.Now()
		mainID   network.RequestID
		status   int
		header   = http.Header{}
		cookies  []string
	)
	chromedp.ListenTarget(tabCtx, func(ev any) {
		mu.Lock()
		defer mu.Unlock()
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			inflight++
			lastSeen = time.Now()
			if e.Type == network.ResourceTypeDocument && mainID == "" {
				mainID = e.RequestID
			}
			// Redirect hops reuse the request id; their cookies still count.
			if e.RequestID == mainID && e.RedirectResponse != nil {
				cookies = append(cookies, responseHeader(e.RedirectResponse.Headers).Values("Set-Cookie")...)
			}
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			if inflight > 0 {
				inflight--
			}
			lastSeen = time.Now()
		case *network.EventResponseReceived:
			if e.RequestID != mainID || e.Response == nil {
				return
			}
			status = int(e.Response.Status)
			header = responseHeader(e.Response.Headers)
			cookies = append(cookies, header.Values("Set-Cookie")...)
		}
	})

	hdr = cloneHeader(hdr)
	actions := []chromedp.Action{network.Enable()}
	if ua := hdr.Get("User-Agent"); ua != "" {
		actions = append(actions, emulation.SetUserAgentOverride(ua))
		hdr.Del("User-Agent")
	}
	hdr.Del("Content-Length")
	hdr.Del("Accept-Encoding")
	if len(hdr) > 0 {
		extra := network.Headers{}
		for k, vs := range hdr {
			extra[http.CanonicalHeaderKey(k)] = strings.Join(vs, ", ")
		}
		actions = append(actions, network.SetExtraHTTPHeaders(extra))
	}

	var finalURL, markup string
	actions = append(actions,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if sel := strings.TrimSpace(b.opts.WaitSelector); sel != "" {
		actions = append(actions, chromedp.WaitVisible(sel, chromedp.ByQuery))
	}
	if settle := b.opts.Settle; settle > 0 {
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			tick := time.NewTicker(50 * time.Millisecond)
			defer tick.Stop()
			for {
				mu.Lock()
				idle := inflight == 0 && time.Since(lastSeen) >= settle
				mu.Unlock()
				if idle {
					return nil
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-tick.C:
				}
			}
		}))
	}
	actions = append(actions,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &markup, chromedp.ByQuery),
	)

	start := time.Now()
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return nil, fmt.Errorf("browser fetch %s: %w", target, err)
	}
	if finalURL == "" {
		finalURL = target
	}
	doc, err := Parse(strings.NewReader(markup), finalURL)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	if status != 0 {
		doc.Status = status
	}
	header.Del("Content-Encoding")
	header.Del("Content-Length")
	header.Set("Content-Type", "text/html; charset=utf-8")
	doc.Header = header
	doc.SetCookies = cookies
	b.log.Debug("Page captured",
		zap.String("url", finalURL),
		zap.Int("status", doc.Status),
		zap.Int("bytes", len(markup)),
		zap.Duration("elapsed", time.Since(start)))
	return doc, nil
}

// responseHeader converts CDP response headers. Chrome folds repeated
// headers into one value joined by newlines.
func responseHeader(h network.Headers) http.Header {
	out := http.Header{}
	for k, v := range h {
		switch hv := v.(type) {
		case string:
			for _, item := range strings.Split(hv, "\n") {
				if item = strings.TrimSpace(item); item != "" {
					out.Add(k, item)
				}
			}
		case []interface{}:
			for _, item := range hv {
				out.Add(k, fmt.Sprint(item))
			}
		default:
			out.Add(k, fmt.Sprint(hv))
		}
	}
	return out
}
