package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

// Tab wraps one Rod page: the browsing surface a single engine instance
// operates on. All document access goes through Eval.
type Tab struct {
	page *rod.Page

	mu  sync.RWMutex
	url string
}

// navTimeout bounds initial navigation and reloads.
const navTimeout = 30 * time.Second

// OpenTab creates a tab and navigates it to pageURL.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("bridge: no active browser")
	}

	var page *rod.Page
	var err error
	if mgr.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("bridge: create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, navTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("bridge: navigate %s: %w", pageURL, classify(err))
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("bridge: wait load timeout", "url", pageURL, "error", err)
	}

	return &Tab{page: page, url: pageURL}, nil
}

// Eval evaluates a JS function expression in the page and returns the
// JSON-serialised result. Context loss is reported as ErrDocumentGone.
func (t *Tab) Eval(ctx context.Context, script string) (json.RawMessage, error) {
	res, err := t.page.Context(ctx).Eval(script)
	if err != nil {
		return nil, classify(err)
	}
	data, err := json.Marshal(res.Value.Val())
	if err != nil {
		return nil, fmt.Errorf("bridge: marshal result: %w", err)
	}
	return data, nil
}

// HTML serialises the complete document as outer HTML.
func (t *Tab) HTML(ctx context.Context) (string, error) {
	res, err := t.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", classify(err)
	}
	return res.Value.Str(), nil
}

// Title returns the current document title.
func (t *Tab) Title(ctx context.Context) (string, error) {
	res, err := t.page.Context(ctx).Eval(`() => document.title`)
	if err != nil {
		return "", classify(err)
	}
	return res.Value.Str(), nil
}

// URL returns the last known page address. Updated by the navigation
// watcher, so it tracks in-page navigations too.
func (t *Tab) URL() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.url
}

// Reload reloads the document. This is the only revert path for applied
// transformations.
func (t *Tab) Reload(ctx context.Context) error {
	navCtx, cancel := context.WithTimeout(ctx, navTimeout)
	defer cancel()

	if err := t.page.Context(navCtx).Reload(); err != nil {
		return classify(err)
	}
	if err := t.page.Context(navCtx).WaitLoad(); err != nil {
		return classify(err)
	}
	return nil
}

// OnNavigate invokes fn with the new address every time the main frame
// navigates. Runs until ctx is cancelled.
func (t *Tab) OnNavigate(ctx context.Context, fn func(newURL string)) {
	go t.page.Context(ctx).EachEvent(func(e *proto.PageFrameNavigated) {
		if e.Frame == nil || e.Frame.ParentID != "" {
			return
		}
		t.mu.Lock()
		t.url = e.Frame.URL
		t.mu.Unlock()
		fn(e.Frame.URL)
	})()
}

// Expose registers a JS-callable binding named name. The page calls
// window[name](payload) with a JSON string; fn receives the raw bytes.
func (t *Tab) Expose(name string, fn func(payload json.RawMessage)) (stop func() error, err error) {
	stop, err = t.page.Expose(name, func(g gson.JSON) (any, error) {
		data, mErr := json.Marshal(g.Val())
		if mErr != nil {
			return nil, mErr
		}
		fn(data)
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("bridge: expose %s: %w", name, err)
	}
	return stop, nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.page != nil {
		return t.page.Close()
	}
	return nil
}
