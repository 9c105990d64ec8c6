package channel

import (
	"fmt"
	"net/url"
)

// ChannelURL derives the WebSocket URL for a form action. A relative action
// is resolved against page. The result uses wss when either the page or the
// action is served over TLS, ws otherwise; path and query are kept as is.
func ChannelURL(page *url.URL, action string) (*url.URL, error) {
	ref, err := url.Parse(action)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}

	target := ref
	if page != nil {
		target = page.ResolveReference(ref)
	}
	if !target.IsAbs() || target.Host == "" {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidAction, action)
	}

	switch target.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidAction, target.Scheme)
	}

	out := *target
	out.Fragment = ""
	out.RawFragment = ""
	if secureScheme(target.Scheme) || (page != nil && secureScheme(page.Scheme)) {
		out.Scheme = "wss"
	} else {
		out.Scheme = "ws"
	}
	return &out, nil
}

// pageOrigin returns the Origin header value for a page URL.
func pageOrigin(page *url.URL) string {
	if page == nil || page.Host == "" {
		return ""
	}
	return page.Scheme + "://" + page.Host
}

func secureScheme(scheme string) bool {
	return scheme == "https" || scheme == "wss"
}
