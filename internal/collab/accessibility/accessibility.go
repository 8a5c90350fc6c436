// Package accessibility defines the accessibility-tree collaborator
// (spec §6.3): reading text directly from the focused window without
// OCR, plus the privacy filter spec §4.3 requires for incognito/private
// browser windows. No OS-level implementation ships here (out of scope);
// the platform adapter always reports untrusted off-macOS.
package accessibility

import (
	"context"
	"strings"
)

// Provider reads text from the OS accessibility tree. trusted reports
// whether the OS has granted accessibility permission at all; callers
// must treat a false trusted the same as an error.
type Provider interface {
	ExtractText(ctx context.Context) (text string, trusted bool, err error)
	FocusedWindowTitle(ctx context.Context) (title string, ok bool)
}

// privateWindowMarkers are window-title substrings that flag a private
// or incognito browsing window, matched case-insensitively.
var privateWindowMarkers = []string{
	"incognito",
	"private browsing",
	"inprivate",
}

// PrivacyFilteringProvider wraps a platform Provider and withholds text
// extraction for windows whose title indicates a private/incognito
// session, per spec §4.3.
type PrivacyFilteringProvider struct {
	inner Provider
}

// NewPrivacyFilteringProvider wraps inner. inner may be nil, in which
// case ExtractText always reports untrusted.
func NewPrivacyFilteringProvider(inner Provider) *PrivacyFilteringProvider {
	return &PrivacyFilteringProvider{inner: inner}
}

// ExtractText defers to inner unless the focused window looks private,
// in which case it returns untrusted without ever calling inner's
// extraction method.
func (p *PrivacyFilteringProvider) ExtractText(ctx context.Context) (string, bool, error) {
	if p.inner == nil {
		return "", false, nil
	}
	if title, ok := p.inner.FocusedWindowTitle(ctx); ok && isPrivateWindow(title) {
		return "", false, nil
	}
	return p.inner.ExtractText(ctx)
}

// FocusedWindowTitle defers to inner directly; the window title itself
// isn't sensitive the way its contents are.
func (p *PrivacyFilteringProvider) FocusedWindowTitle(ctx context.Context) (string, bool) {
	if p.inner == nil {
		return "", false
	}
	return p.inner.FocusedWindowTitle(ctx)
}

func isPrivateWindow(title string) bool {
	lower := strings.ToLower(title)
	for _, marker := range privateWindowMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// UnsupportedProvider is the default platform adapter off-macOS: it has
// no accessibility tree access and always reports untrusted.
type UnsupportedProvider struct{}

func (UnsupportedProvider) ExtractText(context.Context) (string, bool, error) {
	return "", false, nil
}

func (UnsupportedProvider) FocusedWindowTitle(context.Context) (string, bool) {
	return "", false
}
