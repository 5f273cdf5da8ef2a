// Package opener launches unsubscribe links with the host's default URL
// handler.
package opener

import (
	"strings"

	"github.com/pkg/browser"
	"github.com/pkg/errors"
)

// Browser implements the newsletter core's LinkOpener over the system
// browser.
type Browser struct{}

// Open launches url in the default browser. Only web URLs are accepted;
// candidate admission already guarantees this, but the check keeps the
// opener safe to call with arbitrary input.
func (Browser) Open(url string) error {
	lower := strings.ToLower(url)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return errors.Errorf("refusing to open non-HTTP URL %q", url)
	}
	return browser.OpenURL(url)
}
