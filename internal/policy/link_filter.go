package policy

import (
	"context"
	"regexp"
	"strings"
)

const linkFilterName = "LinkFilter"

// Scheme URLs, www. hosts, and bare host.tld tokens with an optional path.
var linkRegex = regexp.MustCompile(
	`(?i)https?://\S+|www\.\S+|\b[a-z0-9][a-z0-9-]*(?:\.[a-z0-9-]+)*\.(?:com|net|org|io|gg|tv|co|me|xyz|ly|gl|be|app|dev|info|biz|ru|uk|de)\b\S*`,
)

// ExtractLinks returns the link-like tokens in text.
func ExtractLinks(text string) []string {
	return linkRegex.FindAllString(text, -1)
}

// LinkFilter blocks links when the policy says block-all, unless one of the
// found links names a whitelisted domain.
type LinkFilter struct{}

func NewLinkFilter() *LinkFilter { return &LinkFilter{} }

func (f *LinkFilter) Name() string { return linkFilterName }

func (f *LinkFilter) Match(_ context.Context, in *Input) (FilterResult, error) {
	newResult := NewResultFunc(linkFilterName)
	cfg := in.Settings.LinkPolicy
	if !cfg.Enabled || !cfg.BlockAll {
		return newResult(nil, 0, nil)
	}

	links := ExtractLinks(in.Message.Message)
	if len(links) == 0 {
		return newResult(nil, 0, nil)
	}

	for _, link := range links {
		lower := strings.ToLower(link)
		for _, allowed := range cfg.Whitelist {
			if strings.Contains(lower, strings.ToLower(allowed)) {
				return newResult(nil, 0, nil)
			}
		}
	}
	return newResult([]string{FlagContainsLink}, 0, nil)
}
