package extract

import "strings"

const (
	// AgencySuffix is the credit the wire appends to photo alt text.
	AgencySuffix = " (Photo: VNA)"
	// HouseSuffix replaces AgencySuffix in published captions.
	HouseSuffix = " VNA/VNS Photo"
)

// CaptionRule rewrites a boilerplate credit in a caption.
type CaptionRule struct {
	From string
	To   string
}

// DefaultCaptionRule maps the agency credit to the house credit.
var DefaultCaptionRule = CaptionRule{From: AgencySuffix, To: HouseSuffix}

// Apply replaces every occurrence of From with To.
func (r CaptionRule) Apply(caption string) string {
	if r.From == "" {
		return caption
	}
	return strings.ReplaceAll(caption, r.From, r.To)
}

// NormalizeCaption applies DefaultCaptionRule.
func NormalizeCaption(caption string) string {
	return DefaultCaptionRule.Apply(caption)
}
