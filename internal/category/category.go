// Package category holds the fixed classification taxonomies and the
// validation that keeps arbitrary model output from leaking into the
// data model. Two taxonomies ship with the application: a general
// personal-mail set and a B2B/e-commerce set. Which one is active is
// a configuration choice; both treat "other" as the catch-all for
// output that matches no known key.
package category

import (
	"sort"
	"strings"

	"github.com/nhle/mail-triage/internal/model"
)

// Reserved keys present in every taxonomy.
const (
	KeyOther         = "other"
	KeyUncategorized = model.CategoryUncategorized
)

// Meta is the display metadata attached to a category key.
type Meta struct {
	Label string
	Icon  string
	Badge string
}

// Set is a closed taxonomy: a named map from category key to display
// metadata. Keys are lowercase.
type Set struct {
	Name string
	meta map[string]Meta
	keys []string
}

var generalSet = newSet("general", map[string]Meta{
	"work":       {Label: "Work", Icon: "💼", Badge: "blue"},
	"personal":   {Label: "Personal", Icon: "🏠", Badge: "green"},
	"finance":    {Label: "Finance", Icon: "💰", Badge: "yellow"},
	"shopping":   {Label: "Shopping", Icon: "🛒", Badge: "purple"},
	"travel":     {Label: "Travel", Icon: "✈️", Badge: "indigo"},
	"health":     {Label: "Health", Icon: "🏥", Badge: "red"},
	"education":  {Label: "Education", Icon: "🎓", Badge: "teal"},
	"social":     {Label: "Social", Icon: "👥", Badge: "pink"},
	"news":       {Label: "News", Icon: "📰", Badge: "slate"},
	"promotions": {Label: "Promotions", Icon: "🎯", Badge: "orange"},
	"spam":       {Label: "Spam", Icon: "🚫", Badge: "red"},
})

var commerceSet = newSet("commerce", map[string]Meta{
	"order":          {Label: "Order", Icon: "📦", Badge: "blue"},
	"return":         {Label: "Return", Icon: "↩️", Badge: "amber"},
	"refund":         {Label: "Refund", Icon: "💸", Badge: "emerald"},
	"fraud":          {Label: "Fraud Alert", Icon: "🚨", Badge: "red"},
	"urgent-support": {Label: "Urgent Support", Icon: "⏱️", Badge: "purple"},
	"shipment":       {Label: "Shipment", Icon: "🚚", Badge: "cyan"},
	"invoice":        {Label: "Invoice", Icon: "🧾", Badge: "indigo"},
	"payment":        {Label: "Payment", Icon: "💳", Badge: "pink"},
	"vendor":         {Label: "Vendor", Icon: "🏭", Badge: "slate"},
	"partnership":    {Label: "Partnership", Icon: "🤝", Badge: "green"},
	"promotion":      {Label: "Promotion", Icon: "🎯", Badge: "yellow"},
	"contract":       {Label: "Contract", Icon: "📑", Badge: "orange"},
	"support":        {Label: "Support", Icon: "🛠️", Badge: "teal"},
})

func newSet(name string, meta map[string]Meta) *Set {
	meta[KeyOther] = Meta{Label: "Other", Icon: "📁", Badge: "gray"}
	meta[KeyUncategorized] = Meta{Label: "Uncategorized", Icon: "❓", Badge: "gray"}

	keys := make([]string, 0, len(meta))
	for k := range meta {
		if k != KeyUncategorized {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return &Set{Name: name, meta: meta, keys: keys}
}

// ForName returns the taxonomy with the given name, falling back to
// the commerce set for unknown names.
func ForName(name string) *Set {
	if strings.EqualFold(name, "general") {
		return generalSet
	}
	return commerceSet
}

// Keys returns the classifiable category keys in stable order. The
/// "uncategorized" sentinel is excluded: it denotes absence, not a
// category the model may pick.
func (s *Set) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Meta returns the display metadata for a key. Unknown keys resolve
// to the "other" metadata.
func (s *Set) Meta(key string) Meta {
	if key == "" {
		return s.meta[KeyUncategorized]
	}
	if m, ok := s.meta[strings.ToLower(key)]; ok {
		return m
	}
	return s.meta[KeyOther]
}

// Normalize lower-cases and trims a raw classification result and
// validates it against the taxonomy. Anything that is not a known key
// maps to "other"; a raw value is never accepted into the data model
// unvalidated.
func (s *Set) Normalize(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := s.meta[key]; ok && key != KeyUncategorized {
		return key
	}
	return KeyOther
}

// DisplayName upper-cases the first letter of a category key for
// presentation ("order" -> "Order").
func DisplayName(key string) string {
	if key == "" {
		return ""
	}
	return strings.ToUpper(key[:1]) + key[1:]
}
