package browser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Item is a detached snapshot of one DOM element. Snapshots survive the
// element being recycled by the page's virtualized list.
type Item struct {
	sel *goquery.Selection
}

// ParseItem builds an Item from an element's outer HTML
func ParseItem(outerHTML string) (Item, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(outerHTML))
	if err != nil {
		return Item{}, fmt.Errorf("failed to parse element html: %w", err)
	}

	root := doc.Find("body").Children().First()
	if root.Length() == 0 {
		return Item{}, fmt.Errorf("element html is empty")
	}
	return Item{sel: root}, nil
}

// Attr returns the value of the named attribute on the element
func (i Item) Attr(name string) (string, bool) {
	if i.sel == nil {
		return "", false
	}
	return i.sel.Attr(name)
}

// Find returns the first descendant matching selector
func (i Item) Find(selector string) (Item, bool) {
	if i.sel == nil {
		return Item{}, false
	}
	found := i.sel.Find(selector).First()
	if found.Length() == 0 {
		return Item{}, false
	}
	return Item{sel: found}, true
}

// FindAll returns every descendant matching selector
func (i Item) FindAll(selector string) []Item {
	if i.sel == nil {
		return nil
	}
	var out []Item
	i.sel.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, Item{sel: s})
	})
	return out
}

// Text returns the combined, trimmed text content of the element
func (i Item) Text() string {
	if i.sel == nil {
		return ""
	}
	return strings.TrimSpace(i.sel.Text())
}
