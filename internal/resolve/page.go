package resolve

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Share page markers. All knowledge of the provider's markup lives in this
// file.
const (
	playerSelector      = "div.item-mediaplayer"
	contentNameSelector = "#filemanager_maincontent_name"
)

// findMediaSource returns the media URL of the share page's player, as
// written in the markup (possibly relative).
func findMediaSource(doc *goquery.Document) (string, bool) {
	player := doc.Find(playerSelector)
	if player.Length() == 0 {
		return "", false
	}

	for _, sel := range []string{"video source[src]", "video[src]"} {
		if src := strings.TrimSpace(player.Find(sel).First().AttrOr("src", "")); src != "" {
			return src, true
		}
	}
	return "", false
}

// contentName reports whether the file manager's content name element is
// present, and its text. Presence means the page rendered an existing item
// even if no player was found; the text may be blank.
func contentName(doc *goquery.Document) (string, bool) {
	sel := doc.Find(contentNameSelector)
	if sel.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(sel.First().Text()), true
}
