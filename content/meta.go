package content

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fieldlead/renderbatch/models"
)

// ExtractMetadata parses page metadata from the rendered HTML: the document
// title, standard meta tags and the Open Graph subset the response exposes.
// Parse failures yield an empty struct; metadata is best-effort.
func ExtractMetadata(rawHTML, sourceURL string) *models.PageMetadata {
	meta := &models.PageMetadata{SourceURL: sourceURL}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return meta
	}

	meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		meta.Language = strings.TrimSpace(lang)
	}

	doc.Find("meta[name]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		value, _ := s.Attr("content")
		if value == "" {
			return
		}
		if strings.EqualFold(name, "description") && meta.Description == "" {
			meta.Description = value
		}
	})

	doc.Find("meta[property]").Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		value, _ := s.Attr("content")
		if value == "" {
			return
		}
		switch prop {
		case "og:title":
			meta.OGTitle = value
		case "og:image":
			meta.OGImage = value
		case "og:site_name":
			meta.SiteName = value
		case "og:description":
			if meta.Description == "" {
				meta.Description = value
			}
		}
	})

	return meta
}
