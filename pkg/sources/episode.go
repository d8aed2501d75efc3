package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/kerbaras/pocketepub/pkg/data"
	"github.com/kerbaras/pocketepub/pkg/errs"
	"github.com/kerbaras/pocketepub/pkg/utils"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	episodeScriptID  = "episode-json"
	episodeDataAttr  = "data-value"
	resolveOperation = "resolve episode"
)

type episodeJSON struct {
	ReadableProduct struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		PublishedAt string `json:"publishedAt"`
		Series      struct {
			ID           string `json:"id"`
			Title        string `json:"title"`
			ThumbnailURI string `json:"thumbnailUri"`
		} `json:"series"`
		PageStructure struct {
			ReadingDirection string     `json:"readingDirection"`
			ChoJuGiga        string     `json:"choJuGiga"`
			Pages            []pageJSON `json:"pages"`
		} `json:"pageStructure"`
	} `json:"readableProduct"`
}

type pageJSON struct {
	Type         string  `json:"type"`
	LinkPosition string  `json:"linkPosition"`
	Width        *int    `json:"width"`
	Height       *int    `json:"height"`
	ContentStart *string `json:"contentStart"`
	Src          *string `json:"src"`
}

func (p pageJSON) entry() (data.PageEntry, error) {
	switch data.PageKind(p.Type) {
	case data.KindLink:
		return data.LinkPage{LinkPosition: p.LinkPosition}, nil
	case data.KindMain:
		return data.MainPage{
			Width:        p.Width,
			Height:       p.Height,
			ContentStart: deref(p.ContentStart),
			Src:          deref(p.Src),
		}, nil
	case data.KindOther:
		return data.OtherPage{}, nil
	case data.KindBackMatter:
		return data.BackMatterPage{}, nil
	default:
		return nil, fmt.Errorf("unknown page type %q", p.Type)
	}
}

// Episode resolves chapters from episode viewer pages, which embed the chapter
// metadata as JSON in a script element.
type Episode struct {
	api *utils.API
}

func NewEpisode(api *utils.API) *Episode {
	return &Episode{api: api}
}

func (e *Episode) Resolve(ctx context.Context, source string) (*data.ChapterDescriptor, error) {
	body, err := e.api.Get(ctx, source)
	if err != nil {
		return nil, err
	}

	payload, err := ExtractEpisodeJSON(body)
	if err != nil {
		return nil, err
	}

	return ParseEpisode(payload)
}

// ExtractEpisodeJSON returns the metadata payload embedded in an episode page.
func ExtractEpisodeJSON(page []byte) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, errs.Wrap(errs.ErrResolution, "parse html", err)
	}

	script := findScriptByID(doc, episodeScriptID)
	if script == nil {
		return nil, errs.Wrap(errs.ErrResolution, fmt.Sprintf("%s: script#%s not found", resolveOperation, episodeScriptID), nil)
	}

	for _, attr := range script.Attr {
		if attr.Key == episodeDataAttr {
			return []byte(attr.Val), nil
		}
	}
	return nil, errs.Wrap(errs.ErrResolution, fmt.Sprintf("%s: script#%s has no %s", resolveOperation, episodeScriptID, episodeDataAttr), nil)
}

// ParseEpisode decodes the embedded JSON payload into a descriptor.
func ParseEpisode(payload []byte) (*data.ChapterDescriptor, error) {
	var raw episodeJSON
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, errs.Wrap(errs.ErrResolution, "decode episode json", err)
	}

	product := raw.ReadableProduct
	if len(product.PageStructure.Pages) == 0 {
		return nil, errs.Wrap(errs.ErrResolution, "episode json: no pages", nil)
	}

	pages := make([]data.PageEntry, 0, len(product.PageStructure.Pages))
	for i, p := range product.PageStructure.Pages {
		entry, err := p.entry()
		if err != nil {
			return nil, errs.Wrap(errs.ErrResolution, fmt.Sprintf("episode json: page %d", i+1), err)
		}
		pages = append(pages, entry)
	}

	return &data.ChapterDescriptor{
		ID:               product.ID,
		Title:            product.Title,
		SeriesTitle:      product.Series.Title,
		PublishedAt:      product.PublishedAt,
		CoverURL:         product.Series.ThumbnailURI,
		ScrambleFlag:     product.PageStructure.ChoJuGiga,
		ReadingDirection: product.PageStructure.ReadingDirection,
		Pages:            pages,
	}, nil
}

func findScriptByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Script {
		for _, attr := range n.Attr {
			if attr.Key == "id" && attr.Val == id {
				return n
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findScriptByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
