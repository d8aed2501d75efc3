package data

import "time"

// ChapterDescriptor is everything the pipeline needs to know about a chapter
// before any image is fetched.
type ChapterDescriptor struct {
	ID               string
	Title            string
	SeriesTitle      string
	PublishedAt      string // opaque, never parsed
	CoverURL         string
	ScrambleFlag     string
	ReadingDirection string
	Pages            []PageEntry
}

// Scrambled reports whether the chapter's pages need descrambling. Pages are
// protected unless the flag equals the unscrambled sentinel.
func (c *ChapterDescriptor) Scrambled(sentinel string) bool {
	return c.ScrambleFlag != sentinel
}

// PageRef is an actionable page: a main page with an image source.
type PageRef struct {
	Index int // 1-based position within ChapterDescriptor.Pages
	URL   string
}

// MainPages returns the actionable pages in reading order. Indexes keep the
// entry's position in Pages, so non-main entries leave gaps.
func (c *ChapterDescriptor) MainPages() []PageRef {
	var refs []PageRef
	for i, entry := range c.Pages {
		main, ok := entry.(MainPage)
		if !ok || main.Src == "" {
			continue
		}
		refs = append(refs, PageRef{Index: i + 1, URL: main.Src})
	}
	return refs
}

// PageKind names a page variant.
type PageKind string

const (
	KindLink       PageKind = "link"
	KindMain       PageKind = "main"
	KindOther      PageKind = "other"
	KindBackMatter PageKind = "backMatter"
)

// PageEntry is one entry of a chapter's page structure. The set of
// implementations is closed: LinkPage, MainPage, OtherPage, BackMatterPage.
type PageEntry interface {
	Kind() PageKind
	page()
}

type LinkPage struct {
	LinkPosition string
}

type MainPage struct {
	Width        *int
	Height       *int
	ContentStart string
	Src          string
}

type OtherPage struct{}

type BackMatterPage struct{}

func (LinkPage) Kind() PageKind       { return KindLink }
func (MainPage) Kind() PageKind       { return KindMain }
func (OtherPage) Kind() PageKind      { return KindOther }
func (BackMatterPage) Kind() PageKind { return KindBackMatter }

func (LinkPage) page()       {}
func (MainPage) page()       {}
func (OtherPage) page()      {}
func (BackMatterPage) page() {}

// PageFile is a page image materialized on disk.
type PageFile struct {
	Index int
	Path  string
}

// Chapter is the history record of a processed chapter.
type Chapter struct {
	ID          string
	Source      string
	Title       string
	PublishedAt string
	Directory   string
	ArchivePath string
	Pages       int
	Status      string // "downloading", "completed", "error"
	UpdatedAt   time.Time
}
