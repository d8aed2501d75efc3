package integrations

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kerbaras/pocketepub/pkg/data"
	"github.com/kerbaras/pocketepub/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type testPackage struct {
	Meta []struct {
		Name    string `xml:"name,attr"`
		Content string `xml:"content,attr"`
	} `xml:"metadata>meta"`
	Manifest []struct {
		ID         string `xml:"id,attr"`
		Href       string `xml:"href,attr"`
		MediaType  string `xml:"media-type,attr"`
		Properties string `xml:"properties,attr"`
	} `xml:"manifest>item"`
	Spine struct {
		Direction string `xml:"page-progression-direction,attr"`
		Itemrefs  []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

type openedEPub struct {
	files map[string]string
	opf   string
	pkg   testPackage
}

func openEPub(t *testing.T, p string) openedEPub {
	t.Helper()

	zr, err := zip.OpenReader(p)
	require.NoError(t, err)
	defer zr.Close()

	out := openedEPub{files: map[string]string{}}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		out.files[f.Name] = string(content)
	}

	var container testContainer
	require.NoError(t, xml.Unmarshal([]byte(out.files["META-INF/container.xml"]), &container))
	require.NotEmpty(t, container.Rootfiles)

	out.opf = container.Rootfiles[0].FullPath
	require.NoError(t, xml.Unmarshal([]byte(out.files[out.opf]), &out.pkg))
	return out
}

// spineHrefs returns the base names of every spine entry, in spine order.
func (o openedEPub) spineHrefs() []string {
	hrefs := map[string]string{}
	for _, item := range o.pkg.Manifest {
		hrefs[item.ID] = item.Href
	}
	var spine []string
	for _, ref := range o.pkg.Spine.Itemrefs {
		spine = append(spine, path.Base(hrefs[ref.IDRef]))
	}
	return spine
}

func (o openedEPub) meta(name string) string {
	for _, m := range o.pkg.Meta {
		if m.Name == name {
			return m.Content
		}
	}
	return ""
}

func (o openedEPub) document(name string) string {
	for file, content := range o.files {
		if path.Base(file) == name {
			return content
		}
	}
	return ""
}

func writePages(t *testing.T, dir string, names ...string) []data.PageFile {
	t.Helper()
	pages := make([]data.PageFile, 0, len(names))
	for i, name := range names {
		p := filepath.Join(dir, name)
		var content []byte
		if strings.HasSuffix(name, ".png") {
			content = encodePNG(t, gradientImage(32+i, 48))
		} else {
			content = encodeJPEG(t, gradientImage(32+i, 48))
		}
		require.NoError(t, os.WriteFile(p, content, 0o644))
		pages = append(pages, data.PageFile{Index: i + 1, Path: p})
	}
	return pages
}

func TestEPubBuilder_PackageOrderAndDirection(t *testing.T) {
	dir := t.TempDir()
	// Deliberately out of name order: the packager must not re-sort.
	pages := writePages(t, dir, "0003.jpg", "0001.jpg", "0002.png")
	cover := writePages(t, dir, "cover.jpg")[0].Path
	output := filepath.Join(dir, "output.epub")

	err := NewEPubBuilder().Package(pages, Metadata{
		Title:       "T",
		Author:      "Shonenmagazine",
		Language:    "ja",
		Source:      "https://pocket.shonenmagazine.com/episode/1",
		RightToLeft: true,
		CoverPath:   cover,
	}, output)
	require.NoError(t, err)

	book := openEPub(t, output)

	assert.Equal(t, []string{"page-0001.xhtml", "page-0002.xhtml", "page-0003.xhtml"}, book.spineHrefs())
	assert.Equal(t, "rtl", book.pkg.Spine.Direction)
	assert.Contains(t, book.files[book.opf], ">T<")
	assert.Contains(t, book.files[book.opf], ">ja<")
	assert.Contains(t, book.files[book.opf], "Shonenmagazine")

	// Each page document embeds exactly one image, in input order.
	for i, want := range []string{"image_1.jpg", "image_2.jpg", "image_3.png"} {
		doc := book.document(book.spineHrefs()[i])
		assert.Equal(t, 1, strings.Count(doc, "<img"), "page %d", i+1)
		assert.Contains(t, doc, want, "page %d", i+1)
	}

	var mediaTypes []string
	for _, item := range book.pkg.Manifest {
		mediaTypes = append(mediaTypes, item.MediaType)
	}
	assert.Contains(t, mediaTypes, "text/css")
	assert.Contains(t, mediaTypes, "image/png")

	assert.NotEmpty(t, book.document("cover.jpg"), "cover image stored in archive")
}

func TestEPubBuilder_CoverIsNotASpinePage(t *testing.T) {
	dir := t.TempDir()
	pages := writePages(t, dir, "0001.jpg", "0002.jpg", "0003.jpg")
	cover := writePages(t, dir, "cover.png")[0].Path
	output := filepath.Join(dir, "output.epub")

	require.NoError(t, NewEPubBuilder().Package(pages, Metadata{Title: "T", RightToLeft: true, CoverPath: cover}, output))

	book := openEPub(t, output)

	// The spine holds the pages and nothing else.
	assert.Equal(t, []string{"page-0001.xhtml", "page-0002.xhtml", "page-0003.xhtml"}, book.spineHrefs())
	assert.Empty(t, book.document(coverDocument))

	var coverID string
	for _, item := range book.pkg.Manifest {
		assert.NotEqual(t, coverDocument, path.Base(item.Href))
		if item.Properties == "cover-image" {
			coverID = item.ID
			assert.Equal(t, "cover.png", path.Base(item.Href))
			assert.Equal(t, "image/png", item.MediaType)
		}
	}
	require.NotEmpty(t, coverID, "cover image item")
	assert.Equal(t, coverID, book.meta("cover"))
	assert.Equal(t, "vertical-rl", book.meta("primary-writing-mode"))
}

func TestEPubBuilder_MimetypeEntryFirstAndStored(t *testing.T) {
	dir := t.TempDir()
	pages := writePages(t, dir, "0001.jpg")
	cover := writePages(t, dir, "cover.jpg")[0].Path
	output := filepath.Join(dir, "output.epub")

	require.NoError(t, NewEPubBuilder().Package(pages, Metadata{Title: "T", CoverPath: cover}, output))

	zr, err := zip.OpenReader(output)
	require.NoError(t, err)
	defer zr.Close()

	require.NotEmpty(t, zr.File)
	assert.Equal(t, "mimetype", zr.File[0].Name)
	assert.Equal(t, zip.Store, zr.File[0].Method)
}

func TestEPubBuilder_PackageLeftToRight(t *testing.T) {
	dir := t.TempDir()
	pages := writePages(t, dir, "0001.jpg")
	output := filepath.Join(dir, "output.epub")

	require.NoError(t, NewEPubBuilder().Package(pages, Metadata{Title: "LTR"}, output))

	book := openEPub(t, output)
	assert.NotEqual(t, "rtl", book.pkg.Spine.Direction)
	assert.Empty(t, book.meta("primary-writing-mode"))
}

func TestEPubBuilder_PackageOverwrites(t *testing.T) {
	dir := t.TempDir()
	pages := writePages(t, dir, "0001.jpg")
	output := filepath.Join(dir, "output.epub")
	require.NoError(t, os.WriteFile(output, []byte("stale"), 0o644))

	require.NoError(t, NewEPubBuilder().Package(pages, Metadata{Title: "New"}, output))

	book := openEPub(t, output)
	assert.Equal(t, []string{"page-0001.xhtml"}, book.spineHrefs())
}

func TestEPubBuilder_PackageRejectsUnknownContent(t *testing.T) {
	dir := t.TempDir()
	pages := writePages(t, dir, "0001.jpg")
	bogus := filepath.Join(dir, "0002.jpg")
	require.NoError(t, os.WriteFile(bogus, []byte("GIF89a not really"), 0o644))
	pages = append(pages, data.PageFile{Index: 2, Path: bogus})
	output := filepath.Join(dir, "output.epub")

	err := NewEPubBuilder().Package(pages, Metadata{Title: "Broken"}, output)

	assert.ErrorIs(t, err, errs.ErrPackage)
	assert.NoFileExists(t, output)

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp archive %s left behind", e.Name())
	}
}

func TestEPubBuilder_PackageKeepsExistingOnFailure(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "output.epub")
	require.NoError(t, os.WriteFile(output, []byte("previous archive"), 0o644))

	err := NewEPubBuilder().Package([]data.PageFile{{Index: 1, Path: filepath.Join(dir, "missing.jpg")}}, Metadata{Title: "x"}, output)

	assert.ErrorIs(t, err, errs.ErrPackage)
	content, _ := os.ReadFile(output)
	assert.Equal(t, "previous archive", string(content))
}

func TestEPubBuilder_PackageNoPages(t *testing.T) {
	err := NewEPubBuilder().Package(nil, Metadata{Title: "Empty"}, filepath.Join(t.TempDir(), "out.epub"))
	assert.ErrorIs(t, err, errs.ErrPackage)
}

func TestSniffImage(t *testing.T) {
	dir := t.TempDir()
	pages := writePages(t, dir, "a.png", "b.jpg")

	ext, err := sniffImage(pages[0].Path)
	require.NoError(t, err)
	assert.Equal(t, ".png", ext)

	// Extension lies; content decides.
	misnamed := filepath.Join(dir, "c.jpg")
	require.NoError(t, os.Rename(pages[0].Path, misnamed))
	ext, err = sniffImage(misnamed)
	require.NoError(t, err)
	assert.Equal(t, ".png", ext)

	ext, err = sniffImage(pages[1].Path)
	require.NoError(t, err)
	assert.Equal(t, ".jpg", ext)
}
