package integrations

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-shiori/go-epub"
	"github.com/google/uuid"
	"github.com/kerbaras/pocketepub/pkg/data"
	"github.com/kerbaras/pocketepub/pkg/errs"
)

const pageStylesheet = `@charset "UTF-8";

html,
body {
    margin:    0;
    padding:   0;
    font-size: 0;
}
svg, img {
    margin:    0;
    padding:   0;
    width:     100%;
    height:    100%;
    object-fit: contain;
}
`

// coverDocument is the page go-epub generates for the cover image. Readers
// find the cover through the manifest's cover-image item instead, so the
// document is dropped from the finished archive.
const coverDocument = "cover.xhtml"

var (
	coverItemref  = regexp.MustCompile(`\s*<itemref idref="` + regexp.QuoteMeta(coverDocument) + `"\s*(?:/>|></itemref>)`)
	coverManifest = regexp.MustCompile(`\s*<item id="` + regexp.QuoteMeta(coverDocument) + `"[^>]*(?:/>|></item>)`)
)

// Metadata describes the archive being built.
type Metadata struct {
	Title       string
	PublishedAt string
	Author      string
	Language    string
	Source      string // used to derive a stable identifier
	RightToLeft bool
	CoverPath   string
}

// EPubBuilder packages ordered page images into a single EPUB file.
type EPubBuilder struct{}

func NewEPubBuilder() *EPubBuilder {
	return &EPubBuilder{}
}

// Package writes an EPUB to outputPath holding the cover and one page
// document per entry of pages, in exactly the given order. The archive is
// assembled next to outputPath and renamed over it only on success.
func (p *EPubBuilder) Package(pages []data.PageFile, meta Metadata, outputPath string) error {
	if len(pages) == 0 {
		return errs.Wrap(errs.ErrPackage, "no pages to package", nil)
	}

	e, err := epub.NewEpub(meta.Title)
	if err != nil {
		return errs.Wrap(errs.ErrPackage, "create epub", err)
	}

	if meta.Author != "" {
		e.SetAuthor(meta.Author)
	}
	if meta.Language != "" {
		e.SetLang(meta.Language)
	}
	if meta.PublishedAt != "" {
		e.SetDescription("Published " + meta.PublishedAt)
	}
	if meta.Source != "" {
		e.SetIdentifier("urn:uuid:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(meta.Source)).String())
	}
	if meta.RightToLeft {
		e.SetPpd("rtl")
	}

	cssPath, err := e.AddCSS(dataURI("text/css", []byte(pageStylesheet)), "page.css")
	if err != nil {
		return errs.Wrap(errs.ErrPackage, "add stylesheet", err)
	}

	if meta.CoverPath != "" {
		ext, err := sniffImage(meta.CoverPath)
		if err != nil {
			return err
		}
		coverPath, err := e.AddImage(meta.CoverPath, "cover"+ext)
		if err != nil {
			return errs.Wrap(errs.ErrPackage, "add cover", err)
		}
		if err := e.SetCover(coverPath, cssPath); err != nil {
			return errs.Wrap(errs.ErrPackage, "set cover", err)
		}
	}

	for i, page := range pages {
		if err := addPage(e, i+1, page, cssPath); err != nil {
			return err
		}
	}

	return writeEPub(e, meta, outputPath)
}

func addPage(e *epub.Epub, n int, page data.PageFile, cssPath string) error {
	ext, err := sniffImage(page.Path)
	if err != nil {
		return err
	}

	imagePath, err := e.AddImage(page.Path, fmt.Sprintf("image_%d%s", n, ext))
	if err != nil {
		return errs.Wrap(errs.ErrPackage, "add image "+filepath.Base(page.Path), err)
	}

	body := fmt.Sprintf(`<img src="%s" alt="page-%d"/>`, imagePath, n)
	title := fmt.Sprintf("Page %d", n)
	if _, err := e.AddSection(body, title, fmt.Sprintf("page-%04d.xhtml", n), cssPath); err != nil {
		return errs.Wrap(errs.ErrPackage, "add page "+title, err)
	}
	return nil
}

// sniffImage detects the image type from content and returns the canonical
// extension. Only JPEG and PNG are accepted.
func sniffImage(path string) (string, error) {
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return "", errs.Wrap(errs.ErrPackage, "read "+filepath.Base(path), err)
	}
	switch {
	case mime.Is("image/jpeg"), mime.Is("image/png"):
		return mime.Extension(), nil
	default:
		return "", errs.Wrap(errs.ErrPackage, fmt.Sprintf("%s: unsupported content type %s", filepath.Base(path), mime.String()), nil)
	}
}

func writeEPub(e *epub.Epub, meta Metadata, outputPath string) error {
	var built bytes.Buffer
	if _, err := e.WriteTo(&built); err != nil {
		return errs.Wrap(errs.ErrPackage, "write archive", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(outputPath), "."+filepath.Base(outputPath)+".*.tmp")
	if err != nil {
		return errs.Wrap(errs.ErrPackage, "create temp archive", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := finishArchive(built.Bytes(), meta, tmp); err != nil {
		tmp.Close()
		return errs.Wrap(errs.ErrPackage, "write archive", err)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.ErrPackage, "write archive", err)
	}
	if err := os.Rename(tmpName, outputPath); err != nil {
		return errs.Wrap(errs.ErrPackage, "replace "+outputPath, err)
	}
	return nil
}

// finishArchive copies the archive built by go-epub to w, leaving out the
// generated cover document and completing the package document. Entries keep
// their order and compression, so the mimetype entry stays first and stored.
func finishArchive(built []byte, meta Metadata, w io.Writer) error {
	zr, err := zip.NewReader(bytes.NewReader(built), int64(len(built)))
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	for _, f := range zr.File {
		switch {
		case path.Base(f.Name) == coverDocument && meta.CoverPath != "":
			continue
		case path.Ext(f.Name) == ".opf":
			if err := rewritePackageDocument(zw, f, meta); err != nil {
				return err
			}
		default:
			if err := zw.Copy(f); err != nil {
				return err
			}
		}
	}
	return zw.Close()
}

func rewritePackageDocument(zw *zip.Writer, f *zip.File, meta Metadata) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	opf, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return err
	}

	doc := string(opf)
	if meta.CoverPath != "" {
		doc = coverItemref.ReplaceAllString(doc, "")
		doc = coverManifest.ReplaceAllString(doc, "")
	}
	if meta.RightToLeft {
		doc = strings.Replace(doc, "</metadata>",
			`  <meta name="primary-writing-mode" content="vertical-rl"></meta>`+"\n  </metadata>", 1)
	}

	out, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Deflate, Modified: f.Modified})
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, doc)
	return err
}

func dataURI(mediaType string, content []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(content)
}
