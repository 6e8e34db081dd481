package ebook

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type epubContainer struct {
	XMLName   xml.Name `xml:"container"`
	RootFiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type epubPackage struct {
	XMLName  xml.Name `xml:"package"`
	Metadata struct {
		Titles   []string `xml:"title"`
		Creators []string `xml:"creator"`
		Metas    []struct {
			Name    string `xml:"name,attr"`
			Content string `xml:"content,attr"`
		} `xml:"meta"`
	} `xml:"metadata"`
	Manifest struct {
		Items []epubItem `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

type epubItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

func (it epubItem) isImage() bool {
	return strings.HasPrefix(it.MediaType, "image/")
}

func (it epubItem) isDocument() bool {
	return it.MediaType == "application/xhtml+xml" || it.MediaType == "text/html"
}

type epubReader struct {
	files   map[string]*zip.File
	baseDir string
}

func (r *epubReader) read(name string) ([]byte, error) {
	f, ok := r.files[name]
	if !ok {
		return nil, fmt.Errorf("epub: missing %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck
	return io.ReadAll(rc)
}

// resolve turns a manifest href into a zip entry name.
func (r *epubReader) resolve(href string) string {
	if u, err := url.PathUnescape(href); err == nil {
		href = u
	}
	href, _, _ = strings.Cut(href, "#")
	return path.Join(r.baseDir, href)
}

func loadEPUB(filename string) (*Book, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("open epub: %w", err)
	}
	defer zr.Close() //nolint:errcheck

	r := &epubReader{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		r.files[f.Name] = f
	}

	data, err := r.read("META-INF/container.xml")
	if err != nil {
		return nil, err
	}
	var container epubContainer
	if err := xml.Unmarshal(data, &container); err != nil {
		return nil, fmt.Errorf("epub container: %w", err)
	}
	if len(container.RootFiles) == 0 {
		return nil, fmt.Errorf("epub container lists no package")
	}
	opfPath := container.RootFiles[0].FullPath
	r.baseDir = path.Dir(opfPath)

	if data, err = r.read(opfPath); err != nil {
		return nil, err
	}
	var pkg epubPackage
	if err := xml.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("epub package: %w", err)
	}

	book := &Book{}
	if len(pkg.Metadata.Titles) > 0 {
		book.Title = strings.TrimSpace(pkg.Metadata.Titles[0])
	}
	if len(pkg.Metadata.Creators) > 0 {
		book.Author = strings.TrimSpace(pkg.Metadata.Creators[0])
	}

	byID := make(map[string]epubItem, len(pkg.Manifest.Items))
	for _, it := range pkg.Manifest.Items {
		byID[it.ID] = it
	}

	if cover, ok := findCover(pkg, byID); ok {
		if data, err := r.read(r.resolve(cover.Href)); err == nil {
			book.Cover = data
			book.CoverType = cover.MediaType
		}
	}

	var docs []epubItem
	for _, ref := range pkg.Spine.ItemRefs {
		if it, ok := byID[ref.IDRef]; ok && it.isDocument() {
			docs = append(docs, it)
		}
	}
	if len(docs) == 0 {
		for _, it := range pkg.Manifest.Items {
			if it.isDocument() {
				docs = append(docs, it)
			}
		}
	}

	for _, it := range docs {
		data, err := r.read(r.resolve(it.Href))
		if err != nil {
			return nil, err
		}
		text, err := extractXHTML(data)
		if err != nil {
			return nil, fmt.Errorf("epub %s: %w", it.Href, err)
		}
		book.Chapters = append(book.Chapters, Chapter{Name: it.Href, Text: text})
	}
	return book, nil
}

// findCover tries, in order: the cover-image property, the cover meta,
// an item with id "cover", then any image whose name mentions cover.
func findCover(pkg epubPackage, byID map[string]epubItem) (epubItem, bool) {
	for _, it := range pkg.Manifest.Items {
		if it.isImage() && strings.Contains(it.Properties, "cover-image") {
			return it, true
		}
	}
	for _, m := range pkg.Metadata.Metas {
		if m.Name == "cover" {
			if it, ok := byID[m.Content]; ok && it.isImage() {
				return it, true
			}
		}
	}
	if it, ok := byID["cover"]; ok && it.isImage() {
		return it, true
	}
	for _, it := range pkg.Manifest.Items {
		if it.isImage() && strings.Contains(strings.ToLower(it.Href), "cover") {
			return it, true
		}
	}
	return epubItem{}, false
}

var textElements = map[atom.Atom]bool{
	atom.Title: true,
	atom.P:     true,
	atom.H1:    true,
	atom.H2:    true,
	atom.H3:    true,
	atom.H4:    true,
	atom.Li:    true,
}

// extractXHTML returns one line per text element of the body, each
// ending in a period.
func extractXHTML(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	body := findElement(doc, atom.Body)
	if body == nil {
		body = doc
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.DataAtom == atom.Script || n.DataAtom == atom.Style:
				return
			case textElements[n.DataAtom]:
				if line := strings.Join(strings.Fields(nodeText(n)), " "); line != "" {
					b.WriteString(terminate(line))
					b.WriteByte('\n')
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(body)
	return b.String(), nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Script || c.DataAtom == atom.Style) {
			continue
		}
		b.WriteString(nodeText(c))
		// block children such as <br> separate words
		if c.Type == html.ElementNode && c.DataAtom == atom.Br {
			b.WriteByte(' ')
		}
	}
	return b.String()
}
