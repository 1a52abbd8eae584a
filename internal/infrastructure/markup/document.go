package markup

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/net/html"
)

// Page is one physical page of labels. Body is a container holding the
// absolutely positioned labels; coordinates inside it are millimeters from the
// page origin. Serializers borrow Body and give it back, so a page can be
// rendered any number of times.
type Page struct {
	Index int
	Body  *html.Node
}

// Document is an assembled label job ready to be serialized
type Document struct {
	Title        string
	PageWidthMM  float64
	PageHeightMM float64
	Landscape    bool
	Pages        []Page
}

// labelCSS is shared by the print and capture serializers
const labelCSS = `*{box-sizing:border-box;margin:0;padding:0}
body{background:#fff;color:#000;font-family:Arial,Helvetica,sans-serif}
.page{position:relative;overflow:hidden;background:#fff}
.label{position:absolute;overflow:hidden;display:flex;flex-direction:column;align-items:center;justify-content:center;text-align:center}
.label .name{font-weight:bold;line-height:1.1;max-width:100%;overflow:hidden}
.label .price{font-weight:bold;line-height:1.1}
.label .code{font-family:monospace;line-height:1.1}
.label .barcode{width:100%;display:flex;justify-content:center}
.label .barcode svg{display:block;width:100%;height:100%}
.label .barcode-error{color:#b00;font-size:2mm;border:0.2mm dashed #b00;padding:0.5mm}`

// printScript opens the dialog once the document is loaded and closes the
// window when the dialog is dismissed
const printScript = `window.addEventListener('load',function(){setTimeout(function(){window.print();},250);});
window.addEventListener('afterprint',function(){window.close();});`

// RenderPrint serializes the whole job for the print window: one @page box per
// page and an inline script driving the print dialog
func RenderPrint(w io.Writer, doc Document) error {
	root := skeleton(doc.Title, pageCSS(doc.PageWidthMM, doc.PageHeightMM)+labelCSS+
		"\n.page{page-break-after:always;break-after:page}\n.page:last-child{page-break-after:auto;break-after:auto}")
	body := findTag(root, "body")
	for _, p := range doc.Pages {
		Append(body, pageNode(p, doc.PageWidthMM, doc.PageHeightMM))
	}
	defer releasePages(doc.Pages...)
	Append(body, Append(Element("script"), Text(printScript)))
	return render(w, root)
}

// RenderCapture serializes a single page for rasterization: no script, no page
// breaks, the page pinned to the top left corner of the viewport
func RenderCapture(w io.Writer, doc Document, p Page) error {
	css := labelCSS + fmt.Sprintf("\nhtml,body{width:%s;height:%s;overflow:hidden}", MM(doc.PageWidthMM), MM(doc.PageHeightMM))
	root := skeleton(doc.Title, css)
	Append(findTag(root, "body"), pageNode(p, doc.PageWidthMM, doc.PageHeightMM))
	defer releasePages(p)
	return render(w, root)
}

// CaptureString is RenderCapture into a string
func CaptureString(doc Document, p Page) (string, error) {
	var buf bytes.Buffer
	if err := RenderCapture(&buf, doc, p); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func pageCSS(w, h float64) string {
	return fmt.Sprintf("@page{size:%s %s;margin:0}\n", MM(w), MM(h))
}

func pageNode(p Page, w, h float64) *html.Node {
	n := Element("div",
		"class", "page",
		"data-page", fmt.Sprint(p.Index),
		"style", Style("width", MM(w), "height", MM(h)),
	)
	return Append(n, p.Body)
}

func releasePages(pages ...Page) {
	for _, p := range pages {
		if p.Body != nil && p.Body.Parent != nil {
			p.Body.Parent.RemoveChild(p.Body)
		}
	}
}

func skeleton(title, css string) *html.Node {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	head := Append(Element("head"),
		Element("meta", "charset", "utf-8"),
		Append(Element("title"), Text(title)),
		Append(Element("style"), Text(css)),
	)
	Append(doc, Append(Element("html", "lang", "es"), head, Element("body")))
	return doc
}

func findTag(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findTag(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func render(w io.Writer, root *html.Node) error {
	if err := html.Render(w, root); err != nil {
		return fmt.Errorf("render document: %w", err)
	}
	return nil
}
