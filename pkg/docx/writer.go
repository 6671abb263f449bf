// Package docx writes minimal WordprocessingML (.docx) packages.
//
// A .docx file is a zip archive holding a content-types manifest, a package
// relationship part, and word/document.xml. Only the constructs the document
// renderer needs are supported: styled paragraphs, bullets, code blocks,
// horizontal dividers, and bordered tables.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

	packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

	documentHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`

	// 0.75in margins in twips
	documentFooter = `<w:sectPr><w:pgMar w:top="1080" w:right="1080" w:bottom="1080" w:left="1080"/></w:sectPr></w:body></w:document>`
)

// Text styles used by the renderer. Sizes are in half-points, colors are
// RRGGBB hex without the leading '#'.
type TextStyle struct {
	Bold  bool
	Size  int
	Color string
	Mono  bool
}

// Builder accumulates document body XML and serializes the package.
type Builder struct {
	body bytes.Buffer
}

// NewBuilder creates an empty document builder
func NewBuilder() *Builder {
	return &Builder{}
}

// AddParagraph appends a plain paragraph
func (b *Builder) AddParagraph(text string) {
	b.AddStyledParagraph(text, TextStyle{Size: 22})
}

// AddStyledParagraph appends a paragraph with a single styled run
func (b *Builder) AddStyledParagraph(text string, style TextStyle) {
	b.body.WriteString("<w:p>")
	b.writeRun(text, style)
	b.body.WriteString("</w:p>")
}

// AddBullet appends an indented bullet item
func (b *Builder) AddBullet(text string) {
	b.body.WriteString(`<w:p><w:pPr><w:ind w:left="360"/></w:pPr>`)
	b.writeRun("• "+text, TextStyle{Size: 20})
	b.body.WriteString("</w:p>")
}

// AddCodeBlock appends a shaded, left-bordered monospace block.
// Line breaks in the code are preserved.
func (b *Builder) AddCodeBlock(code string) {
	b.body.WriteString(`<w:p><w:pPr><w:ind w:left="432"/>` +
		`<w:shd w:val="clear" w:fill="F5F5F5"/>` +
		`<w:pBdr><w:left w:val="single" w:sz="16" w:color="2C5F8D"/></w:pBdr></w:pPr>`)
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		if i > 0 {
			b.body.WriteString("<w:br/>")
		}
		b.writeRunInline(line, TextStyle{Size: 18, Mono: true})
	}
	b.body.WriteString("</w:p>")
}

// AddDivider appends an empty paragraph with a bottom border
func (b *Builder) AddDivider() {
	b.body.WriteString(`<w:p><w:pPr><w:pBdr>` +
		`<w:bottom w:val="single" w:sz="12" w:color="2C5F8D"/>` +
		`</w:pBdr></w:pPr></w:p>`)
}

// AddTable appends a bordered table with a bold header row
func (b *Builder) AddTable(headers []string, rows [][]string) {
	b.body.WriteString(`<w:tbl><w:tblPr><w:tblBorders>` +
		`<w:top w:val="single" w:sz="4" w:color="DEE2E6"/>` +
		`<w:left w:val="single" w:sz="4" w:color="DEE2E6"/>` +
		`<w:bottom w:val="single" w:sz="4" w:color="DEE2E6"/>` +
		`<w:right w:val="single" w:sz="4" w:color="DEE2E6"/>` +
		`<w:insideH w:val="single" w:sz="4" w:color="DEE2E6"/>` +
		`<w:insideV w:val="single" w:sz="4" w:color="DEE2E6"/>` +
		`</w:tblBorders></w:tblPr><w:tblGrid/>`)

	b.writeTableRow(headers, TextStyle{Bold: true, Size: 20})
	for _, row := range rows {
		b.writeTableRow(row, TextStyle{Size: 18})
	}

	b.body.WriteString("</w:tbl>")
}

func (b *Builder) writeTableRow(cells []string, style TextStyle) {
	b.body.WriteString("<w:tr>")
	for _, cell := range cells {
		b.body.WriteString("<w:tc><w:tcPr/><w:p>")
		b.writeRun(cell, style)
		b.body.WriteString("</w:p></w:tc>")
	}
	b.body.WriteString("</w:tr>")
}

func (b *Builder) writeRun(text string, style TextStyle) {
	b.writeRunInline(text, style)
}

func (b *Builder) writeRunInline(text string, style TextStyle) {
	b.body.WriteString("<w:r><w:rPr>")
	if style.Mono {
		b.body.WriteString(`<w:rFonts w:ascii="Consolas" w:hAnsi="Consolas"/>`)
	}
	if style.Bold {
		b.body.WriteString("<w:b/>")
	}
	if style.Size > 0 {
		fmt.Fprintf(&b.body, `<w:sz w:val="%d"/>`, style.Size)
	}
	if style.Color != "" {
		fmt.Fprintf(&b.body, `<w:color w:val="%s"/>`, style.Color)
	}
	b.body.WriteString(`</w:rPr><w:t xml:space="preserve">`)
	b.body.WriteString(escape(text))
	b.body.WriteString("</w:t></w:r>")
}

// WriteTo serializes the .docx package to w
func (b *Builder) WriteTo(w io.Writer) error {
	zw := zip.NewWriter(w)

	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", packageRelsXML},
		{"word/document.xml", documentHeader + b.body.String() + documentFooter},
	}

	for _, part := range parts {
		f, err := zw.Create(part.name)
		if err != nil {
			return fmt.Errorf("failed to create package part %s: %w", part.name, err)
		}
		if _, err := f.Write([]byte(part.content)); err != nil {
			return fmt.Errorf("failed to write package part %s: %w", part.name, err)
		}
	}

	return zw.Close()
}

// BodyXML returns the accumulated body markup. Used by tests to assert on
// document structure without unzipping.
func (b *Builder) BodyXML() string {
	return b.body.String()
}

func escape(s string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}
