package docx

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_PackageParts(t *testing.T) {
	b := NewBuilder()
	b.AddStyledParagraph("STORED PROCEDURE", TextStyle{Bold: true, Size: 40, Color: "2C5F8D"})
	b.AddParagraph("Technical Documentation")
	b.AddDivider()

	var buf bytes.Buffer
	require.NoError(t, b.WriteTo(&buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	names := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		names[f.Name] = string(data)
	}

	require.Contains(t, names, "[Content_Types].xml")
	require.Contains(t, names, "_rels/.rels")
	require.Contains(t, names, "word/document.xml")

	doc := names["word/document.xml"]
	assert.Contains(t, doc, "STORED PROCEDURE")
	assert.Contains(t, doc, "Technical Documentation")
	assert.Contains(t, doc, "<w:b/>")
	assert.Contains(t, doc, `<w:sz w:val="40"/>`)
	assert.True(t, strings.HasSuffix(doc, "</w:document>"))
}

func TestBuilder_EscapesMarkup(t *testing.T) {
	b := NewBuilder()
	b.AddParagraph(`SELECT * FROM t WHERE a < 1 AND b = "x" & c`)

	body := b.BodyXML()
	assert.Contains(t, body, "&lt;")
	assert.Contains(t, body, "&amp;")
	assert.NotContains(t, body, `a < 1`)
}

func TestBuilder_CodeBlockPreservesLines(t *testing.T) {
	b := NewBuilder()
	b.AddCodeBlock("EXEC dbo.usp_Customer_Update\n    @CustomerID = 12345")

	body := b.BodyXML()
	assert.Contains(t, body, "<w:br/>")
	assert.Contains(t, body, "Consolas")
	assert.Contains(t, body, "@CustomerID = 12345")
}

func TestBuilder_Table(t *testing.T) {
	b := NewBuilder()
	b.AddTable(
		[]string{"Version", "Date", "Changed By", "Changes"},
		[][]string{{"v1.2", "2024-12-03", "A.Kirby", "Added error handling"}},
	)

	body := b.BodyXML()
	assert.Equal(t, 2, strings.Count(body, "<w:tr>"))
	assert.Equal(t, 8, strings.Count(body, "<w:tc>"))
	assert.Contains(t, body, "A.Kirby")
}
