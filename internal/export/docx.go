package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

type blockKind int

const (
	blockTitle blockKind = iota
	blockDate
	blockDivider
	blockHeading
	blockSubtitle
	blockBody
)

type wordBlock struct {
	Kind blockKind
	Text string
}

// wordDocument is the structured form handed to DOCX encoders.
type wordDocument struct {
	Title  string
	Blocks []wordBlock
	Footer string
}

const footerText = "Generated by Jobfolio"

func buildWordDocument(doc Document, now time.Time) wordDocument {
	title := strings.TrimSpace(doc.Title)
	wd := wordDocument{
		Title: title,
		Blocks: []wordBlock{
			{Kind: blockTitle, Text: title},
			{Kind: blockDate, Text: now.Format("2006-01-02")},
			{Kind: blockDivider},
		},
		Footer: footerText,
	}
	for i, q := range answered(doc) {
		wd.Blocks = append(wd.Blocks, wordBlock{Kind: blockHeading, Text: questionLabel(i+1, q.Title)})
		if s := strings.TrimSpace(q.Subtitle); s != "" {
			wd.Blocks = append(wd.Blocks, wordBlock{Kind: blockSubtitle, Text: s})
		}
		wd.Blocks = append(wd.Blocks, wordBlock{Kind: blockBody, Text: strings.TrimSpace(q.Content)})
	}
	return wd
}

// DOCXEncoder serializes a word document into a .docx archive.
type DOCXEncoder interface {
	Encode(ctx context.Context, doc wordDocument) ([]byte, error)
}

// NativeDOCXEncoder writes the OOXML package directly.
type NativeDOCXEncoder struct{}

func (NativeDOCXEncoder) Encode(_ context.Context, doc wordDocument) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", rootRelsXML},
		{"word/_rels/document.xml.rels", documentRelsXML},
		{"word/document.xml", documentXML(doc)},
		{"word/footer1.xml", footerXML(doc.Footer)},
	}
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", part.name, err)
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			return nil, fmt.Errorf("write %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close docx: %w", err)
	}
	return buf.Bytes(), nil
}

func documentXML(doc wordDocument) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><w:body>`)
	for _, block := range doc.Blocks {
		writeBlock(&b, block)
	}
	// A4 with a footer reference
	b.WriteString(`<w:sectPr><w:footerReference w:type="default" r:id="rIdFooter1"/>`)
	b.WriteString(`<w:pgSz w:w="11906" w:h="16838"/>`)
	b.WriteString(`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="720" w:footer="720" w:gutter="0"/>`)
	b.WriteString(`</w:sectPr></w:body></w:document>`)
	return b.String()
}

func writeBlock(b *strings.Builder, block wordBlock) {
	switch block.Kind {
	case blockTitle:
		b.WriteString(`<w:p><w:pPr><w:jc w:val="center"/><w:spacing w:after="120"/></w:pPr>`)
		writeRun(b, block.Text, `<w:b/><w:sz w:val="40"/>`)
		b.WriteString(`</w:p>`)
	case blockDate:
		b.WriteString(`<w:p><w:pPr><w:jc w:val="right"/><w:spacing w:after="240"/></w:pPr>`)
		writeRun(b, block.Text, `<w:color w:val="6B7280"/><w:sz w:val="20"/>`)
		b.WriteString(`</w:p>`)
	case blockDivider:
		b.WriteString(`<w:p><w:pPr><w:pBdr><w:bottom w:val="single" w:sz="6" w:space="1" w:color="D1D5DB"/></w:pBdr><w:spacing w:after="360"/></w:pPr></w:p>`)
	case blockHeading:
		b.WriteString(`<w:p><w:pPr><w:spacing w:before="240" w:after="80"/></w:pPr>`)
		writeRun(b, block.Text, `<w:b/><w:sz w:val="28"/>`)
		b.WriteString(`</w:p>`)
	case blockSubtitle:
		b.WriteString(`<w:p><w:pPr><w:spacing w:after="80"/></w:pPr>`)
		writeRun(b, block.Text, `<w:i/><w:color w:val="4B5563"/><w:sz w:val="22"/>`)
		b.WriteString(`</w:p>`)
	case blockBody:
		b.WriteString(`<w:p><w:pPr><w:spacing w:after="240" w:line="360" w:lineRule="auto"/></w:pPr>`)
		writeRun(b, block.Text, `<w:sz w:val="22"/>`)
		b.WriteString(`</w:p>`)
	}
}

// writeRun emits text as one run, turning newlines into line breaks.
func writeRun(b *strings.Builder, text, props string) {
	b.WriteString(`<w:r><w:rPr>`)
	b.WriteString(props)
	b.WriteString(`</w:rPr>`)
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if i > 0 {
			b.WriteString(`<w:br/>`)
		}
		b.WriteString(`<w:t xml:space="preserve">`)
		_ = xml.EscapeText(b, []byte(line))
		b.WriteString(`</w:t>`)
	}
	b.WriteString(`</w:r>`)
}

func footerXML(text string) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<w:ftr xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:p><w:pPr><w:jc w:val="center"/></w:pPr>`)
	writeRun(&b, text, `<w:color w:val="9CA3AF"/><w:sz w:val="18"/>`)
	b.WriteString(`</w:p></w:ftr>`)
	return b.String()
}

const contentTypesXML = xml.Header + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`<Override PartName="/word/footer1.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"/>` +
	`</Types>`

const rootRelsXML = xml.Header + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

const documentRelsXML = xml.Header + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rIdFooter1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer" Target="footer1.xml"/>` +
	`</Relationships>`
