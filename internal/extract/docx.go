package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Docx extracts DOCX payloads by reading word/document.xml inside the
// OOXML ZIP container. Paragraphs become newline-separated plain text.
type Docx struct{}

// Extract implements Extractor.
func (*Docx) Extract(_ context.Context, data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: not a valid DOCX archive: %v", ErrExtractionFailed, err)
	}

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("%w: opening document.xml: %v", ErrExtractionFailed, err)
		}
		content, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: reading document.xml: %v", ErrExtractionFailed, err)
		}

		text, err := parseDocumentXML(content)
		if err != nil {
			return "", err
		}
		if text == "" {
			return "", fmt.Errorf("%w: document contains no text", ErrExtractionFailed)
		}
		return text, nil
	}

	return "", fmt.Errorf("%w: archive has no word/document.xml", ErrExtractionFailed)
}

// documentXML mirrors the parts of word/document.xml we read: paragraphs of
// runs of text elements.
type documentXML struct {
	Body struct {
		Paragraphs []struct {
			Runs []struct {
				Text []struct {
					Content string `xml:",chardata"`
				} `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

// parseDocumentXML extracts the text content from the document XML.
func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("%w: parsing document.xml: %v", ErrExtractionFailed, err)
	}

	var b strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			b.WriteString("\n")
		}
		for _, run := range para.Runs {
			for _, text := range run.Text {
				b.WriteString(text.Content)
			}
		}
	}

	return strings.TrimSpace(b.String()), nil
}
