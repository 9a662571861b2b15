package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRegistrySupported(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	for _, mt := range []string{MIMEPlainText, MIMEMarkdown, MIMEDocx, MIMEPDF} {
		if !r.Supported(mt) {
			t.Errorf("Supported(%q) = false, want true", mt)
		}
	}
	if r.Supported("image/png") {
		t.Error("Supported(image/png) = true, want false")
	}
}

func TestRegistryUnsupportedMIME(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.Extract(context.Background(), []byte("data"), "application/zip")
	if !errors.Is(err, ErrUnsupportedMIME) {
		t.Errorf("got %v, want ErrUnsupportedMIME", err)
	}
}

func TestPlainTextExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    []byte
		want    string
		wantErr bool
	}{
		{
			name: "simple text",
			data: []byte("hello world"),
			want: "hello world",
		},
		{
			name: "crlf normalized",
			data: []byte("line one\r\nline two\rline three"),
			want: "line one\nline two\nline three",
		},
		{
			name:    "invalid utf8",
			data:    []byte{0xff, 0xfe, 0x41},
			wantErr: true,
		},
		{
			name:    "empty",
			data:    []byte(""),
			wantErr: true,
		},
		{
			name:    "whitespace only",
			data:    []byte("   \n\t  "),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := (&PlainText{}).Extract(context.Background(), tt.data)
			if tt.wantErr {
				if !errors.Is(err, ErrExtractionFailed) {
					t.Errorf("got err %v, want ErrExtractionFailed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMarkdownExtract(t *testing.T) {
	t.Parallel()

	md := "# Title\n\nSome **bold** text with a [link](https://example.com) and `code`.\n\n" +
		"```go\nfunc main() {}\n```\n\n- item one\n- item two\n\n> quoted line\n"

	got, err := (&Markdown{}).Extract(context.Background(), []byte(md))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, banned := range []string{"#", "**", "```", "](", "`", "- item", ">"} {
		if strings.Contains(got, banned) {
			t.Errorf("output still contains markdown syntax %q:\n%s", banned, got)
		}
	}
	for _, want := range []string{"Title", "bold", "link", "item one", "quoted line"} {
		if !strings.Contains(got, want) {
			t.Errorf("output lost text %q:\n%s", want, got)
		}
	}
}

// buildDocx assembles a minimal DOCX (zip with word/document.xml) from
// paragraph texts.
func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	var xml strings.Builder
	xml.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		xml.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	xml.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("creating zip entry: %v", err)
	}
	if _, err := f.Write([]byte(xml.String())); err != nil {
		t.Fatalf("writing zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

func TestDocxExtract(t *testing.T) {
	t.Parallel()

	data := buildDocx(t, "First paragraph.", "Second paragraph.")

	got, err := (&Docx{}).Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "First paragraph.\nSecond paragraph."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDocxExtractCorrupt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "not a zip", data: []byte("plain bytes, not a zip archive")},
		{name: "zip without document xml", data: buildZipWithout(t)},
		{name: "empty", data: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := (&Docx{}).Extract(context.Background(), tt.data)
			if !errors.Is(err, ErrExtractionFailed) {
				t.Errorf("got %v, want ErrExtractionFailed", err)
			}
		})
	}
}

func buildZipWithout(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("other.txt")
	if err != nil {
		t.Fatalf("creating zip entry: %v", err)
	}
	if _, err := f.Write([]byte("no document here")); err != nil {
		t.Fatalf("writing zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

func TestPDFExtractCorrupt(t *testing.T) {
	t.Parallel()

	_, err := (&PDF{}).Extract(context.Background(), []byte("%PDF-1.7 truncated garbage"))
	if !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("got %v, want ErrExtractionFailed", err)
	}
}
