// Package extract turns source documents into plain text plus a page count.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/phuslu/log"
)

// PDFExtractor extracts text from PDF files using pdfcpu. It implements
// domain.Extractor.
type PDFExtractor struct {
	tempDir string
}

func NewPDFExtractor() *PDFExtractor {
	tempDir := filepath.Join(os.TempDir(), "tutorrag-pdf")
	_ = os.MkdirAll(tempDir, 0o755)
	return &PDFExtractor{tempDir: tempDir}
}

// Extract returns the document text and its page count. Page text is joined
// in page order with blank lines between pages.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (string, int, error) {
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	pageCount := pdfCtx.PageCount

	outDir, err := os.MkdirTemp(e.tempDir, "pages_")
	if err != nil {
		return "", 0, err
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(path, outDir, nil, conf); err != nil {
		return "", 0, fmt.Errorf("extracting content from %s: %w", filepath.Base(path), err)
	}

	files, err := os.ReadDir(outDir)
	if err != nil {
		return "", 0, err
	}
	pageTexts := make(map[int]string)
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		pageNum, ok := pageNumber(f.Name())
		if !ok {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, f.Name()))
		if err != nil {
			log.Warn().Err(err).Str("page_file", f.Name()).Msg("skipping unreadable page content")
			continue
		}
		pageTexts[pageNum] = string(content)
	}

	pages := make([]int, 0, len(pageTexts))
	for p := range pageTexts {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	var b strings.Builder
	for i, p := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.TrimSpace(pageTexts[p]))
	}
	text := b.String()
	if strings.TrimSpace(text) == "" {
		return "", 0, fmt.Errorf("no text extracted from %s", filepath.Base(path))
	}
	return text, pageCount, nil
}

// pageNumber parses the page index out of an extracted content file name.
// pdfcpu writes names like "<doc>_Content_page_3.txt"; older versions used
// "page_3.txt".
func pageNumber(name string) (int, bool) {
	idx := strings.LastIndex(name, "page_")
	if idx < 0 {
		return 0, false
	}
	var n int
	if _, err := fmt.Sscanf(name[idx:], "page_%d", &n); err != nil {
		return 0, false
	}
	return n, true
}
