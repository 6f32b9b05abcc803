package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"carbonlens/internal/logger"

	"github.com/ledongthuc/pdf"
)

// PageReader returns the plain text of each page of a document, in order.
// Pages without text are returned as empty strings so that the slice length
// is the page count.
type PageReader interface {
	ReadPages(ctx context.Context, path string) ([]string, error)
}

// PDFReader reads PDFs from local paths, file:// URLs and http(s) URLs.
type PDFReader struct {
	client *http.Client
}

// NewPDFReader creates a PDF reader. client is used for remote documents and
// may be nil.
func NewPDFReader(client *http.Client) *PDFReader {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &PDFReader{client: client}
}

// ReadPages extracts text from every page of the PDF at path
func (r *PDFReader) ReadPages(ctx context.Context, path string) (pages []string, err error) {
	var reader io.ReaderAt
	var size int64

	if isRemote(path) {
		data, err := r.download(ctx, path)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
		size = int64(len(data))
	} else {
		filePath := strings.TrimPrefix(path, "file://")

		file, err := os.Open(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open PDF file %s: %w", filePath, err)
		}
		defer func() {
			if cerr := file.Close(); cerr != nil {
				logger.Warn("Failed to close PDF file", "path", filePath, "error", cerr)
			}
		}()

		stat, err := file.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat PDF file %s: %w", filePath, err)
		}

		reader = file
		size = stat.Size()
	}

	// The parser panics on some malformed inputs
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = fmt.Errorf("%w %s: %v", ErrParse, path, rec)
		}
	}()

	pdfReader, err := pdf.NewReader(reader, size)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrParse, path, err)
	}

	pageCount := pdfReader.NumPage()
	pages = make([]string, pageCount)

	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("Failed to extract text from page", "page", i, "path", path, "error", err)
			continue
		}
		pages[i-1] = pageText
	}

	return pages, nil
}

func (r *PDFReader) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", url, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch PDF from URL %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch PDF from URL %s: status code %d", url, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "application/pdf") && !strings.Contains(contentType, "application/octet-stream") {
		return nil, fmt.Errorf("%w: %s (Content-Type: %s)", ErrNotPDF, url, contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF data from %s: %w", url, err)
	}
	return data, nil
}

func isRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}
