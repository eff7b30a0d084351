package extractor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for file extensions with no extractor.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Extract returns the raw text of a document file as one string. Failures
// inside a single unit (a PDF page, a spreadsheet sheet) degrade to empty
// text for that unit and never abort the document.
func Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return extractPDF(path)
	case ".docx":
		return extractDOCX(path)
	case ".xlsx":
		return extractXLSX(path)
	case ".ods":
		return extractODS(path)
	case ".md", ".markdown":
		return extractMarkdown(path)
	case ".txt":
		return extractText(path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func extractPDF(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", err
	}

	var texts []string
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		texts = append(texts, extractPage(reader, i, path))
	}
	joined := strings.Join(texts, "\n")
	log.Debug().Int("pages", numPages).Int("chars", len(joined)).Str("file", filepath.Base(path)).Msg("Extracted PDF text")
	return joined, nil
}

// extractPage pulls the plain text of one page, degrading to empty text on
// any failure so the rest of the document still extracts.
func extractPage(reader *pdf.Reader, num int, path string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Int("page", num).Str("file", filepath.Base(path)).Interface("panic", r).Msg("Page extraction panicked, using empty text")
			text = ""
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		log.Warn().Err(err).Int("page", num).Str("file", filepath.Base(path)).Msg("Page extraction failed, using empty text")
		return ""
	}
	return text
}

var xmlTagRe = regexp.MustCompile(`<[^>]+>`)

func extractDOCX(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	// The docx body arrives as WordprocessingML; paragraphs become lines.
	content = strings.ReplaceAll(content, "</w:p>", "\n")
	return xmlTagRe.ReplaceAllString(content, ""), nil
}

func extractXLSX(path string) (string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, sheet := range f.Sheets {
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
	}
	return text.String(), nil
}

func extractODS(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var text strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			log.Warn().Err(err).Str("sheet", sheetName).Str("file", filepath.Base(path)).Msg("Sheet extraction failed, skipping")
			continue
		}
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
	}
	return text.String(), nil
}

func extractText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
