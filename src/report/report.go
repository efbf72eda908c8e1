// Package report projects a combined phase-1/phase-2 compliance result into
// PDF or HTML, optionally gzip-compressed for disk storage.
package report

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/gzip"

	"github.com/aicertify/aicertify-go/src/evalresult"
	"github.com/aicertify/aicertify-go/src/policy/engine"
)

// Options controls report rendering beyond the bare format.
type Options struct {
	// Gzip compresses Content when true, appending ".gz" is the caller's
	// responsibility (this package only transforms bytes, not filenames).
	Gzip bool
}

// Render produces a full report in format. It handles PDF and HTML only and
// returns an error for any other format; JSON and Markdown are rendered by
// the pipeline's combined renderer.
func Render(applicationName string, phase1 map[string]*evalresult.EvaluationResult, phase2 map[string]*engine.PolicyResult, overall bool, format evalresult.Format, opts Options) (*evalresult.Report, error) {
	var content []byte

	switch format {
	case evalresult.FormatPDF:
		rendered, err := (PDFRenderer{}).Render(applicationName, phase1, phase2, overall)
		if err != nil {
			return nil, err
		}
		content = rendered
	case evalresult.FormatHTML:
		renderer, err := NewHTMLRenderer()
		if err != nil {
			return nil, err
		}
		rendered, err := renderer.Render(phase1, phase2, overall)
		if err != nil {
			return nil, err
		}
		content = rendered
	default:
		return nil, fmt.Errorf("report: unsupported format %q for PDF/HTML rendering path", format)
	}

	if opts.Gzip {
		compressed, err := compress(content)
		if err != nil {
			return nil, err
		}
		content = compressed
	}

	return &evalresult.Report{Content: content, Format: format}, nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("report: gzip write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("report: gzip close: %w", err)
	}
	return buf.Bytes(), nil
}
