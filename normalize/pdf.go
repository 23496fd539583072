package normalize

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// rasterizePDF converts every PDF page to a PNG bitmap at the configured DPI
// using the external rasterizer (pdftoppm), one Page per PDF page in page
// order. pdfcpu supplies the authoritative page count so a truncated
// rasterizer run is detected instead of silently returning fewer pages.
func (n *Normalizer) rasterizePDF(ctx context.Context, data []byte) ([]Page, error) {
	if _, err := exec.LookPath(n.cfg.PDFTool); err != nil {
		return nil, &UnavailableError{Tool: n.cfg.PDFTool}
	}

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, &DecodeError{Page: -1, Reason: fmt.Sprintf("pdfcpu read: %v", err)}
	}
	pageCount := pdfCtx.PageCount

	dir, err := os.MkdirTemp("", "ocrpipe-raster-*")
	if err != nil {
		return nil, fmt.Errorf("raster temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	pdfPath := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(pdfPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("write raster input: %w", err)
	}

	prefix := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, n.cfg.PDFTool,
		"-png",
		"-r", strconv.Itoa(n.cfg.DPI),
		pdfPath,
		prefix)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	n.logger.Debug("rasterizing PDF", "pages", pageCount, "dpi", n.cfg.DPI)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		reason := strings.TrimSpace(stderr.String())
		if reason == "" {
			reason = err.Error()
		}
		return nil, &DecodeError{Page: -1, Reason: fmt.Sprintf("%s: %s", n.cfg.PDFTool, reason)}
	}

	pages, err := collectRasterPages(dir, "page")
	if err != nil {
		return nil, err
	}
	if len(pages) != pageCount {
		return nil, &DecodeError{
			Page:   len(pages),
			Reason: fmt.Sprintf("rasterized %d of %d pages", len(pages), pageCount),
		}
	}
	return pages, nil
}

// collectRasterPages reads the rasterizer's prefix-N.png outputs in numeric
// page order. pdftoppm zero-pads the page number depending on the total, so
// the suffix is parsed, not compared lexically.
func collectRasterPages(dir, prefix string) ([]Page, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read raster dir: %w", err)
	}

	type numbered struct {
		n    int
		name string
	}
	var found []numbered
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, ".png") {
			continue
		}
		numPart := strings.TrimSuffix(strings.TrimPrefix(name, prefix+"-"), ".png")
		num, err := strconv.Atoi(numPart)
		if err != nil {
			continue
		}
		found = append(found, numbered{n: num, name: name})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	pages := make([]Page, 0, len(found))
	for i, f := range found {
		data, err := os.ReadFile(filepath.Join(dir, f.name))
		if err != nil {
			return nil, &DecodeError{Page: i, Reason: fmt.Sprintf("read raster page: %v", err)}
		}
		cfg, err := png.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, &DecodeError{Page: i, Reason: fmt.Sprintf("decode raster page: %v", err)}
		}
		pages = append(pages, Page{Index: i, Width: cfg.Width, Height: cfg.Height, PNG: data})
	}
	return pages, nil
}
