package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpumodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pdfPageImages pulls the embedded images out of a scanned PDF in page
// order. pdfcpu works on files, so the bytes pass through a temp dir.
func pdfPageImages(data []byte) ([][]byte, error) {
	tempDir, err := os.MkdirTemp("", "docinsight-ocr-")
	if err != nil {
		return nil, fmt.Errorf("create ocr temp dir failed: %w", err)
	}
	defer os.RemoveAll(tempDir)

	tempFile := filepath.Join(tempDir, "input.pdf")
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return nil, fmt.Errorf("write temp pdf failed: %w", err)
	}

	outDir := filepath.Join(tempDir, "images")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create image out dir failed: %w", err)
	}

	conf := pdfcpumodel.NewDefaultConfiguration()
	if err := api.ExtractImagesFile(tempFile, outDir, nil, conf); err != nil {
		return nil, fmt.Errorf("extract pdf images failed: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("read image out dir failed: %w", err)
	}

	// pdfcpu names extracted files <base>_<page>_<obj>.<ext>; lexicographic
	// order keeps pages in sequence.
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	images := make([][]byte, 0, len(names))
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			continue
		}
		images = append(images, raw)
	}
	return images, nil
}
