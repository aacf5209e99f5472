package pdfsource

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// discoverLocal scans dir for PDF files whose names match the product
// identifiers. Matching is deliberately loose: datasheet filenames rarely
// follow a convention beyond containing the article number or a product
// name fragment.
func discoverLocal(dir, articleNumber, productName string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "pdfsource: read dir %s", dir)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if matchesProduct(e.Name(), articleNumber, productName) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}

// matchesProduct reports whether a PDF filename plausibly belongs to the
// product: it must be a .pdf and contain the article number or any product
// name token of length > 2.
func matchesProduct(name, articleNumber, productName string) bool {
	lower := strings.ToLower(name)
	if !strings.HasSuffix(lower, ".pdf") {
		return false
	}

	if a := strings.ToLower(strings.TrimSpace(articleNumber)); a != "" && strings.Contains(lower, a) {
		return true
	}

	for _, tok := range strings.Fields(strings.ToLower(productName)) {
		if len(tok) > 2 && strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}
