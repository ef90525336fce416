package table

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// Stage writes t as a JSON array of objects next to the destination workbook.
func Stage(dir string, t Table) (string, error) {
	path := filepath.Join(dir, constants.StagingFileName)
	b, err := json.MarshalIndent(t.Rows, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode staging rows: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write staging file: %w", err)
	}
	return path, nil
}
