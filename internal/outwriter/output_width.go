package outwriter

import (
	"os"

	"github.com/huangsam/defectset/internal/contract"
	"golang.org/x/term"
)

// getTermWidth returns the width override or the detected terminal width.
func getTermWidth(cfg *contract.Config) int {
	if cfg.Width > 0 {
		return cfg.Width
	}
	detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detectedWidth <= 0 {
		return 80 // Conservative default for narrow terminals and CI
	}
	return detectedWidth
}

// getMaxTextWidth calculates the room left for a free-text column once
// fixedWidth characters are taken by the other columns.
func getMaxTextWidth(cfg *contract.Config, fixedWidth int) int {
	// Reserve generous space for table borders, separators, and padding
	available := getTermWidth(cfg) - fixedWidth - 20
	if available < 15 {
		return 15
	}
	if available > 70 {
		return 70
	}
	return available
}
