package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
)

// OutputName derives the artifact file name from the performance file, the
// engine identifier and the integer part of the sample rate, so reruns of the
// same inputs overwrite instead of accumulating.
func OutputName(performancePath, engineID string, sampleRate float64) string {
	return fmt.Sprintf("%s_%s_%dhz.wav", stem(performancePath), stem(engineID), int(sampleRate))
}

// stem strips directories and the last extension. Identifiers such as
// "builtin:sine" become "builtin-sine".
func stem(p string) string {
	base := filepath.Base(strings.TrimRight(p, `/\`))
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ReplaceAll(base, ":", "-")
	if base == "" || base == "." {
		return "untitled"
	}
	return base
}
