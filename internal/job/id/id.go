// Package id provides name generation for downloaded outputs that carry no
// usable filename in their URL.
package id

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Filename creates a new unique output file name.
// Format: output-<timestamp>-<random><ext>
// Example: output-1701432000-a1b2c3d4.mp4
func Filename(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("output-%d-%s%s", time.Now().Unix(), random, ext)
}
