// Package storage persists run summaries to the local filesystem, Redis or
// S3 behind ports.ResultStore.
package storage

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

const (
	resultPrefix = "evaluation-"
	resultExt    = ".json"
)

// ResultName returns the summary name for a run started at startedAt,
// e.g. evaluation-2024-03-01T12-00-00-000Z.json.
func ResultName(startedAt time.Time) string {
	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(domain.FormatTimestamp(startedAt))
	return resultPrefix + stamp + resultExt
}

// ValidateName rejects names that are not a single plain .json file name.
func ValidateName(name string) error {
	if name == "" || name != path.Base(name) || strings.ContainsAny(name, `/\`) ||
		strings.HasPrefix(name, ".") || !strings.HasSuffix(name, resultExt) {
		return fmt.Errorf("%w: %q", ports.ErrInvalidResultName, name)
	}
	return nil
}
