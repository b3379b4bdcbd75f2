package naming

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// MaxLength is the longest name SageMaker accepts for compilation and
// edge packaging jobs.
const MaxLength = 63

const hashLength = 8

// Naming functions for execution resources.

func CompilationJob(executionID string) string {
	return bounded("compile", executionID)
}

func PackagingJob(executionID string) string {
	return bounded("packaging", executionID)
}

func Deployment(executionID string) string {
	return bounded("edgeforge", executionID)
}

// ModelArtifact is the file name of a packaged model archive as written by
// edge packaging: {model}-{version}.tar.gz.
func ModelArtifact(modelName, version string) string {
	return fmt.Sprintf("%s-%s.tar.gz", modelName, version)
}

// CheckpointObject is the object key holding an execution checkpoint.
func CheckpointObject(prefix, executionID string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return executionID + ".json"
	}
	return fmt.Sprintf("%s/%s.json", prefix, executionID)
}

// Sanitize replaces every character outside [A-Za-z0-9-] with a hyphen,
// collapses runs of hyphens and trims them from both ends.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastHyphen := false
	for _, r := range s {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			if !lastHyphen {
				b.WriteByte('-')
			}
			lastHyphen = true
			continue
		}
		b.WriteRune(r)
		lastHyphen = false
	}
	return strings.Trim(b.String(), "-")
}

// bounded prefixes the sanitised id. An id that sanitising changed or that
// does not fit gets a hash of the raw id appended, so two distinct ids never
// share a name.
func bounded(prefix, executionID string) string {
	id := Sanitize(executionID)
	name := prefix + "-" + id
	if id == executionID && len(name) <= MaxLength {
		return name
	}
	sum := sha256.Sum256([]byte(executionID))
	suffix := hex.EncodeToString(sum[:])[:hashLength]
	keep := min(MaxLength-len(prefix)-len(suffix)-2, len(id))
	head := strings.TrimRight(id[:keep], "-")
	if head == "" {
		return fmt.Sprintf("%s-%s", prefix, suffix)
	}
	return fmt.Sprintf("%s-%s-%s", prefix, head, suffix)
}
