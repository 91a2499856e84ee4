package store

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/deepankarm/artifactstream/pkg/artifact"
)

// Fingerprint returns a stable content hash of doc as 16 hex digits. Fields
// are length-prefixed so moving text between fields changes the hash.
func Fingerprint(doc *artifact.Document) string {
	d := xxhash.New()
	for _, f := range artifact.Fields() {
		v := doc.Get(f)
		_, _ = d.WriteString(strconv.Itoa(len(v)))
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(v)
	}
	return fmt.Sprintf("%016x", d.Sum64())
}
