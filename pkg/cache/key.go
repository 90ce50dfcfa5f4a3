package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/promptpool/fpo/pkg/core"
)

// KeyGenerator derives deterministic content keys for scoring requests.
type KeyGenerator struct {
	prefix string
}

// NewKeyGenerator creates a key generator. An empty prefix defaults to
// "fpo_".
func NewKeyGenerator(prefix string) *KeyGenerator {
	if prefix == "" {
		prefix = "fpo_"
	}
	return &KeyGenerator{prefix: prefix}
}

// ScoreKey builds the key for scoring one template against one case. The key
// covers every field that shapes the scoring prompt: template text, case
// input, domain, and reference. Case ids are deliberately excluded so
// identical content shares one entry.
func (g *KeyGenerator) ScoreKey(template string, tc core.TestCase) string {
	var b strings.Builder
	b.WriteString(template)
	b.WriteByte(0x1f)
	b.WriteString(tc.Input)
	b.WriteByte(0x1f)
	b.WriteString(tc.Domain)
	b.WriteByte(0x1f)
	b.WriteString(tc.Reference)

	h := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%sscore_%s", g.prefix, hex.EncodeToString(h[:])[:16])
}
