// internal/common/idgen/generator.go
package idgen

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Generator ID 생성기
type Generator struct {
	prefix string
}

// NewGenerator 새 ID 생성기 생성
func NewGenerator(prefix ...string) *Generator {
	var p string
	if len(prefix) > 0 {
		p = prefix[0]
	}
	return &Generator{
		prefix: p,
	}
}

// DeviceID 디바이스 ID 생성 (UUID v4, 하이픈 제거 32자리)
func (g *Generator) DeviceID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if g.prefix != "" {
		return fmt.Sprintf("%s_%s", g.prefix, id)
	}
	return id
}
