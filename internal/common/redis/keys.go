// internal/common/redis/keys.go
package redis

import (
	"fmt"
	"strings"

	"solar-sync/internal/common/paths"
)

// Redis Key Patterns Redis 키 패턴 상수
const (
	// 상태 트리 루트 문서 (devices/{id}, users/{uid}, config/{name})
	DocumentPattern = "%s:doc:%s"

	// 문서 변경 알림 채널
	ChangeChannelPattern = "%s:changes:%s"
)

// KeyGenerator Redis 키 생성기
type KeyGenerator struct {
	prefix string
}

// NewKeyGenerator 새 키 생성기 생성
func NewKeyGenerator(prefix string) *KeyGenerator {
	if prefix == "" {
		prefix = "solar"
	}
	return &KeyGenerator{prefix: prefix}
}

// DocumentRoot 경로가 속한 루트 문서 경로 (최대 2 세그먼트)
func DocumentRoot(path string) string {
	segments := paths.Split(path)
	if len(segments) > 2 {
		segments = segments[:2]
	}
	return strings.Join(segments, "/")
}

// Document 루트 문서 키 생성
func (k *KeyGenerator) Document(root string) string {
	return fmt.Sprintf(DocumentPattern, k.prefix, root)
}

// ChangeChannel 루트 문서 변경 채널 생성
func (k *KeyGenerator) ChangeChannel(root string) string {
	return fmt.Sprintf(ChangeChannelPattern, k.prefix, root)
}

// Pattern Matching 패턴 매칭용 함수들

// AllDocuments 컬렉션(devices, users 등) 하위 모든 문서 키 패턴
func (k *KeyGenerator) AllDocuments(collection string) string {
	return fmt.Sprintf(DocumentPattern, k.prefix, collection+"/*")
}

// RootFromDocumentKey 문서 키에서 루트 경로 추출
func (k *KeyGenerator) RootFromDocumentKey(key string) string {
	return strings.TrimPrefix(key, fmt.Sprintf(DocumentPattern, k.prefix, ""))
}
