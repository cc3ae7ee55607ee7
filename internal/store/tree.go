// internal/store/tree.go
package store

import (
	"encoding/json"
	"fmt"
	"sort"

	"solar-sync/internal/common/paths"
)

// normalize 임의의 Go 값을 JSON 호환 트리(map/[]interface{}/float64/string/bool)로 변환
func normalize(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to normalize value: %w", err)
	}
	return out, nil
}

// lookup 트리에서 세그먼트 경로의 값 조회
func lookup(root interface{}, segs []string) (interface{}, bool) {
	cur := root
	for _, s := range segs {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if cur, ok = m[s]; !ok {
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// assign 세그먼트 경로에 값 기록 후 새 루트 반환
//
// nil 또는 빈 맵은 삭제로 처리하고, 비게 된 상위 노드도 함께 제거한다.
func assign(root interface{}, segs []string, value interface{}) interface{} {
	if len(segs) == 0 {
		if isEmptyMap(value) {
			return nil
		}
		return value
	}

	m, ok := root.(map[string]interface{})
	if !ok {
		if value == nil {
			return root
		}
		m = make(map[string]interface{})
	}

	child := assign(m[segs[0]], segs[1:], value)
	if child == nil {
		delete(m, segs[0])
	} else {
		m[segs[0]] = child
	}

	if len(m) == 0 {
		return nil
	}
	return m
}

func isEmptyMap(v interface{}) bool {
	m, ok := v.(map[string]interface{})
	return ok && len(m) == 0
}

// applyOp 연산을 트리에 적용 (base는 트리 루트의 절대 경로 세그먼트)
//
// 변경된 절대 경로 목록을 함께 반환한다.
func applyOp(root interface{}, base []string, op Op) (interface{}, []string, error) {
	segs := paths.Split(op.Path)
	if len(segs) < len(base) {
		return root, nil, fmt.Errorf("%w: %s", ErrInvalidPath, op.Path)
	}
	rel := segs[len(base):]

	switch op.Kind {
	case OpSet:
		value, err := normalize(op.Value)
		if err != nil {
			return root, nil, err
		}
		return assign(root, rel, value), []string{paths.Join(segs...)}, nil

	case OpRemove:
		return assign(root, rel, nil), []string{paths.Join(segs...)}, nil

	case OpUpdate:
		keys := make([]string, 0, len(op.Fields))
		for k := range op.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		changed := make([]string, 0, len(keys))
		for _, k := range keys {
			fieldSegs := paths.Split(k)
			if len(fieldSegs) == 0 {
				return root, nil, fmt.Errorf("%w: empty field in update of %s", ErrInvalidPath, op.Path)
			}
			value, err := normalize(op.Fields[k])
			if err != nil {
				return root, nil, err
			}
			target := append(append([]string{}, rel...), fieldSegs...)
			root = assign(root, target, value)
			changed = append(changed, paths.Join(append(append([]string{}, segs...), fieldSegs...)...))
		}
		return root, changed, nil

	default:
		return root, nil, fmt.Errorf("store: unknown op kind %d", op.Kind)
	}
}

// deepCopy 트리 복사 (스냅샷이 저장소 내부 상태를 공유하지 않도록)
func deepCopy(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, child := range t {
			out[k] = deepCopy(child)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, child := range t {
			out[i] = deepCopy(child)
		}
		return out
	default:
		return t
	}
}

// childKeys 맵 노드의 하위 키 (정렬)
func childKeys(v interface{}) []string {
	m, ok := v.(map[string]interface{})
	if !ok {
		return []string{}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func affects(changed []string, path string) bool {
	for _, c := range changed {
		if paths.Overlaps(c, path) {
			return true
		}
	}
	return false
}
