package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrValidation 表示输入缺失或不合法。
	ErrValidation = errors.New("validation failed")
	// ErrNotFound 表示引用的游戏或分类不存在。
	ErrNotFound = errors.New("not found")
	// ErrConflict 表示操作会破坏目录不变量，例如删除仍有游戏的分类。
	ErrConflict = errors.New("conflict")
	// ErrFormat 表示导入内容或存储中的数据无法解析。
	ErrFormat = errors.New("invalid catalog format")
	// ErrPersistence 表示写入 blob 存储失败，内存状态保持不变。
	ErrPersistence = errors.New("persistence failed")
)

// ValidationError 携带逐字段的校验信息，errors.Is(err, ErrValidation) 成立。
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s %s", name, e.Fields[name]))
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func fieldError(field, message string) error {
	return &ValidationError{Fields: map[string]string{field: message}}
}
