package sqlite

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
)

// Scanner maps result columns onto struct fields by `db` tag, falling back to
// the snake_case form of the field name. Unknown columns are discarded.
// Pointer fields receive nil for NULL columns.
type Scanner struct {
	mu     sync.RWMutex
	fields map[reflect.Type]map[string][]int
}

func NewScanner() *Scanner {
	return &Scanner{fields: make(map[reflect.Type]map[string][]int)}
}

// ScanRowToStruct advances rows once and scans it into dest. It returns
// sql.ErrNoRows when the result set is empty.
func (s *Scanner) ScanRowToStruct(rows *sql.Rows, dest interface{}) error {
	destValue := reflect.ValueOf(dest)

	if destValue.Kind() != reflect.Ptr || destValue.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dest must be a pointer to struct")
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}

	columns, err := rows.Columns()
	if err != nil {
		return err
	}

	return s.scanCurrent(rows, columns, destValue.Elem())
}

func (s *Scanner) ScanRowsToSlice(rows *sql.Rows, dest interface{}) error {
	destValue := reflect.ValueOf(dest)

	if destValue.Kind() != reflect.Ptr || destValue.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("dest must be a pointer to slice")
	}

	sliceValue := destValue.Elem()
	elemType := sliceValue.Type().Elem()
	isPtr := elemType.Kind() == reflect.Ptr

	if isPtr {
		elemType = elemType.Elem()
	}

	if elemType.Kind() != reflect.Struct {
		return fmt.Errorf("slice elements must be structs or pointers to structs")
	}

	columns, err := rows.Columns()
	if err != nil {
		return err
	}

	for rows.Next() {
		elemValue := reflect.New(elemType)

		if err := s.scanCurrent(rows, columns, elemValue.Elem()); err != nil {
			return err
		}

		if isPtr {
			sliceValue.Set(reflect.Append(sliceValue, elemValue))
		} else {
			sliceValue.Set(reflect.Append(sliceValue, elemValue.Elem()))
		}
	}

	return rows.Err()
}

func (s *Scanner) scanCurrent(rows *sql.Rows, columns []string, dest reflect.Value) error {
	index := s.fieldIndex(dest.Type())
	targets := make([]interface{}, len(columns))

	for i, col := range columns {
		path, ok := index[strings.ToLower(col)]
		if !ok {
			targets[i] = new(interface{})
			continue
		}

		targets[i] = dest.FieldByIndex(path).Addr().Interface()
	}

	return rows.Scan(targets...)
}

func (s *Scanner) fieldIndex(t reflect.Type) map[string][]int {
	s.mu.RLock()
	index, ok := s.fields[t]
	s.mu.RUnlock()

	if ok {
		return index
	}

	index = make(map[string][]int, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if !field.IsExported() || s.shouldSkipField(field) {
			continue
		}

		name := field.Tag.Get("db")
		if name == "" {
			name = s.camelToSnake(field.Name)
		}

		index[strings.ToLower(name)] = field.Index
	}

	s.mu.Lock()
	s.fields[t] = index
	s.mu.Unlock()

	return index
}

func (s *Scanner) shouldSkipField(field reflect.StructField) bool {
	return field.Tag.Get("scan") == "skip" || field.Tag.Get("db") == "-"
}

func (s *Scanner) camelToSnake(camel string) string {
	var result []rune
	runes := []rune(camel)

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
			result = append(result, '_')
		}
		result = append(result, unicode.ToLower(r))
	}

	return string(result)
}
