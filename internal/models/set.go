package models

import (
	"reflect"
	"slices"
	"unsafe"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func init() {
	registerSetEncoder[User]()
	registerSetEncoder[Label]()
}

// registerSetEncoder makes json-iterator encode a nil Set[T] as [] instead of
// null. It skips MarshalJSON for nil maps.
func registerSetEncoder[T ~string]() {
	jsoniter.RegisterTypeEncoderFunc(reflect.TypeOf(Set[T]{}).String(),
		func(ptr unsafe.Pointer, stream *jsoniter.Stream) {
			stream.WriteVal((*(*Set[T])(ptr)).Sorted())
		},
		func(ptr unsafe.Pointer) bool {
			return len(*(*Set[T])(ptr)) == 0
		})
}

// Set is an unordered set of strings, encoded as a sorted JSON array.
type Set[T ~string] map[T]struct{}

func NewSet[T ~string](items ...T) Set[T] {
	s := make(Set[T], len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Add inserts item and reports whether it was not present before.
func (s Set[T]) Add(item T) bool {
	if _, ok := s[item]; ok {
		return false
	}
	s[item] = struct{}{}
	return true
}

func (s Set[T]) Has(item T) bool {
	_, ok := s[item]
	return ok
}

func (s Set[T]) Len() int {
	return len(s)
}

// Sorted returns the members in ascending order
func (s Set[T]) Sorted() []T {
	out := make([]T, 0, len(s))
	for item := range s {
		out = append(out, item)
	}
	slices.Sort(out)
	return out
}

func (s Set[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *Set[T]) UnmarshalJSON(data []byte) error {
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	if items == nil {
		*s = nil
		return nil
	}
	*s = NewSet(items...)
	return nil
}
