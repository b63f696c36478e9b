// Package lazy provides build-once values safe for concurrent first access.
package lazy

import "sync"

// Value holds the result of a build function that runs at most once.
// Every caller observes the same fully built value and error.
type Value[T any] struct {
	once  sync.Once
	build func() (T, error)
	val   T
	err   error
}

// New returns a Value that runs build on first Get.
func New[T any](build func() (T, error)) *Value[T] {
	return &Value[T]{build: build}
}

// Get builds the value on first call and returns the cached result afterwards.
func (v *Value[T]) Get() (T, error) {
	v.once.Do(func() {
		v.val, v.err = v.build()
		v.build = nil
	})
	return v.val, v.err
}

// MustGet is Get that panics on build error.
func (v *Value[T]) MustGet() T {
	val, err := v.Get()
	if err != nil {
		panic(err)
	}
	return val
}
