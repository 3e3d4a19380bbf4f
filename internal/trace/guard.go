package trace

import (
	"fmt"
	"sync"

	"github.com/kranzdev/streampipe/pkg/perror"
)

// immutableField guards a single string attribute that may be set exactly
// once, at construction. Any later attempt to set it again returns a
// *perror.Error of KindImmutable instead of silently succeeding or
// panicking, per spec §3.2 and §7.
type immutableField struct {
	mu    sync.Mutex
	value string
	set   bool
}

// init assigns the field's initial value. Only constructors call this;
// it is unexported so no other package can bypass Set's guard.
func (f *immutableField) init(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = v
	f.set = true
}

// Get returns the current value.
func (f *immutableField) Get() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Set attempts to overwrite the value. It always fails once the field has
// been initialized, reporting a KindImmutable error naming the field.
func (f *immutableField) Set(name, v string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.set {
		return perror.New(perror.KindImmutable, "", fmt.Errorf("attribute %q is immutable once set", name))
	}
	f.value = v
	f.set = true
	return nil
}
