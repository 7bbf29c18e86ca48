package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTermKey(t *testing.T) {
	key := func(label string) int {
		t.Helper()
		k, ok := termKey(label)
		if !ok {
			t.Fatalf("termKey(%q) not recognised", label)
		}
		return k
	}

	assert.Equal(t, key("2023F"), key("Fall 2023"))
	assert.Equal(t, key("2023 fall"), key("2023FA"))
	assert.Equal(t, key("Spring 2024"), key("2023-2024 Spring"))
	assert.Equal(t, key("2023/24 Güz"), key("2023F"))
	assert.Equal(t, key("Bahar 2023-2024"), key("2024S"))

	assert.Less(t, key("2023S"), key("2023SU"))
	assert.Less(t, key("2023SU"), key("2023F"))
	assert.Less(t, key("2023F"), key("2024W"))
	assert.Less(t, key("2024W"), key("2024S"))

	for _, label := range []string{"", "TBD", "2023X", "Term 3", "2023"} {
		_, ok := termKey(label)
		assert.False(t, ok, label)
	}
}
