package diffengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooseEqualIntString(t *testing.T) {
	assert.True(t, LooseEqual(100001, "100001"))
	assert.True(t, LooseEqual("42", int64(42)))
	assert.True(t, LooseEqual(float64(7), "7"))
	assert.False(t, LooseEqual("100001", "100002"))
	assert.False(t, LooseEqual(100001, "1000o1"))
	assert.False(t, LooseEqual(7.5, "7"))
}

func TestLooseEqualEmpties(t *testing.T) {
	assert.True(t, LooseEqual("", nil))
	assert.True(t, LooseEqual(nil, ""))
	assert.True(t, LooseEqual([]string{}, nil))
	assert.True(t, LooseEqual(map[string]any{}, nil))
	assert.True(t, LooseEqual("", []int{}))
	assert.False(t, LooseEqual("x", nil))
	assert.False(t, LooseEqual([]string{"a"}, nil))
}

func TestLooseEqualExact(t *testing.T) {
	assert.True(t, LooseEqual("host-1", "host-1"))
	assert.True(t, LooseEqual([]string{"eth0"}, []string{"eth0"}))
	assert.False(t, LooseEqual("host-1", "host-2"))
	assert.False(t, LooseEqual(true, false))
}
