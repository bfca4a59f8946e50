package system

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupStackLIFO(t *testing.T) {
	stack := NewCleanupStack()
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		stack.Add(func() error {
			order = append(order, i)
			return nil
		})
	}

	require.NoError(t, stack.Execute())
	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestCleanupStackContinuesOnError(t *testing.T) {
	stack := NewCleanupStack()
	var ran []string
	stack.Add(func() error {
		ran = append(ran, "first")
		return nil
	})
	stack.Add(func() error {
		ran = append(ran, "second")
		return errors.New("busy")
	})

	err := stack.Execute()
	require.Error(t, err)
	assert.Equal(t, []string{"second", "first"}, ran, "a failed release must not block earlier ones")
}

func TestCleanupStackExecuteDrains(t *testing.T) {
	stack := NewCleanupStack()
	calls := 0
	stack.Add(func() error {
		calls++
		return nil
	})

	require.NoError(t, stack.Execute())
	require.NoError(t, stack.Execute())
	assert.Equal(t, 1, calls, "callbacks run at most once")
	assert.Equal(t, 0, stack.Len())
}

func TestCleanupStackClear(t *testing.T) {
	stack := NewCleanupStack()
	stack.Add(func() error {
		t.Fatal("cleared callback must not run")
		return nil
	})
	stack.Clear()
	assert.Equal(t, 0, stack.Len())
	require.NoError(t, stack.Execute())
}
