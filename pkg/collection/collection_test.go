package collection

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Data string
}

func TestNew_ValidInputPreservesOrder(t *testing.T) {
	first := &sample{Data: "first"}
	second := &sample{Data: "second"}

	c, err := New[*sample](first, second)
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []*sample{first, second}, c.Items())
	assert.Same(t, second, c.At(1))
}

func TestNew_MismatchIsAllOrNothing(t *testing.T) {
	first := &sample{Data: "first"}
	second := &sample{Data: "second"}
	third := map[string]string{"Data": "third"}

	c, err := New[*sample](first, second, third)

	require.Error(t, err)
	assert.Nil(t, c)
	assert.True(t, errors.Is(err, ErrTypeMismatch))

	var mismatch *TypeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 2, mismatch.Index)
	assert.Equal(t, reflect.TypeOf(&sample{}), mismatch.Expected)
	assert.Equal(t, reflect.TypeOf(third), mismatch.Got)
}

func TestNew_ReportsFirstOffender(t *testing.T) {
	_, err := New[int](1, "two", 3.0)

	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 1, mismatch.Index)
	assert.Contains(t, err.Error(), "element 1 is string, want int")
}

func TestNew_NilCandidate(t *testing.T) {
	_, err := New[fmt.Stringer](nil)

	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Nil(t, mismatch.Got)
	assert.Contains(t, err.Error(), "element 0 is nil")
}

func TestNew_InterfaceElementType(t *testing.T) {
	c, err := New[error](errors.New("a"), fmt.Errorf("b"))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestNew_Empty(t *testing.T) {
	c, err := New[string]()
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Items())
}

func TestItems_ReturnsCopy(t *testing.T) {
	c := Of("a", "b")

	items := c.Items()
	items[0] = "mutated"

	assert.Equal(t, "a", c.At(0))
}

func TestOf_CopiesInput(t *testing.T) {
	in := []string{"a", "b"}
	c := Of(in...)
	in[0] = "mutated"

	assert.Equal(t, []string{"a", "b"}, c.Items())
}

func TestEach(t *testing.T) {
	c := Of(10, 20, 30)

	var seen []int
	c.Each(func(i, v int) { seen = append(seen, i*100+v) })

	assert.Equal(t, []int{10, 120, 230}, seen)
}

func TestNilCollection(t *testing.T) {
	var c *Collection[int]

	assert.Equal(t, 0, c.Len())
	assert.Nil(t, c.Items())
	c.Each(func(int, int) { t.Fatal("Each on nil collection must not call fn") })
}
