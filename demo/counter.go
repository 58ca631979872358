package demo

import (
	"errors"

	"github.com/chazu/objbridge/meta"
)

// Counter holds an integer value changed in steps.
type Counter struct {
	meta.Base

	_ meta.Signal `signal:"valueChanged(int)"`

	Value int `prop:"value"`
	Step  int `prop:"step"`
}

// NewCounter creates a counter with step 1.
func NewCounter() *Counter {
	c := &Counter{Step: 1}
	meta.Init(c)
	return c
}

// SetValue changes the value and emits valueChanged.
func (c *Counter) SetValue(v int) {
	if c.Value == v {
		return
	}
	c.Value = v
	meta.Emit(c, "valueChanged(int)", meta.NewInt(int64(v)))
}

func (c *Counter) Increment() {
	c.SetValue(c.Value + c.Step)
}

// Add adds n and returns the new value.
func (c *Counter) Add(n int) int {
	c.SetValue(c.Value + n)
	return c.Value
}

func (c *Counter) Reset() {
	c.SetValue(0)
}

// Divide returns the value divided by n.
func (c *Counter) Divide(n int) (float64, error) {
	if n == 0 {
		return 0, errors.New("division by zero")
	}
	return float64(c.Value) / float64(n), nil
}
