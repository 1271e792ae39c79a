package model

// Decorator adjusts descriptors after they have been derived from a schema or
// definition file, for example to attach searchers or override labels.
type Decorator interface {
	Decorate(descriptors []Descriptor) error
}

// DecoratorFunc adapts a function into a Decorator.
type DecoratorFunc func([]Descriptor) error

// Decorate calls the underlying function.
func (fn DecoratorFunc) Decorate(descriptors []Descriptor) error {
	return fn(descriptors)
}
