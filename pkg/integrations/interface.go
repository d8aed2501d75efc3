package integrations

// Processor transforms an image file in place.
type Processor interface {
	Process(path string) error
}

var _ Processor = (*Descrambler)(nil)
