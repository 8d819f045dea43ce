package testutil

// DefaultBootID is used when a scenario does not pin one.
const DefaultBootID = "test-boot-default"

// FixedBootIDGenerator returns the same boot ID on every call, so golden
// traces do not depend on UUID generation.
type FixedBootIDGenerator struct {
	id string
}

// NewFixedBootIDGenerator returns a generator for id, or DefaultBootID when
// id is empty.
func NewFixedBootIDGenerator(id string) *FixedBootIDGenerator {
	if id == "" {
		id = DefaultBootID
	}
	return &FixedBootIDGenerator{id: id}
}

// Generate implements monitor.BootIDGenerator.
func (g *FixedBootIDGenerator) Generate() string {
	return g.id
}
