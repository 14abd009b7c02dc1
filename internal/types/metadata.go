package types

// Metadata is a generic string map carried on rules and invoices
type Metadata map[string]string

// Merge returns a new Metadata with the other map overlaid on m
func (m Metadata) Merge(other Metadata) Metadata {
	out := make(Metadata, len(m)+len(other))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}
