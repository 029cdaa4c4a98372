package graphkv

// Envelope is the unit exchanged with clients for set requests and for get/set responses.
type Envelope struct {
	Paths     []PathSet `json:"paths"`
	JSONGraph Graph     `json:"jsonGraph"`
}

// Clone returns a structural copy of the envelope.
func (e Envelope) Clone() Envelope {
	return Envelope{
		Paths:     ClonePathSets(e.Paths),
		JSONGraph: e.JSONGraph.Clone(),
	}
}
