// Package restapi serves a data source over HTTP, speaking the JSON Graph "model.json" protocol.
package restapi

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// HTTPVerb enumerates supported HTTP operations.
type HTTPVerb int

const (
	// Unknown represents an unspecified HTTP verb.
	Unknown HTTPVerb = iota
	// GET retrieves resources.
	GET
	// POST creates resources or invokes operations.
	POST
	// PUT replaces resources.
	PUT
	// DELETE removes resources.
	DELETE
)

// RestMethod describes a REST route handler.
type RestMethod struct {
	Verb    HTTPVerb
	Path    string
	Handler gin.HandlerFunc
}

// Registry holds the REST methods to mount on a router group.
type Registry struct {
	methods map[string]RestMethod
	order   []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{methods: make(map[string]RestMethod)}
}

// RegisterMethod builds a RestMethod and registers it using Register.
func (r *Registry) RegisterMethod(verb HTTPVerb, path string, h gin.HandlerFunc) error {
	return r.Register(RestMethod{
		Verb:    verb,
		Path:    path,
		Handler: h,
	})
}

// Register inserts a RestMethod into the registry preventing duplicates.
func (r *Registry) Register(m RestMethod) error {
	key := fmt.Sprintf("%d_%s", m.Verb, m.Path)
	if _, exists := r.methods[key]; exists {
		return fmt.Errorf("can't add %s, an existing handler in REST method map exists", key)
	}
	r.methods[key] = m
	r.order = append(r.order, key)
	return nil
}

// RestMethods returns the registered methods in registration order.
func (r *Registry) RestMethods() []RestMethod {
	ms := make([]RestMethod, len(r.order))
	for i, k := range r.order {
		ms[i] = r.methods[k]
	}
	return ms
}

// Mount adds every registered method to group, each handler wrapped by wrap (when not nil).
func (r *Registry) Mount(group *gin.RouterGroup, wrap func(gin.HandlerFunc) gin.HandlerFunc) error {
	for _, rm := range r.RestMethods() {
		h := rm.Handler
		if wrap != nil {
			h = wrap(h)
		}
		switch rm.Verb {
		case GET:
			group.GET(rm.Path, h)
		case POST:
			group.POST(rm.Path, h)
		case PUT:
			group.PUT(rm.Path, h)
		case DELETE:
			group.DELETE(rm.Path, h)
		default:
			return fmt.Errorf("HTTP verb %d not supported", rm.Verb)
		}
	}
	return nil
}
