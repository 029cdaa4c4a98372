package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sharedcode/graphkv"
	"github.com/sharedcode/graphkv/datasource"
	"github.com/sharedcode/graphkv/pathset"
)

// ModelPath is the route of the JSON Graph endpoint.
const ModelPath = "/model.json"

// ModelHandler serves get, set and call requests against a data source.
type ModelHandler struct {
	ds       *datasource.DataSource
	maxPaths int
}

// NewModelHandler returns a ModelHandler over ds. Requests addressing more than maxPaths concrete
// paths are rejected, maxPaths <= 0 means graphkv.DefaultMaxPaths.
func NewModelHandler(ds *datasource.DataSource, maxPaths int) *ModelHandler {
	if maxPaths <= 0 {
		maxPaths = graphkv.DefaultMaxPaths
	}
	return &ModelHandler{ds: ds, maxPaths: maxPaths}
}

// Register adds the model.json routes to the registry.
func (h *ModelHandler) Register(r *Registry) error {
	if err := r.RegisterMethod(GET, ModelPath, h.GetModel); err != nil {
		return err
	}
	return r.RegisterMethod(POST, ModelPath, h.PostModel)
}

// GetModel godoc
// @Summary GetModel reads the values addressed by path-sets.
// @Schemes
// @Description GetModel responds with a JSON Graph envelope holding every value found at the requested paths.
// @Tags Model
// @Produce json
// @Param			method	query		string		false	"Operation, only get is allowed"	default(get)
// @Param			paths	query		string		true	"JSON array of path-sets, e.g. [[\"byId\",[0,1],\"name\"]]"
// @Failure 400 {object} map[string]any
// @Failure 500 {object} graphkv.ErrorMarker
// @Success 200 {object} graphkv.Envelope
// @Router /model.json [get]
// @Security Bearer
func (h *ModelHandler) GetModel(c *gin.Context) {
	if m := c.DefaultQuery("method", "get"); m != "get" {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("method %q not allowed on GET, use POST", m)})
		return
	}
	raw := c.Query("paths")
	if raw == "" {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "paths parameter is required"})
		return
	}
	pss, err := graphkv.ParsePathSets([]byte(raw))
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if !h.withinLimit(c, pss) {
		return
	}
	ctx := c.Request.Context()
	env, err := h.ds.Get(ctx, pss).Wait(ctx)
	respond(c, env, err)
}

// PostModel godoc
// @Summary PostModel writes values (method=set) or invokes a function (method=call).
// @Schemes
// @Description PostModel with method=set persists the jsonGraph envelope and responds with it, failed keys
// @Description replaced by write_fail error markers. method=call is not supported.
// @Tags Model
// @Accept x-www-form-urlencoded
// @Produce json
// @Param			method		formData	string	true	"set or call"
// @Param			jsonGraph	formData	string	false	"JSON envelope {\"jsonGraph\":{...},\"paths\":[...]}, for set"
// @Param			callPath	formData	string	false	"JSON path of the function, for call"
// @Param			arguments	formData	string	false	"JSON array of arguments, for call"
// @Failure 400 {object} map[string]any
// @Failure 501 {object} graphkv.ErrorMarker
// @Success 200 {object} graphkv.Envelope
// @Router /model.json [post]
// @Security Bearer
func (h *ModelHandler) PostModel(c *gin.Context) {
	ctx := c.Request.Context()
	switch m := c.PostForm("method"); m {
	case "set":
		var env graphkv.Envelope
		if err := json.Unmarshal([]byte(c.PostForm("jsonGraph")), &env); err != nil {
			c.IndentedJSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("invalid jsonGraph: %v", err)})
			return
		}
		if !h.withinLimit(c, env.Paths) {
			return
		}
		r, err := h.ds.Set(ctx, env).Wait(ctx)
		respond(c, r, err)
	case "call":
		callPath, err := parsePath(c.PostForm("callPath"))
		if err != nil {
			c.IndentedJSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("invalid callPath: %v", err)})
			return
		}
		var args []any
		if raw := c.PostForm("arguments"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				c.IndentedJSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("invalid arguments: %v", err)})
				return
			}
		}
		r, err := h.ds.Call(ctx, callPath, args...).Wait(ctx)
		respond(c, r, err)
	default:
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("unsupported method %q", m)})
	}
}

// withinLimit responds 400 when pss address more than maxPaths concrete paths.
func (h *ModelHandler) withinLimit(c *gin.Context, pss []graphkv.PathSet) bool {
	if n := pathset.Count(pss); n > h.maxPaths {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("paths address too many values, limit is %d", h.maxPaths)})
		return false
	}
	return true
}

// parsePath decodes a JSON array of keys, e.g. ["lists","add"].
func parsePath(raw string) (graphkv.Path, error) {
	var ps graphkv.PathSet
	if err := json.Unmarshal([]byte(raw), &ps); err != nil {
		return nil, err
	}
	p := make(graphkv.Path, len(ps))
	for i, ks := range ps {
		k, ok := ks.(graphkv.Key)
		if !ok {
			return nil, fmt.Errorf("depth %d is not a single key", i)
		}
		p[i] = k
	}
	return p, nil
}

func respond(c *gin.Context, env graphkv.Envelope, err error) {
	if err == nil {
		c.JSON(http.StatusOK, env)
		return
	}
	var ge graphkv.Error
	if !errors.As(err, &ge) {
		log.Error("model request failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	status := http.StatusInternalServerError
	if ge.Status == graphkv.Unsupported {
		status = http.StatusNotImplemented
	}
	c.JSON(status, ge.Marker())
}
