package simulator

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// AWSRouter routes AWS JSON-protocol requests based on the X-Amz-Target header.
// JSON services use POST with X-Amz-Target: ServiceName.ActionName.
type AWSRouter struct {
	handlers map[string]http.HandlerFunc
}

// NewAWSRouter creates a new AWS request router.
func NewAWSRouter() *AWSRouter {
	return &AWSRouter{
		handlers: make(map[string]http.HandlerFunc),
	}
}

// Register adds a handler for an X-Amz-Target value.
// Example target: "AmazonSQS.SendMessage"
func (r *AWSRouter) Register(target string, handler http.HandlerFunc) {
	r.handlers[target] = handler
}

// ServeHTTP dispatches to the handler matching the X-Amz-Target header.
func (r *AWSRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	target := req.Header.Get("X-Amz-Target")
	if target == "" {
		AWSError(w, "MissingAction", "X-Amz-Target header is required", http.StatusBadRequest)
		return
	}

	handler, ok := r.handlers[target]
	if !ok {
		AWSErrorf(w, "UnknownOperationException", http.StatusBadRequest,
			"Unknown operation: %s", target)
		return
	}

	handler(w, req)
}

// AWSQueryRouter routes AWS Query Protocol requests based on the Action form parameter.
// EC2 and STS use POST with form-encoded body containing Action=OperationName.
type AWSQueryRouter struct {
	handlers map[string]http.HandlerFunc
}

// NewAWSQueryRouter creates a new AWS Query Protocol request router.
func NewAWSQueryRouter() *AWSQueryRouter {
	return &AWSQueryRouter{
		handlers: make(map[string]http.HandlerFunc),
	}
}

// Register adds a handler for an Action value.
// Example action: "RunInstances", "GetCallerIdentity"
func (r *AWSQueryRouter) Register(action string, handler http.HandlerFunc) {
	r.handlers[action] = handler
}

// ServeHTTP dispatches to the handler matching the Action form parameter.
func (r *AWSQueryRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		EC2ErrorXML(w, "MalformedInput", "Could not parse form body", RequestID(req.Context()), http.StatusBadRequest)
		return
	}

	action := req.FormValue("Action")
	if action == "" {
		EC2ErrorXML(w, "MissingAction", "Action parameter is required", RequestID(req.Context()), http.StatusBadRequest)
		return
	}

	handler, ok := r.handlers[action]
	if !ok {
		EC2ErrorXML(w, "InvalidAction", "The action "+action+" is not valid", RequestID(req.Context()), http.StatusBadRequest)
		return
	}

	handler(w, req)
}

// ReadJSON reads and decodes a JSON request body into the given value.
func ReadJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}

// PathParam extracts a path parameter from the request using Go 1.22+ routing.
func PathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// IndexedValues collects query-protocol list members: prefix.1, prefix.2, ...
// until the first gap.
func IndexedValues(r *http.Request, prefix string) []string {
	var values []string
	for i := 1; ; i++ {
		v := r.FormValue(prefix + "." + strconv.Itoa(i))
		if v == "" {
			return values
		}
		values = append(values, v)
	}
}

// QueryFilter is one Filter.N entry of a query-protocol Describe call.
type QueryFilter struct {
	Name   string
	Values []string
}

// ParseFilters collects Filter.N.Name / Filter.N.Value.M parameters.
func ParseFilters(r *http.Request) []QueryFilter {
	var filters []QueryFilter
	for i := 1; ; i++ {
		prefix := "Filter." + strconv.Itoa(i)
		name := r.FormValue(prefix + ".Name")
		if name == "" {
			return filters
		}
		filters = append(filters, QueryFilter{
			Name:   name,
			Values: IndexedValues(r, prefix+".Value"),
		})
	}
}

// MatchWildcard reports whether s matches an EC2 filter pattern, where
// '*' matches any run of characters and '?' matches exactly one.
func MatchWildcard(pattern, s string) bool {
	if !strings.ContainsAny(pattern, "*?") {
		return pattern == s
	}
	p, str := 0, 0
	star, mark := -1, 0
	for str < len(s) {
		switch {
		case p < len(pattern) && pattern[p] == '*':
			star = p
			mark = str
			p++
		case p < len(pattern) && (pattern[p] == '?' || pattern[p] == s[str]):
			p++
			str++
		case star != -1:
			p = star + 1
			mark++
			str = mark
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}
