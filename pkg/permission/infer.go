package permission

import (
	"net/http"
	"strings"
)

var methodActions = map[string]string{
	http.MethodGet:    ActionRead,
	http.MethodPost:   ActionCreate,
	http.MethodPatch:  ActionUpdate,
	http.MethodPut:    ActionUpdate,
	http.MethodDelete: ActionDelete,
}

// Infer derives a permission from an HTTP method and a request path.
//
// The path is trimmed of surrounding slashes and split on "/". The resource
// is the third segment, so "/api/v1/profiles/42" names "profiles". It
// returns false when the path is too short or the method has no action.
// The result is not checked against the registry.
func Infer(method, path string) (string, bool) {
	action, ok := methodActions[strings.ToUpper(method)]
	if !ok {
		return "", false
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 3 || segments[2] == "" {
		return "", false
	}
	return Name(segments[2], action), true
}
