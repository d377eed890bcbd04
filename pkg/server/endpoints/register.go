package endpoints

import (
	"github.com/doodlesbykumbi/saasgate/pkg/server"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(srv *server.Server) {
	RegisterStatusEndpoints(srv)
	RegisterAuthEndpoints(srv)
	RegisterUsersEndpoints(srv)
	RegisterProfilesEndpoints(srv)
	RegisterRBACEndpoints(srv)
	RegisterPaymentsEndpoints(srv)
	RegisterAdminEndpoints(srv)
}
