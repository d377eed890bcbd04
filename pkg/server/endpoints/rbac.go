package endpoints

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/doodlesbykumbi/saasgate/pkg/audit"
	"github.com/doodlesbykumbi/saasgate/pkg/identity"
	"github.com/doodlesbykumbi/saasgate/pkg/model"
	"github.com/doodlesbykumbi/saasgate/pkg/permission"
	"github.com/doodlesbykumbi/saasgate/pkg/server"
	"github.com/doodlesbykumbi/saasgate/pkg/server/store"
)

// RoleCreateRequest creates a role, optionally with permissions.
type RoleCreateRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description *string  `json:"description"`
	Permissions []string `json:"permissions"`
}

// RoleUpdateRequest changes a role. A non-null permissions list replaces
// the role's permission set.
type RoleUpdateRequest struct {
	Name        *string   `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string   `json:"description"`
	Permissions *[]string `json:"permissions"`
}

// PermissionCreateRequest persists a registry entry.
type PermissionCreateRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
}

// RegisterRBACEndpoints registers /api/v1/rbac. Every route requires
// rbac:manage.
func RegisterRBACEndpoints(s *server.Server) {
	roles := s.RolesStore
	permissions := s.PermissionsStore
	users := s.UsersStore
	auditLogger := s.Audit
	listMax := s.Config.APIListLimitMax
	logger := s.Logger

	rbacRouter := s.Router.PathPrefix("/api/v1/rbac").Subrouter()
	rbacRouter.Use(s.Authenticator.Middleware)
	rbacRouter.Use(s.Authorizer.Require(permission.RBACManage))

	createRole := handleCreateRole(roles, permissions, auditLogger, logger)
	rbacRouter.HandleFunc("/roles", createRole).Methods("POST")
	rbacRouter.HandleFunc("/roles/", createRole).Methods("POST")
	listRoles := handleListRoles(roles, listMax, logger)
	rbacRouter.HandleFunc("/roles", listRoles).Methods("GET")
	rbacRouter.HandleFunc("/roles/", listRoles).Methods("GET")
	rbacRouter.HandleFunc("/roles/{role_id:[0-9]+}", handleReadRole(roles, logger)).Methods("GET")
	rbacRouter.HandleFunc("/roles/{role_id:[0-9]+}", handleUpdateRole(roles, permissions, auditLogger, logger)).Methods("PATCH")
	rbacRouter.HandleFunc("/roles/{role_id:[0-9]+}", handleDeleteRole(roles, auditLogger, logger)).Methods("DELETE")

	createPermission := handleCreatePermission(permissions, auditLogger, logger)
	rbacRouter.HandleFunc("/permissions", createPermission).Methods("POST")
	rbacRouter.HandleFunc("/permissions/", createPermission).Methods("POST")
	listPermissions := handleListPermissions(permissions, listMax, logger)
	rbacRouter.HandleFunc("/permissions", listPermissions).Methods("GET")
	rbacRouter.HandleFunc("/permissions/", listPermissions).Methods("GET")

	rbacRouter.HandleFunc(
		"/roles/{role_id:[0-9]+}/permissions/{permission_id:[0-9]+}",
		handleGrantPermission(roles, permissions, auditLogger, logger),
	).Methods("POST")
	rbacRouter.HandleFunc(
		"/roles/{role_id:[0-9]+}/permissions/{permission_id:[0-9]+}",
		handleRevokePermission(roles, permissions, auditLogger, logger),
	).Methods("DELETE")

	rbacRouter.HandleFunc(
		"/users/{user_id:[0-9]+}/roles/{role_id:[0-9]+}",
		handleAssignRole(users, roles, auditLogger, logger),
	).Methods("POST")
	rbacRouter.HandleFunc(
		"/users/{user_id:[0-9]+}/roles/{role_id:[0-9]+}",
		handleUnassignRole(users, roles, auditLogger, logger),
	).Methods("DELETE")
}

// recordRBAC emits the audit event for an RBAC mutation.
func recordRBAC(auditLogger *audit.Logger, r *http.Request, op, target string, err error) {
	event := audit.RBACEvent{
		ClientIP:  clientIP(r),
		Operation: op,
		Target:    target,
		Success:   err == nil,
	}
	if id, ok := identity.Get(r.Context()); ok {
		event.User = id.Email()
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	auditLogger.Log(event)
}

func fetchRole(w http.ResponseWriter, r *http.Request, roles store.RolesStore, logger *slog.Logger) (*model.Role, bool) {
	roleID, err := pathID(r, "role_id")
	if err != nil {
		writeError(w, r, logger, err)
		return nil, false
	}
	role, err := roles.FetchRole(r.Context(), roleID)
	if errors.Is(err, store.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Role not found")
		return nil, false
	}
	if err != nil {
		writeError(w, r, logger, err)
		return nil, false
	}
	return role, true
}

func fetchPermission(w http.ResponseWriter, r *http.Request, permissions store.PermissionsStore, logger *slog.Logger) (*model.Permission, bool) {
	permID, err := pathID(r, "permission_id")
	if err != nil {
		writeError(w, r, logger, err)
		return nil, false
	}
	perm, err := permissions.FetchPermission(r.Context(), permID)
	if errors.Is(err, store.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Permission not found")
		return nil, false
	}
	if err != nil {
		writeError(w, r, logger, err)
		return nil, false
	}
	return perm, true
}

// resolvePermissions validates names against the registry and returns the
// persisted rows, creating any that are missing.
func resolvePermissions(r *http.Request, permissions store.PermissionsStore, names []string) ([]model.Permission, error) {
	if err := permission.Validate(names); err != nil {
		return nil, err
	}
	return permissions.EnsurePermissions(r.Context(), names)
}

func handleCreateRole(roles store.RolesStore, permissions store.PermissionsStore, auditLogger *audit.Logger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RoleCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}

		_, err := roles.FetchRoleByName(r.Context(), req.Name)
		if err == nil {
			respondWithError(w, http.StatusConflict, "Role with this name already exists")
			return
		}
		if !errors.Is(err, store.ErrNotFound) {
			writeError(w, r, logger, err)
			return
		}

		perms, err := resolvePermissions(r, permissions, req.Permissions)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}

		role := &model.Role{Name: req.Name, Permissions: perms}
		if req.Description != nil {
			role.Description = *req.Description
		}
		err = roles.CreateRole(r.Context(), role)
		recordRBAC(auditLogger, r, audit.OpCreateRole, req.Name, err)
		if errors.Is(err, store.ErrConflict) {
			respondWithError(w, http.StatusConflict, "Role with this name already exists")
			return
		}
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondWithJSON(w, http.StatusCreated, roleView(role))
	}
}

func handleListRoles(roles store.RolesStore, listMax int, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skip, limit, err := pagination(r, listMax)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		list, err := roles.ListRoles(r.Context(), skip, limit)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, roleViews(list))
	}
}

func handleReadRole(roles store.RolesStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role, ok := fetchRole(w, r, roles, logger)
		if !ok {
			return
		}
		respondWithJSON(w, http.StatusOK, roleView(role))
	}
}

func handleUpdateRole(roles store.RolesStore, permissions store.PermissionsStore, auditLogger *audit.Logger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RoleUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		role, ok := fetchRole(w, r, roles, logger)
		if !ok {
			return
		}

		if req.Name != nil && *req.Name != role.Name {
			existing, err := roles.FetchRoleByName(r.Context(), *req.Name)
			switch {
			case err == nil && existing.ID != role.ID:
				respondWithError(w, http.StatusConflict, "Role name already in use")
				return
			case err != nil && !errors.Is(err, store.ErrNotFound):
				writeError(w, r, logger, err)
				return
			}
			role.Name = *req.Name
		}
		if req.Description != nil {
			role.Description = *req.Description
		}

		var perms []model.Permission
		if req.Permissions != nil {
			var err error
			perms, err = resolvePermissions(r, permissions, *req.Permissions)
			if err != nil {
				writeError(w, r, logger, err)
				return
			}
		}

		err := roles.UpdateRole(r.Context(), role, perms)
		recordRBAC(auditLogger, r, audit.OpUpdateRole, fmt.Sprintf("role:%d", role.ID), err)
		switch {
		case errors.Is(err, store.ErrConflict):
			respondWithError(w, http.StatusConflict, "Role name already in use")
			return
		case errors.Is(err, store.ErrNotFound):
			respondWithError(w, http.StatusNotFound, "Role not found")
			return
		case err != nil:
			writeError(w, r, logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, roleView(role))
	}
}

func handleDeleteRole(roles store.RolesStore, auditLogger *audit.Logger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roleID, err := pathID(r, "role_id")
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		err = roles.DeleteRole(r.Context(), roleID)
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Role not found")
			return
		}
		recordRBAC(auditLogger, r, audit.OpDeleteRole, fmt.Sprintf("role:%d", roleID), err)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondNoContent(w)
	}
}

func handleCreatePermission(permissions store.PermissionsStore, auditLogger *audit.Logger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PermissionCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		desc, ok := permission.Describe(req.Name)
		if !ok {
			writeError(w, r, logger, &permission.UnknownError{Value: req.Name})
			return
		}
		if req.Description != nil {
			desc = *req.Description
		}

		perm := &model.Permission{Name: req.Name, Description: desc}
		err := permissions.CreatePermission(r.Context(), perm)
		recordRBAC(auditLogger, r, audit.OpCreatePermission, req.Name, err)
		if errors.Is(err, store.ErrConflict) {
			respondWithError(w, http.StatusConflict, "Permission with this name already exists")
			return
		}
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondWithJSON(w, http.StatusCreated, permissionView(*perm))
	}
}

func handleListPermissions(permissions store.PermissionsStore, listMax int, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skip, limit, err := pagination(r, listMax)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		perms, err := permissions.ListPermissions(r.Context(), skip, limit)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, permissionViews(perms))
	}
}

func handleGrantPermission(roles store.RolesStore, permissions store.PermissionsStore, auditLogger *audit.Logger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role, ok := fetchRole(w, r, roles, logger)
		if !ok {
			return
		}
		perm, ok := fetchPermission(w, r, permissions, logger)
		if !ok {
			return
		}
		err := roles.AddRolePermission(r.Context(), role.ID, perm.ID)
		recordRBAC(auditLogger, r, audit.OpGrantPermission, fmt.Sprintf("role:%d permission:%s", role.ID, perm.Name), err)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		role, err = roles.FetchRole(r.Context(), role.ID)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, roleView(role))
	}
}

func handleRevokePermission(roles store.RolesStore, permissions store.PermissionsStore, auditLogger *audit.Logger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role, ok := fetchRole(w, r, roles, logger)
		if !ok {
			return
		}
		perm, ok := fetchPermission(w, r, permissions, logger)
		if !ok {
			return
		}
		err := roles.RemoveRolePermission(r.Context(), role.ID, perm.ID)
		recordRBAC(auditLogger, r, audit.OpRevokePermission, fmt.Sprintf("role:%d permission:%s", role.ID, perm.Name), err)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondNoContent(w)
	}
}

// userRole loads both ends of a user-role assignment.
func userRole(w http.ResponseWriter, r *http.Request, users store.UsersStore, roles store.RolesStore, logger *slog.Logger) (*model.User, *model.Role, bool) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		writeError(w, r, logger, err)
		return nil, nil, false
	}
	user, ok := fetchUser(w, r, users, userID, logger)
	if !ok {
		return nil, nil, false
	}
	role, ok := fetchRole(w, r, roles, logger)
	if !ok {
		return nil, nil, false
	}
	return user, role, true
}

func handleAssignRole(users store.UsersStore, roles store.RolesStore, auditLogger *audit.Logger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, role, ok := userRole(w, r, users, roles, logger)
		if !ok {
			return
		}
		err := roles.AddUserRole(r.Context(), user.ID, role.ID)
		recordRBAC(auditLogger, r, audit.OpAssignRole, fmt.Sprintf("user:%s role:%s", user.Email, role.Name), err)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, roleView(role))
	}
}

func handleUnassignRole(users store.UsersStore, roles store.RolesStore, auditLogger *audit.Logger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, role, ok := userRole(w, r, users, roles, logger)
		if !ok {
			return
		}
		err := roles.RemoveUserRole(r.Context(), user.ID, role.ID)
		recordRBAC(auditLogger, r, audit.OpUnassignRole, fmt.Sprintf("user:%s role:%s", user.Email, role.Name), err)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondNoContent(w)
	}
}
