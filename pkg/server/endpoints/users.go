package endpoints

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/doodlesbykumbi/saasgate/pkg/authn"
	"github.com/doodlesbykumbi/saasgate/pkg/server"
	"github.com/doodlesbykumbi/saasgate/pkg/server/store"
)

// UserUpdateRequest is an administrative update. Nil fields are left alone.
type UserUpdateRequest struct {
	Email       *string `json:"email" validate:"omitempty,email,max=320"`
	Password    *string `json:"password" validate:"omitempty,min=8,max=72"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
	IsVerified  *bool   `json:"is_verified"`
}

// RegisterUsersEndpoints registers /api/v1/users. The /{user_id} routes
// are guarded by the permission inferred from method and path: users:read,
// users:update and users:delete.
func RegisterUsersEndpoints(s *server.Server) {
	usersStore := s.UsersStore
	accounts := s.Accounts
	logger := s.Logger

	usersRouter := s.Router.PathPrefix("/api/v1/users").Subrouter()
	usersRouter.Use(s.Authenticator.Middleware)

	usersRouter.HandleFunc("/me", handleReadMe()).Methods("GET")
	usersRouter.HandleFunc("/me", handleUpdateMe(accounts, logger)).Methods("PATCH")

	byID := usersRouter.PathPrefix("/{user_id:[0-9]+}").Subrouter()
	byID.Use(s.Authorizer.Auto(""))
	byID.HandleFunc("", handleReadUser(usersStore, logger)).Methods("GET")
	byID.HandleFunc("", handleUpdateUser(usersStore, accounts, logger)).Methods("PATCH")
	byID.HandleFunc("", handleDeleteUser(usersStore, logger)).Methods("DELETE")
}

func handleReadUser(usersStore store.UsersStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathID(r, "user_id")
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		user, ok := fetchUser(w, r, usersStore, userID, logger)
		if !ok {
			return
		}
		respondWithJSON(w, http.StatusOK, userView(user))
	}
}

func handleUpdateUser(usersStore store.UsersStore, accounts *authn.Manager, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathID(r, "user_id")
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		var req UserUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		user, ok := fetchUser(w, r, usersStore, userID, logger)
		if !ok {
			return
		}
		user, err = accounts.UpdateUser(r.Context(), user, authn.UserUpdate{
			Email:       req.Email,
			Password:    req.Password,
			IsActive:    req.IsActive,
			IsSuperuser: req.IsSuperuser,
			IsVerified:  req.IsVerified,
		}, false)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, userView(user))
	}
}

func handleDeleteUser(usersStore store.UsersStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathID(r, "user_id")
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		err = usersStore.DeleteUser(r.Context(), userID)
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondNoContent(w)
	}
}
