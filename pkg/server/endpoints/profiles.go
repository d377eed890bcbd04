package endpoints

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/doodlesbykumbi/saasgate/pkg/authn"
	"github.com/doodlesbykumbi/saasgate/pkg/identity"
	"github.com/doodlesbykumbi/saasgate/pkg/model"
	"github.com/doodlesbykumbi/saasgate/pkg/permission"
	"github.com/doodlesbykumbi/saasgate/pkg/server"
	"github.com/doodlesbykumbi/saasgate/pkg/server/middleware"
	"github.com/doodlesbykumbi/saasgate/pkg/server/store"
)

// SelfUpdateRequest is what a user may change about their own account.
// Any other field in the body is ignored.
type SelfUpdateRequest struct {
	Email    *string `json:"email" validate:"omitempty,email,max=320"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
}

// RegisterProfilesEndpoints registers /api/v1/profiles.
func RegisterProfilesEndpoints(s *server.Server) {
	usersStore := s.UsersStore
	accounts := s.Accounts
	authz := s.Authorizer
	listMax := s.Config.APIListLimitMax
	logger := s.Logger

	profilesRouter := s.Router.PathPrefix("/api/v1/profiles").Subrouter()
	profilesRouter.Use(s.Authenticator.Middleware)

	profilesRouter.HandleFunc("/me", handleReadMe()).Methods("GET")
	profilesRouter.HandleFunc("/me", handleUpdateMe(accounts, logger)).Methods("PATCH")

	list := authz.Require(permission.UsersRead)(handleListUsers(usersStore, listMax, logger))
	profilesRouter.Handle("", list).Methods("GET")
	profilesRouter.Handle("/", list).Methods("GET")

	profilesRouter.HandleFunc("/{user_id:[0-9]+}", handleReadProfile(usersStore, logger)).Methods("GET")
	profilesRouter.Handle(
		"/{user_id:[0-9]+}/permissions",
		authz.Require(permission.UsersRead)(handleUserPermissions(usersStore, logger)),
	).Methods("GET")
}

func handleReadMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		respondWithJSON(w, http.StatusOK, userView(id.User))
	}
}

func handleUpdateMe(accounts *authn.Manager, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelfUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		id, _ := identity.Get(r.Context())
		user, err := accounts.UpdateUser(r.Context(), id.User, authn.UserUpdate{
			Email:    req.Email,
			Password: req.Password,
		}, true)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, userView(user))
	}
}

func handleListUsers(usersStore store.UsersStore, listMax int, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skip, limit, err := pagination(r, listMax)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		users, err := usersStore.ListUsers(r.Context(), skip, limit)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, userViews(users))
	}
}

// handleReadProfile lets a user read their own profile; reading anyone
// else's needs users:read.
func handleReadProfile(usersStore store.UsersStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathID(r, "user_id")
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		id, _ := identity.Get(r.Context())
		if id.UserID() != userID && middleware.Check(id, permission.UsersRead) != nil {
			respondWithError(w, http.StatusForbidden, "Not authorized to access this user's data")
			return
		}

		user, ok := fetchUser(w, r, usersStore, userID, logger)
		if !ok {
			return
		}
		respondWithJSON(w, http.StatusOK, userView(user))
	}
}

func handleUserPermissions(usersStore store.UsersStore, logger *slog.Logger) http.HandlerFunc {
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
		respondWithJSON(w, http.StatusOK, user.EffectivePermissions().Sorted())
	}
}

func fetchUser(w http.ResponseWriter, r *http.Request, usersStore store.UsersStore, id uint, logger *slog.Logger) (*model.User, bool) {
	user, err := usersStore.FetchUser(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "User not found")
		return nil, false
	}
	if err != nil {
		writeError(w, r, logger, err)
		return nil, false
	}
	return user, true
}
