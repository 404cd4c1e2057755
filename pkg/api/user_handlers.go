package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/critique/pkg/httputil"
	"github.com/platinummonkey/critique/pkg/middleware"
	"github.com/platinummonkey/critique/pkg/users"
)

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := httputil.ParsePage(r)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	list, err := s.services.Users.List(r.Context(), httputil.ParseQueryString(r, "search", ""), page)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, list)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var in users.UserInput
	if err := httputil.ParseJSON(r, &in); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	user, err := s.services.Users.Create(r.Context(), in)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteCreated(w, user)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.services.Users.Get(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, user)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var patch users.UserPatch
	if err := httputil.ParseJSON(r, &patch); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	user, err := s.services.Users.Update(r.Context(), mux.Vars(r)["username"], patch)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, user)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Users.Delete(r.Context(), mux.Vars(r)["username"]); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteNoContent(w)
}

// getProfile handles GET /users/me
func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.services.Users.GetProfile(r.Context(), middleware.Actor(r))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, user)
}

// updateProfile handles PATCH /users/me. A submitted role is ignored.
func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var patch users.UserPatch
	if err := httputil.ParseJSON(r, &patch); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	user, err := s.services.Users.UpdateProfile(r.Context(), middleware.Actor(r), patch)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, user)
}
