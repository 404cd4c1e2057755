package api

import (
	"net/http"

	"github.com/platinummonkey/critique/pkg/enrollment"
	"github.com/platinummonkey/critique/pkg/httputil"
)

// signup handles POST /auth/signup. The confirmation code goes out by mail only.
func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req enrollment.SignupRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	resp, err := s.services.Enrollment.RequestCode(r.Context(), req)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, resp)
}

// token handles POST /auth/token
func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	var req enrollment.TokenRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	resp, err := s.services.Enrollment.ExchangeCode(r.Context(), req)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, resp)
}
