package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/critique/pkg/catalog"
	"github.com/platinummonkey/critique/pkg/httputil"
)

func parseListParams(r *http.Request) (catalog.ListParams, error) {
	page, err := httputil.ParsePage(r)
	if err != nil {
		return catalog.ListParams{}, err
	}
	return catalog.ListParams{Search: httputil.ParseQueryString(r, "search", ""), Page: page}, nil
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	list, err := s.services.Catalog.ListCategories(r.Context(), params)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, list)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var in catalog.CategoryInput
	if err := httputil.ParseJSON(r, &in); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	category, err := s.services.Catalog.CreateCategory(r.Context(), in)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteCreated(w, category)
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Catalog.DeleteCategory(r.Context(), mux.Vars(r)["slug"]); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (s *Server) listGenres(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	list, err := s.services.Catalog.ListGenres(r.Context(), params)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, list)
}

func (s *Server) createGenre(w http.ResponseWriter, r *http.Request) {
	var in catalog.GenreInput
	if err := httputil.ParseJSON(r, &in); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	genre, err := s.services.Catalog.CreateGenre(r.Context(), in)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteCreated(w, genre)
}

func (s *Server) deleteGenre(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Catalog.DeleteGenre(r.Context(), mux.Vars(r)["slug"]); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteNoContent(w)
}

// listTitles accepts category, genre, name and year filters
func (s *Server) listTitles(w http.ResponseWriter, r *http.Request) {
	page, err := httputil.ParsePage(r)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	filter := catalog.TitleFilter{
		Category: httputil.ParseQueryString(r, "category", ""),
		Genre:    httputil.ParseQueryString(r, "genre", ""),
		Name:     httputil.ParseQueryString(r, "name", ""),
		Page:     page,
	}
	if r.URL.Query().Get("year") != "" {
		year, err := httputil.ParseQueryInt(r, "year", 0)
		if err != nil {
			httputil.WriteServiceError(w, r, err)
			return
		}
		filter.Year = &year
	}

	list, err := s.services.Catalog.ListTitles(r.Context(), filter)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, list)
}

func (s *Server) getTitle(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "title_id")
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	title, err := s.services.Catalog.GetTitle(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, title)
}

func (s *Server) createTitle(w http.ResponseWriter, r *http.Request) {
	var in catalog.TitleInput
	if err := httputil.ParseJSON(r, &in); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	title, err := s.services.Catalog.CreateTitle(r.Context(), in)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteCreated(w, title)
}

func (s *Server) updateTitle(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "title_id")
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	var patch catalog.TitlePatch
	if err := httputil.ParseJSON(r, &patch); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	title, err := s.services.Catalog.UpdateTitle(r.Context(), id, patch)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, title)
}

func (s *Server) deleteTitle(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "title_id")
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	if err := s.services.Catalog.DeleteTitle(r.Context(), id); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	httputil.WriteNoContent(w)
}
