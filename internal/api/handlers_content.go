package api

import (
	"net/http"

	"divorce-wizard/internal/content"
	"divorce-wizard/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *Server) submitContact(w http.ResponseWriter, r *http.Request) {
	var req models.ContactRequest
	if err := decodeJSON(r, s.config.MaxBodyBytes, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Locale == "" {
		req.Locale = s.config.Locale
	}
	result, err := s.deps.Contact.Submit(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"autoReplySent": result.AutoReplySent,
	})
}

func (s *Server) latestPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.deps.Blog.Latest(r.Context(), queryInt(r, "limit", content.DefaultLatest))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.Blog.List(r.Context(), queryInt(r, "page", 1), queryInt(r, "pageSize", content.DefaultPageSize))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.deps.Blog.Post(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"post": post})
}

func (s *Server) searchPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	posts, err := s.deps.Blog.Search(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"query": q, "posts": posts})
}
