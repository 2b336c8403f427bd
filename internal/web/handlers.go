package web

import (
	"errors"
	"io/fs"
	"net/http"
	"strings"

	"github.com/goodtune/timeleak/internal/lookup"
)

// contentPages maps a route slug to its markdown file and heading.
var contentPages = map[string]struct {
	file    string
	heading string
	tagline bool
}{
	"about":    {file: "about.md", heading: "About Timeleak", tagline: true},
	"wellness": {file: "wellness.md", heading: "Digital Wellness", tagline: true},
}

func (s *Server) page(title, nav string) PageData {
	return PageData{
		Title:      title,
		Version:    s.config.Version,
		Nav:        nav,
		TrackingID: s.config.TrackingID,
	}
}

// handleIndex handles GET / and renders the lookup form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderer.renderPage(w, http.StatusOK, "index", IndexPageData{
		PageData: s.page("Screen Time Lookup", "home"),
		Country:  s.config.DefaultCountryCode,
	})
}

// handleLookup handles GET /lookup and renders the results for one number.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	phone := strings.TrimSpace(r.URL.Query().Get("phone"))
	country := s.countryCode(r)

	data := IndexPageData{
		PageData: s.page("Screen Time Lookup", "home"),
		Phone:    phone,
		Country:  country,
	}

	if phone == "" {
		data.Message = "Please enter a phone number."
		s.renderer.renderPage(w, http.StatusBadRequest, "index", data)
		return
	}

	agg, err := s.lookup.Lookup(r.Context(), phone, country)
	if err != nil {
		data.Message = lookup.Message(err)
		s.renderer.renderPage(w, lookupStatus(err), "index", data)
		return
	}

	data.Title = "Screen Time Summary"
	data.Results = NewResultsView(agg, s.config.DefaultGoalMinutes, s.config.TopApps)
	s.renderer.renderPage(w, http.StatusOK, "index", data)
}

// handleContent serves the markdown-backed pages.
func (s *Server) handleContent(slug string) http.HandlerFunc {
	page := contentPages[slug]
	return func(w http.ResponseWriter, r *http.Request) {
		md, err := fs.ReadFile(s.content, page.file)
		if err != nil {
			s.logger.Error().Err(err).Str("file", page.file).Msg("Failed to read page content")
			s.renderError(w, http.StatusInternalServerError, "This page is unavailable right now.")
			return
		}

		data := ContentPageData{
			PageData: s.page(page.heading, slug),
			Heading:  page.heading,
			Body:     renderMarkdown(md),
		}
		if page.tagline {
			data.Tagline, _ = s.taglines.Pick(r.Context())
		}

		s.renderer.renderPage(w, http.StatusOK, "content", data)
	}
}

// handleAPIScreenTime handles GET /api/v1/screentime.
func (s *Server) handleAPIScreenTime(w http.ResponseWriter, r *http.Request) {
	phone := strings.TrimSpace(r.URL.Query().Get("phone"))
	if phone == "" {
		writeLookupError(w, http.StatusBadRequest, lookup.CodeInvalidPhoneNumber, "phone is required")
		return
	}

	agg, err := s.lookup.Lookup(r.Context(), phone, s.countryCode(r))
	if err != nil {
		writeLookupError(w, lookupStatus(err), lookup.CodeOf(err), lookup.Message(err))
		return
	}

	WriteJSON(w, http.StatusOK, NewScreenTimeResponse(agg, s.config.DefaultGoalMinutes))
}

// handleAPITagline handles GET /api/v1/tagline.
func (s *Server) handleAPITagline(w http.ResponseWriter, r *http.Request) {
	text, source := s.taglines.Pick(r.Context())
	WriteJSON(w, http.StatusOK, map[string]string{
		"tagline": text,
		"source":  source,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": s.config.Version,
	})
}

// handleNotFound answers unknown API paths with JSON and everything else with
// the error page.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		WriteError(w, http.StatusNotFound, "Resource not found")
		return
	}
	s.renderError(w, http.StatusNotFound, "The page you were looking for does not exist.")
}

func (s *Server) renderError(w http.ResponseWriter, status int, message string) {
	s.renderer.renderPage(w, status, "error", ErrorPageData{
		PageData:   s.page(http.StatusText(status), ""),
		StatusCode: status,
		Message:    message,
	})
}

// countryCode returns the request's country override or the configured default.
func (s *Server) countryCode(r *http.Request) string {
	country := strings.TrimPrefix(strings.TrimSpace(r.URL.Query().Get("country")), "+")
	if country == "" {
		return s.config.DefaultCountryCode
	}
	return country
}

// lookupStatus maps a lookup failure to an HTTP status.
func lookupStatus(err error) int {
	switch {
	case errors.Is(err, lookup.ErrInvalidPhoneNumber):
		return http.StatusBadRequest
	case errors.Is(err, lookup.ErrNoDataFound):
		return http.StatusNotFound
	}
	return http.StatusServiceUnavailable
}

func writeLookupError(w http.ResponseWriter, status int, code lookup.Code, message string) {
	WriteJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
		Reason:  string(code),
	})
}
