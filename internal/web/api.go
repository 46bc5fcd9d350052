package web

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"predicacal/internal/apperr"
	"predicacal/internal/schedule"
)

const maxJSONBody = 1 << 20

// decodeBody accepts either a JSON body or a classic HTML form post, so the
// API can be driven by fetch() or plain forms.
func decodeBody(r *http.Request, v any, form func(get func(string) string, list func(string) []string)) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
		if err := dec.Decode(v); err != nil {
			return apperr.Wrap(apperr.CodeInvalidArgument, err, "invalid JSON body")
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return apperr.Wrap(apperr.CodeInvalidArgument, err, "invalid form body")
	}
	form(r.PostForm.Get, func(k string) []string { return r.PostForm[k] })
	return nil
}

type locationInput struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	ls, err := s.svc.ListLocations(r.Context())
	if err != nil {
		writeAppError(w, err, "failed to list locations")
		return
	}
	writeJSON(w, http.StatusOK, ls)
}

func (s *Server) handleCreateLocation(w http.ResponseWriter, r *http.Request) {
	var in locationInput
	err := decodeBody(r, &in, func(get func(string) string, _ func(string) []string) {
		in.Name, in.URL = get("name"), get("url")
	})
	if err != nil {
		writeAppError(w, err, "invalid request")
		return
	}
	l, err := s.svc.CreateLocation(r.Context(), in.Name, in.URL)
	if err != nil {
		writeAppError(w, err, "failed to create location")
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) handleDeleteLocation(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteLocation(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeAppError(w, err, "failed to delete location")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type conductorInput struct {
	Name string `json:"name"`
}

func (s *Server) handleListConductors(w http.ResponseWriter, r *http.Request) {
	cs, err := s.svc.ListConductors(r.Context())
	if err != nil {
		writeAppError(w, err, "failed to list conductors")
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (s *Server) handleCreateConductor(w http.ResponseWriter, r *http.Request) {
	var in conductorInput
	err := decodeBody(r, &in, func(get func(string) string, _ func(string) []string) {
		in.Name = get("name")
	})
	if err != nil {
		writeAppError(w, err, "invalid request")
		return
	}
	c, err := s.svc.CreateConductor(r.Context(), in.Name)
	if err != nil {
		writeAppError(w, err, "failed to create conductor")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleDeleteConductor(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteConductor(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeAppError(w, err, "failed to delete conductor")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type territoryInput struct {
	Number int `json:"number"`
}

func (s *Server) handleListTerritories(w http.ResponseWriter, r *http.Request) {
	ts, err := s.svc.ListTerritories(r.Context())
	if err != nil {
		writeAppError(w, err, "failed to list territories")
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (s *Server) handleCreateTerritory(w http.ResponseWriter, r *http.Request) {
	var in territoryInput
	var formErr error
	err := decodeBody(r, &in, func(get func(string) string, _ func(string) []string) {
		in.Number, formErr = strconv.Atoi(strings.TrimSpace(get("number")))
	})
	if err == nil && formErr != nil {
		err = apperr.Wrap(apperr.CodeInvalidArgument, formErr, "territory number must be an integer")
	}
	if err != nil {
		writeAppError(w, err, "invalid request")
		return
	}
	t, err := s.svc.CreateTerritory(r.Context(), in.Number)
	if err != nil {
		writeAppError(w, err, "failed to create territory")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleDeleteTerritory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTerritory(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeAppError(w, err, "failed to delete territory")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	evs, err := s.svc.ListEvents(r.Context())
	if err != nil {
		writeAppError(w, err, "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, evs)
}

// handleCreateEvent accepts JSON or the HTML event form, where territories
// may also arrive as a comma separated "territories_list".
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in schedule.EventInput
	err := decodeBody(r, &in, func(get func(string) string, list func(string) []string) {
		in.Title = get("title")
		in.StartTime = get("start_time")
		in.LocationID = get("location_id")
		in.ConductorID = get("conductor_id")
		in.Recurrence = get("recurrence")
		in.TerritoryIDs = list("territory_ids")
		if v := get("territories_list"); v != "" {
			in.TerritoryIDs = append(in.TerritoryIDs, strings.Split(v, ",")...)
		}
	})
	if err != nil {
		writeAppError(w, err, "invalid request")
		return
	}
	rec, err := s.svc.CreateEvent(r.Context(), in)
	if err != nil {
		writeAppError(w, err, "failed to create event")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeAppError(w, err, "failed to delete event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
