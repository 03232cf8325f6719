package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/samber/mo"

	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/playlist"
)

func (s *Server) routes() {
	r := s.apiRouter

	r.HandleFunc("/is_alive", func(w http.ResponseWriter, _ *http.Request) {
		errorStatus(w, http.StatusOK)
	}).Methods("GET")

	// Queries
	r.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, statusFrom(s.svc.Snapshot()))
	}).Methods("GET")
	r.HandleFunc("/queue", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, queueFrom(s.svc.Snapshot()))
	}).Methods("GET")
	r.HandleFunc("/session", s.handleSession).Methods("GET")

	// Transport
	r.HandleFunc("/play", s.command(s.svc.Play)).Methods("POST")
	r.HandleFunc("/pause", s.command(s.svc.Pause)).Methods("POST")
	r.HandleFunc("/toggle", s.command(s.svc.TogglePlay)).Methods("POST")
	r.HandleFunc("/stop", s.command(s.svc.Stop)).Methods("POST")
	r.HandleFunc("/bookmark", s.command(s.svc.Bookmark)).Methods("POST")
	r.HandleFunc("/next", func(w http.ResponseWriter, r *http.Request) {
		s.svc.SkipNext(queryBool(r, "force"))
		errorStatus(w, http.StatusAccepted)
	}).Methods("POST")
	r.HandleFunc("/previous", func(w http.ResponseWriter, r *http.Request) {
		s.svc.SkipPrevious(queryBool(r, "force"))
		errorStatus(w, http.StatusAccepted)
	}).Methods("POST")
	r.HandleFunc("/seek/{ms:[0-9]+}", func(w http.ResponseWriter, r *http.Request) {
		ms, err := strconv.ParseInt(mux.Vars(r)["ms"], 10, 64)
		if err != nil {
			errorStatus(w, http.StatusBadRequest)
			return
		}
		s.svc.Seek(time.Duration(ms) * time.Millisecond)
		errorStatus(w, http.StatusAccepted)
	}).Methods("POST")
	r.HandleFunc("/seek_by/{ms:-?[0-9]+}", func(w http.ResponseWriter, r *http.Request) {
		ms, err := strconv.ParseInt(mux.Vars(r)["ms"], 10, 64)
		if err != nil {
			errorStatus(w, http.StatusBadRequest)
			return
		}
		s.svc.SeekBy(time.Duration(ms) * time.Millisecond)
		errorStatus(w, http.StatusAccepted)
	}).Methods("POST")
	r.HandleFunc("/rate/{rate}", func(w http.ResponseWriter, r *http.Request) {
		rate, err := strconv.ParseFloat(mux.Vars(r)["rate"], 64)
		if err != nil || rate <= 0 {
			errorStatus(w, http.StatusBadRequest)
			return
		}
		s.svc.SetRate(rate, queryBool(r, "persist"))
		errorStatus(w, http.StatusAccepted)
	}).Methods("POST")

	// Modes
	r.HandleFunc("/shuffle/{state:on|off}", func(w http.ResponseWriter, r *http.Request) {
		s.svc.SetShuffle(mux.Vars(r)["state"] == "on")
		errorStatus(w, http.StatusAccepted)
	}).Methods("POST")
	r.HandleFunc("/repeat/{mode:none|one|all}", func(w http.ResponseWriter, r *http.Request) {
		mode, ok := parseRepeat(mux.Vars(r)["mode"])
		if !ok {
			errorStatus(w, http.StatusBadRequest)
			return
		}
		s.svc.SetRepeatMode(mode)
		errorStatus(w, http.StatusAccepted)
	}).Methods("POST")
	r.HandleFunc("/carmode/{state:on|off}", func(w http.ResponseWriter, r *http.Request) {
		s.svc.SetCarMode(mux.Vars(r)["state"] == "on")
		errorStatus(w, http.StatusAccepted)
	}).Methods("POST")
	r.HandleFunc("/headset/{state:plugged|unplugged}", func(w http.ResponseWriter, r *http.Request) {
		s.svc.HeadsetChanged(mux.Vars(r)["state"] == "plugged")
		errorStatus(w, http.StatusAccepted)
	}).Methods("POST")

	// Queue edits
	r.HandleFunc("/queue/load", s.handleLoad).Methods("POST")
	r.HandleFunc("/queue/append", s.handleAppend).Methods("POST")
	r.HandleFunc("/queue/next", s.handleInsertNext).Methods("POST")
	r.HandleFunc("/queue/play/{index:[0-9]+}", s.indexCommand(s.svc.PlayIndex)).Methods("POST")
	r.HandleFunc("/queue/{index:[0-9]+}", s.indexCommand(s.svc.RemoveAt)).Methods("DELETE")
	r.HandleFunc("/queue/move/{from:[0-9]+}/{to:[0-9]+}", func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		from, err1 := strconv.Atoi(vars["from"])
		to, err2 := strconv.Atoi(vars["to"])
		if err1 != nil || err2 != nil {
			errorStatus(w, http.StatusBadRequest)
			return
		}
		s.svc.MoveItem(from, to)
		errorStatus(w, http.StatusAccepted)
	}).Methods("POST")

	// Library
	r.HandleFunc("/browse", s.handleBrowse).Methods("GET")
	r.HandleFunc("/search", s.handleSearch).Methods("GET")

	// Sleep timer
	r.HandleFunc("/sleep", s.handleSleepStatus).Methods("GET")
	r.HandleFunc("/sleep", s.handleSleepSet).Methods("PUT")
	r.HandleFunc("/sleep", func(w http.ResponseWriter, _ *http.Request) {
		if s.sleep == nil {
			errorStatus(w, http.StatusServiceUnavailable)
			return
		}
		s.sleep.Set(mo.None[time.Time](), false)
		writeJSON(w, http.StatusOK, sleepFrom(s.sleep.Status()))
	}).Methods("DELETE")
}

func (s *Server) command(fn func()) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		fn()
		errorStatus(w, http.StatusAccepted)
	}
}

func (s *Server) indexCommand(fn func(int)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(mux.Vars(r)["index"])
		if err != nil {
			errorStatus(w, http.StatusBadRequest)
			return
		}
		fn(index)
		errorStatus(w, http.StatusAccepted)
	}
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	if s.sink == nil {
		errorStatus(w, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.sink.Session())
}

func decodeLoad(w http.ResponseWriter, r *http.Request) (LoadRequest, bool) {
	var req LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorMessage(w, err.Error(), http.StatusBadRequest)
		return req, false
	}
	if len(req.IDs) == 0 {
		errorMessage(w, "no ids", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLoad(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if err := s.svc.LoadIDs(ctx, req.IDs, req.Start); err != nil {
		errorFrom(w, err)
		return
	}
	errorStatus(w, http.StatusAccepted)
}

func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLoad(w, r)
	if !ok {
		return
	}
	items, err := s.lookup(r.Context(), req.IDs)
	if err != nil {
		errorFrom(w, err)
		return
	}
	index := -1
	if req.Index != nil {
		index = *req.Index
	}
	s.svc.Append(items, index)
	errorStatus(w, http.StatusAccepted)
}

func (s *Server) handleInsertNext(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLoad(w, r)
	if !ok {
		return
	}
	items, err := s.lookup(r.Context(), req.IDs)
	if err != nil {
		errorFrom(w, err)
		return
	}
	s.svc.InsertNext(items)
	errorStatus(w, http.StatusAccepted)
}

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	// IDs contain slashes, so they travel in the query string.
	items, err := s.svc.Browse(ctx, r.URL.Query().Get("id"))
	if err != nil {
		errorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsFrom(items))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	items, err := s.svc.Search(ctx, query)
	if err != nil {
		errorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsFrom(items))
}

func (s *Server) handleSleepStatus(w http.ResponseWriter, _ *http.Request) {
	if s.sleep == nil {
		errorStatus(w, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, sleepFrom(s.sleep.Status()))
}

func (s *Server) handleSleepSet(w http.ResponseWriter, r *http.Request) {
	if s.sleep == nil {
		errorStatus(w, http.StatusServiceUnavailable)
		return
	}
	var req SleepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorMessage(w, err.Error(), http.StatusBadRequest)
		return
	}
	var deadline time.Time
	switch {
	case req.Deadline != nil:
		deadline = *req.Deadline
	case req.InSeconds > 0:
		deadline = time.Now().Add(time.Duration(req.InSeconds) * time.Second)
	default:
		errorMessage(w, "deadline or in_seconds required", http.StatusBadRequest)
		return
	}
	if !s.sleep.Set(mo.Some(deadline), req.WaitForEnd) {
		errorMessage(w, "deadline is not in the future", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, sleepFrom(s.sleep.Status()))
}

// lookup resolves ids once the library is ready, skipping unknown ones.
func (s *Server) lookup(ctx context.Context, ids []string) ([]playlist.MediaItem, error) {
	if s.library == nil {
		return nil, playback.ErrLibraryNotReady
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	select {
	case <-s.library.Ready():
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", playback.ErrLibraryNotReady, ctx.Err())
	}
	items := make([]playlist.MediaItem, 0, len(ids))
	for _, id := range ids {
		item, ok, err := s.library.Lookup(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil, playback.ErrNotFound
	}
	return items, nil
}

func queryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}

func parseRepeat(s string) (playlist.RepeatMode, bool) {
	for _, m := range []playlist.RepeatMode{playlist.RepeatNone, playlist.RepeatOne, playlist.RepeatAll} {
		if m.String() == s {
			return m, true
		}
	}
	return playlist.RepeatNone, false
}
