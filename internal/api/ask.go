package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/karyon-ai/karyon/internal/model"
)

type askRequest struct {
	Question string `json:"question"`
}

// askVideo answers one question about a ready video and appends the
// exchange to the caller's chat session.
func (s *Server) askVideo(w http.ResponseWriter, r *http.Request) {
	v, ok := s.loadVideo(w, r)
	if !ok {
		return
	}
	if v.Status != model.StatusReady {
		writeError(w, http.StatusBadRequest, "video is not ready for questions")
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: %v", err)
		return
	}

	session, err := s.store.SessionFor(r.Context(), v.ID, userRef(r))
	if err != nil {
		s.logger.Error("session lookup failed", "video_id", v.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "session lookup failed")
		return
	}
	history, err := s.store.History(r.Context(), session.ID)
	if err != nil {
		s.logger.Error("history load failed", "session_id", session.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "history load failed")
		return
	}

	ans, err := s.answerer.Ask(r.Context(), *v, req.Question, history)
	if err != nil {
		if errors.Is(err, model.ErrEmptyQuestion) {
			writeError(w, http.StatusBadRequest, "question is required")
			return
		}
		s.logger.Error("answer failed", "video_id", v.ID, "error", err)
		// Log the failure as the assistant's reply so the conversation
		// reflects what the user saw.
		failure := "Sorry, I couldn't process your question: " + err.Error()
		if logErr := s.store.AppendExchange(r.Context(), session.ID, req.Question, failure, nil); logErr != nil {
			s.logger.Error("chat log write failed", "session_id", session.ID, "error", logErr)
		}
		writeError(w, http.StatusInternalServerError, "answer failed")
		return
	}

	sources, err := json.Marshal(ans)
	if err != nil {
		s.logger.Error("marshal answer failed", "video_id", v.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "answer failed")
		return
	}
	if err := s.store.AppendExchange(r.Context(), session.ID, req.Question, ans.Answer, sources); err != nil {
		// The answer is already computed; losing the log entry should
		// not fail the request.
		s.logger.Error("chat log write failed", "session_id", session.ID, "error", err)
	}

	writeJSON(w, http.StatusOK, ans)
}

// chatHistory returns the caller's conversation for one video.
func (s *Server) chatHistory(w http.ResponseWriter, r *http.Request) {
	v, ok := s.loadVideo(w, r)
	if !ok {
		return
	}
	session, err := s.store.SessionFor(r.Context(), v.ID, userRef(r))
	if err != nil {
		s.logger.Error("session lookup failed", "video_id", v.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "session lookup failed")
		return
	}
	history, err := s.store.History(r.Context(), session.ID)
	if err != nil {
		s.logger.Error("history load failed", "session_id", session.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "history load failed")
		return
	}
	if history == nil {
		history = []model.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, history)
}
