package server

import (
	"net/http"

	"cadenza/internal/player"

	"github.com/sirupsen/logrus"
)

// handleGetPlayerState returns the caller's player state
func (cs *CatalogServer) handleGetPlayerState(w http.ResponseWriter, r *http.Request) {
	cs.respondJSON(w, http.StatusOK, cs.player.GetState(currentUser(r).ID))
}

// handlePlayerAction applies one playback action and returns the new state
func (cs *CatalogServer) handlePlayerAction(w http.ResponseWriter, r *http.Request) {
	var action player.Action
	if !cs.decodeJSON(w, r, &action) {
		return
	}

	userID := currentUser(r).ID
	state, err := cs.player.Apply(r.Context(), userID, action)
	if err != nil {
		cs.respondWithServiceError(w, r, err)
		return
	}

	cs.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"action":  action.Type,
	}).Debug("Player action applied")

	cs.respondJSON(w, http.StatusOK, state)
}
