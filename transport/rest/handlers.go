package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/surakarta/internal/apperror"
	"github.com/rocketscienceinc/surakarta/internal/entity"
	"github.com/rocketscienceinc/surakarta/internal/repository"
)

const maxBodySize = 64 * 1024

var (
	ErrBadRequest      = errors.New("bad request")
	ErrJournalDisabled = errors.New("match journal is disabled")
)

type gameSession interface {
	Snapshot(ctx context.Context) (entity.Snapshot, error)
	Subscribe() (<-chan entity.Snapshot, func())

	SelectCell(ctx context.Context, cell int) error
	FinishTurn(ctx context.Context) error
	Surrender(ctx context.Context) error
	SendMessage(ctx context.Context, text string) error
	MoveCursor(ctx context.Context, x, y float64) error
	ConnectToAdversary(ctx context.Context, remote entity.Connection) error
}

type matchStore interface {
	GetByID(ctx context.Context, id string) (*entity.Match, error)
	ListRecent(ctx context.Context, limit int) ([]*entity.Match, error)
	DeleteByID(ctx context.Context, id string) error
}

type handlers struct {
	logger      *slog.Logger
	session     gameSession
	matches     matchStore
	defaultPort func() int
}

type connectRequest struct {
	Address string `json:"address"`
}

type chatRequest struct {
	Text *string `json:"text"`
}

type cursorRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (that *handlers) state(w http.ResponseWriter, r *http.Request) {
	snapshot, err := that.session.Snapshot(r.Context())
	if err != nil {
		that.fail(w, r, err)
		return
	}

	that.respond(w, http.StatusOK, snapshot)
}

// connect dials the adversary; an address without a port gets the default one.
func (that *handlers) connect(w http.ResponseWriter, r *http.Request) {
	var body connectRequest
	if err := decodeBody(r, &body); err != nil {
		that.fail(w, r, err)
		return
	}

	remote, err := entity.ParseConnection(body.Address, that.defaultPort())
	if err != nil {
		that.fail(w, r, err)
		return
	}

	if err = that.session.ConnectToAdversary(r.Context(), remote); err != nil {
		that.fail(w, r, err)
		return
	}

	that.state(w, r)
}

func (that *handlers) selectCell(w http.ResponseWriter, r *http.Request) {
	cell, err := strconv.Atoi(chi.URLParam(r, "cell"))
	if err != nil {
		that.fail(w, r, fmt.Errorf("%w: %w", apperror.ErrInvalidCell, err))
		return
	}

	that.command(w, r, func(ctx context.Context) error {
		return that.session.SelectCell(ctx, cell)
	})
}

func (that *handlers) finishTurn(w http.ResponseWriter, r *http.Request) {
	that.command(w, r, that.session.FinishTurn)
}

func (that *handlers) surrender(w http.ResponseWriter, r *http.Request) {
	that.command(w, r, that.session.Surrender)
}

func (that *handlers) chat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := decodeBody(r, &body); err != nil {
		that.fail(w, r, err)
		return
	}

	if body.Text == nil {
		that.fail(w, r, fmt.Errorf("%w: text is required", ErrBadRequest))
		return
	}

	that.command(w, r, func(ctx context.Context) error {
		return that.session.SendMessage(ctx, *body.Text)
	})
}

func (that *handlers) cursor(w http.ResponseWriter, r *http.Request) {
	var body cursorRequest
	if err := decodeBody(r, &body); err != nil {
		that.fail(w, r, err)
		return
	}

	if body.X == nil || body.Y == nil {
		that.fail(w, r, fmt.Errorf("%w: x and y are required", ErrBadRequest))
		return
	}

	if err := that.session.MoveCursor(r.Context(), *body.X, *body.Y); err != nil {
		that.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (that *handlers) listMatches(w http.ResponseWriter, r *http.Request) {
	if that.matches == nil {
		that.fail(w, r, ErrJournalDisabled)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			that.fail(w, r, fmt.Errorf("%w: limit must be a positive number", ErrBadRequest))
			return
		}

		limit = parsed
	}

	matches, err := that.matches.ListRecent(r.Context(), limit)
	if err != nil {
		that.fail(w, r, err)
		return
	}

	that.respond(w, http.StatusOK, matches)
}

func (that *handlers) getMatch(w http.ResponseWriter, r *http.Request) {
	if that.matches == nil {
		that.fail(w, r, ErrJournalDisabled)
		return
	}

	match, err := that.matches.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		that.fail(w, r, err)
		return
	}

	that.respond(w, http.StatusOK, match)
}

func (that *handlers) deleteMatch(w http.ResponseWriter, r *http.Request) {
	if that.matches == nil {
		that.fail(w, r, ErrJournalDisabled)
		return
	}

	if err := that.matches.DeleteByID(r.Context(), chi.URLParam(r, "id")); err != nil {
		that.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// command runs a session command and answers with the resulting state.
func (that *handlers) command(w http.ResponseWriter, r *http.Request, run func(ctx context.Context) error) {
	if err := run(r.Context()); err != nil {
		that.fail(w, r, err)
		return
	}

	that.state(w, r)
}

func (that *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)

	if status >= http.StatusInternalServerError {
		that.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		that.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	that.respond(w, status, errorResponse{Error: err.Error()})
}

func (that *handlers) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, apperror.ErrParse),
		errors.Is(err, apperror.ErrInvalidCell):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrNotConnected),
		errors.Is(err, apperror.ErrAlreadyConnected),
		errors.Is(err, apperror.ErrNotYourTurn),
		errors.Is(err, apperror.ErrGameFinished):
		return http.StatusConflict
	case errors.Is(err, repository.ErrMatchNotFound),
		errors.Is(err, ErrJournalDisabled):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrLink):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}

	return nil
}
