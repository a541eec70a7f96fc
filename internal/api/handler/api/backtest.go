// internal/api/handler/api/backtest.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/replay/internal/api/response"
	"github.com/newthinker/replay/internal/backtest"
	"github.com/newthinker/replay/internal/core"
	"github.com/newthinker/replay/internal/report"
	"github.com/newthinker/replay/internal/strategy"
	"go.uber.org/zap"
)

const defaultMaxBody = 8 << 20

// BacktestRequest is the request body for running a backtest. When Prices is
// empty the configured price provider supplies the series.
type BacktestRequest struct {
	Symbol         string           `json:"symbol"`
	Strategy       strategy.Spec    `json:"strategy"`
	InitialCapital float64          `json:"initial_capital"`
	Start          string           `json:"start,omitempty"`
	End            string           `json:"end,omitempty"`
	Prices         core.PriceSeries `json:"prices,omitempty"`
}

// ResultStore looks up, lists and removes finished results.
type ResultStore interface {
	Find(ctx context.Context, id string) (*backtest.Result, error)
	IDs(ctx context.Context, symbol string) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// ResultList is the response body for listing results of a symbol.
type ResultList struct {
	Symbol string   `json:"symbol"`
	IDs    []string `json:"ids"`
}

// BacktestHandler handles backtest API requests.
type BacktestHandler struct {
	backtester *backtest.Backtester
	results    ResultStore
	maxBody    int64
	logger     *zap.Logger
}

// NewBacktestHandler creates a new backtest handler. maxBody <= 0 selects
// the default body limit.
func NewBacktestHandler(
	backtester *backtest.Backtester,
	results ResultStore,
	maxBody int64,
	logger *zap.Logger,
) *BacktestHandler {
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BacktestHandler{
		backtester: backtester,
		results:    results,
		maxBody:    maxBody,
		logger:     logger,
	}
}

// Create runs a backtest synchronously and returns its result.
func (h *BacktestHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := decodeRequest(w, r, h.maxBody)
	if err != nil {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrConfigInvalid, err))
		return
	}

	req, err := body.toRequest()
	if err != nil {
		response.Fail(w, err)
		return
	}

	var res *backtest.Result
	if len(body.Prices) > 0 {
		res, err = h.backtester.RunSeries(r.Context(), req, body.Prices.Between(req.Start, req.End))
	} else {
		res, err = h.backtester.Run(r.Context(), req)
	}
	if err != nil {
		h.logger.Debug("backtest request failed", zap.String("symbol", req.Symbol), zap.Error(err))
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, res)
}

// Get returns a finished result by run id.
func (h *BacktestHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, ok := h.find(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, res)
}

// TradesCSV returns the trade log of a finished result as CSV.
func (h *BacktestHandler) TradesCSV(w http.ResponseWriter, r *http.Request) {
	res, ok := h.find(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%s.csv"`, res.Symbol, res.ID))
	if err := report.WriteTradesCSV(w, res); err != nil {
		h.logger.Warn("writing trades csv failed", zap.String("id", res.ID), zap.Error(err))
	}
}

// List returns the stored result ids for the symbol query parameter.
func (h *BacktestHandler) List(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigMissing, fmt.Errorf("symbol query parameter required")))
		return
	}
	if !h.hasStore(w) {
		return
	}

	ids, err := h.results.IDs(r.Context(), symbol)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, ResultList{Symbol: symbol, IDs: ids})
}

// Delete removes a finished result by run id.
func (h *BacktestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok || !h.hasStore(w) {
		return
	}

	if err := h.results.Delete(r.Context(), id); err != nil {
		response.Fail(w, err)
		return
	}
	h.logger.Info("result deleted", zap.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *BacktestHandler) hasStore(w http.ResponseWriter) bool {
	if h.results == nil {
		response.Error(w, http.StatusNotFound, core.WrapError(core.ErrNotFound, fmt.Errorf("no result store")))
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if id == "" {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigMissing, fmt.Errorf("result id required")))
		return "", false
	}
	return id, true
}

func (h *BacktestHandler) find(w http.ResponseWriter, r *http.Request) (*backtest.Result, bool) {
	id, ok := pathID(w, r)
	if !ok || !h.hasStore(w) {
		return nil, false
	}

	res, err := h.results.Find(r.Context(), id)
	if err != nil {
		response.Fail(w, err)
		return nil, false
	}
	return res, true
}

// decodeRequest reads exactly one JSON object, rejecting unknown fields.
func decodeRequest(w http.ResponseWriter, r *http.Request, maxBody int64) (*BacktestRequest, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()

	var body BacktestRequest
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("request body must contain a single JSON object")
	}
	return &body, nil
}

func (b *BacktestRequest) toRequest() (backtest.Request, error) {
	if b.Symbol == "" {
		return backtest.Request{}, core.WrapError(core.ErrConfigMissing, fmt.Errorf("symbol required"))
	}

	cfg, err := b.Strategy.Config()
	if err != nil {
		return backtest.Request{}, err
	}

	start, _, err := parseDate(b.Start)
	if err != nil {
		return backtest.Request{}, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("start: %w", err))
	}
	end, dateOnly, err := parseDate(b.End)
	if err != nil {
		return backtest.Request{}, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("end: %w", err))
	}
	// A calendar end date covers the whole day
	if dateOnly {
		end = core.EndOfDay(end)
	}

	return backtest.Request{
		Symbol:         b.Symbol,
		Strategy:       cfg,
		InitialCapital: b.InitialCapital,
		Start:          start,
		End:            end,
	}, nil
}

// parseDate accepts a calendar date or an RFC3339 timestamp and reports
// which one it got. Empty means unbounded.
func parseDate(s string) (time.Time, bool, error) {
	if s == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	return t, false, err
}
