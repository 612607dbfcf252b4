package server

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ibeckermayer/xdash/internal/analytics"
	"github.com/ibeckermayer/xdash/internal/chart"
	"github.com/ibeckermayer/xdash/internal/httputil"
	"github.com/ibeckermayer/xdash/internal/probe"
	"github.com/ibeckermayer/xdash/internal/report"
	"github.com/ibeckermayer/xdash/internal/state"
	"github.com/ibeckermayer/xdash/internal/store"
	"github.com/ibeckermayer/xdash/internal/types"
	"github.com/ibeckermayer/xdash/internal/views"
)

// ProbeRunner runs a connectivity check over the configured accounts.
type ProbeRunner interface {
	Probe(ctx context.Context) probe.Report
}

// errorRules map domain errors to HTTP statuses.
var errorRules = []httputil.StatusRule{
	{Err: state.ErrNoteIndex, Status: http.StatusNotFound},
	{Err: state.ErrPostIndex, Status: http.StatusNotFound},
	{Err: state.ErrUnknownAccount, Status: http.StatusNotFound},
	{Err: chart.ErrMissingTarget, Status: http.StatusNotFound},
	{Err: state.ErrDuplicateAccount, Status: http.StatusConflict},
	{Err: state.ErrInvalidInput, Status: http.StatusBadRequest},
	{Err: types.ErrUnknownView, Status: http.StatusNotFound},
	{Err: types.ErrUnknownRank, Status: http.StatusBadRequest},
	{Err: types.ErrUnknownCategory, Status: http.StatusBadRequest},
	{Err: types.ErrInvalidRange, Status: http.StatusBadRequest},
	{Err: analytics.ErrUnknownSortKey, Status: http.StatusBadRequest},
	{Err: store.ErrUnknownVersion, Status: http.StatusConflict},
}

// Handler serves the dashboard API
type Handler struct {
	state  *state.Store
	views  *views.Renderer
	charts *chart.Adapter
	prober ProbeRunner
	now    func() time.Time
}

// NewHandler creates a handler over the shared state
func NewHandler(st *state.Store, r *views.Renderer, charts *chart.Adapter, prober ProbeRunner) *Handler {
	return &Handler{state: st, views: r, charts: charts, prober: prober, now: time.Now}
}

// stateResponse is the navigation header of every page.
type stateResponse struct {
	Account  string          `json:"account"`
	View     types.View      `json:"view"`
	Range    types.DateRange `json:"range"`
	Posts    int             `json:"posts"`
	Accounts []types.Account `json:"accounts"`
	Views    []types.View    `json:"views"`
}

// GetState returns the current selection
func (h *Handler) GetState(c *gin.Context) {
	snap := h.state.Snapshot()
	c.JSON(http.StatusOK, stateResponse{
		Account:  snap.Account,
		View:     snap.View,
		Range:    snap.Range,
		Posts:    len(snap.Posts),
		Accounts: snap.Accounts,
		Views:    types.Views,
	})
}

// SwitchAccount selects an account and returns the re-rendered overview
func (h *Handler) SwitchAccount(c *gin.Context) {
	var input struct {
		ID string `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "invalid data")
		return
	}
	if err := h.state.SwitchAccount(input.ID); err != nil {
		httputil.RespondErr(c, err, errorRules...)
		return
	}
	c.JSON(http.StatusOK, h.views.Overview())
}

// SetRange changes the date range
func (h *Handler) SetRange(c *gin.Context) {
	var input struct {
		Days int `json:"days" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "invalid data")
		return
	}
	if err := h.state.SetRange(input.Days); err != nil {
		httputil.RespondErr(c, err, errorRules...)
		return
	}
	h.GetState(c)
}

// GetView renders one page
func (h *Handler) GetView(c *gin.Context) {
	model, err := h.views.Render(types.View(c.Param("view")))
	if err != nil {
		httputil.RespondErr(c, err, errorRules...)
		return
	}
	c.JSON(http.StatusOK, model)
}

// ListPosts filters the post table from query parameters
func (h *Handler) ListPosts(c *gin.Context) {
	var f analytics.TableFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "invalid filter")
		return
	}
	v, err := h.views.Posts(f)
	if err != nil {
		httputil.RespondErr(c, err, errorRules...)
		return
	}
	c.JSON(http.StatusOK, v)
}

// PostText returns a post's full text for copying
func (h *Handler) PostText(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "invalid index")
		return
	}
	text, err := h.state.PostText(index)
	if err != nil {
		httputil.RespondErr(c, err, errorRules...)
		return
	}
	c.String(http.StatusOK, text)
}

// CreateNote adds a note
func (h *Handler) CreateNote(c *gin.Context) {
	var input struct {
		Title    string             `json:"title"`
		Category types.NoteCategory `json:"category"`
		Body     string             `json:"body"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "invalid data")
		return
	}
	if input.Category == "" {
		input.Category = types.NoteOther
	}
	note, err := h.state.AddNote(input.Title, input.Category, input.Body)
	if err != nil {
		httputil.RespondErr(c, err, errorRules...)
		return
	}
	c.JSON(http.StatusCreated, note)
}

// DeleteNote removes a note by index
func (h *Handler) DeleteNote(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "invalid index")
		return
	}
	if err := h.state.DeleteNote(index); err != nil {
		httputil.RespondErr(c, err, errorRules...)
		return
	}
	c.JSON(http.StatusOK, h.views.Notes())
}

// CreateABTest adds an experiment
func (h *Handler) CreateABTest(c *gin.Context) {
	var t types.ABTest
	if err := c.ShouldBindJSON(&t); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "invalid data")
		return
	}
	if err := h.state.AddABTest(t); err != nil {
		httputil.RespondErr(c, err, errorRules...)
		return
	}
	c.JSON(http.StatusCreated, views.ABTestRow{Test: t, Winner: analytics.ABWinner(t)})
}

// CreateAccount adds an account
func (h *Handler) CreateAccount(c *gin.Context) {
	var a types.Account
	if err := c.ShouldBindJSON(&a); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "invalid data")
		return
	}
	created, err := h.state.AddAccount(a)
	if err != nil {
		httputil.RespondErr(c, err, errorRules...)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// RunProbe checks every account endpoint now
func (h *Handler) RunProbe(c *gin.Context) {
	rep := h.prober.Probe(c.Request.Context())
	c.JSON(http.StatusOK, rep)
}

// ExportCSV streams the loaded posts as a CSV attachment
func (h *Handler) ExportCSV(c *gin.Context) {
	data, err := report.CSV(h.state.Snapshot().Posts)
	if err != nil {
		log.Printf("[server] csv export failed: %v", err)
		httputil.RespondError(c, http.StatusInternalServerError, "export failed")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+report.CSVName(h.now())+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// GetChart serves the live image of a chart slot
func (h *Handler) GetChart(c *gin.Context) {
	inst, ok := h.charts.Instance(c.Param("slot"))
	if !ok {
		httputil.RespondError(c, http.StatusNotFound, "chart not rendered")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Header("ETag", `"`+inst.ID.String()+`"`)
	c.Data(http.StatusOK, inst.ContentType, inst.Image)
}
