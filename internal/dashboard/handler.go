// Package dashboard serves the company map: the filter sidebar, the map page,
// the marker API and the spreadsheet download.
package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/trikala-registry/companymap/internal/dashboard/export"
	"github.com/trikala-registry/companymap/internal/filter"
	"github.com/trikala-registry/companymap/internal/observability"
	"github.com/trikala-registry/companymap/internal/platform/cache"
	"github.com/trikala-registry/companymap/internal/platform/httpx"
	"github.com/trikala-registry/companymap/internal/present"
	"github.com/trikala-registry/companymap/internal/registry"
	"github.com/trikala-registry/companymap/internal/shared"
	"github.com/trikala-registry/companymap/internal/view"
)

// SessionKeyFilters holds the committed sidebar as JSON.
const SessionKeyFilters = "filters"

const (
	pageTitle      = "Εταιρείες των Τρικάλων"
	requestTimeout = 10 * time.Second
)

// SnapshotProvider hands out the loaded registry.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (*registry.Snapshot, error)
}

// Params groups the handler dependencies. A nil Cache disables marker caching.
// DefaultRangeAsNoFilter makes a range left at the control bounds mean "no filter".
type Params struct {
	Logger                 *slog.Logger
	Registry               SnapshotProvider
	Templates              *view.Engine
	CSRF                   *shared.CSRFManager
	Metrics                *observability.Metrics
	Cache                  *cache.JSONCache
	Map                    MapOptions
	DefaultRangeAsNoFilter bool
	ExportRateLimit        int
}

// Handler coordinates HTTP requests for the company map.
type Handler struct {
	logger            *slog.Logger
	registry          SnapshotProvider
	templates         *view.Engine
	csrf              *shared.CSRFManager
	metrics           *observability.Metrics
	cache             *cache.JSONCache
	validate          *validator.Validate
	mapOpts           MapOptions
	defaultAsNoFilter bool
	exportLimit       int
	exports           singleflight.Group
}

// NewHandler constructs the dashboard handler.
func NewHandler(p Params) *Handler {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := p.ExportRateLimit
	if limit <= 0 {
		limit = 10
	}
	return &Handler{
		logger:            logger,
		registry:          p.Registry,
		templates:         p.Templates,
		csrf:              p.CSRF,
		metrics:           p.Metrics,
		cache:             p.Cache,
		validate:          newValidator(),
		mapOpts:           p.Map,
		defaultAsNoFilter: p.DefaultRangeAsNoFilter,
		exportLimit:       limit,
	}
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	h.renderDashboard(w, r, sess, http.StatusOK, h.committedControls(sess), nil)
}

func (h *Handler) handleCommit(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.handleServerError(w, "commit filters", shared.ErrSessionMissing)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	controls, err := h.parseControls(r.PostForm)
	if err != nil {
		var formErrs FormErrors
		if !errors.As(err, &formErrs) {
			h.handleServerError(w, "parse filters", err)
			return
		}
		h.logger.Info("rejected filter commit", slog.String("error", formErrs.Error()))
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: "Τα φίλτρα δεν εφαρμόστηκαν: ελέγξτε τις τιμές."})
		h.renderDashboard(w, r, sess, http.StatusBadRequest, h.committedControls(sess), formErrs)
		return
	}

	if err := sess.SetJSON(SessionKeyFilters, controls); err != nil {
		h.handleServerError(w, "store filters", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.Delete(SessionKeyFilters)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleMarkers(w http.ResponseWriter, r *http.Request) {
	controls := h.committedControls(shared.SessionFromContext(r.Context()))
	if query := r.URL.Query(); hasFilterParams(query) {
		parsed, err := h.parseControls(query)
		if err != nil {
			var formErrs FormErrors
			if errors.As(err, &formErrs) {
				httpx.RespondError(w, fmt.Errorf("%s: %w", formErrs.Error(), httpx.ErrValidation))
				return
			}
			h.logError("parse marker query", err)
			httpx.RespondError(w, err)
			return
		}
		controls = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	snap, err := h.snapshot(ctx)
	if err != nil {
		h.logError("load registry", err)
		httpx.RespondError(w, fmt.Errorf("registry: %w", httpx.ErrUnavailable))
		return
	}

	sel := filter.FromControls(controls, h.defaultAsNoFilter)
	var resp MarkersResponse
	err = h.cache.FetchJSON(ctx, MarkersCacheKey(snap, sel), &resp, func(context.Context) (any, error) {
		return BuildMarkers(h.apply(snap, controls))
	})
	if err != nil {
		h.logError("build markers", err)
		httpx.RespondError(w, err)
		return
	}
	resp.Selection = controls
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	controls := h.committedControls(shared.SessionFromContext(r.Context()))
	sel := filter.FromControls(controls, h.defaultAsNoFilter)

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	snap, err := h.snapshot(ctx)
	if err != nil {
		h.metrics.ObserveExport("error")
		h.logError("load registry", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	result, err, dup := h.exports.Do(sel.Key(), func() (any, error) {
		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, h.apply(snap, controls)); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
	if err != nil {
		h.metrics.ObserveExport("error")
		h.handleServerError(w, "export spreadsheet", err)
		return
	}
	h.metrics.ObserveExport("ok")
	data := result.([]byte)
	if dup {
		h.logger.Debug("export shared", slog.String("selection", sel.Key()))
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logError("stream spreadsheet", err)
	}
}

// MarkersCacheKey names the cached marker payload of sel over snap.
func MarkersCacheKey(snap *registry.Snapshot, sel filter.Selection) string {
	return cache.Key("markers", snap.Fingerprint(), sel.Key())
}

// BuildMarkers formats an already filtered table for the marker API.
func BuildMarkers(visible registry.Table) (MarkersResponse, error) {
	markers, err := present.Markers(visible)
	if err != nil {
		return MarkersResponse{}, err
	}
	return MarkersResponse{Metrics: metricsOf(visible), Markers: markers}, nil
}

// committedControls returns the sidebar stored in the session, or the untouched
// sidebar when nothing was committed yet.
func (h *Handler) committedControls(sess *shared.Session) filter.Controls {
	controls := filter.DefaultControls()
	if sess == nil {
		return controls
	}
	var stored filter.Controls
	found, err := sess.GetJSON(SessionKeyFilters, &stored)
	if err != nil {
		h.logger.Warn("discarding stored filters", slog.Any("error", err))
		sess.Delete(SessionKeyFilters)
		return controls
	}
	if found {
		return stored
	}
	return controls
}

func (h *Handler) snapshot(ctx context.Context) (*registry.Snapshot, error) {
	if h.registry == nil {
		return nil, errors.New("registry not configured")
	}
	return h.registry.Snapshot(ctx)
}

// apply runs one filter pass for controls over snap.
func (h *Handler) apply(snap *registry.Snapshot, controls filter.Controls) registry.Table {
	out := filter.Apply(snap.Table(), filter.FromControls(controls, h.defaultAsNoFilter))
	h.metrics.ObserveFilterPass(out.Len())
	return out
}

// visible loads the registry and runs one filter pass over it.
func (h *Handler) visible(ctx context.Context, controls filter.Controls) (registry.Table, *registry.Snapshot, error) {
	snap, err := h.snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	return h.apply(snap, controls), snap, nil
}

func (h *Handler) renderDashboard(w http.ResponseWriter, r *http.Request, sess *shared.Session, status int, controls filter.Controls, errs FormErrors) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	visible, snap, err := h.visible(ctx, controls)
	if err != nil {
		h.logError("load registry", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	vm, err := buildViewModel(controls, visible, snap, h.mapOpts, errs)
	if err != nil {
		h.handleServerError(w, "build dashboard", err)
		return
	}

	var flash *shared.FlashMessage
	csrfToken := ""
	if sess != nil {
		flash = sess.PopFlash()
		if h.csrf != nil {
			csrfToken, _ = h.csrf.EnsureToken(sess)
		}
	}
	viewData := view.TemplateData{
		Title:       pageTitle,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        vm,
	}
	if err := h.templates.Render(w, status, "pages/dashboard.html", viewData); err != nil {
		h.handleServerError(w, "render dashboard", err)
	}
}

func (h *Handler) handleServerError(w http.ResponseWriter, context string, err error) {
	h.logError(context, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) logError(context string, err error) {
	if h.logger != nil {
		h.logger.Error(context, slog.Any("error", err))
	}
}
