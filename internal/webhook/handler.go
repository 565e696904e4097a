package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/financebot/financebot/internal/auth"
	"github.com/financebot/financebot/internal/model"
	"github.com/financebot/financebot/internal/store"
	"github.com/financebot/financebot/pkg/pixpoc"
)

// processingTimeout bounds one out-of-band pipeline run.
const processingTimeout = 5 * time.Minute

// HandlerConfig wires the HTTP surface.
type HandlerConfig struct {
	Store          store.Store
	Pixpoc         pixpoc.Client // nil when no platform key is configured
	Auth           *auth.Manager
	Processor      *Processor
	Dispatcher     *Dispatcher
	AgentID        string
	FromNumberID   string
	AllowedOrigins []string
}

// Handler serves the webhook and dashboard API.
type Handler struct {
	cfg HandlerConfig
}

// NewHandler creates the HTTP surface.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{cfg: cfg}
}

// Routes builds the router: the public webhook plus the authenticated
// dashboard API.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	origins := h.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/", h.root)
	r.Get("/health", h.health)
	r.Post("/webhook/pixpoc", h.pixpocWebhook)
	r.Post("/api/calls/save", h.saveCall)
	r.Post("/api/auth/send-otp", h.sendOTP)
	r.Post("/api/auth/verify-otp", h.verifyOTP)

	r.Group(func(r chi.Router) {
		r.Use(h.cfg.Auth.Middleware)
		r.Post("/api/calls/initiate", h.initiateCall)
		r.Get("/api/reports", h.listReports)
		r.Get("/api/reports/{reportID}/download", h.downloadReport)
		r.Get("/api/financial-data", h.getFinancialData)
		r.Post("/api/financial-data", h.updateFinancialData)
	})

	return r
}

func (h *Handler) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "FinanceBot Webhook Server",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"webhook": "/webhook/pixpoc",
			"health":  "/health",
		},
	})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "financebot-webhook",
	})
}

// pixpocWebhook receives the analysis-completed callback. Business
// conditions (non-success analysis, unknown call) acknowledge with HTTP 200
// so the platform does not endlessly retry; only a malformed envelope is
// rejected outright.
func (h *Handler) pixpocWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeCallback(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "invalid callback payload",
		})
		return
	}

	logger := zap.L().With(
		zap.String("event", payload.Event),
		zap.String("call_sid", payload.Tracking()),
		zap.String("call_id", payload.CallID),
	)
	logger.Info("pixpoc callback received", zap.String("status", payload.Status))

	if payload.Status != "success" {
		logger.Warn("analysis not successful",
			zap.String("status", payload.Status),
			zap.String("error", payload.Error),
		)
		// Record the platform's verdict verbatim; a missing row is a no-op.
		if err := h.cfg.Store.UpdateCallStatus(r.Context(), payload.CallID, model.AnalysisStatus(payload.Status), ""); err != nil {
			logger.Error("analysis annotation failed", zap.Error(err))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Analysis status: " + payload.Status,
			"error":   payload.Error,
		})
		return
	}

	call, err := h.resolveCall(r.Context(), payload)
	if err != nil {
		logger.Error("call lookup failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "lookup failed",
		})
		return
	}
	if call == nil {
		logger.Error("call not found",
			zap.String("call_sid", payload.Tracking()),
			zap.String("call_id", payload.CallID),
		)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   "Call not found in database",
			"callSid": payload.Tracking(),
			"callId":  payload.CallID,
		})
		return
	}

	analysis := payload.Analysis
	h.cfg.Dispatcher.Dispatch(call.CallID, func() {
		ctx, cancel := context.WithTimeout(context.Background(), processingTimeout)
		defer cancel()
		h.cfg.Processor.Process(ctx, call, analysis)
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Processing started",
		"callId":      call.CallID,
		"callSid":     payload.Tracking(),
		"phoneNumber": call.OwnerID,
	})
}

// resolveCall looks the callback up by tracking id first; the platform
// predominantly supplies callSid, and a bare call UUID can be absent or
// ambiguous in some callback shapes.
func (h *Handler) resolveCall(ctx context.Context, p *CallbackPayload) (*model.CallRecord, error) {
	if sid := p.Tracking(); sid != "" {
		call, err := h.cfg.Store.GetCallByTrackingID(ctx, sid)
		if err != nil {
			return nil, err
		}
		if call != nil {
			return call, nil
		}
	}
	if p.CallID != "" {
		return h.cfg.Store.GetCallByID(ctx, p.CallID)
	}
	return nil, nil
}

// saveCall persists a call the frontend announced after initiating it
// directly with the platform.
func (h *Handler) saveCall(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone      string `json:"phone"`
		CallID     string `json:"call_id"`
		ContactID  string `json:"contact_id"`
		TrackingID string `json:"tracking_id"`
		CampaignID string `json:"campaign_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" || req.CallID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "phone and call_id are required",
		})
		return
	}

	if err := h.cfg.Store.EnsureUser(r.Context(), req.Phone, ""); err != nil {
		h.storeError(w, "ensure user", err)
		return
	}
	if err := h.cfg.Store.SaveCall(r.Context(), store.SaveCallParams{
		OwnerID:    req.Phone,
		CallID:     req.CallID,
		ContactID:  req.ContactID,
		TrackingID: req.TrackingID,
		CampaignID: req.CampaignID,
	}); err != nil {
		h.storeError(w, "save call", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Call saved successfully",
		"call_id": req.CallID,
	})
}

func (h *Handler) sendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "phone is required",
		})
		return
	}

	if err := h.cfg.Auth.SendOTP(req.Phone); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "could not send otp",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "OTP sent",
	})
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
		OTP   string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" || req.OTP == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "phone and otp are required",
		})
		return
	}

	if !h.cfg.Auth.VerifyOTP(req.Phone, req.OTP) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false,
			"error":   "invalid otp",
		})
		return
	}

	if err := h.cfg.Store.EnsureUser(r.Context(), req.Phone, ""); err != nil {
		h.storeError(w, "ensure user", err)
		return
	}
	if err := h.cfg.Store.TouchLastLogin(r.Context(), req.Phone); err != nil {
		zap.L().Warn("last-login update failed", zap.String("phone", req.Phone), zap.Error(err))
	}

	token, err := h.cfg.Auth.IssueSession(time.Now(), req.Phone)
	if err != nil {
		zap.L().Error("session issue failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "could not create session",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"phone":   req.Phone,
	})
}

// initiateCall places an outbound advisory call to the authenticated user
// and records it as initiated.
func (h *Handler) initiateCall(w http.ResponseWriter, r *http.Request) {
	phone := auth.PhoneFromContext(r.Context())

	if h.cfg.Pixpoc == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"success": false,
			"error":   "calling platform not configured",
		})
		return
	}

	var req struct {
		ContactName string         `json:"contact_name"`
		ContactData map[string]any `json:"contact_data"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req) // body is optional
	}

	session, err := h.cfg.Pixpoc.InitiateCall(r.Context(), pixpoc.InitiateCallRequest{
		ToNumber:     phone,
		AgentID:      h.cfg.AgentID,
		ContactName:  req.ContactName,
		ContactData:  req.ContactData,
		FromNumberID: h.cfg.FromNumberID,
	})
	if err != nil {
		zap.L().Error("call initiation failed", zap.String("phone", phone), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"success": false,
			"error":   "call initiation failed",
		})
		return
	}

	if err := h.cfg.Store.EnsureUser(r.Context(), phone, req.ContactName); err != nil {
		h.storeError(w, "ensure user", err)
		return
	}
	if err := h.cfg.Store.SaveCall(r.Context(), store.SaveCallParams{
		OwnerID:    phone,
		CallID:     session.CallID,
		ContactID:  session.ContactID,
		TrackingID: session.TrackingID,
		CampaignID: session.CampaignID,
	}); err != nil {
		h.storeError(w, "save call", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"call": map[string]any{
			"call_id":     session.CallID,
			"tracking_id": session.TrackingID,
			"status":      session.Status,
		},
	})
}

func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	phone := auth.PhoneFromContext(r.Context())

	reports, err := h.cfg.Store.ListReports(r.Context(), phone)
	if err != nil {
		h.storeError(w, "list reports", err)
		return
	}
	if reports == nil {
		reports = []model.ReportRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"reports": reports,
	})
}

func (h *Handler) downloadReport(w http.ResponseWriter, r *http.Request) {
	phone := auth.PhoneFromContext(r.Context())
	reportID := chi.URLParam(r, "reportID")

	rec, err := h.cfg.Store.GetReport(r.Context(), phone, reportID)
	if err != nil {
		h.storeError(w, "get report", err)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"error":   "report not found",
		})
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+rec.Filename+`"`)
	http.ServeFile(w, r, rec.StoragePath)
}

func (h *Handler) getFinancialData(w http.ResponseWriter, r *http.Request) {
	phone := auth.PhoneFromContext(r.Context())

	snap, err := h.cfg.Store.GetFinancialSnapshot(r.Context(), phone)
	if err != nil {
		h.storeError(w, "get snapshot", err)
		return
	}
	if snap == nil {
		snap = model.DefaultFinancialSnapshot(phone)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    snap,
	})
}

func (h *Handler) updateFinancialData(w http.ResponseWriter, r *http.Request) {
	phone := auth.PhoneFromContext(r.Context())

	var req struct {
		Income   float64        `json:"income"`
		Savings  float64        `json:"savings"`
		Expenses float64        `json:"expenses"`
		Extra    map[string]any `json:"extra"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "invalid body",
		})
		return
	}

	if err := h.cfg.Store.UpsertFinancialSnapshot(r.Context(), &model.FinancialSnapshot{
		OwnerID:  phone,
		Income:   req.Income,
		Savings:  req.Savings,
		Expenses: req.Expenses,
		Extra:    req.Extra,
	}); err != nil {
		h.storeError(w, "upsert snapshot", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) storeError(w http.ResponseWriter, op string, err error) {
	zap.L().Error("store operation failed", zap.String("op", op), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"success": false,
		"error":   "storage failure",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
