package endpoints

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/doodlesbykumbi/saasgate/pkg/audit"
	"github.com/doodlesbykumbi/saasgate/pkg/model"
	"github.com/doodlesbykumbi/saasgate/pkg/permission"
	"github.com/doodlesbykumbi/saasgate/pkg/server"
)

// SystemStatusResponse is returned by /api/v1/admin/system-status.
type SystemStatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// AuditMessageRead is a persisted audit event.
type AuditMessageRead struct {
	ID             uint            `json:"id"`
	Timestamp      time.Time       `json:"timestamp"`
	Facility       int             `json:"facility"`
	Severity       int             `json:"severity"`
	Hostname       string          `json:"hostname"`
	AppName        string          `json:"appname"`
	ProcID         string          `json:"procid"`
	MsgID          string          `json:"msgid"`
	StructuredData json.RawMessage `json:"structured_data"`
	Message        string          `json:"message"`
}

// RecentAuditor lists persisted audit events, newest first.
type RecentAuditor interface {
	Recent(ctx context.Context, msgID string, limit int) ([]model.AuditMessage, error)
}

var _ RecentAuditor = (*audit.Store)(nil)

// RegisterAdminEndpoints registers /api/v1/admin. Every route requires
// reports:view.
func RegisterAdminEndpoints(s *server.Server) {
	adminRouter := s.Router.PathPrefix("/api/v1/admin").Subrouter()
	adminRouter.Use(s.Authenticator.Middleware)
	adminRouter.Use(s.Authorizer.Require(permission.ReportsView))

	adminRouter.HandleFunc("/system-status", handleSystemStatus()).Methods("GET")
	adminRouter.HandleFunc("/audit", handleRecentAudit(s.AuditStore, s.Config.APIListLimitMax, s.Logger)).Methods("GET")
}

func handleSystemStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, SystemStatusResponse{Status: "ok", Message: "System is running"})
	}
}

// handleRecentAudit serves GET /api/v1/admin/audit?msgid=<id>&limit=<n>.
func handleRecentAudit(auditStore RecentAuditor, listMax int, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, r, logger, invalidField("limit", "must be a positive integer"))
				return
			}
			limit = n
		}
		if listMax > 0 && limit > listMax {
			limit = listMax
		}

		messages, err := auditStore.Recent(r.Context(), r.URL.Query().Get("msgid"), limit)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		out := make([]AuditMessageRead, 0, len(messages))
		for _, m := range messages {
			sd := json.RawMessage(m.StructuredData)
			if len(sd) == 0 {
				sd = json.RawMessage("{}")
			}
			out = append(out, AuditMessageRead{
				ID:             m.ID,
				Timestamp:      m.Timestamp,
				Facility:       m.Facility,
				Severity:       m.Severity,
				Hostname:       m.Hostname,
				AppName:        m.AppName,
				ProcID:         m.ProcID,
				MsgID:          m.MsgID,
				StructuredData: sd,
				Message:        m.Message,
			})
		}
		respondWithJSON(w, http.StatusOK, out)
	}
}
