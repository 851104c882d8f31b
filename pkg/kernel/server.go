package kernel

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/opsforge/conductor/internal/config"
	"github.com/opsforge/conductor/internal/core/domain"
	"github.com/opsforge/conductor/internal/core/ports"
	"github.com/opsforge/conductor/internal/core/services"
)

// sessionController is the slice of the session manager the API needs.
// Request paths never create sessions; that stays with the worker.
type sessionController interface {
	List() []domain.Session
	Close(id domain.SessionID) bool
}

type Server struct {
	logger   *slog.Logger
	repo     ports.JobRepository
	lock     ports.ResourceLock
	sessions sessionController
	creds    *config.CredentialsStore
	registry *services.ExecutorRegistry
}

// Ensure Server implements StrictServerInterface
var _ StrictServerInterface = (*Server)(nil)

func NewServer(
	logger *slog.Logger,
	repo ports.JobRepository,
	lock ports.ResourceLock,
	sessions sessionController,
	creds *config.CredentialsStore,
	registry *services.ExecutorRegistry,
) *Server {
	return &Server{
		logger:   logger,
		repo:     repo,
		lock:     lock,
		sessions: sessions,
		creds:    creds,
		registry: registry,
	}
}

// Handler returns the http.Handler for the server.
// Mounts generated API routes + credential management routes on a shared mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	strictHandler := NewStrictHandler(s, nil)
	HandlerFromMux(strictHandler, mux)

	// Credential routes carry secrets, so they bypass the generated layer
	// and never echo what was written.
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "GET" && r.URL.Path == "/v1/credentials" {
			s.handleListCredentials(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/v1/credentials/") {
			tenant := strings.TrimPrefix(r.URL.Path, "/v1/credentials/")
			if tenant != "" && !strings.Contains(tenant, "/") {
				switch r.Method {
				case "GET":
					s.handleGetCredentials(w, r, tenant)
					return
				case "PUT":
					s.handlePutCredentials(w, r, tenant)
					return
				case "DELETE":
					s.handleDeleteCredentials(w, r, tenant)
					return
				}
			}
		}
		mux.ServeHTTP(w, r)
	})
}

// CreateJob enqueues a job after kind and payload validation, so nothing
// undispatchable ever reaches the queue.
func (s *Server) CreateJob(ctx context.Context, request CreateJobRequestObject) (CreateJobResponseObject, error) {
	body := request.Body
	kind := domain.JobKind(body.JobType)

	if body.Target == "" {
		return CreateJob400JSONResponse{Error: "target is required"}, nil
	}
	if !s.registry.Has(kind) {
		return CreateJob400JSONResponse{Error: "unknown job type: " + body.JobType}, nil
	}
	if err := domain.DecodePayload(kind, body.Payload); err != nil {
		return CreateJob400JSONResponse{Error: "invalid payload: " + err.Error()}, nil
	}

	job, err := s.repo.Enqueue(ctx, kind, body.Target, body.Payload)
	if err != nil {
		return nil, err
	}
	s.logger.Info("job enqueued", "job_id", job.ID, "kind", job.Kind, "target", job.Target)
	return CreateJob201JSONResponse(toAPIJob(job)), nil
}

func (s *Server) GetJob(ctx context.Context, request GetJobRequestObject) (GetJobResponseObject, error) {
	job, err := s.repo.Get(ctx, domain.JobID(request.Id))
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return GetJob404JSONResponse{Error: "job not found"}, nil
		}
		return nil, err
	}
	return GetJob200JSONResponse(toAPIJob(job)), nil
}

func (s *Server) ListJobs(ctx context.Context, request ListJobsRequestObject) (ListJobsResponseObject, error) {
	filter := domain.JobFilter{}
	if request.Params.Status != nil {
		filter.Status = domain.JobStatus(*request.Params.Status)
	}
	if request.Params.Target != nil {
		filter.Target = *request.Params.Target
	}
	if request.Params.Limit != nil {
		filter.Limit = *request.Params.Limit
	}

	jobs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make(ListJobs200JSONResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, toAPIJob(job))
	}
	return out, nil
}

func (s *Server) GetJobStats(ctx context.Context, request GetJobStatsRequestObject) (GetJobStatsResponseObject, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return GetJobStats200JSONResponse{
		Pending:    stats.Pending,
		Processing: stats.Processing,
		Completed:  stats.Completed,
		Failed:     stats.Failed,
		Total:      stats.Total,
	}, nil
}

func (s *Server) CleanupJobs(ctx context.Context, request CleanupJobsRequestObject) (CleanupJobsResponseObject, error) {
	days := 30
	if request.Body != nil && request.Body.OlderThanDays != nil && *request.Body.OlderThanDays > 0 {
		days = *request.Body.OlderThanDays
	}
	deleted, err := s.repo.Cleanup(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		return nil, err
	}
	s.logger.Info("cleanup removed old jobs", "deleted", deleted, "older_than_days", days)
	return CleanupJobs200JSONResponse{Deleted: deleted}, nil
}

func (s *Server) GetLockStatus(ctx context.Context, request GetLockStatusRequestObject) (GetLockStatusResponseObject, error) {
	resp := GetLockStatus200JSONResponse{Locked: s.lock.IsLocked()}
	if info, ok := s.lock.Holder(); ok {
		resp.Owner = &info.Owner
		resp.Pid = &info.PID
		resp.AcquiredAt = &info.AcquiredAt
	}
	return resp, nil
}

func (s *Server) ListSessions(ctx context.Context, request ListSessionsRequestObject) (ListSessionsResponseObject, error) {
	sessions := s.sessions.List()
	out := make(ListSessions200JSONResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, Session{
			Id:           string(sess.ID),
			TenantKey:    sess.TenantKey,
			CreatedAt:    sess.CreatedAt,
			LastActivity: sess.LastActivity,
		})
	}
	return out, nil
}

func (s *Server) CloseSession(ctx context.Context, request CloseSessionRequestObject) (CloseSessionResponseObject, error) {
	if !s.sessions.Close(domain.SessionID(request.Id)) {
		return CloseSession404JSONResponse{Error: "session not found"}, nil
	}
	s.logger.Info("session force-closed", "session_id", request.Id)
	return CloseSession204Response{}, nil
}

func (s *Server) GetHealth(ctx context.Context, request GetHealthRequestObject) (GetHealthResponseObject, error) {
	kinds := make([]string, 0)
	for _, k := range s.registry.Kinds() {
		kinds = append(kinds, string(k))
	}
	return GetHealth200JSONResponse{Status: "ok", Kinds: &kinds}, nil
}

// --- credential routes (raw handlers, secrets never echoed) ---

type credentialsRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	AuthState string `json:"auth_state,omitempty"`
}

func (s *Server) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.creds.ListTenants(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tenants": tenants})
}

func (s *Server) handleGetCredentials(w http.ResponseWriter, r *http.Request, tenant string) {
	creds, err := s.creds.GetMasked(r.Context(), tenant)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialsNotFound) {
			writeJSONError(w, http.StatusNotFound, "credentials not found")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, creds)
}

func (s *Server) handlePutCredentials(w http.ResponseWriter, r *http.Request, tenant string) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	err := s.creds.Save(r.Context(), domain.TenantCredentials{
		TenantKey: tenant,
		Username:  req.Username,
		Password:  req.Password,
		AuthState: req.AuthState,
	})
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Info("credentials saved", "tenant", tenant)
	writeJSON(w, http.StatusOK, map[string]string{"tenant_key": tenant})
}

func (s *Server) handleDeleteCredentials(w http.ResponseWriter, r *http.Request, tenant string) {
	if err := s.creds.Delete(r.Context(), tenant); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func toAPIJob(job domain.Job) Job {
	out := Job{
		Id:              string(job.ID),
		JobType:         string(job.Kind),
		Target:          job.Target,
		Payload:         job.Payload,
		Status:          JobStatus(job.Status),
		CreatedAt:       job.CreatedAt,
		StartedAt:       job.StartedAt,
		CompletedAt:     job.CompletedAt,
		ProgressCurrent: job.ProgressCurrent,
		ProgressTotal:   job.ProgressTotal,
		Result:          job.Result,
		Error:           job.Error,
	}
	if job.ProgressMessage != "" {
		out.ProgressMessage = &job.ProgressMessage
	}
	return out
}
