package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mercator-hq/ldatranslate/pkg/audit"
	"mercator-hq/ldatranslate/pkg/security/auth"
	"mercator-hq/ldatranslate/pkg/voting/engine"
	"mercator-hq/ldatranslate/pkg/voting/scope"
	"mercator-hq/ldatranslate/pkg/voting/value"
)

type errorBody struct {
	Type         string `json:"type"`
	Message      string `json:"message"`
	EvaluationID string `json:"evaluation_id,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type votingsResponse struct {
	Votings  []string  `json:"votings"`
	Version  string    `json:"version"`
	LoadedAt time.Time `json:"loaded_at"`
}

type votingResponse struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

type registerRequest struct {
	Source string `json:"source"`
	Alias  string `json:"alias,omitempty"`
}

type evaluateRequest struct {
	Voting string            `json:"voting"`
	Global *scope.Vars       `json:"global,omitempty"`
	Voters []*scope.Vars     `json:"voters"`
	Limit  int               `json:"limit,omitempty"`
	Labels map[string]string `json:"labels,omitempty"`
}

type evaluateResponse struct {
	EvaluationID string        `json:"evaluation_id"`
	Voting       string        `json:"voting"`
	Kind         string        `json:"kind"`
	Value        value.Value   `json:"value"`
	Score        *float64      `json:"score,omitempty"`
	Fallback     bool          `json:"fallback"`
	Error        string        `json:"error,omitempty"`
	Global       *scope.Vars   `json:"global"`
	Voters       []*scope.Vars `json:"voters"`
	DurationMS   float64       `json:"duration_ms"`
}

type auditResponse struct {
	Records []*audit.Record `json:"records"`
	Total   int64           `json:"total"`
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, errType, message, evalID string) {
	writeJSON(w, code, errorResponse{Error: errorBody{Type: errType, Message: message, EvaluationID: evalID}})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Server) handleListVotings(w http.ResponseWriter, r *http.Request) {
	reg := s.engine.Registry()
	writeJSON(w, http.StatusOK, votingsResponse{
		Votings:  reg.Names(),
		Version:  reg.Version(),
		LoadedAt: s.engine.LoadedAt(),
	})
}

func (s *Server) handleGetVoting(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	src, ok := s.engine.Describe(name)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown voting "+strconv.Quote(name), "")
		return
	}
	writeJSON(w, http.StatusOK, votingResponse{Name: name, Source: src})
}

func (s *Server) handleRegisterVoting(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, engine.ErrorTypeInvalidRequest, err.Error(), "")
		return
	}

	var err error
	if req.Alias == "" {
		err = s.engine.Register(req.Source)
	} else {
		err = s.engine.RegisterAt(req.Alias, req.Source)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, engine.ErrorType(err), err.Error(), "")
		return
	}

	reg := s.engine.Registry()
	attrs := []any{"alias", req.Alias, "version", reg.Version()}
	if key, ok := auth.GetAPIKeyInfo(r.Context()); ok {
		attrs = append(attrs, "key_id", key.ID)
	}
	s.logger.InfoContext(r.Context(), "voting registered", attrs...)
	writeJSON(w, http.StatusCreated, votingsResponse{
		Votings:  reg.Names(),
		Version:  reg.Version(),
		LoadedAt: s.engine.LoadedAt(),
	})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, engine.ErrorTypeInvalidRequest, err.Error(), "")
		return
	}

	global := req.Global
	if global == nil {
		global = scope.New()
	}
	voters := make([]scope.Context, 0, len(req.Voters))
	for _, v := range req.Voters {
		if v == nil {
			v = scope.New()
		}
		voters = append(voters, v)
	}

	res, err := s.engine.Evaluate(r.Context(), &engine.Request{
		Voting: req.Voting,
		Global: global,
		Voters: voters,
		Labels: req.Labels,
		Limit:  req.Limit,
	})
	if err != nil {
		var evalErr *engine.EvaluationError
		if errors.As(err, &evalErr) {
			writeError(w, evaluationStatus(evalErr.Type), evalErr.Type, evalErr.Err.Error(), evalErr.EvaluationID)
			return
		}
		writeError(w, http.StatusInternalServerError, engine.ErrorTypeInternal, err.Error(), "")
		return
	}

	resp := evaluateResponse{
		EvaluationID: res.EvaluationID,
		Voting:       res.Voting,
		Kind:         res.Kind,
		Value:        res.Value,
		Fallback:     res.Fallback,
		Global:       global,
		Voters:       make([]*scope.Vars, len(res.Voters)),
		DurationMS:   float64(res.Duration) / float64(time.Millisecond),
	}
	if res.HasScore {
		score := res.Score
		resp.Score = &score
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	for i, v := range res.Voters {
		resp.Voters[i] = varsOf(v)
	}
	writeJSON(w, http.StatusOK, resp)
}

// varsOf returns c as *scope.Vars, copying contexts of other types.
func varsOf(c scope.Context) *scope.Vars {
	if v, ok := c.(*scope.Vars); ok {
		return v
	}
	return scope.New(c.Snapshot()...)
}

func evaluationStatus(errType string) int {
	switch errType {
	case engine.ErrorTypeInvalidRequest, engine.ErrorTypeParse:
		return http.StatusBadRequest
	case engine.ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case engine.ErrorTypeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *Server) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	q, err := parseAuditQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, engine.ErrorTypeInvalidRequest, err.Error(), "")
		return
	}
	q.ApplyDefaults(s.query.DefaultLimit)
	if err := q.Validate(s.query.MaxLimit); err != nil {
		writeError(w, http.StatusBadRequest, engine.ErrorTypeInvalidRequest, err.Error(), "")
		return
	}

	records, err := s.audit.Query(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, engine.ErrorTypeInternal, err.Error(), "")
		return
	}
	total, err := s.audit.Count(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, engine.ErrorTypeInternal, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, auditResponse{Records: records, Total: total})
}

// parseAuditQuery reads the filters of GET /v1/audit. Times are RFC 3339.
func parseAuditQuery(v url.Values) (*audit.Query, error) {
	q := &audit.Query{
		VotingName:   v.Get("voting"),
		VotingHash:   v.Get("hash"),
		EvaluationID: v.Get("evaluation_id"),
		Status:       v.Get("status"),
		SortOrder:    strings.ToLower(v.Get("order")),
	}

	for _, p := range []struct {
		key string
		dst **time.Time
	}{{"since", &q.StartTime}, {"until", &q.EndTime}} {
		if s := v.Get(p.key); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return nil, &audit.QueryError{Field: p.key, Reason: err.Error()}
			}
			*p.dst = &t
		}
	}

	for _, p := range []struct {
		key string
		dst *int
	}{{"limit", &q.Limit}, {"offset", &q.Offset}} {
		if s := v.Get(p.key); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, &audit.QueryError{Field: p.key, Reason: err.Error()}
			}
			*p.dst = n
		}
	}
	return q, nil
}
