// Package toolsrv exposes the skill catalog as a tool-call server speaking
// JSON-RPC 2.0 over stdio, one message per line. Agent runtimes launch the
// binary as a subprocess, call initialize and tools/list, then invoke tools
// via tools/call.
package toolsrv

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/lorekeep/skillforge/internal/matching"
	"github.com/lorekeep/skillforge/internal/service"
	"github.com/lorekeep/skillforge/internal/skill"
)

const protocolVersion = "2024-11-05"

// ToolInfo describes a tool exposed by the server.
type ToolInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// Server dispatches JSON-RPC requests from a reader and writes responses to
// a writer.
type Server struct {
	svc    *service.Service
	logger *zap.Logger
}

// NewServer creates a tool server backed by the given skill service.
func NewServer(svc *service.Service, logger *zap.Logger) *Server {
	return &Server{svc: svc, logger: logger}
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// Run reads newline-delimited JSON-RPC requests until EOF or context
// cancellation. Notifications (requests without an id) get no response.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req rpcRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			s.logger.Warn("malformed request", zap.Error(err))
			enc.Encode(rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: codeParseError, Message: "parse error"}})
			continue
		}

		resp := s.handle(ctx, &req)
		if resp == nil {
			continue // notification
		}
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	return scanner.Err()
}

func (s *Server) handle(ctx context.Context, req *rpcRequest) *rpcResponse {
	if len(req.ID) == 0 {
		// Notifications like notifications/initialized need no reply.
		return nil
	}
	resp := &rpcResponse{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case "initialize":
		resp.Result = map[string]interface{}{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]interface{}{"tools": map[string]interface{}{}},
			"serverInfo":      map[string]string{"name": "skillforge", "version": "1.0.0"},
		}
	case "tools/list":
		resp.Result = map[string]interface{}{"tools": s.tools()}
	case "tools/call":
		result, err := s.callTool(ctx, req.Params)
		if err != nil {
			resp.Error = errorFor(err)
		} else {
			resp.Result = result
		}
	default:
		resp.Error = &rpcError{Code: codeMethodNotFound, Message: fmt.Sprintf("unknown method %q", req.Method)}
	}
	return resp
}

func errorFor(err error) *rpcError {
	var confErr *service.ConflictError
	switch {
	case errors.As(err, &confErr), errors.Is(err, skill.ErrNotFound):
		return &rpcError{Code: codeInvalidParams, Message: err.Error()}
	default:
		return &rpcError{Code: codeInternalError, Message: err.Error()}
	}
}

func (s *Server) tools() []ToolInfo {
	strProp := func(desc string) map[string]interface{} {
		return map[string]interface{}{"type": "string", "description": desc}
	}
	strList := map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}}
	return []ToolInfo{
		{
			Name:        "find_skills",
			Description: "Match a task description against the skill catalog and return ranked candidates",
			InputSchema: schema(map[string]interface{}{
				"task":           strProp("The task to find skills for"),
				"min_confidence": map[string]interface{}{"type": "number", "description": "Minimum confidence, default 0.3"},
			}, "task"),
		},
		{
			Name:        "create_skill",
			Description: "Create a new skill; fails with conflict details unless force is set",
			InputSchema: schema(map[string]interface{}{
				"name":          strProp("Unique skill name"),
				"description":   strProp("What the skill does and when to use it"),
				"tags":          strList,
				"prerequisites": strList,
				"steps":         strList,
				"examples":      strList,
				"content":       strProp("Optional markdown body; generated when omitted"),
				"force":         map[string]interface{}{"type": "boolean"},
			}, "name", "description"),
		},
		{
			Name:        "get_skill",
			Description: "Fetch a skill's full markdown content by id",
			InputSchema: schema(map[string]interface{}{"id": strProp("Skill id")}, "id"),
		},
		{
			Name:        "list_skills",
			Description: "List skill metadata, optionally including deprecated entries",
			InputSchema: schema(map[string]interface{}{
				"include_deprecated": map[string]interface{}{"type": "boolean"},
			}),
		},
		{
			Name:        "check_conflicts",
			Description: "Check a proposed skill for overlap with existing skills",
			InputSchema: schema(map[string]interface{}{
				"name":        strProp("Proposed skill name"),
				"description": strProp("Proposed description"),
				"tags":        strList,
			}, "name", "description"),
		},
		{
			Name:        "analyze_description",
			Description: "Score a skill description for matchability and suggest improvements",
			InputSchema: schema(map[string]interface{}{
				"description":       strProp("The description to analyze"),
				"intended_triggers": strList,
			}, "description"),
		},
		{
			Name:        "record_usage",
			Description: "Record that a skill was used and whether it helped",
			InputSchema: schema(map[string]interface{}{
				"id":      strProp("Skill id"),
				"success": map[string]interface{}{"type": "boolean"},
			}, "id"),
		},
		{
			Name:        "deprecate_skill",
			Description: "Mark a skill deprecated so it stops matching",
			InputSchema: schema(map[string]interface{}{"id": strProp("Skill id")}, "id"),
		},
	}
}

func schema(props map[string]interface{}, required ...string) map[string]interface{} {
	out := map[string]interface{}{"type": "object", "properties": props}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// callTool validates params and routes to the matching service operation.
// Results follow the tool-call content convention: a single text block
// holding JSON.
func (s *Server) callTool(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var params callParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("parse tool call params: %w", err)
	}
	s.logger.Debug("tool call", zap.String("tool", params.Name))

	var (
		payload interface{}
		err     error
	)
	switch params.Name {
	case "find_skills":
		payload, err = s.findSkills(ctx, params.Arguments)
	case "create_skill":
		payload, err = s.createSkill(ctx, params.Arguments)
	case "get_skill":
		payload, err = s.getSkill(ctx, params.Arguments)
	case "list_skills":
		payload, err = s.listSkills(ctx, params.Arguments)
	case "check_conflicts":
		payload, err = s.checkConflicts(ctx, params.Arguments)
	case "analyze_description":
		payload, err = s.analyzeDescription(params.Arguments)
	case "record_usage":
		payload, err = s.recordUsage(ctx, params.Arguments)
	case "deprecate_skill":
		payload, err = s.deprecateSkill(ctx, params.Arguments)
	default:
		return nil, fmt.Errorf("unknown tool %q", params.Name)
	}
	if err != nil {
		return nil, err
	}

	text, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return map[string]interface{}{
		"content": []map[string]string{{"type": "text", "text": string(text)}},
	}, nil
}

func (s *Server) findSkills(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		Task          string   `json:"task"`
		MinConfidence *float64 `json:"min_confidence"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("parse find_skills args: %w", err)
	}
	min := matching.DefaultMinConfidence
	if args.MinConfidence != nil {
		min = *args.MinConfidence
	}
	matches, err := s.svc.MatchTask(ctx, args.Task, min)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []matching.Match{}
	}
	return matches, nil
}

type draftArgs struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Tags          []string `json:"tags"`
	Prerequisites []string `json:"prerequisites"`
	Steps         []string `json:"steps"`
	Examples      []string `json:"examples"`
	Content       string   `json:"content"`
}

func (a *draftArgs) draft() *skill.Draft {
	return &skill.Draft{
		Name:          a.Name,
		Description:   a.Description,
		Tags:          a.Tags,
		Prerequisites: a.Prerequisites,
		Steps:         a.Steps,
		Examples:      a.Examples,
		Content:       a.Content,
	}
}

func (s *Server) createSkill(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		draftArgs
		Force bool `json:"force"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("parse create_skill args: %w", err)
	}
	return s.svc.CreateSkill(ctx, args.draft(), args.Force)
}

func (s *Server) getSkill(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("parse get_skill args: %w", err)
	}
	return s.svc.GetSkill(ctx, args.ID)
}

func (s *Server) listSkills(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		IncludeDeprecated bool `json:"include_deprecated"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("parse list_skills args: %w", err)
		}
	}
	skills, err := s.svc.ListSkills(ctx, args.IncludeDeprecated)
	if err != nil {
		return nil, err
	}
	if skills == nil {
		skills = []*skill.Metadata{}
	}
	return skills, nil
}

func (s *Server) checkConflicts(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args draftArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("parse check_conflicts args: %w", err)
	}
	conflicts, err := s.svc.CheckConflicts(ctx, args.draft(), matching.DefaultOverlapThreshold)
	if err != nil {
		return nil, err
	}
	if conflicts == nil {
		conflicts = []matching.Conflict{}
	}
	return conflicts, nil
}

func (s *Server) analyzeDescription(raw json.RawMessage) (interface{}, error) {
	var args struct {
		Description      string   `json:"description"`
		IntendedTriggers []string `json:"intended_triggers"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("parse analyze_description args: %w", err)
	}
	if strings.TrimSpace(args.Description) == "" {
		return nil, fmt.Errorf("description is required")
	}
	return s.svc.AnalyzeDescription(args.Description, args.IntendedTriggers), nil
}

func (s *Server) recordUsage(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		ID      string `json:"id"`
		Success bool   `json:"success"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("parse record_usage args: %w", err)
	}
	if err := s.svc.RecordUsage(ctx, args.ID, args.Success); err != nil {
		return nil, err
	}
	return map[string]string{"status": "recorded"}, nil
}

func (s *Server) deprecateSkill(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("parse deprecate_skill args: %w", err)
	}
	if err := s.svc.DeprecateSkill(ctx, args.ID); err != nil {
		return nil, err
	}
	return map[string]string{"status": "deprecated"}, nil
}
