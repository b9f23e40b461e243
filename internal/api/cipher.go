package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RowanDark/ebh/internal/cipher"
	"github.com/RowanDark/ebh/internal/observability/metrics"
)

// maxBatchMessages bounds a single batch request.
const maxBatchMessages = 1024

// MessageRequest is the body of the encode and decode endpoints.
type MessageRequest struct {
	Message string `json:"message"`
}

// MessageResponse carries an encoded or decoded message.
type MessageResponse struct {
	Output string `json:"output"`
}

// BatchRequest encodes or decodes many messages in one call.
type BatchRequest struct {
	Mode     string   `json:"mode"`
	Messages []string `json:"messages"`
}

// BatchResult is one entry of a batch response. Exactly one of Output and
// Error is meaningful.
type BatchResult struct {
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
	Offset *int   `json:"offset,omitempty"`
}

// BatchResponse lists results in request order.
type BatchResponse struct {
	Results []BatchResult `json:"results"`
}

// PipelineRequest represents a request to execute a pipeline of operations
type PipelineRequest struct {
	Input      string                   `json:"input"`
	Operations []cipher.OperationConfig `json:"operations"`
	Reverse    bool                     `json:"reverse"`
}

// OperationInfo describes a registered operation.
type OperationInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Reversible  bool   `json:"reversible"`
	Reverse     string `json:"reverse,omitempty"`
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req MessageRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	start := time.Now()
	out := s.codec.Encode(req.Message)
	metrics.ObserveOperation("http", metrics.DirectionEncode, len(req.Message), time.Since(start))
	s.writeJSON(w, http.StatusOK, MessageResponse{Output: out})
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req MessageRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	start := time.Now()
	out, err := s.codec.Decode(req.Message)
	if err != nil {
		s.writeDecodeError(w, err)
		return
	}
	metrics.ObserveOperation("http", metrics.DirectionDecode, len(req.Message), time.Since(start))
	s.writeJSON(w, http.StatusOK, MessageResponse{Output: out})
}

// handleBatch fans messages out over at most BatchLimit goroutines. A
// message that fails to decode yields an error entry and does not fail the
// batch.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req BatchRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode != metrics.DirectionEncode && mode != metrics.DirectionDecode {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "mode must be encode or decode"})
		return
	}
	if len(req.Messages) > maxBatchMessages {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "too many messages in batch"})
		return
	}

	results := make([]BatchResult, len(req.Messages))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(s.cfg.BatchLimit)
	for i, msg := range req.Messages {
		i, msg := i, msg
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			if mode == metrics.DirectionEncode {
				results[i].Output = s.codec.Encode(msg)
				metrics.ObserveOperation("http_batch", mode, len(msg), time.Since(start))
				return nil
			}
			out, err := s.codec.Decode(msg)
			if err != nil {
				results[i].Error = err.Error()
				var de *cipher.DecodeError
				if errors.As(err, &de) {
					offset := de.Offset
					results[i].Offset = &offset
					metrics.RecordDecodeError(de.Reason())
				}
				return nil
			}
			results[i].Output = out
			metrics.ObserveOperation("http_batch", mode, len(msg), time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.writeContextError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, BatchResponse{Results: results})
}

// handlePipeline executes registered operations in order. With reverse set,
// the reversed pipeline runs instead.
func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req PipelineRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if len(req.Operations) == 0 {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "operations field is required and must not be empty"})
		return
	}

	pipeline := &cipher.Pipeline{Operations: req.Operations, Reversible: req.Reverse}
	if req.Reverse {
		reversed, err := pipeline.Reverse()
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		pipeline = reversed
	}

	ctx := r.Context()
	result, err := pipeline.Execute(ctx, []byte(req.Input))
	if err != nil {
		if ctx.Err() != nil {
			s.writeContextError(w, ctx.Err())
			return
		}
		if cipher.IsDecodeError(err) {
			s.writeDecodeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, MessageResponse{Output: string(result)})
}

func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	operations := cipher.ListOperations()
	opList := make([]OperationInfo, 0, len(operations))
	for _, op := range operations {
		info := OperationInfo{
			Name:        op.Name(),
			Type:        string(op.Type()),
			Description: op.Description(),
		}
		if rev, ok := op.Reverse(); ok {
			info.Reversible = true
			info.Reverse = rev.Name()
		}
		opList = append(opList, info)
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"operations": opList,
	})
}

func (s *Server) writeContextError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		http.Error(w, "request timeout", http.StatusGatewayTimeout)
		return
	}
	http.Error(w, "request canceled", http.StatusRequestTimeout)
}
