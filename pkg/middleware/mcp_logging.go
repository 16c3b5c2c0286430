package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/humanand/humanand/pkg/logging"
)

// maxArgumentLogLength caps string arguments in MCP request logs.
const maxArgumentLogLength = 200

// MCPRequestLogger logs JSON-RPC tool calls made against the MCP endpoint.
// Tool results flagged isError are logged as failures even though the
// JSON-RPC call itself succeeded. A nil logger disables logging.
func MCPRequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				logger.Error("Failed to read MCP request body", zap.Error(err))
				http.Error(w, "failed to read request", http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			var req rpcRequest
			if err := json.Unmarshal(body, &req); err != nil {
				logger.Debug("MCP request is not a JSON-RPC object", zap.Error(err))
			}

			logger.Debug("MCP request",
				zap.String("method", req.Method),
				zap.String("tool", req.Params.Name),
				zap.Any("arguments", redactArguments(req.Params.Arguments)))

			rec := &bodyRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			var resp rpcResponse
			if err := json.Unmarshal(rec.body.Bytes(), &resp); err != nil {
				// Streamed (SSE) and empty notification responses land here.
				return
			}

			switch {
			case resp.Error != nil:
				logger.Debug("MCP response error",
					zap.String("tool", req.Params.Name),
					zap.Int("error_code", resp.Error.Code),
					zap.String("error_message", logging.Sanitize(resp.Error.Message)),
					zap.Duration("elapsed", elapsed))
			case resp.Result.IsError:
				logger.Debug("MCP tool error",
					zap.String("tool", req.Params.Name),
					zap.Duration("elapsed", elapsed))
			default:
				logger.Debug("MCP response success",
					zap.String("tool", req.Params.Name),
					zap.Duration("elapsed", elapsed))
			}
		})
	}
}

type rpcRequest struct {
	Method string `json:"method"`
	Params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"params"`
}

type rpcResponse struct {
	Result struct {
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type bodyRecorder struct {
	http.ResponseWriter
	body bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *bodyRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// redactArguments hides secret-looking keys and scrubs tokens from strings.
func redactArguments(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}

	result := make(map[string]any, len(args))
	for k, v := range args {
		if isSecretKey(k) {
			result[k] = logging.RedactedText
			continue
		}
		if s, ok := v.(string); ok {
			result[k] = logging.TruncateString(logging.Sanitize(s), maxArgumentLogLength)
			continue
		}
		result[k] = v
	}
	return result
}

func isSecretKey(key string) bool {
	key = strings.ToLower(key)
	for _, word := range []string{"password", "secret", "token", "key", "credential"} {
		if strings.Contains(key, word) {
			return true
		}
	}
	return false
}
