package api

import (
	"fmt"
	"io"
	"net/http"

	"giftmatch/internal/logger"
	"giftmatch/pkg"

	"github.com/bytedance/sonic"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode response")
		code = http.StatusInternalServerError
		data = []byte(`{"error":"` + errSomethingWrong + `"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, pkg.ErrorResponse{Error: msg})
}

// decodeJSON reads at most maxBodyBytes of r's body into dest
func decodeJSON(r *http.Request, dest any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}
	if err := sonic.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode body: %w", err)
	}
	return nil
}
