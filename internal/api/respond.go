package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: write response", zap.Error(err))
	}
}

type errorBody struct {
	Detail string `json:"detail"`
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// attachmentName turns a display name into a safe PDF filename, keeping
// letters, digits, spaces, hyphens and underscores.
func attachmentName(name string) string {
	safe := strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			return r
		}
		return -1
	}, name))
	if safe == "" {
		return "provider.pdf"
	}
	return safe + ".pdf"
}
