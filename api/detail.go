package api

import (
	"bytes"
	"encoding/json"
	"strings"
)

// validationItem is one entry of a structured validation error as emitted
// by the backend ({"detail":[{"loc":[...],"msg":...,"type":...},...]}).
// Loc mixes strings and indices, hence []any.
type validationItem struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// errorDetail extracts a best-effort message from an error response body.
// The structured validation shape is tried first, then the flat
// detail/message/error shape, then the raw body text. The order matters:
// the backend returns either shape for the same status code.
func errorDetail(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}

	var structured struct {
		Detail []validationItem `json:"detail"`
	}
	if err := json.Unmarshal(body, &structured); err == nil && len(structured.Detail) > 0 {
		msgs := make([]string, 0, len(structured.Detail))
		for _, item := range structured.Detail {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
		return "Validation Error (Check fields)"
	}

	var flat struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &flat); err == nil {
		switch {
		case flat.Detail != "":
			return flat.Detail
		case flat.Message != "":
			return flat.Message
		case flat.Error != "":
			return flat.Error
		}
	}

	return strings.TrimSpace(string(body))
}
