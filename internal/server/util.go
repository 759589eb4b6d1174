package server

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/loykin/anrwatch/internal/events"
)

func sanitizeBase(bp string) string {
	bp = strings.TrimSpace(bp)
	if bp == "" || bp == "/" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	bp = strings.TrimRight(bp, "/")
	return bp
}

// isSafeName validates client and window ids so they stay usable as path segments.
// Allowed characters: A-Z a-z 0-9 . _ - and no consecutive dots forming "..".
func isSafeName(s string) bool {
	if s == "" {
		return false
	}
	if strings.Contains(s, "..") {
		return false
	}
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			continue
		}
		return false
	}
	return true
}

func parseTypes(q string) map[events.Type]bool {
	if q == "" {
		return nil
	}
	out := make(map[events.Type]bool)
	for _, p := range strings.Split(q, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out[events.Type(p)] = true
		}
	}
	return out
}

func writeJSON(c *gin.Context, code int, v any) {
	c.Header("Content-Type", "application/json")
	c.Status(code)
	_ = json.NewEncoder(c.Writer).Encode(v)
}
