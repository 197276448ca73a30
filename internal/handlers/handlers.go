package handlers

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"org-task-management-api/internal/access"
	"org-task-management-api/internal/apperr"
	"org-task-management-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

// respondError writes err as {"error", "code"} with the status of its kind.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(apperr.HTTPStatus(kind), gin.H{
		"error": apperr.Message(err),
		"code":  kind,
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": msg,
		"code":  apperr.ValidationError,
	})
}

// actor returns the resolved actor or writes a 401.
func actor(c *gin.Context) (access.Actor, bool) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authorized",
			"code":  apperr.Unauthorized,
		})
	}
	return a, ok
}

// IDList accepts either a JSON array of ids or a comma separated string.
type IDList []string

func (l *IDList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '"' {
		var csv string
		if err := json.Unmarshal(data, &csv); err != nil {
			return err
		}
		var ids []string
		for _, part := range strings.Split(csv, ",") {
			if id := strings.TrimSpace(part); id != "" {
				ids = append(ids, id)
			}
		}
		*l = ids
		return nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*l = ids
	return nil
}

func parseDateFlexible(dateStr string) (time.Time, bool) {
	if dateStr == "" {
		return time.Time{}, false
	}
	layouts := []string{
		time.RFC3339,  // full RFC3339
		"2006-01-02",  // ISO date
		"2 Jan 2006",  // e.g., 30 Oct 2025
		"02 Jan 2006", // zero-padded day
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseDueDate returns nil for an empty value.
func parseDueDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, ok := parseDateFlexible(value)
	if !ok {
		return nil, apperr.Invalidf("Invalid dueDate %q", value)
	}
	return &t, nil
}
