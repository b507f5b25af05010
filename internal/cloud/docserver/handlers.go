package docserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"nathanbeddoewebdev/promptsync/internal/cloud"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	userKey         = "docserver.user"
	batchUpsertVerb = ":batchUpsert"
)

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, cloud.ErrorResponse{Error: msg})
}

// requireToken resolves the bearer token to a user.
func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			abortWithError(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if len(s.allowed) > 0 && !s.allowed[token] {
			abortWithError(c, http.StatusForbidden, "token not allowed")
			return
		}
		c.Set(userKey, token)
		c.Next()
	}
}

type upsertBody struct {
	Documents []map[string]json.RawMessage `json:"documents"`
}

func (s *Server) handleBatchUpsert(c *gin.Context) {
	collection, ok := strings.CutSuffix(c.Param("collection"), batchUpsertVerb)
	if !ok || collection == "" {
		abortWithError(c, http.StatusNotFound, "unknown method")
		return
	}

	var body upsertBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	n, err := s.data.upsert(c.GetString(userKey), collection, body.Documents)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	s.upserted.Add(float64(n))
	s.log.Debug("batch upsert", zap.String("collection", collection), zap.Int("documents", n))
	c.JSON(http.StatusOK, cloud.BatchUpsertResponse{Upserted: n})
}

func (s *Server) handleQuery(c *gin.Context) {
	collection := c.Param("collection")
	if strings.Contains(collection, ":") {
		abortWithError(c, http.StatusMethodNotAllowed, "custom methods require POST")
		return
	}

	var since time.Time
	if raw := c.Query("updated_since"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "updated_since must be an RFC 3339 timestamp")
			return
		}
		since = t
	}

	docs := s.data.since(c.GetString(userKey), collection, since)
	s.queries.Inc()
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}
