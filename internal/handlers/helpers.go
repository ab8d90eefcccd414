package handler

import (
	"net/http"
	"strconv"

	"school-fees-backend/internal/tokens"

	"github.com/gin-gonic/gin"
)

// schoolID reads the tenant from the X-School-ID header. Every route except
// health and the gateway callback requires it.
func schoolID(c *gin.Context) (uint, bool) {
	raw := c.GetHeader("X-School-ID")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-School-ID header required"})
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid X-School-ID header"})
		return 0, false
	}
	return uint(id), true
}

// signedToken returns the resource token for a record, or empty when signing
// fails. Responses always carry the numeric ID too, so a missing token is
// inconvenient rather than fatal.
func signedToken(signer *tokens.Signer, kind string, id uint) string {
	token, err := signer.Sign(kind, id)
	if err != nil {
		return ""
	}
	return token
}

func queryBool(c *gin.Context, name string) *bool {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	v := raw == "true" || raw == "1"
	return &v
}

func queryLimit(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
