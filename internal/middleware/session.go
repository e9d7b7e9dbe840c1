package middleware

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const dbSessionKey = "db_session"

// DBSession binds a gorm session to each request's context. Queries issued
// through it are cancelled when the client goes away, and the session is
// discarded once the handler chain returns.
func DBSession(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := db.WithContext(c.Request.Context())
		c.Set(dbSessionKey, session)
		defer c.Set(dbSessionKey, nil)

		c.Next()
	}
}

// GetDB returns the request's session, or false outside DBSession.
func GetDB(c *gin.Context) (*gorm.DB, bool) {
	value, exists := c.Get(dbSessionKey)
	if !exists {
		return nil, false
	}
	session, ok := value.(*gorm.DB)
	if !ok || session == nil {
		return nil, false
	}
	return session, true
}
