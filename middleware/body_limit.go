package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pithakchhorn/portfolio-api/utils"
)

// BodyLimit caps how many request body bytes a handler can read. A declared
// Content-Length above the cap is refused before the body is touched; chunked bodies
// fail with *http.MaxBytesError once the cap is crossed. max <= 0 disables the cap.
func BodyLimit(max int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if max <= 0 || ctx.Request.Body == nil {
			ctx.Next()
			return
		}
		if ctx.Request.ContentLength > max {
			ctx.Header("Connection", "close")
			utils.Abort(ctx, http.StatusRequestEntityTooLarge, 41301, "request body too large")
			return
		}
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, max)
		ctx.Next()
	}
}
