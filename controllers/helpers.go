package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/pithakchhorn/portfolio-api/middleware"
	"github.com/pithakchhorn/portfolio-api/services"
	"github.com/pithakchhorn/portfolio-api/utils"
)

// getUserID extracts the authenticated user ID from context.
func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}

// parseID reads the :id path parameter; it answers 400 itself when the id is invalid.
func parseID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(ctx.Param("id")), 10, 32)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid id")
		return 0, false
	}
	return uint(id), true
}

func queryInt(ctx *gin.Context, name string, def int) (int, error) {
	v := strings.TrimSpace(ctx.Query(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, services.Invalid(name, "must be an integer")
	}
	return n, nil
}

// parseListOptions reads skip/limit; range checks are left to the store.
func parseListOptions(ctx *gin.Context) (services.ListOptions, error) {
	skip, err := queryInt(ctx, "skip", 0)
	if err != nil {
		return services.ListOptions{}, err
	}
	limit, err := queryInt(ctx, "limit", services.DefaultListLimit)
	if err != nil {
		return services.ListOptions{}, err
	}
	return services.ListOptions{Skip: skip, Limit: limit, Filter: map[string]interface{}{}}, nil
}

func isMultipart(ctx *gin.Context) bool {
	return ctx.ContentType() == binding.MIMEMultipartPOSTForm
}

// bindBody binds a JSON or multipart body into obj.
func bindBody(ctx *gin.Context, obj interface{}) error {
	var err error
	if isMultipart(ctx) {
		err = ctx.ShouldBindWith(obj, binding.FormMultipart)
	} else {
		err = ctx.ShouldBindJSON(obj)
	}
	if err != nil {
		return malformedBody(err)
	}
	return nil
}

// malformedBody reports a bind failure, keeping body-cap violations distinct.
func malformedBody(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return services.ErrTooLarge
	}
	return services.Invalid("body", "malformed request body")
}

// receiveImage stores the "image" multipart part if the request has one. The returned
// bool is false when no file was sent.
func receiveImage(ctx *gin.Context, ing *services.Ingestor, kind, title string) (services.Stored, bool, error) {
	if !isMultipart(ctx) {
		return services.Stored{}, false, nil
	}
	fh, err := ctx.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return services.Stored{}, false, nil
		}
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return services.Stored{}, false, services.ErrTooLarge
		}
		return services.Stored{}, false, services.Invalid("image", "unreadable file part")
	}
	f, err := fh.Open()
	if err != nil {
		return services.Stored{}, false, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	stored, err := ing.Ingest(ctx.Request.Context(), services.Upload{
		Kind:     kind,
		Body:     f,
		Filename: fh.Filename,
		Size:     fh.Size,
		Title:    title,
	})
	switch {
	case err == nil:
		middleware.UploadsTotal.WithLabelValues(kind, "stored").Inc()
	case errors.Is(err, services.ErrUnsupportedType), errors.Is(err, services.ErrTooLarge):
		middleware.UploadsTotal.WithLabelValues(kind, "rejected").Inc()
	default:
		middleware.UploadsTotal.WithLabelValues(kind, "error").Inc()
	}
	if err != nil {
		return services.Stored{}, false, err
	}
	return stored, true, nil
}

// detached returns a context for cleanup work that must outlive a cancelled request.
func detached(ctx *gin.Context) context.Context {
	return context.WithoutCancel(ctx.Request.Context())
}

// respondError maps service errors to the response envelope. Unknown errors are logged
// and hidden from the client.
func respondError(ctx *gin.Context, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		utils.Error(ctx, http.StatusBadRequest, 40001, ve.Error())
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, "resource not found")
	case errors.Is(err, services.ErrConflict):
		utils.Error(ctx, http.StatusConflict, 40901, "resource already exists")
	case errors.Is(err, services.ErrUnsupportedType):
		utils.Error(ctx, http.StatusUnsupportedMediaType, 41501,
			"unsupported file type, allowed: "+strings.Join(services.AllowedExtensions(), ", "))
	case errors.Is(err, services.ErrTooLarge):
		utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, "file too large")
	case errors.Is(err, services.ErrInvalidCredentials):
		ctx.Header("WWW-Authenticate", "Bearer")
		utils.Error(ctx, http.StatusUnauthorized, 40106, "incorrect username or password")
	default:
		utils.Sugar.Errorw("request failed", "path", ctx.FullPath(), "method", ctx.Request.Method, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	}
}

func trimmedRequired(field, value string, maxLen int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", services.Required(field)
	}
	return value, checkLen(field, value, maxLen)
}

func checkLen(field, value string, maxLen int) error {
	if len([]rune(value)) > maxLen {
		return services.Invalid(field, fmt.Sprintf("must be at most %d characters", maxLen))
	}
	return nil
}

// optionalString maps "" to nil for nullable columns.
func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
