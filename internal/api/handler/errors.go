package handler

import (
	"chatlounge/backend/internal/apperr"
	"chatlounge/backend/internal/realtime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (h *Handler) lang(c *gin.Context) string {
	if lang := c.Query("lang"); lang != "" && h.Text.Supports(lang) {
		return lang
	}
	if accept := c.GetHeader("Accept-Language"); len(accept) >= 2 {
		if lang := strings.ToLower(accept[:2]); h.Text.Supports(lang) {
			return lang
		}
	}
	return h.DefaultLang
}

func (h *Handler) messages(c *gin.Context) realtime.Messages {
	return realtime.Messages{Text: h.Text, Lang: h.lang(c)}
}

// respondError переводить помилку в HTTP статус і тіло {"code", "detail", "field"}.
func (h *Handler) respondError(c *gin.Context, err error) {
	e := apperr.As(err)
	status := e.Code.Kind().HTTPStatus()
	if status >= http.StatusInternalServerError {
		h.Log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}

	body := gin.H{
		"code":   e.Code,
		"detail": h.Text.Format(h.lang(c), string(e.Code), e.Params...),
	}
	if e.Field != "" {
		body["field"] = e.Field
	}
	c.JSON(status, body)
}

func (h *Handler) respondInfo(c *gin.Context, status int, key string) {
	c.JSON(status, gin.H{"code": key, "detail": h.Text.GetString(h.lang(c), key)})
}
