package ginartifact

import (
	"html"
	"net/http"
	"strings"

	"github.com/deepankarm/artifactstream/pkg/artifact"
	"github.com/gin-gonic/gin"
)

// Field values must not close the raw-text element they are embedded in.
var (
	styleCloser  = strings.NewReplacer("</style", `<\/style`, "</STYLE", `<\/STYLE`)
	scriptCloser = strings.NewReplacer("</script", `<\/script`, "</SCRIPT", `<\/SCRIPT`)
)

// PreviewHTML assembles doc into a standalone page
func PreviewHTML(title string, doc *artifact.Document) string {
	return `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>` + html.EscapeString(title) + `</title>
    <style>
` + styleCloser.Replace(doc.CSS) + `
    </style>
</head>
<body>
` + doc.HTML + `
<script>
` + scriptCloser.Replace(doc.JS) + `
</script>
</body>
</html>`
}

func (s *Server) preview(c *gin.Context) {
	rec, ok := s.lookup(c)
	if !ok {
		return
	}
	if rec.Document == nil {
		abortWithError(c, http.StatusConflict, "artifact has no document: "+string(rec.Reason))
		return
	}

	etag := `"` + rec.Fingerprint + `"`
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}

	title := rec.Prompt
	if title == "" {
		title = rec.ID
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, PreviewHTML(title, rec.Document))
}
