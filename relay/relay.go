// Package relay serves event images through this service so that clients
// never see the hosting domain. Images are streamed, never stored.
package relay

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"agenda_scrooper/normalize"
)

const failureBody = "Error cargando imagen"

type Server struct {
	client *resty.Client
	logger *zap.Logger
}

func NewServer(client *resty.Client, logger *zap.Logger) *Server {
	return &Server{client: client, logger: logger}
}

// SetupRoutes registers the relay endpoints on r.
func (s *Server) SetupRoutes(r *gin.Engine) {
	r.GET("/health", s.Health)
	r.GET("/img-proxy", s.ImageProxy)
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// ImageProxy decodes the src token, fetches the image and streams it back
// with the upstream content type. Every failure is a 500 with a fixed body.
func (s *Server) ImageProxy(c *gin.Context) {
	token := c.Query("src")
	target, err := normalize.DecodeImageToken(token)
	if err != nil {
		s.fail(c, token, err)
		return
	}

	resp, err := s.client.R().
		SetContext(c.Request.Context()).
		SetDoNotParseResponse(true).
		Get(target)
	if err != nil {
		s.fail(c, target, err)
		return
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		s.fail(c, target, fmt.Errorf("upstream status %d", resp.StatusCode()))
		return
	}

	contentType := resp.Header().Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, resp.RawResponse.ContentLength, contentType, body, nil)
}

func (s *Server) fail(c *gin.Context, src string, err error) {
	s.logger.Error("image relay failed", zap.String("src", src), zap.Error(err))
	c.String(http.StatusInternalServerError, failureBody)
}
