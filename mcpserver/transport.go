package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/beep-labs/beep-go/config"
)

// Run serves the tool surface on the configured transport until ctx is
// cancelled. Stdio mode runs until the client disconnects; HTTP mode mounts
// the SSE endpoints plus a health route in a gin engine.
func (s *Server) Run(ctx context.Context, mode config.Mode, port int) error {
	switch mode {
	case config.ModeStdio:
		s.logger.Info("serving MCP over stdio")
		return s.mcp.Run(ctx, &mcpsdk.StdioTransport{})
	case config.ModeHTTPS:
		return s.runHTTP(ctx, port)
	default:
		return fmt.Errorf("unsupported communication mode: %s", mode)
	}
}

func (s *Server) runHTTP(ctx context.Context, port int) error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	sseHandler := mcpsdk.NewSSEHandler(func(req *http.Request) *mcpsdk.Server {
		return s.mcp
	}, nil)

	r.GET("/sse", gin.WrapH(sseHandler))
	r.POST("/messages", gin.WrapH(sseHandler))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"server": "beep-mcp-server",
		})
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("serving MCP over HTTP", zap.Int("port", port))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
