package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"limp/internal/gateway/database"
	"limp/internal/logger"
	"limp/internal/store"
)

// AnalyzeFunc 触发一次完整的 episode 分析（感知→出题→推理→评测）。
type AnalyzeFunc func(ctx context.Context, episodeID string) (*store.RunRecord, error)

// ServerConfig 描述 HTTP 服务依赖。
type ServerConfig struct {
	Addr      string
	Store     *store.Store
	Calls     *database.CallLogStore
	ReportDir string
	Analyze   AnalyzeFunc
	// Refresh 清空 episode 的帧缓存，analyze?refresh=true 时调用。
	Refresh func(episodeID string) error
}

// Server 暴露时间线、作答和评测结果的只读 API，以及按需触发分析的入口。
type Server struct {
	addr   string
	router *gin.Engine
}

// NewServer 构建 HTTP server。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("http server requires a store")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9935"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	registerRoutes(api, cfg)

	if cfg.ReportDir != "" {
		router.Static("/reports", cfg.ReportDir)
	}

	return &Server{addr: cfg.Addr, router: router}, nil
}

func registerRoutes(api *gin.RouterGroup, cfg ServerConfig) {
	api.GET("/episodes", func(c *gin.Context) {
		ids, err := cfg.Store.ListEpisodes(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"episodes": ids})
	})

	api.GET("/episodes/:id", func(c *gin.Context) {
		ep, err := cfg.Store.GetEpisode(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if ep == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "episode not found"})
			return
		}
		c.JSON(http.StatusOK, ep)
	})

	api.GET("/episodes/:id/answers", func(c *gin.Context) {
		records, err := cfg.Store.GetAnswers(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"answers": records})
	})

	api.GET("/episodes/:id/report", func(c *gin.Context) {
		run, err := cfg.Store.LatestRun(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if run == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no evaluation run for episode"})
			return
		}
		c.JSON(http.StatusOK, run)
	})

	api.GET("/runs", func(c *gin.Context) {
		runs, err := cfg.Store.ListRuns(c.Request.Context(), 50)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"runs": runs})
	})

	api.GET("/llm/calls", func(c *gin.Context) {
		if cfg.Calls == nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "call audit not configured"})
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		records, err := cfg.Calls.Recent(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"calls": records})
	})

	api.POST("/episodes/:id/analyze", func(c *gin.Context) {
		if cfg.Analyze == nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "analysis not configured"})
			return
		}
		if refresh, _ := strconv.ParseBool(c.Query("refresh")); refresh && cfg.Refresh != nil {
			if err := cfg.Refresh(c.Param("id")); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}
		run, err := cfg.Analyze(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, run)
	})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Infof("http: listening on %s", s.addr)
	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
