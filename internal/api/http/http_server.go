package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/olyamironova/limitbook/internal/api/dto"
	"github.com/olyamironova/limitbook/internal/core"
	"github.com/olyamironova/limitbook/internal/domain"
	"github.com/olyamironova/limitbook/internal/loadgen"
	"github.com/olyamironova/limitbook/internal/logger"
	"github.com/olyamironova/limitbook/internal/metrics"
	"github.com/olyamironova/limitbook/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Options struct {
	Depth     int
	MaxDepth  int
	Limiter   *middleware.RateLimiter // nil disables rate limiting
	Generator *loadgen.Generator      // nil uses a randomly seeded one
}

type HTTPServer struct {
	eng      *core.Engine
	gen      *loadgen.Generator
	depth    int
	maxDepth int
	router   *gin.Engine
	srv      *http.Server
}

func NewHTTPServer(eng *core.Engine, opts Options) *HTTPServer {
	if opts.Depth <= 0 {
		opts.Depth = 10
	}
	if opts.MaxDepth < opts.Depth {
		opts.MaxDepth = opts.Depth
	}
	if opts.Generator == nil {
		opts.Generator = loadgen.NewRandom()
	}
	metrics.MustRegister()

	s := &HTTPServer{
		eng:      eng,
		gen:      opts.Generator,
		depth:    opts.Depth,
		maxDepth: opts.MaxDepth,
	}

	r := gin.New()
	r.Use(middleware.Recover(), middleware.RequestID(), middleware.AccessLog())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", middleware.ClientIDHeader, middleware.RequestIDHeader},
		ExposeHeaders:   []string{middleware.RequestIDHeader},
		MaxAge:          12 * time.Hour,
	}))

	r.GET("/", s.index)
	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/")
	if opts.Limiter != nil {
		api.Use(opts.Limiter.Middleware())
	}
	api.GET("/book", s.getBook)
	api.POST("/orders", s.submitOrder)
	api.POST("/clear", s.clear)
	api.POST("/stimmy", s.stimmy)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "not found"})
	})

	s.router = r
	s.srv = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *HTTPServer) Handler() http.Handler { return s.router }

// Run listens on addr and serves until Shutdown. It returns nil after a
// clean shutdown, including one that happened before Run was called.
func (s *HTTPServer) Run(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

func (s *HTTPServer) Serve(lis net.Listener) error {
	logger.Info(context.Background(), "http server listening", zap.String("addr", lis.Addr().String()))
	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *HTTPServer) getBook(c *gin.Context) {
	depth := s.depth
	if raw := c.Query("depth"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "depth must be a non-negative integer"})
			return
		}
		depth = min(n, s.maxDepth)
	}
	c.JSON(http.StatusOK, dto.NewBookResponse(s.eng.Snapshot(depth)))
}

func (s *HTTPServer) submitOrder(c *gin.Context) {
	var req dto.SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid json: " + err.Error()})
		return
	}

	o, err := req.Parse()
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	res, err := s.eng.Submit(c.Request.Context(), o.Type, o.Side, o.Price, o.Quantity)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
			return
		}
		logger.Error(c, "submit failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusOK, dto.NewSubmitOrderResponse(res))
}

func (s *HTTPServer) clear(c *gin.Context) {
	s.eng.Reset(c.Request.Context())
	c.JSON(http.StatusOK, dto.StatusResponse{Status: "cleared"})
}

func (s *HTTPServer) stimmy(c *gin.Context) {
	rep, err := s.gen.Inject(c.Request.Context(), s.eng)
	if err != nil {
		logger.Error(c, "load injection failed", zap.Int("added", rep.Added), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
		return
	}
	logger.Info(c, "load injected", zap.Int("added", rep.Added), zap.Int64("filled", rep.Filled), zap.Int("trades", rep.Trades))
	c.JSON(http.StatusOK, dto.StatusResponse{Status: "ok", Added: rep.Added})
}

func (s *HTTPServer) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, dto.StatusResponse{Status: "ok"})
}

const indexHTML = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>limitbook</title></head>
<body>
<h1>limitbook</h1>
<ul>
<li><a href="/book">GET /book</a> top of book</li>
<li>POST /orders {"side":"buy","type":"limit","qty":10,"price":101.5}</li>
<li>POST /stimmy adds 40 random limit orders</li>
<li>POST /clear empties the book</li>
<li><a href="/metrics">GET /metrics</a></li>
</ul>
</body>
</html>
`

func (s *HTTPServer) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexHTML))
}
