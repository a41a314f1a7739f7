package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/wellsitefocus/rigup_backend/config"
	"github.com/wellsitefocus/rigup_backend/models"
	"github.com/wellsitefocus/rigup_backend/models/reports"
	"github.com/wellsitefocus/rigup_backend/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultPort = "8080"

var tracer trace.Tracer = otel.Tracer("rigup-backend")

// Define a struct to represent the rate limiter.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func getRedisClient(redisAddress string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
	return client
}

// respondError maps the resolution/sequencer error taxonomy onto HTTP.
// Ambiguity is its own status so clients can branch on it and keep narrowing.
func respondError(c *gin.Context, err error) {
	if ambiguous, ok := utils.AsAmbiguous(err); ok {
		c.JSON(http.StatusConflict, gin.H{
			"error":              ambiguous.Error(),
			"candidate_count":    ambiguous.CandidateCount,
			"varying_attributes": ambiguous.VaryingAttributes,
		})
		return
	}
	switch {
	case errors.Is(err, utils.ErrorNoMatch), errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorUnknownCategory), errors.Is(err, utils.ErrorPreconditionViolation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorDataIntegrity):
		// Operator anomaly, not a client mistake.
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
	_ = c.Error(err)
}

func bindJSON(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
		return false
	}
	return true
}

func pathId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s must be a positive integer", name)})
		return 0, false
	}
	return id, true
}

type categoryResponse struct {
	Category       models.PartCategory `json:"category"`
	Label          string              `json:"label"`
	RequiresTarget bool                `json:"requires_target"`
	Composite      bool                `json:"composite"`
}

func listCategoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		categories := make([]categoryResponse, 0)
		for _, category := range models.AllPartCategories() {
			categories = append(categories, categoryResponse{
				Category:       category,
				Label:          category.Label(),
				RequiresTarget: category.RequiresTarget(),
				Composite:      category.IsComposite(),
			})
		}
		c.JSON(http.StatusOK, gin.H{"categories": categories})
	}
}

func targetOptionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		category := models.PartCategory(c.Param("category"))
		if !category.Valid() {
			respondError(c, utils.ErrorUnknownCategory)
			return
		}
		options, err := models.ListTargetOptions(c.Request.Context(), category)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"category": category, "target_options": options})
	}
}

type filterRequest struct {
	Filter models.SelectionFilter `json:"filter"`
}

func listCandidatesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		category := models.PartCategory(c.Param("category"))
		if !category.Valid() {
			respondError(c, utils.ErrorUnknownCategory)
			return
		}
		var req filterRequest
		if !bindJSON(c, &req) {
			return
		}
		candidates, err := models.FilterCandidates(c.Request.Context(), category, req.Filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"category": category, "count": len(candidates), "candidates": candidates})
	}
}

func dependentOptionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		category := models.PartCategory(c.Param("category"))
		if !category.Valid() {
			respondError(c, utils.ErrorUnknownCategory)
			return
		}
		attribute := models.FilterAttribute(c.Param("attribute"))
		if !attribute.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown filter attribute"})
			return
		}
		var req filterRequest
		if !bindJSON(c, &req) {
			return
		}
		values, err := models.ListDependentOptionValues(c.Request.Context(), category, req.Filter, attribute)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"category": category, "attribute": attribute, "values": values})
	}
}

func resolveSelectionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "ResolveSelection")
		defer span.End()

		category := models.PartCategory(c.Param("category"))
		var req filterRequest
		if !bindJSON(c, &req) {
			return
		}
		spec, err := models.ResolveSelection(ctx, category, req.Filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"category": category, "spec": spec})
	}
}

func createStackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewStack
		if !bindJSON(c, &input) {
			return
		}
		stack, err := models.CreateStack(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, stack)
	}
}

func updateStackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "stackId")
		if !ok {
			return
		}
		var input models.NewStack
		if !bindJSON(c, &input) {
			return
		}
		stack, err := models.UpdateStack(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stack)
	}
}

func deleteStackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "stackId")
		if !ok {
			return
		}
		stack, err := models.DeleteStack(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stack)
	}
}

func listStacksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		stacks, err := models.ListStacks(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"stacks": stacks})
	}
}

func getStackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "stackId")
		if !ok {
			return
		}
		stack, err := models.GetStack(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stack)
	}
}

type addPartRequest struct {
	Category models.PartCategory    `json:"category" binding:"required"`
	Filter   models.SelectionFilter `json:"filter"`
}

func addPartHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		stackId, ok := pathId(c, "stackId")
		if !ok {
			return
		}
		var req addPartRequest
		if !bindJSON(c, &req) {
			return
		}
		member, err := models.AddPartToStack(c.Request.Context(), stackId, req.Category, req.Filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, member)
	}
}

func removePartHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		stackId, ok := pathId(c, "stackId")
		if !ok {
			return
		}
		memberId, ok := pathId(c, "memberId")
		if !ok {
			return
		}
		if err := models.RemoveFromStack(c.Request.Context(), stackId, memberId); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type reorderRequest struct {
	MemberIds []int `json:"member_ids" binding:"required"`
}

func reorderStackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		stackId, ok := pathId(c, "stackId")
		if !ok {
			return
		}
		var req reorderRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := models.ReorderStack(c.Request.Context(), stackId, req.MemberIds); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func startAdapterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req filterRequest
		if !bindJSON(c, &req) {
			return
		}
		selector, err := models.StartAdapterSide1(c.Request.Context(), req.Filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, selector)
	}
}

func completeAdapterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		selectorId := c.Param("selectorId")
		var req filterRequest
		if !bindJSON(c, &req) {
			return
		}
		selector, err := models.CompleteAdapterSide2(c.Request.Context(), selectorId, req.Filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, selector)
	}
}

type appendAdapterRequest struct {
	SelectorId string `json:"selector_id" binding:"required"`
}

func appendAdapterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		stackId, ok := pathId(c, "stackId")
		if !ok {
			return
		}
		var req appendAdapterRequest
		if !bindJSON(c, &req) {
			return
		}
		members, err := models.AppendAdapterToStack(c.Request.Context(), stackId, req.SelectorId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"members": members})
	}
}

func stackReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "BuildStackReport")
		defer span.End()

		stackId, ok := pathId(c, "stackId")
		if !ok {
			return
		}
		report, err := models.BuildStackReport(ctx, stackId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func renderReportHandler(render models.ReportRenderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		stackId, ok := pathId(c, "stackId")
		if !ok {
			return
		}
		file, err := models.RenderAndStoreReport(c.Request.Context(), stackId, render)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, file)
	}
}

func listSpecsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		specs, err := models.ListFlangeSpecs(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(specs), "specs": specs})
	}
}

func getSpecHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "specId")
		if !ok {
			return
		}
		spec, err := models.GetFlangeSpec(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, spec)
	}
}

func importSpecsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		defer file.Close()

		summary, err := models.ImportFlangeSpecsFromXlsx(c.Request.Context(), fileHeader.Filename, file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"summary": summary})
	}
}

func wrenchAuditHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		mismatches, err := models.AuditWrenchRefs(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(mismatches), "mismatches": mismatches})
	}
}

func registerRoutes(r *gin.Engine) {
	catalog := r.Group("/catalog")
	{
		catalog.GET("/categories", listCategoriesHandler())
		catalog.GET("/specs", listSpecsHandler())
		catalog.GET("/specs/:specId", getSpecHandler())
		catalog.POST("/specs/import", importSpecsHandler())
		catalog.GET("/wrench-audit", wrenchAuditHandler())
	}

	selection := r.Group("/selection")
	{
		selection.GET("/:category/target-options", targetOptionsHandler())
		selection.POST("/:category/candidates", listCandidatesHandler())
		selection.POST("/:category/options/:attribute", dependentOptionsHandler())
		selection.POST("/:category/resolve", resolveSelectionHandler())
	}

	adapters := r.Group("/adapters")
	{
		adapters.POST("", startAdapterHandler())
		adapters.POST("/:selectorId/side2", completeAdapterHandler())
	}

	stacks := r.Group("/stacks")
	{
		stacks.GET("", listStacksHandler())
		stacks.POST("", createStackHandler())
		stacks.GET("/:stackId", getStackHandler())
		stacks.PUT("/:stackId", updateStackHandler())
		stacks.DELETE("/:stackId", deleteStackHandler())
		stacks.POST("/:stackId/parts", addPartHandler())
		stacks.DELETE("/:stackId/parts/:memberId", removePartHandler())
		stacks.POST("/:stackId/adapter", appendAdapterHandler())
		stacks.PUT("/:stackId/order", reorderStackHandler())
		stacks.GET("/:stackId/report", stackReportHandler())
		stacks.POST("/:stackId/report/render", renderReportHandler(models.RenderPlainText))
		stacks.POST("/:stackId/report/export", renderReportHandler(reports.RenderExcel))
	}
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, we return 503 for app endpoints.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate app endpoints on dependency readiness.
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))

	// Optional rate limiting (recommended for production).
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())
	registerRoutes(r)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// IMPORTANT: AutoMigrate can run DDL that blocks tables and causes 504/502 timeouts.
	// Allow disabling migrations on startup (run them as a separate job instead).
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/")
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Middleware function to check rate limits.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := c.ClientIP()

	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
