package main

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"speed/config"
	"speed/models"
	"speed/services"
)

var (
	submissionsCounter prometheus.Counter
	reviewsCounter     prometheus.Counter
)

func init() {
	submissionsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "articles_submitted_total",
			Help: "Total number of articles submitted.",
		},
	)
	reviewsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "articles_reviewed_total",
			Help: "Total number of moderator review decisions.",
		},
	)
	prometheus.MustRegister(submissionsCounter, reviewsCounter)
}

// claimsKey is the gin context key holding the verified bearer claims.
const claimsKey = "claims"

// bearerClaimsMiddleware attaches verified token claims to the request
// context when a valid bearer token is present. Requests without one pass
// through anonymously; guards decide per route.
func bearerClaimsMiddleware(tokens *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			if claims, err := tokens.Verify(strings.TrimPrefix(authHeader, "Bearer ")); err == nil {
				c.Set(claimsKey, claims)
			}
		}
		c.Next()
	}
}

// adminGuard rejects requests whose token is missing, invalid or not an
// Administrator token.
func adminGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := requestClaims(c)
		if claims == nil || !models.Role(claims.Role).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}

func requestClaims(c *gin.Context) *services.Claims {
	value, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := value.(*services.Claims)
	return claims
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Database Connection
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to database.")

	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(&models.Article{}, &models.User{}); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	// Setup Services
	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn)
	mailer := services.NewMailer(cfg, logging)
	articleService := services.NewArticleService(db, logging, mailer)
	userService := services.NewUserService(db, logging, tokens)

	// Seeding
	userService.SeedAdmin(cfg)

	// Setup Router
	router := newRouter(cfg, tokens, mailer, articleService, userService, logging)

	// Setup Cron: daily reminder about the moderation queue
	if cfg.ReminderSchedule != "" && mailer.Enabled() {
		cronScheduler := cron.New()
		_, err := cronScheduler.AddFunc(cfg.ReminderSchedule, func() {
			pending, err := articleService.CountPending()
			if err != nil {
				logging.Error("Pending-queue reminder failed", zap.Error(err))
				return
			}
			emails, err := userService.ModeratorEmails()
			if err != nil {
				logging.Error("Pending-queue reminder failed", zap.Error(err))
				return
			}
			if mailer.NotifyPendingQueue(emails, int(pending)) {
				logging.Info("Pending-queue reminder sent", zap.Int64("pending", pending), zap.Int("moderators", len(emails)))
			}
		})
		if err != nil {
			logging.Fatal("Invalid reminder cron schedule", zap.Error(err))
		}
		cronScheduler.Start()
	}

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

// newRouter assembles the engine: default middleware (logger, recovery),
// CORS, bearer-claims extraction, and all route groups.
func newRouter(cfg *config.Config, tokens *services.TokenService, mailer *services.Mailer, articles *services.ArticleService, users *services.UserService, log *zap.Logger) *gin.Engine {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.CORSOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(bearerClaimsMiddleware(tokens))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	setupArticleRoutes(router, articles, log)
	setupUserRoutes(router, users, log)
	setupEmailRoutes(router, mailer)
	return router
}

func setupArticleRoutes(router *gin.Engine, articles *services.ArticleService, log *zap.Logger) {
	rg := router.Group("/api/articles")

	type articleBody struct {
		CustomID string `json:"customId"`
		Title    string `json:"title" binding:"required"`
		Authors  string `json:"authors" binding:"required"`
		Source   string `json:"source" binding:"required"`
		PubYear  string `json:"pubyear" binding:"required"`
		DOI      string `json:"doi" binding:"required"`
		Claim    string `json:"claim" binding:"required"`
		Evidence string `json:"evidence" binding:"required"`
	}

	toSubmitInput := func(body articleBody) (services.SubmitInput, error) {
		evidence, err := models.ParseEvidenceType(body.Evidence)
		if err != nil {
			return services.SubmitInput{}, err
		}
		return services.SubmitInput{
			CustomID: body.CustomID,
			Title:    body.Title,
			Authors:  body.Authors,
			Source:   body.Source,
			PubYear:  body.PubYear,
			DOI:      body.DOI,
			Claim:    body.Claim,
			Evidence: evidence,
		}, nil
	}

	// GET all articles, optionally filtered by status
	rg.GET("", func(c *gin.Context) {
		status := models.ArticleStatus(c.Query("status"))
		result, err := articles.FindAll(status)
		if err != nil {
			log.Error("Database query for articles failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	// GET single article by customId
	rg.GET("/:id", func(c *gin.Context) {
		article, err := articles.FindOne(c.Param("id"))
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "No Article found"})
				return
			}
			log.Error("Database query for article failed", zap.String("id", c.Param("id")), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, article)
	})

	// Submit new article (Submitter feature)
	rg.POST("/submit", func(c *gin.Context) {
		var body articleBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		input, err := toSubmitInput(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "message": err.Error()})
			return
		}
		if claims := requestClaims(c); claims != nil {
			input.SubmitterID = claims.Subject
			input.SubmitterEmail = claims.Email
		}

		article, err := articles.Submit(input)
		if err != nil {
			if errors.Is(err, services.ErrConflict) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "message": err.Error()})
				return
			}
			log.Error("Article submission failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to submit this article"})
			return
		}
		submissionsCounter.Inc()
		c.JSON(http.StatusCreated, gin.H{
			"message":      "Article submitted successfully",
			"article":      article,
			"notification": "Email notification will be sent when review is complete",
		})
	})

	// Update article
	rg.PUT("/:id", func(c *gin.Context) {
		var body articleBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		input, err := toSubmitInput(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		article, err := articles.Update(c.Param("id"), input)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "No Article found"})
			case errors.Is(err, services.ErrConflict):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			default:
				log.Error("Article update failed", zap.String("id", c.Param("id")), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to update this article"})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Article updated successfully", "article": article})
	})

	// Review article (Moderator feature)
	rg.POST("/:id/review", func(c *gin.Context) {
		var body struct {
			Status        string `json:"status" binding:"required,oneof=Approved Rejected"`
			ReviewComment string `json:"reviewComment"`
			IsDuplicate   *bool  `json:"isDuplicate"`
			DuplicateOf   string `json:"duplicateOf"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		reviewerID := "system"
		if claims := requestClaims(c); claims != nil {
			reviewerID = claims.Subject
		}

		article, err := articles.Review(c.Param("id"), services.ReviewInput{
			Status:        models.ArticleStatus(body.Status),
			ReviewComment: body.ReviewComment,
			IsDuplicate:   body.IsDuplicate,
			DuplicateOf:   body.DuplicateOf,
		}, reviewerID)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "No Article found"})
			case errors.Is(err, services.ErrSelfDuplicate):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				log.Error("Article review failed", zap.String("id", c.Param("id")), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to review this article"})
			}
			return
		}
		reviewsCounter.Inc()
		c.JSON(http.StatusOK, gin.H{"message": "Article reviewed successfully", "article": article})
	})

	// Advanced search (Searcher feature)
	rg.GET("/search/advanced", func(c *gin.Context) {
		result, err := articles.Search(services.SearchParams{
			Keywords:      c.Query("keywords"),
			EvidenceType:  c.Query("evidenceType"),
			SortBy:        c.DefaultQuery("sortBy", "createdAt"),
			SortDirection: c.DefaultQuery("sortDirection", "desc"),
			PubYearFrom:   c.Query("pubYearFrom"),
			PubYearTo:     c.Query("pubYearTo"),
			Authors:       c.Query("authors"),
			Status:        c.Query("status"),
			Source:        c.Query("source"),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to search articles"})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	// Moderation queue shortcut
	rg.GET("/moderator/pending", func(c *gin.Context) {
		result, err := articles.FindAll(models.StatusPending)
		if err != nil {
			log.Error("Database query for pending articles failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	// Duplicate check by DOI (Moderator feature)
	rg.POST("/check-duplicate", func(c *gin.Context) {
		var body struct {
			DOI       string `json:"doi" binding:"required"`
			ExcludeID string `json:"excludeId"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. 'doi' field is required."})
			return
		}
		result, err := articles.FindSimilarByDOI(body.DOI, body.ExcludeID)
		if err != nil {
			log.Error("Duplicate check failed", zap.String("doi", body.DOI), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to check for duplicates"})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	// Delete article
	rg.DELETE("/:id", func(c *gin.Context) {
		article, err := articles.Delete(c.Param("id"))
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "No such article"})
				return
			}
			log.Error("Article deletion failed", zap.String("id", c.Param("id")), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, article)
	})
}

func setupUserRoutes(router *gin.Engine, users *services.UserService, log *zap.Logger) {
	rg := router.Group("/api/users")

	// Registration
	rg.POST("/register", func(c *gin.Context) {
		var body struct {
			Username  string `json:"username" binding:"required"`
			Email     string `json:"email" binding:"required,email"`
			Password  string `json:"password" binding:"required,min=6"`
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		user, err := users.Register(services.RegisterInput{
			Username:  body.Username,
			Email:     body.Email,
			Password:  body.Password,
			FirstName: body.FirstName,
			LastName:  body.LastName,
		})
		if err != nil {
			if errors.Is(err, services.ErrUserExists) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			log.Error("User registration failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to register user"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": user})
	})

	// Login
	rg.POST("/login", func(c *gin.Context) {
		var body struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		result, err := users.Login(body.Email, body.Password)
		if err != nil {
			if errors.Is(err, services.ErrInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
				return
			}
			log.Error("Login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to log in"})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	// List all users (admin only)
	rg.GET("", adminGuard(), func(c *gin.Context) {
		result, err := users.FindAll()
		if err != nil {
			log.Error("Database query for users failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	// Update a user's role (admin only)
	rg.PUT("/:id/role", adminGuard(), func(c *gin.Context) {
		var body struct {
			Role string `json:"role" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		role, err := models.ParseRole(body.Role)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, err := users.UpdateRole(c.Param("id"), role)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "No user found"})
				return
			}
			log.Error("Role update failed", zap.String("id", c.Param("id")), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to update role"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User role updated successfully", "user": user})
	})
}

func setupEmailRoutes(router *gin.Engine, mailer *services.Mailer) {
	rg := router.Group("/email")

	rg.POST("/send", func(c *gin.Context) {
		var body struct {
			To       string `json:"to" binding:"required,email"`
			Subject  string `json:"subject" binding:"required"`
			HTML     string `json:"html" binding:"required"`
			Text     string `json:"text"`
			FromName string `json:"fromName"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if mailer.SendMail(body.To, body.Subject, body.HTML, body.Text, body.FromName) {
			c.JSON(http.StatusOK, gin.H{"success": true, "message": "Email sent successfully"})
		} else {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "Email sending failed"})
		}
	})

	rg.POST("/send-bulk", func(c *gin.Context) {
		var body struct {
			To       []string `json:"to" binding:"required,min=1,dive,email"`
			Subject  string   `json:"subject" binding:"required"`
			HTML     string   `json:"html" binding:"required"`
			Text     string   `json:"text"`
			FromName string   `json:"fromName"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if mailer.SendBulkMail(body.To, body.Subject, body.HTML, body.Text, body.FromName) {
			c.JSON(http.StatusOK, gin.H{"success": true, "message": "Bulk email sent successfully"})
		} else {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "Bulk email sending failed"})
		}
	})
}
