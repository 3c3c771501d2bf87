package server

import (
	"context"
	"errors"
	"rssreader/models"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Messages returned to clients. Internal detail only goes to the log.
const (
	MessageUrlRequired        = "URL is required"
	MessageFeedFailed         = "Failed to fetch RSS feed"
	MessageAudioNotFound      = "Failed to fetch audio file"
	MessageTranscriptionError = "Failed to transcribe audio"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rssreader_http_requests_total",
		Help: "The total number of HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rssreader_http_request_duration_seconds",
		Help:    "Latency of HTTP requests",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms up to ~40s
	}, []string{"method", "route"})
)

type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (*models.FeedResponse, error)
}

type TranscriptFetcher interface {
	Retrieve(ctx context.Context, url string) (*models.TranscriptResult, error)
}

type ServerConfig struct {
	// Normalizes feeds for POST /rss/fetch
	Feeds FeedFetcher

	// Transcribes audio for POST /transcribe-audio
	Transcripts TranscriptFetcher

	// Comma separated list of origins allowed to call the API from a browser
	CorsOrigins string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    int
}

// Returns a fiber.App instance to be used as the HTTP API of the reader
func Server(config *ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "rssreader",
		DisableStartupMessage: true,
		ReadTimeout:           config.ReadTimeout,
		WriteTimeout:          config.WriteTimeout,
		BodyLimit:             config.BodyLimit,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()
		if err != nil {
			// Let the error handler write the status before we read it
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		latency := time.Since(start)
		route := c.Route().Path
		status := c.Response().StatusCode()

		httpRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		httpLatency.WithLabelValues(c.Method(), route).Observe(latency.Seconds())

		log.WithFields(log.Fields{
			"method":    c.Method(),
			"route":     route,
			"status":    status,
			"latency":   latency,
			"requestId": c.GetRespHeader(fiber.HeaderXRequestID),
		}).Info("Request")
		return nil
	})

	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(compress.New())

	if config.CorsOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: config.CorsOrigins,
			AllowMethods: strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions}, ","),
			AllowHeaders: "Content-Type",
		}))
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Post("/rss/fetch", func(c *fiber.Ctx) error {
		url, ok := requestUrl(c)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: MessageUrlRequired})
		}

		feed, err := config.Feeds.Fetch(c.UserContext(), url)
		if err != nil {
			if models.IsValidation(err) {
				return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: MessageUrlRequired})
			}

			log.WithFields(log.Fields{
				"url":   url,
				"error": err,
			}).Error("Error fetching RSS feed")
			return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: MessageFeedFailed})
		}

		return c.JSON(feed)
	})

	app.Post("/transcribe-audio", func(c *fiber.Ctx) error {
		url, ok := requestUrl(c)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: MessageUrlRequired})
		}

		result, err := config.Transcripts.Retrieve(c.UserContext(), url)
		if err != nil {
			log.WithFields(log.Fields{
				"url":   url,
				"error": err,
			}).Error("Error transcribing audio")

			switch {
			case models.IsValidation(err):
				return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: MessageUrlRequired})
			case models.IsNotFound(err):
				return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{Error: MessageAudioNotFound})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: MessageTranscriptionError})
			}
		}

		return c.JSON(result)
	})

	return app
}

// requestUrl reads the url field of a JSON body. A body that does not parse
// counts as a missing url.
func requestUrl(c *fiber.Ctx) (string, bool) {
	var req models.UrlRequest
	if err := c.BodyParser(&req); err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Debug("Could not parse request body")
		return "", false
	}
	url := strings.TrimSpace(req.Url)
	return url, url != ""
}

// errorHandler answers everything the route handlers did not, such as
// unknown routes and oversized bodies, with a JSON error body
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	} else {
		log.WithFields(log.Fields{
			"path":  c.Path(),
			"error": err,
		}).Error("Unhandled error")
	}

	return c.Status(code).JSON(models.ErrorResponse{Error: message})
}
