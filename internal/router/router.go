package router

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	echoSwagger "github.com/swaggo/echo-swagger"

	"nanum/internal/config"
	apperrors "nanum/internal/errors"
	"nanum/internal/handler"
	"nanum/internal/logging"
	authmw "nanum/internal/middleware"
)

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	log logging.Logger,
	resolver authmw.UserResolver,
	rdb *redis.Client,
	authHandler *handler.AuthHandler,
	adminHandler *handler.AdminHandler,
	boardHandler *handler.BoardHandler,
	checks map[string]HealthCheck,
) {
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler(log)

	e.GET("/healthz", healthz(checks))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api", authmw.Identify(resolver, cfg.SessionCookieName, log))
	limited := authmw.RateLimit(cfg.RateLimit, rdb, log)

	// Public routes
	api.POST("/auth/send-verification", authHandler.SendVerification, limited)
	api.POST("/auth/check-verification", authHandler.CheckVerification)
	api.GET("/auth/verification-events", authHandler.VerificationEvents)
	api.POST("/auth/signup", authHandler.Signup)
	api.POST("/auth/confirm-email", authHandler.ConfirmEmail)
	api.POST("/auth/resend-confirmation", authHandler.ResendConfirmation, limited)
	api.POST("/auth/login", authHandler.Login, limited)
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/boards", boardHandler.ListBoards)
	api.GET("/boards/:slug/access", boardHandler.BoardAccess)

	// Credential store callback, authenticated with a shared-secret HS256 token
	api.POST("/auth/webhooks/verification", authHandler.VerificationWebhook, echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(cfg.WebhookSecret),
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ErrorHandler: func(c echo.Context, err error) error {
			return unauthenticated()
		},
	}))

	// Signed-in routes
	api.GET("/auth/user", authHandler.CurrentUser, authmw.RequireUser())

	// Admin routes
	admin := api.Group("/admin", authmw.RequireAdmin())
	admin.GET("/pending-users", adminHandler.PendingUsers)
	admin.PUT("/users/:userId/approve", adminHandler.ApproveUser)
	admin.PUT("/users/:userId/reject", adminHandler.RejectUser)
}

func unauthenticated() error {
	httpErr := apperrors.MapErrorToHTTP(apperrors.ErrUnauthenticated)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

func healthz(checks map[string]HealthCheck) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{}
		healthy := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status[name] = "down"
				healthy = false
				continue
			}
			status[name] = "ok"
		}
		if !healthy {
			return c.JSON(http.StatusServiceUnavailable, status)
		}
		return c.JSON(http.StatusOK, status)
	}
}

// ErrorHandler renders every error as an errors.ErrorResponse.
func ErrorHandler(log logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := http.StatusInternalServerError, apperrors.ErrorResponse{}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if resp, ok := he.Message.(apperrors.ErrorResponse); ok {
				body = resp
			} else {
				body = genericBody(status)
			}
		} else {
			httpErr := apperrors.MapErrorToHTTP(err)
			status, body = httpErr.StatusCode, httpErr.ToErrorResponse()
			if status >= http.StatusInternalServerError {
				log.Error(c.Request().Context(), "unhandled error", "path", c.Path(), "error", err)
			}
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.Error(c.Request().Context(), "write error response failed", "error", werr)
		}
	}
}

func genericBody(status int) apperrors.ErrorResponse {
	switch status {
	case http.StatusBadRequest:
		return apperrors.ErrorResponse{Error: "잘못된 요청입니다.", Code: "BAD_REQUEST"}
	case http.StatusUnauthorized:
		return apperrors.MapErrorToHTTP(apperrors.ErrUnauthenticated).ToErrorResponse()
	case http.StatusForbidden:
		return apperrors.MapErrorToHTTP(apperrors.ErrForbidden).ToErrorResponse()
	case http.StatusNotFound:
		return apperrors.MapErrorToHTTP(apperrors.ErrNotFound).ToErrorResponse()
	case http.StatusMethodNotAllowed:
		return apperrors.ErrorResponse{Error: "허용되지 않은 요청 방식입니다.", Code: "METHOD_NOT_ALLOWED"}
	case http.StatusRequestEntityTooLarge:
		return apperrors.ErrorResponse{Error: "요청 본문이 너무 큽니다.", Code: "PAYLOAD_TOO_LARGE"}
	case http.StatusServiceUnavailable:
		return apperrors.ErrorResponse{Error: "서비스를 일시적으로 사용할 수 없습니다.", Code: "UNAVAILABLE"}
	default:
		return apperrors.MapErrorToHTTP(errors.New("internal")).ToErrorResponse()
	}
}

// CustomValidator wraps validator for Echo and turns field errors into
// apperrors.ValidationError with Korean messages.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator builds the validator, reporting JSON field names.
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.Validation("", "입력값이 올바르지 않습니다.")
	}
	fe := verrs[0]
	return apperrors.Validation(fe.Field(), fieldMessage(fe))
}

var fieldLabels = map[string]string{
	"email":           "이메일",
	"password":        "비밀번호",
	"passwordConfirm": "비밀번호 확인",
	"name":            "이름",
	"token":           "인증 토큰",
}

func fieldMessage(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + "을(를) 입력해주세요."
	case "min":
		return label + "은(는) " + fe.Param() + "자 이상이어야 합니다."
	case "email":
		return "올바른 이메일 형식이 아닙니다."
	default:
		return label + " 값이 올바르지 않습니다."
	}
}
