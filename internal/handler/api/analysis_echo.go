package api

import (
	"context"
	"errors"
	"net/http"

	"QuantLab/internal/domain/models"
	domrepo "QuantLab/internal/domain/repository"
	"QuantLab/internal/usecase"
	xhttp "QuantLab/pkg/http"
	xlogger "QuantLab/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AnalysisEchoHandler serves the pairs and regime endpoints.
type AnalysisEchoHandler struct {
	logger *xlogger.Logger
	uc     *usecase.AnalysisUseCase
	mw     []echo.MiddlewareFunc
}

// NewAnalysisEchoHandler builds the handler; mw wraps only the analysis
// routes (rate limiting, for example).
func NewAnalysisEchoHandler(logger *xlogger.Logger, uc *usecase.AnalysisUseCase, mw ...echo.MiddlewareFunc) *AnalysisEchoHandler {
	return &AnalysisEchoHandler{logger: logger, uc: uc, mw: mw}
}

func (h *AnalysisEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1", h.mw...)
	g.POST("/pairs", h.PostPairs)
	g.GET("/pairs", h.GetPairs)
	g.POST("/regimes", h.PostRegimes)
	g.GET("/regimes", h.GetRegimes)
}

func (h *AnalysisEchoHandler) PostPairs(c echo.Context) error {
	req := &models.PairsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.uc.Pairs(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "pairs", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) GetPairs(c echo.Context) error {
	q := &models.PairsQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, q); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.uc.PairsFromStore(c.Request().Context(), *q)
	if err != nil {
		return h.fail(c, "pairs", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) PostRegimes(c echo.Context) error {
	req := &models.RegimeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.uc.Regime(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "regimes", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) GetRegimes(c echo.Context) error {
	q := &models.RegimeQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, q); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.uc.RegimeFromStore(c.Request().Context(), *q)
	if err != nil {
		return h.fail(c, "regimes", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) fail(c echo.Context, op string, err error) error {
	var appErr *xhttp.AppError
	switch {
	case errors.Is(err, usecase.ErrNoPrices):
		appErr = xhttp.NotFoundErrorf("%v", err)
	case errors.Is(err, usecase.ErrStoreDisabled):
		appErr = xhttp.NewAppError("ERR_STORE_DISABLED", "", "symbol queries need the price store", http.StatusServiceUnavailable)
	case errors.Is(err, domrepo.ErrStoreUnavailable):
		appErr = xhttp.NewAppError("ERR_STORE_UNAVAILABLE", "", "price store unavailable, retry later", http.StatusServiceUnavailable)
	case errors.Is(err, context.DeadlineExceeded):
		appErr = xhttp.NewAppError("ERR_TIMEOUT", "", "analysis timed out", http.StatusGatewayTimeout)
	default:
		appErr = xhttp.FromQuantError(err)
	}
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" usecase error", xlogger.Error(err))
	} else {
		h.logger.Debug(op+" rejected", xlogger.String("code", appErr.Code), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
