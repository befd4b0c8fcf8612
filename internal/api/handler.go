package api

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/kurihiro0119/github-sbom-licenses/internal/aggregator"
	apperrors "github.com/kurihiro0119/github-sbom-licenses/internal/errors"
)

// orgPattern matches GitHub organization logins; it also keeps report paths inside the report directory
var orgPattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]{0,38})$`)

// Handler handles API requests
type Handler struct {
	aggregator aggregator.Aggregator
}

// NewHandler creates a new API handler
func NewHandler(agg aggregator.Aggregator) *Handler {
	return &Handler{
		aggregator: agg,
	}
}

// GetOrgSummary returns the report summary of an organization
// GET /api/v1/orgs/:org/summary
func (h *Handler) GetOrgSummary(c *gin.Context) {
	org, ok := orgParam(c)
	if !ok {
		return
	}

	summary, err := h.aggregator.OrgSummary(c.Request.Context(), org)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": summary,
	})
}

// GetLicenseCounts returns dependency counts per license
// GET /api/v1/orgs/:org/licenses
func (h *Handler) GetLicenseCounts(c *gin.Context) {
	org, ok := orgParam(c)
	if !ok {
		return
	}

	counts, err := h.aggregator.LicenseCounts(c.Request.Context(), org)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": counts,
	})
}

// GetRepoSummaries returns per-repository summaries
// GET /api/v1/orgs/:org/repos
func (h *Handler) GetRepoSummaries(c *gin.Context) {
	org, ok := orgParam(c)
	if !ok {
		return
	}

	summaries, err := h.aggregator.RepoSummaries(c.Request.Context(), org)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": summaries,
	})
}

// GetRepoDependencies returns the dependencies of a repository
// GET /api/v1/orgs/:org/repos/:repo/dependencies
func (h *Handler) GetRepoDependencies(c *gin.Context) {
	org, ok := orgParam(c)
	if !ok {
		return
	}
	repo := c.Param("repo")

	deps, err := h.aggregator.RepoDependencies(c.Request.Context(), org, repo)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(deps) == 0 {
		respondError(c, apperrors.NewNotFoundError("repository "+repo))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": deps,
	})
}

// GetCopyleftDependencies returns every copyleft-licensed dependency
// GET /api/v1/orgs/:org/copyleft
func (h *Handler) GetCopyleftDependencies(c *gin.Context) {
	org, ok := orgParam(c)
	if !ok {
		return
	}

	deps, err := h.aggregator.CopyleftDependencies(c.Request.Context(), org)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": deps,
	})
}

// HealthCheck returns the health status
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func orgParam(c *gin.Context) (string, bool) {
	org := c.Param("org")
	if !orgPattern.MatchString(org) {
		respondError(c, apperrors.NewBadRequestError("invalid organization name"))
		return "", false
	}
	return org, true
}

func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch appErr.Code {
		case apperrors.ErrCodeNotFound:
			status = http.StatusNotFound
		case apperrors.ErrCodeBadRequest:
			status = http.StatusBadRequest
		case apperrors.ErrCodeUpstream, apperrors.ErrCodeSBOMUnavailable:
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    apperrors.ErrCodeInternal,
			"message": err.Error(),
		},
	})
}
