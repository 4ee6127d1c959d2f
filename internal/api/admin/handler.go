package admin

import (
	"net/http"

	"ourtextscores/database"
	"ourtextscores/internal/catalog"
	domain "ourtextscores/internal/domain/catalog"
	"ourtextscores/internal/domain/users"
	"ourtextscores/internal/infra/imslp"

	"github.com/gin-gonic/gin"
)

var (
	svc    *catalog.Service
	lookup *imslp.Client
)

// Init wires the catalog service and IMSLP client once at startup.
func Init(s *catalog.Service, l *imslp.Client) {
	svc = s
	lookup = l
}

type AdminUser struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Lastname   string `json:"lastname"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
}

type AdminStats struct {
	TotalUsers    int `json:"total_users"`
	TotalWorks    int `json:"total_works"`
	FlaggedWorks  int `json:"flagged_works"`
	VerifiedWorks int `json:"verified_works"`
}

func adminActorFrom(c *gin.Context) domain.Actor {
	return domain.AdminActor(c.GetUint("user_id"))
}

func writeCatalogError(c *gin.Context, err error) {
	switch {
	case domain.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case domain.IsUnauthorized(err):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case domain.IsInvalidState(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case domain.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case domain.IsUpstream(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func AdminDashboard(c *gin.Context) {
	var stats AdminStats

	var totalUsers, totalWorks, flagged, verified int64
	database.DB.Model(&users.User{}).Count(&totalUsers)
	database.DB.Model(&domain.Work{}).Count(&totalWorks)
	database.DB.Model(&domain.Work{}).Where("has_flagged_sources = ?", true).Count(&flagged)
	database.DB.Model(&domain.Work{}).Where("has_verified_sources = ?", true).Count(&verified)

	stats.TotalUsers = int(totalUsers)
	stats.TotalWorks = int(totalWorks)
	stats.FlaggedWorks = int(flagged)
	stats.VerifiedWorks = int(verified)

	c.JSON(http.StatusOK, stats)
}

func ListAllUsers(c *gin.Context) {
	var all []users.User
	err := database.DB.Find(&all).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}

	var adminUsers []AdminUser
	for _, u := range all {
		adminUsers = append(adminUsers, AdminUser{
			ID:         u.ID,
			Name:       u.Name,
			Lastname:   u.Lastname,
			Email:      u.Email,
			Role:       u.Role,
			IsVerified: u.IsVerified,
		})
	}

	c.JSON(http.StatusOK, adminUsers)
}

func GetUserDetails(c *gin.Context) {
	userID := c.Param("id")

	var user users.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ------------------------------
// POST /admin/works/import
// ------------------------------
//
// Registers a work from an external catalog reference. When the IMSLP lookup
// succeeds its metadata wins over the caller-provided fallbacks.
func ImportWork(c *gin.Context) {
	var req struct {
		Ref           string `json:"ref" binding:"required"`
		Title         string `json:"title"`
		Composer      string `json:"composer"`
		CatalogNumber string `json:"catalog_number"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	work := domain.Work{
		WorkID:        "imslp:" + req.Ref,
		Title:         req.Title,
		Composer:      req.Composer,
		CatalogNumber: req.CatalogNumber,
	}
	if info, err := lookup.Lookup(c.Request.Context(), req.Ref); err == nil {
		if info.PageID != "" {
			work.WorkID = "imslp:" + info.PageID
		}
		work.Title = info.Title
		if info.Composer != "" {
			work.Composer = info.Composer
		}
		if info.CatalogNumber != "" {
			work.CatalogNumber = info.CatalogNumber
		}
	}
	if work.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Work title could not be resolved"})
		return
	}

	stored, created, err := svc.EnsureWork(c.Request.Context(), work)
	if err != nil {
		writeCatalogError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, stored)
}

// POST /admin/works/:id/sources/:sourceId/verify
func VerifySource(c *gin.Context) {
	setModeration(c, catalog.ModerationVerify)
}

// POST /admin/works/:id/sources/:sourceId/flag
func FlagSource(c *gin.Context) {
	setModeration(c, catalog.ModerationFlag)
}

func setModeration(c *gin.Context, kind catalog.ModerationKind) {
	var req struct {
		Value bool   `json:"value"`
		Note  string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	src, err := svc.SetModeration(c.Request.Context(), c.Param("id"), c.Param("sourceId"), kind, req.Value, req.Note, adminActorFrom(c))
	if err != nil {
		writeCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, src)
}

type visibilityRequest struct {
	Scope      string `json:"scope" binding:"required"` // source | revision
	WorkID     string `json:"work_id" binding:"required"`
	SourceID   string `json:"source_id" binding:"required"`
	RevisionID string `json:"revision_id"`
	CaseID     string `json:"case_id"`
	Reason     string `json:"reason"`
	By         string `json:"by"`
}

// POST /admin/takedown
func Takedown(c *gin.Context) {
	applyVisibility(c, domain.VisibilityWithheldDMCA)
}

// POST /admin/restore
func Restore(c *gin.Context) {
	applyVisibility(c, domain.VisibilityPublic)
}

func applyVisibility(c *gin.Context, state domain.VisibilityState) {
	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := svc.ApplyVisibility(c.Request.Context(),
		catalog.VisibilityTarget{
			Scope:      domain.VisibilityScope(req.Scope),
			WorkID:     req.WorkID,
			SourceID:   req.SourceID,
			RevisionID: req.RevisionID,
		},
		state,
		catalog.WithholdDetails{CaseID: req.CaseID, Reason: req.Reason, By: req.By},
		adminActorFrom(c),
	)
	if err != nil {
		writeCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Visibility updated"})
}
