package works

import (
	"net/http"

	"ourtextscores/internal/catalog"
	domain "ourtextscores/internal/domain/catalog"

	"github.com/gin-gonic/gin"
)

var svc *catalog.Service

// Init wires the catalog service once at startup.
func Init(s *catalog.Service) {
	svc = s
}

// viewerFrom builds the viewing actor; anonymous readers browse as a plain
// user so withheld material stays hidden from them.
func viewerFrom(c *gin.Context) domain.Actor {
	role := c.GetString("role")
	userID := c.GetUint("user_id")
	if role == "admin" || role == "moderator" {
		return domain.AdminActor(userID)
	}
	return domain.UserActor(userID)
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

// ------------------------------
// GET /works
// ------------------------------
func ListWorks(c *gin.Context) {
	works, err := svc.ListWorks(c.Request.Context())
	if err != nil {
		writeCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"works": works})
}

// GET /works/:id
func GetWork(c *gin.Context) {
	work, err := svc.GetWork(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, work)
}

// GET /works/:id/sources
func ListSources(c *gin.Context) {
	sources, err := svc.ListSources(c.Request.Context(), c.Param("id"), viewerFrom(c))
	if err != nil {
		writeCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

// GET /works/:id/sources/:sourceId
func GetSource(c *gin.Context) {
	src, err := svc.GetSource(c.Request.Context(), c.Param("id"), c.Param("sourceId"), viewerFrom(c))
	if err != nil {
		writeCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, src)
}

// GET /works/:id/sources/:sourceId/revisions
func ListRevisions(c *gin.Context) {
	revs, err := svc.ListRevisions(c.Request.Context(), c.Param("id"), c.Param("sourceId"), viewerFrom(c))
	if err != nil {
		writeCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revisions": revs})
}

// GET /works/:id/sources/:sourceId/branches
func ListBranches(c *gin.Context) {
	heads, err := svc.ListBranches(c.Request.Context(), c.Param("id"), c.Param("sourceId"))
	if err != nil {
		writeCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"branches": heads})
}

// GET /works/:id/sources/:sourceId/branches/:name/head
func GetBranchHead(c *gin.Context) {
	rev, err := svc.ResolveHead(c.Request.Context(), c.Param("id"), c.Param("sourceId"), c.Param("name"))
	if err != nil {
		writeCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, rev)
}
